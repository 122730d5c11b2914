package service

import "errors"

// ErrInvalidCredentials covers unknown emails and wrong passwords
// alike, so responses cannot reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError marks a failure whose message is safe to echo to the
// client. Any other error is internal: controllers hand it to the
// error handler, which logs the detail and answers with a generic 500.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}
