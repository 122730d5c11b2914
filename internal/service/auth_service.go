// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/mailer"
	"ai-chat-be/internal/pkg/token"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, tokenStr string) error
	Authenticate(ctx context.Context, tokenStr string) (*entity.User, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
	Deactivate(ctx context.Context, userId uuid.UUID) error
}

type authService struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	issuer       *token.Issuer
	validate     *validator.Validate
	log          logger.ILogger
	isProduction bool
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	issuer *token.Issuer,
	log logger.ILogger,
	isProduction bool,
) IAuthService {
	return &authService{
		uowFactory:   uowFactory,
		emailService: emailService,
		issuer:       issuer,
		validate:     validator.New(),
		log:          log,
		isProduction: isProduction,
	}
}

func hashToken(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword enforces the minimum policy: 8+ characters with at
// least one letter and one digit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return validationError("password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return validationError("password must contain at least one letter and one digit")
	}
	return nil
}

func (s *authService) toUserDTO(user *entity.User) dto.UserDTO {
	return dto.UserDTO{
		Id:          user.Id,
		Email:       user.Email,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// openSession issues a JWT and persists its hash as a session row.
// Both happen together so a signed token without a row cannot exist.
func (s *authService) openSession(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) (string, error) {
	signedToken, err := s.issuer.Issue(user.Id, user.Email)
	if err != nil {
		return "", err
	}

	session := &entity.UserSession{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashToken(signedToken),
		ExpiresAt: time.Now().Add(s.issuer.TTL()),
		CreatedAt: time.Now(),
	}
	if err := uow.UserRepository().CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %v", err)
	}

	return signedToken, nil
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError("email and password are required")
	}
	req.Email = normalizeEmail(req.Email)

	if req.Password != req.ConfirmPassword {
		return nil, validationError("passwords do not match")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// 1. Check for existing user
	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, validationError("email already registered")
	}

	// 2. Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Id:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// 3. Save user and open the first session atomically
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	signedToken, err := s.openSession(ctx, uow, user)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("auth", "user registered", map[string]interface{}{"user_id": user.Id})

	return &dto.AuthResponse{User: s.toUserDTO(user), Token: signedToken}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError("email and password are required")
	}
	req.Email = normalizeEmail(req.Email)

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx,
		specification.ByEmail{Email: req.Email},
		specification.ActiveUsers{},
	)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	signedToken, err := s.openSession(ctx, uow, user)
	if err != nil {
		return nil, err
	}

	if err := uow.UserRepository().UpdateLastLogin(ctx, user.Id); err != nil {
		return nil, err
	}
	now := time.Now()
	user.LastLoginAt = &now

	return &dto.AuthResponse{User: s.toUserDTO(user), Token: signedToken}, nil
}

func (s *authService) Logout(ctx context.Context, tokenStr string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	found, err := uow.UserRepository().DeleteSessionByHash(ctx, hashToken(tokenStr))
	if err != nil {
		return err
	}
	if !found {
		return validationError("session not found")
	}
	return nil
}

// Authenticate resolves a bearer token to its user, or nil when the
// token should be rejected. A valid signature is necessary but not
// sufficient: the session row must still exist and be unexpired, and
// the user must still be active.
func (s *authService) Authenticate(ctx context.Context, tokenStr string) (*entity.User, error) {
	claims, err := s.issuer.Verify(tokenStr)
	if err != nil {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.UserRepository().FindSession(ctx,
		specification.ByTokenHash{Hash: hashToken(tokenStr)},
		specification.ExpiresAfter{Time: time.Now()},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	user, err := uow.UserRepository().FindOne(ctx,
		specification.ByID{ID: claims.UserId},
		specification.ActiveUsers{},
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) (*dto.ForgotPasswordResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError("email is required")
	}
	req.Email = normalizeEmail(req.Email)

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx,
		specification.ByEmail{Email: req.Email},
		specification.ActiveUsers{},
	)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// The response never reveals whether the email exists.
		return &dto.ForgotPasswordResponse{}, nil
	}

	// Only one reset token may be live per user.
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if _, err := uow.UserRepository().DeleteResetTokensForUser(ctx, user.Id); err != nil {
		return nil, err
	}

	resetToken := &entity.PasswordResetToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(time.Hour),
		Used:      false,
		CreatedAt: time.Now(),
	}
	if err := uow.UserRepository().CreatePasswordResetToken(ctx, resetToken); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	go func() {
		if emailErr := s.emailService.SendResetToken(user.Email, resetToken.Token); emailErr != nil {
			s.log.Error("auth", "failed to send reset email", map[string]interface{}{
				"user_id": user.Id,
				"error":   emailErr.Error(),
			})
		}
	}()

	res := &dto.ForgotPasswordResponse{}
	if !s.isProduction {
		res.ResetToken = resetToken.Token
	}
	return res, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return validationError("token and new password are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return validationError("passwords do not match")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	tokenEntity, err := uow.UserRepository().FindPasswordResetToken(ctx,
		specification.ByToken{Token: req.Token},
	)
	if err != nil {
		return err
	}
	if tokenEntity == nil || tokenEntity.Used || time.Now().After(tokenEntity.ExpiresAt) {
		return validationError("invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	// Password change, token burn and session revocation land together.
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	updated, err := uow.UserRepository().UpdatePassword(ctx, tokenEntity.UserId, string(hash))
	if err != nil {
		return err
	}
	if !updated {
		return validationError("invalid or expired reset token")
	}

	if err := uow.UserRepository().MarkTokenUsed(ctx, tokenEntity.Id); err != nil {
		return err
	}

	if _, err := uow.UserRepository().DeleteSessionsForUser(ctx, tokenEntity.UserId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.log.Info("auth", "password reset completed", map[string]interface{}{"user_id": tokenEntity.UserId})
	return nil
}

func (s *authService) Deactivate(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	deactivated, err := uow.UserRepository().Deactivate(ctx, userId)
	if err != nil {
		return err
	}
	if !deactivated {
		return validationError("user not found")
	}

	if _, err := uow.UserRepository().DeleteSessionsForUser(ctx, userId); err != nil {
		return err
	}

	return uow.Commit()
}
