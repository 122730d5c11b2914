package service

import (
	"context"
	"errors"
	"testing"

	"ai-chat-be/internal/model"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/token"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/database"
)

func newTestFactory(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()

	db, err := database.NewInMemoryDB()
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.UserSession{},
		&model.PasswordResetToken{},
		&model.ChatMessage{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return unitofwork.NewRepositoryFactory(db)
}

type fakeEmailService struct {
	sentTo    []string
	lastToken string
}

func (f *fakeEmailService) SendResetToken(toEmail, token string) error {
	f.sentTo = append(f.sentTo, toEmail)
	f.lastToken = token
	return nil
}

type stubGenerator struct {
	reply string
	err   error
	// prompts records what the generator was asked, for context checks
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

var errGeneratorDown = errors.New("upstream unavailable")

func newTestAuthService(t *testing.T, factory unitofwork.RepositoryFactory) IAuthService {
	t.Helper()
	issuer := token.NewIssuer("test-secret", 1)
	return NewAuthService(factory, &fakeEmailService{}, issuer, logger.NewNopLogger(), false)
}
