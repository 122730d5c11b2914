package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	UpdatePassword(ctx context.Context, userId uuid.UUID, hash string) (bool, error)
	UpdateLastLogin(ctx context.Context, userId uuid.UUID) error
	Deactivate(ctx context.Context, userId uuid.UUID) (bool, error)

	// Session Management (kept here for cohesion with the credential tables)
	CreateSession(ctx context.Context, session *entity.UserSession) error
	FindSession(ctx context.Context, specs ...specification.Specification) (*entity.UserSession, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteSessionsForUser(ctx context.Context, userId uuid.UUID) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Password Reset Tokens
	CreatePasswordResetToken(ctx context.Context, token *entity.PasswordResetToken) error
	FindPasswordResetToken(ctx context.Context, specs ...specification.Specification) (*entity.PasswordResetToken, error)
	DeleteResetTokensForUser(ctx context.Context, userId uuid.UUID) (int64, error)
	MarkTokenUsed(ctx context.Context, id uuid.UUID) error
	DeleteStaleResetTokens(ctx context.Context, now time.Time) (int64, error)
}
