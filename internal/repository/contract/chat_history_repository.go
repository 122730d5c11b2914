package contract

import (
	"context"
	"errors"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ErrInvalidRole rejects writes with a role outside {user, assistant}.
var ErrInvalidRole = errors.New("invalid chat message role")

type ChatHistoryRepository interface {
	// Create persists a message, filling in its assigned Id. Fails with
	// ErrInvalidRole for roles outside the closed set.
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// GetConversation returns messages ascending by (created_at, id).
	// A positive limit returns the most recent limit messages, still in
	// ascending order (a tail window, not a truncation from the start).
	GetConversation(ctx context.Context, userId, conversationId uuid.UUID, limit int) ([]*entity.ChatMessage, error)

	// GetUserConversations groups messages by conversation, newest
	// activity first. Preview is the leading 100 characters of the
	// earliest user message in each conversation.
	GetUserConversations(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.ConversationSummary, error)

	SearchMessages(ctx context.Context, userId uuid.UUID, term string, limit, offset int) ([]*entity.ChatMessage, error)

	// HasMessages is the ownership check: a conversation belongs to a
	// user iff at least one of its message rows does.
	HasMessages(ctx context.Context, userId, conversationId uuid.UUID) (bool, error)

	DeleteConversation(ctx context.Context, userId, conversationId uuid.UUID) (int64, error)

	GetConversationStats(ctx context.Context, userId, conversationId uuid.UUID) (*entity.ConversationStats, error)
	GetUserStats(ctx context.Context, userId uuid.UUID) (*entity.UserChatStats, error)
}
