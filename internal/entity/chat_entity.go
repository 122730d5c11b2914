// FILE: internal/entity/chat_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// IsValidChatRole reports whether role belongs to the closed role set.
func IsValidChatRole(role string) bool {
	return role == ChatMessageRoleUser || role == ChatMessageRoleAssistant
}

// ChatMessage is one row of chat history. Id is an autoincrement integer,
// so (CreatedAt, Id) is monotonic per insertion order even when two inserts
// land in the same clock tick.
type ChatMessage struct {
	Id             int64
	UserId         uuid.UUID
	ConversationId uuid.UUID
	Role           string
	Content        string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}

// ConversationSummary is a derived aggregate over the messages sharing one
// (user_id, conversation_id) pair. Conversations have no row of their own.
type ConversationSummary struct {
	ConversationId uuid.UUID
	MessageCount   int64
	StartedAt      time.Time
	LastMessageAt  time.Time
	Preview        string
}

type ConversationStats struct {
	ConversationId    uuid.UUID
	TotalMessages     int64
	UserMessages      int64
	AssistantMessages int64
	StartedAt         time.Time
	LastMessageAt     time.Time
}

type UserChatStats struct {
	TotalConversations     int64
	TotalMessages          int64
	TotalUserMessages      int64
	TotalAssistantMessages int64
	FirstMessageAt         *time.Time
	LastMessageAt          *time.Time
	DailyCounts            []DailyMessageCount
}

// DailyMessageCount buckets message volume by calendar day for the
// trailing 30-day window.
type DailyMessageCount struct {
	Date  string
	Count int64
}
