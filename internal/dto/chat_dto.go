// FILE: internal/dto/chat_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	Message        string     `json:"message" validate:"required"`
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
}

type SendChatResponse struct {
	Message        string    `json:"message"`
	ConversationId uuid.UUID `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
	IsError        bool      `json:"is_error,omitempty"`
}

type ChatMessageDTO struct {
	Id             int64                  `json:"id"`
	ConversationId uuid.UUID              `json:"conversation_id"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

type ConversationSummaryDTO struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	MessageCount   int64     `json:"message_count"`
	StartedAt      time.Time `json:"started_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	Preview        string    `json:"preview"`
}

type ConversationListResponse struct {
	Conversations []ConversationSummaryDTO `json:"conversations"`
	Page          int                      `json:"page"`
	HasMore       bool                     `json:"has_more"`
}

type ConversationStatsDTO struct {
	ConversationId    uuid.UUID `json:"conversation_id"`
	TotalMessages     int64     `json:"total_messages"`
	UserMessages      int64     `json:"user_messages"`
	AssistantMessages int64     `json:"assistant_messages"`
	StartedAt         time.Time `json:"started_at"`
	LastMessageAt     time.Time `json:"last_message_at"`
}

type ConversationDetailResponse struct {
	ConversationId uuid.UUID             `json:"conversation_id"`
	Messages       []ChatMessageDTO      `json:"messages"`
	Stats          *ConversationStatsDTO `json:"stats,omitempty"`
}

type SearchResultDTO struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type SearchResponse struct {
	Results []SearchResultDTO `json:"results"`
	Query   string            `json:"query"`
	Page    int               `json:"page"`
	HasMore bool              `json:"has_more"`
}

type DailyCountDTO struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type UserStatsResponse struct {
	TotalConversations     int64           `json:"total_conversations"`
	TotalMessages          int64           `json:"total_messages"`
	TotalUserMessages      int64           `json:"total_user_messages"`
	TotalAssistantMessages int64           `json:"total_assistant_messages"`
	FirstMessageAt         *time.Time      `json:"first_message_at,omitempty"`
	LastMessageAt          *time.Time      `json:"last_message_at,omitempty"`
	DailyCounts            []DailyCountDTO `json:"daily_counts"`
}

type ExportResponse struct {
	ConversationId uuid.UUID             `json:"conversation_id"`
	UserId         uuid.UUID             `json:"user_id"`
	Messages       []ChatMessageDTO      `json:"messages"`
	Stats          *ConversationStatsDTO `json:"stats,omitempty"`
	ExportedAt     time.Time             `json:"exported_at"`
}
