package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatMessage keeps an autoincrement primary key on purpose: insertion
// order must stay recoverable even when created_at values collide.
type ChatMessage struct {
	Id             int64          `gorm:"primaryKey;autoIncrement"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_owner"`
	ConversationId uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_owner"`
	Role           string         `gorm:"type:varchar(50);not null"`
	Content        string         `gorm:"type:text;not null"`
	Metadata       datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
