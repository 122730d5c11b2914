package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

// ContentLike matches message content case-insensitively. The pattern is
// parameterized, never concatenated into SQL.
type ContentLike struct {
	Term string
}

func (s ContentLike) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(content) LIKE LOWER(?)", "%"+s.Term+"%")
}
