package implementation

import (
	"context"
	"fmt"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatHistoryRepository(db *gorm.DB) contract.ChatHistoryRepository {
	return &ChatHistoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatHistoryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatHistoryRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	if !entity.IsValidChatRole(message.Role) {
		return contract.ErrInvalidRole
	}
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatHistoryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatMessagesToEntities(models), nil
}

func (r *ChatHistoryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatMessage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChatHistoryRepositoryImpl) GetConversation(ctx context.Context, userId, conversationId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userId, conversationId)

	if limit > 0 {
		// Tail window: fetch the newest rows descending, then reverse so
		// callers always see ascending order.
		if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
			models[i], models[j] = models[j], models[i]
		}
	} else {
		if err := query.Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
			return nil, err
		}
	}

	return r.mapper.ChatMessagesToEntities(models), nil
}

// sqliteTimeLayout matches the strftime('%Y-%m-%d %H:%M:%f', ...) output
// used to normalize aggregate datetime columns, which otherwise lose their
// decltype and come back as bare text.
const sqliteTimeLayout = "2006-01-02 15:04:05.999"

func parseSqliteTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed aggregate timestamp %q: %w", value, err)
	}
	return t, nil
}

type conversationRow struct {
	ConversationId uuid.UUID
	MessageCount   int64
	StartedAt      string
	LastMessageAt  string
	Preview        string
}

func (r *ChatHistoryRepositoryImpl) GetUserConversations(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.ConversationSummary, error) {
	var rows []conversationRow

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			cm.conversation_id,
			COUNT(*) AS message_count,
			strftime('%Y-%m-%d %H:%M:%f', MIN(cm.created_at)) AS started_at,
			strftime('%Y-%m-%d %H:%M:%f', MAX(cm.created_at)) AS last_message_at,
			COALESCE((
				SELECT SUBSTR(first.content, 1, 100)
				FROM chat_messages first
				WHERE first.conversation_id = cm.conversation_id
				  AND first.user_id = cm.user_id
				  AND first.role = 'user'
				ORDER BY first.created_at ASC, first.id ASC
				LIMIT 1
			), '') AS preview
		FROM chat_messages cm
		WHERE cm.user_id = ?
		GROUP BY cm.conversation_id
		ORDER BY MAX(cm.created_at) DESC, MAX(cm.id) DESC
		LIMIT ? OFFSET ?
	`, userId, limit, offset).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]*entity.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		startedAt, err := parseSqliteTime(row.StartedAt)
		if err != nil {
			return nil, err
		}
		lastMessageAt, err := parseSqliteTime(row.LastMessageAt)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &entity.ConversationSummary{
			ConversationId: row.ConversationId,
			MessageCount:   row.MessageCount,
			StartedAt:      startedAt,
			LastMessageAt:  lastMessageAt,
			Preview:        row.Preview,
		})
	}
	return summaries, nil
}

func (r *ChatHistoryRepositoryImpl) SearchMessages(ctx context.Context, userId uuid.UUID, term string, limit, offset int) ([]*entity.ChatMessage, error) {
	return r.FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ContentLike{Term: term},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.OrderBy{Field: "id", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
}

func (r *ChatHistoryRepositoryImpl) HasMessages(ctx context.Context, userId, conversationId uuid.UUID) (bool, error) {
	count, err := r.Count(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByConversationID{ConversationID: conversationId},
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ChatHistoryRepositoryImpl) DeleteConversation(ctx context.Context, userId, conversationId uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userId, conversationId).
		Delete(&model.ChatMessage{})
	return res.RowsAffected, res.Error
}

func (r *ChatHistoryRepositoryImpl) GetConversationStats(ctx context.Context, userId, conversationId uuid.UUID) (*entity.ConversationStats, error) {
	var row struct {
		ConversationId    uuid.UUID
		TotalMessages     int64
		UserMessages      int64
		AssistantMessages int64
		StartedAt         string
		LastMessageAt     string
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			conversation_id,
			COUNT(*) AS total_messages,
			SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END) AS user_messages,
			SUM(CASE WHEN role = 'assistant' THEN 1 ELSE 0 END) AS assistant_messages,
			strftime('%Y-%m-%d %H:%M:%f', MIN(created_at)) AS started_at,
			strftime('%Y-%m-%d %H:%M:%f', MAX(created_at)) AS last_message_at
		FROM chat_messages
		WHERE user_id = ? AND conversation_id = ?
		GROUP BY conversation_id
	`, userId, conversationId).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.TotalMessages == 0 {
		return nil, nil
	}

	startedAt, err := parseSqliteTime(row.StartedAt)
	if err != nil {
		return nil, err
	}
	lastMessageAt, err := parseSqliteTime(row.LastMessageAt)
	if err != nil {
		return nil, err
	}

	return &entity.ConversationStats{
		ConversationId:    row.ConversationId,
		TotalMessages:     row.TotalMessages,
		UserMessages:      row.UserMessages,
		AssistantMessages: row.AssistantMessages,
		StartedAt:         startedAt,
		LastMessageAt:     lastMessageAt,
	}, nil
}

func (r *ChatHistoryRepositoryImpl) GetUserStats(ctx context.Context, userId uuid.UUID) (*entity.UserChatStats, error) {
	var row struct {
		TotalConversations     int64
		TotalMessages          int64
		TotalUserMessages      int64
		TotalAssistantMessages int64
		FirstMessageAt         *string
		LastMessageAt          *string
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(DISTINCT conversation_id) AS total_conversations,
			COUNT(*) AS total_messages,
			COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0) AS total_user_messages,
			COALESCE(SUM(CASE WHEN role = 'assistant' THEN 1 ELSE 0 END), 0) AS total_assistant_messages,
			strftime('%Y-%m-%d %H:%M:%f', MIN(created_at)) AS first_message_at,
			strftime('%Y-%m-%d %H:%M:%f', MAX(created_at)) AS last_message_at
		FROM chat_messages
		WHERE user_id = ?
	`, userId).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &entity.UserChatStats{
		TotalConversations:     row.TotalConversations,
		TotalMessages:          row.TotalMessages,
		TotalUserMessages:      row.TotalUserMessages,
		TotalAssistantMessages: row.TotalAssistantMessages,
	}
	if row.FirstMessageAt != nil {
		first, err := parseSqliteTime(*row.FirstMessageAt)
		if err != nil {
			return nil, err
		}
		stats.FirstMessageAt = &first
	}
	if row.LastMessageAt != nil {
		last, err := parseSqliteTime(*row.LastMessageAt)
		if err != nil {
			return nil, err
		}
		stats.LastMessageAt = &last
	}

	var daily []entity.DailyMessageCount
	err = r.db.WithContext(ctx).Raw(`
		SELECT
			strftime('%Y-%m-%d', created_at) AS date,
			COUNT(*) AS count
		FROM chat_messages
		WHERE user_id = ? AND datetime(created_at) >= datetime('now', '-30 days')
		GROUP BY strftime('%Y-%m-%d', created_at)
		ORDER BY date ASC
	`, userId).Scan(&daily).Error
	if err != nil {
		return nil, err
	}
	stats.DailyCounts = daily

	return stats, nil
}
