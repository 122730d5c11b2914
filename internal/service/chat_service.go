// FILE: internal/service/chat_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ErrConversationNotFound covers both a missing conversation and one
// owned by somebody else. Callers must not be able to tell the two apart.
var ErrConversationNotFound = errors.New("conversation not found")

// FallbackAssistantMessage replaces the assistant reply when the AI
// call fails. A failed AI call never fails the chat turn.
const FallbackAssistantMessage = "I'm sorry, I'm having trouble processing your message right now. Could you try again?"

const (
	contextWindowMessages = 6
	conversationTailLimit = 10
	previewMaxRunes       = 97
	minSearchTermLength   = 2
)

// Generator is the AI completion dependency, satisfied by
// chatbot.GeminiClient.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IChatService interface {
	SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetConversation(ctx context.Context, userId, conversationId uuid.UUID, limit int) (*dto.ConversationDetailResponse, error)
	ListConversations(ctx context.Context, userId uuid.UUID, page, limit int) (*dto.ConversationListResponse, error)
	Search(ctx context.Context, userId uuid.UUID, query string, page, limit int) (*dto.SearchResponse, error)
	DeleteConversation(ctx context.Context, userId, conversationId uuid.UUID) error
	GetUserStats(ctx context.Context, userId uuid.UUID) (*dto.UserStatsResponse, error)
	ExportConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.ExportResponse, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	generator  Generator
	log        logger.ILogger
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, generator Generator, log logger.ILogger) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		generator:  generator,
		log:        log,
	}
}

// buildPrompt folds the recent history into plain "User:/Assistant:"
// lines ahead of the new message. Context is a fixed message count,
// there is no token accounting.
func buildPrompt(history []*entity.ChatMessage, message string) string {
	if len(history) <= 1 {
		return message
	}

	start := len(history) - contextWindowMessages
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, msg := range history[start:] {
		speaker := "User"
		if msg.Role == entity.ChatMessageRoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, msg.Content))
	}

	return fmt.Sprintf("Conversation context:\n%s\n\nNew user message: %s",
		strings.Join(lines, "\n"), message)
}

func (s *chatService) toMessageDTO(msg *entity.ChatMessage) dto.ChatMessageDTO {
	return dto.ChatMessageDTO{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Metadata:       msg.Metadata,
		CreatedAt:      msg.CreatedAt,
	}
}

func (s *chatService) SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, validationError("message is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatHistoryRepository()

	var conversationId uuid.UUID
	if req.ConversationId == nil {
		conversationId = uuid.New()
	} else {
		conversationId = *req.ConversationId
		owned, err := repo.HasMessages(ctx, userId, conversationId)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, ErrConversationNotFound
		}
	}

	userMessage := &entity.ChatMessage{
		UserId:         userId,
		ConversationId: conversationId,
		Role:           entity.ChatMessageRoleUser,
		Content:        message,
		CreatedAt:      time.Now(),
	}
	if err := repo.Create(ctx, userMessage); err != nil {
		return nil, err
	}

	history, err := repo.GetConversation(ctx, userId, conversationId, conversationTailLimit)
	if err != nil {
		return nil, err
	}

	assistantMessage := &entity.ChatMessage{
		UserId:         userId,
		ConversationId: conversationId,
		Role:           entity.ChatMessageRoleAssistant,
		CreatedAt:      time.Now(),
	}

	isError := false
	reply, genErr := s.generator.Generate(ctx, buildPrompt(history, message))
	if genErr != nil {
		s.log.Warn("chat", "ai generation failed, using fallback", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           genErr.Error(),
		})
		reply = FallbackAssistantMessage
		isError = true
		assistantMessage.Metadata = map[string]interface{}{"fallback": true}
	}
	assistantMessage.Content = reply

	if err := repo.Create(ctx, assistantMessage); err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{
		Message:        reply,
		ConversationId: conversationId,
		Timestamp:      assistantMessage.CreatedAt,
		IsError:        isError,
	}, nil
}

func (s *chatService) GetConversation(ctx context.Context, userId, conversationId uuid.UUID, limit int) (*dto.ConversationDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatHistoryRepository()

	messages, err := repo.GetConversation(ctx, userId, conversationId, limit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrConversationNotFound
	}

	stats, err := repo.GetConversationStats(ctx, userId, conversationId)
	if err != nil {
		return nil, err
	}

	res := &dto.ConversationDetailResponse{
		ConversationId: conversationId,
		Messages:       make([]dto.ChatMessageDTO, 0, len(messages)),
	}
	for _, msg := range messages {
		res.Messages = append(res.Messages, s.toMessageDTO(msg))
	}
	if stats != nil {
		res.Stats = toStatsDTO(stats)
	}

	return res, nil
}

func toStatsDTO(stats *entity.ConversationStats) *dto.ConversationStatsDTO {
	return &dto.ConversationStatsDTO{
		ConversationId:    stats.ConversationId,
		TotalMessages:     stats.TotalMessages,
		UserMessages:      stats.UserMessages,
		AssistantMessages: stats.AssistantMessages,
		StartedAt:         stats.StartedAt,
		LastMessageAt:     stats.LastMessageAt,
	}
}

// truncatePreview shortens a preview to its leading runes with a
// trailing ellipsis. Counting runes keeps multibyte text intact.
func truncatePreview(preview string) string {
	runes := []rune(preview)
	if len(runes) <= previewMaxRunes {
		return preview
	}
	return string(runes[:previewMaxRunes]) + "..."
}

func (s *chatService) ListConversations(ctx context.Context, userId uuid.UUID, page, limit int) (*dto.ConversationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// One extra row tells us whether a next page exists.
	summaries, err := uow.ChatHistoryRepository().GetUserConversations(ctx, userId, limit+1, offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(summaries) > limit
	if hasMore {
		summaries = summaries[:limit]
	}

	res := &dto.ConversationListResponse{
		Conversations: make([]dto.ConversationSummaryDTO, 0, len(summaries)),
		Page:          page,
		HasMore:       hasMore,
	}
	for _, summary := range summaries {
		res.Conversations = append(res.Conversations, dto.ConversationSummaryDTO{
			ConversationId: summary.ConversationId,
			MessageCount:   summary.MessageCount,
			StartedAt:      summary.StartedAt,
			LastMessageAt:  summary.LastMessageAt,
			Preview:        truncatePreview(summary.Preview),
		})
	}

	return res, nil
}

// highlightTerm wraps case-insensitive occurrences of term in
// <mark></mark>. Purely cosmetic for the search UI. The scan works on
// runes, not bytes: case folding can change a rune's encoded length, so
// byte offsets from a lowered copy must never index the original.
func highlightTerm(content, term string) string {
	lowerTerm := []rune(term)
	if len(lowerTerm) == 0 {
		return content
	}
	for i, r := range lowerTerm {
		lowerTerm[i] = unicode.ToLower(r)
	}

	runes := []rune(content)
	var b strings.Builder
	i := 0
	for i < len(runes) {
		if foldMatch(runes[i:], lowerTerm) {
			b.WriteString("<mark>")
			b.WriteString(string(runes[i : i+len(lowerTerm)]))
			b.WriteString("</mark>")
			i += len(lowerTerm)
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

func foldMatch(window, lowerTerm []rune) bool {
	if len(window) < len(lowerTerm) {
		return false
	}
	for i, r := range lowerTerm {
		if unicode.ToLower(window[i]) != r {
			return false
		}
	}
	return true
}

func (s *chatService) Search(ctx context.Context, userId uuid.UUID, query string, page, limit int) (*dto.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchTermLength {
		return nil, validationError("search query must be at least 2 characters")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	uow := s.uowFactory.NewUnitOfWork(ctx)

	matches, err := uow.ChatHistoryRepository().SearchMessages(ctx, userId, query, limit+1, offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	res := &dto.SearchResponse{
		Results: make([]dto.SearchResultDTO, 0, len(matches)),
		Query:   query,
		Page:    page,
		HasMore: hasMore,
	}
	for _, msg := range matches {
		res.Results = append(res.Results, dto.SearchResultDTO{
			ConversationId: msg.ConversationId,
			Role:           msg.Role,
			Content:        highlightTerm(msg.Content, query),
			CreatedAt:      msg.CreatedAt,
		})
	}

	return res, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, userId, conversationId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	deleted, err := uow.ChatHistoryRepository().DeleteConversation(ctx, userId, conversationId)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrConversationNotFound
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.log.Info("chat", "conversation deleted", map[string]interface{}{
		"conversation_id": conversationId,
		"messages":        deleted,
	})
	return nil
}

func (s *chatService) GetUserStats(ctx context.Context, userId uuid.UUID) (*dto.UserStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stats, err := uow.ChatHistoryRepository().GetUserStats(ctx, userId)
	if err != nil {
		return nil, err
	}

	res := &dto.UserStatsResponse{
		TotalConversations:     stats.TotalConversations,
		TotalMessages:          stats.TotalMessages,
		TotalUserMessages:      stats.TotalUserMessages,
		TotalAssistantMessages: stats.TotalAssistantMessages,
		DailyCounts:            make([]dto.DailyCountDTO, 0, len(stats.DailyCounts)),
	}
	if stats.TotalMessages > 0 {
		res.FirstMessageAt = stats.FirstMessageAt
		res.LastMessageAt = stats.LastMessageAt
	}
	for _, day := range stats.DailyCounts {
		res.DailyCounts = append(res.DailyCounts, dto.DailyCountDTO{Date: day.Date, Count: day.Count})
	}

	return res, nil
}

func (s *chatService) ExportConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.ExportResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatHistoryRepository()

	messages, err := repo.GetConversation(ctx, userId, conversationId, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrConversationNotFound
	}

	stats, err := repo.GetConversationStats(ctx, userId, conversationId)
	if err != nil {
		return nil, err
	}

	res := &dto.ExportResponse{
		ConversationId: conversationId,
		UserId:         userId,
		Messages:       make([]dto.ChatMessageDTO, 0, len(messages)),
		ExportedAt:     time.Now(),
	}
	for _, msg := range messages {
		res.Messages = append(res.Messages, s.toMessageDTO(msg))
	}
	if stats != nil {
		res.Stats = toStatsDTO(stats)
	}

	return res, nil
}
