package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestChatService(t *testing.T, factory unitofwork.RepositoryFactory, gen Generator) IChatService {
	t.Helper()
	return NewChatService(factory, gen, logger.NewNopLogger())
}

func TestSendChatStartsConversation(t *testing.T) {
	factory := newTestFactory(t)
	gen := &stubGenerator{reply: "Hello there!"}
	svc := newTestChatService(t, factory, gen)
	ctx := context.Background()
	userId := uuid.New()

	res, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "hello"})
	assert.NoError(t, err)
	assert.Equal(t, "Hello there!", res.Message)
	assert.False(t, res.IsError)
	assert.NotEqual(t, uuid.Nil, res.ConversationId)

	// One turn is exactly two messages, counted together.
	list, err := svc.ListConversations(ctx, userId, 1, 20)
	assert.NoError(t, err)
	assert.Len(t, list.Conversations, 1)
	assert.Equal(t, int64(2), list.Conversations[0].MessageCount)
	assert.Equal(t, "hello", list.Conversations[0].Preview)
}

func TestSendChatContinuesConversation(t *testing.T) {
	factory := newTestFactory(t)
	gen := &stubGenerator{reply: "reply"}
	svc := newTestChatService(t, factory, gen)
	ctx := context.Background()
	userId := uuid.New()

	first, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "first message"})
	assert.NoError(t, err)

	second, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{
		Message:        "second message",
		ConversationId: &first.ConversationId,
	})
	assert.NoError(t, err)
	assert.Equal(t, first.ConversationId, second.ConversationId)

	detail, err := svc.GetConversation(ctx, userId, first.ConversationId, 0)
	assert.NoError(t, err)
	assert.Len(t, detail.Messages, 4)

	// Earlier turns fold into the prompt as plain speaker lines.
	lastPrompt := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, lastPrompt, "User: first message")
	assert.Contains(t, lastPrompt, "Assistant: reply")
	assert.Contains(t, lastPrompt, "second message")
}

func TestSendChatRejectsForeignConversation(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "ok"})
	ctx := context.Background()

	alice := uuid.New()
	mallory := uuid.New()

	res, err := svc.SendChat(ctx, alice, &dto.SendChatRequest{Message: "private"})
	assert.NoError(t, err)

	_, err = svc.SendChat(ctx, mallory, &dto.SendChatRequest{
		Message:        "hijack",
		ConversationId: &res.ConversationId,
	})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendChatFallbackOnGeneratorFailure(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{err: errGeneratorDown})
	ctx := context.Background()
	userId := uuid.New()

	res, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "hello"})
	assert.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, FallbackAssistantMessage, res.Message)

	// The degraded reply is persisted like any other assistant message.
	detail, err := svc.GetConversation(ctx, userId, res.ConversationId, 0)
	assert.NoError(t, err)
	assert.Len(t, detail.Messages, 2)
	assert.Equal(t, FallbackAssistantMessage, detail.Messages[1].Content)
	assert.Equal(t, true, detail.Messages[1].Metadata["fallback"])
}

func TestGetConversationTailWindow(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "r"})
	ctx := context.Background()
	userId := uuid.New()

	first, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "msg 1"})
	assert.NoError(t, err)
	for i := 2; i <= 4; i++ {
		_, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{
			Message:        "msg " + string(rune('0'+i)),
			ConversationId: &first.ConversationId,
		})
		assert.NoError(t, err)
	}

	// 8 messages exist; the window keeps the newest 3 in ascending order.
	detail, err := svc.GetConversation(ctx, userId, first.ConversationId, 3)
	assert.NoError(t, err)
	assert.Len(t, detail.Messages, 3)
	assert.Equal(t, "r", detail.Messages[0].Content)
	assert.Equal(t, "msg 4", detail.Messages[1].Content)
	assert.Equal(t, "r", detail.Messages[2].Content)
	assert.True(t, detail.Messages[0].Id < detail.Messages[1].Id)
	assert.True(t, detail.Messages[1].Id < detail.Messages[2].Id)
}

func TestGetConversationNotFound(t *testing.T) {
	svc := newTestChatService(t, newTestFactory(t), &stubGenerator{reply: "r"})

	_, err := svc.GetConversation(context.Background(), uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestListConversationsOrderAndPreview(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "r"})
	ctx := context.Background()
	userId := uuid.New()

	long := strings.Repeat("a", 150)
	older, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: long})
	assert.NoError(t, err)
	newer, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "short opener"})
	assert.NoError(t, err)

	list, err := svc.ListConversations(ctx, userId, 1, 20)
	assert.NoError(t, err)
	assert.Len(t, list.Conversations, 2)
	assert.False(t, list.HasMore)

	// Most recent activity first.
	assert.Equal(t, newer.ConversationId, list.Conversations[0].ConversationId)
	assert.Equal(t, older.ConversationId, list.Conversations[1].ConversationId)

	// Long previews are rune-truncated with a trailing ellipsis.
	preview := list.Conversations[1].Preview
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Equal(t, 100, len([]rune(preview)))
}

func TestSearchIsScopedToUser(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "nothing relevant"})
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	_, err := svc.SendChat(ctx, alice, &dto.SendChatRequest{Message: "the secret recipe"})
	assert.NoError(t, err)
	_, err = svc.SendChat(ctx, bob, &dto.SendChatRequest{Message: "bob has no secrets"})
	assert.NoError(t, err)

	res, err := svc.Search(ctx, alice, "Recipe", 1, 20)
	assert.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Contains(t, res.Results[0].Content, "<mark>recipe</mark>")

	res, err = svc.Search(ctx, bob, "recipe", 1, 20)
	assert.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestHighlightTermMultibyteFolds(t *testing.T) {
	// Case folding can change a rune's byte length (İ shrinks, Ⱥ grows),
	// so highlighting must never slice the original by lowered offsets.
	cases := []struct {
		content string
		term    string
		want    string
	}{
		{"İspanya", "spanya", "İ<mark>spanya</mark>"},
		{"Ⱥab", "ab", "Ⱥ<mark>ab</mark>"},
		{"The Recipe", "recipe", "The <mark>Recipe</mark>"},
		{"aa", "a", "<mark>a</mark><mark>a</mark>"},
		{"no match here", "xyz", "no match here"},
	}
	for _, c := range cases {
		got := highlightTerm(c.content, c.term)
		assert.Equal(t, c.want, got)
		assert.True(t, utf8.ValidString(got), "highlight of %q broke utf-8", c.content)
	}
}

func TestSearchSurvivesMultibyteContent(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "güzel bir ülke"})
	ctx := context.Background()
	userId := uuid.New()

	_, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "İspanya hakkında bilgi"})
	assert.NoError(t, err)

	res, err := svc.Search(ctx, userId, "hakkında", 1, 20)
	assert.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, "İspanya <mark>hakkında</mark> bilgi", res.Results[0].Content)
	assert.True(t, utf8.ValidString(res.Results[0].Content))
}

func TestSearchRejectsShortQuery(t *testing.T) {
	svc := newTestChatService(t, newTestFactory(t), &stubGenerator{reply: "r"})

	_, err := svc.Search(context.Background(), uuid.New(), "a", 1, 20)
	assert.EqualError(t, err, "search query must be at least 2 characters")
}

func TestDeleteConversation(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "r"})
	ctx := context.Background()
	userId := uuid.New()

	res, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "hello"})
	assert.NoError(t, err)

	assert.NoError(t, svc.DeleteConversation(ctx, userId, res.ConversationId))

	_, err = svc.GetConversation(ctx, userId, res.ConversationId, 0)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// Deleting again reports not-found.
	err = svc.DeleteConversation(ctx, userId, res.ConversationId)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestDeleteConversationOwnership(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "r"})
	ctx := context.Background()

	alice := uuid.New()
	mallory := uuid.New()

	res, err := svc.SendChat(ctx, alice, &dto.SendChatRequest{Message: "keep this"})
	assert.NoError(t, err)

	err = svc.DeleteConversation(ctx, mallory, res.ConversationId)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// Alice's conversation is untouched.
	detail, err := svc.GetConversation(ctx, alice, res.ConversationId, 0)
	assert.NoError(t, err)
	assert.Len(t, detail.Messages, 2)
}

func TestUserStats(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "r"})
	ctx := context.Background()
	userId := uuid.New()

	first, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "one"})
	assert.NoError(t, err)
	_, err = svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "two", ConversationId: &first.ConversationId})
	assert.NoError(t, err)
	_, err = svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "three"})
	assert.NoError(t, err)

	stats, err := svc.GetUserStats(ctx, userId)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalConversations)
	assert.Equal(t, int64(6), stats.TotalMessages)
	assert.Equal(t, int64(3), stats.TotalUserMessages)
	assert.Equal(t, int64(3), stats.TotalAssistantMessages)
	assert.NotNil(t, stats.FirstMessageAt)
	assert.NotEmpty(t, stats.DailyCounts)
}

func TestUserStatsEmpty(t *testing.T) {
	svc := newTestChatService(t, newTestFactory(t), &stubGenerator{reply: "r"})

	stats, err := svc.GetUserStats(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalMessages)
	assert.Nil(t, stats.FirstMessageAt)
}

func TestExportConversation(t *testing.T) {
	factory := newTestFactory(t)
	svc := newTestChatService(t, factory, &stubGenerator{reply: "r"})
	ctx := context.Background()
	userId := uuid.New()

	res, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{Message: "hello"})
	assert.NoError(t, err)

	export, err := svc.ExportConversation(ctx, userId, res.ConversationId)
	assert.NoError(t, err)
	assert.Equal(t, userId, export.UserId)
	assert.Len(t, export.Messages, 2)
	assert.NotNil(t, export.Stats)
	assert.Equal(t, int64(2), export.Stats.TotalMessages)
	assert.False(t, export.ExportedAt.IsZero())

	_, err = svc.ExportConversation(ctx, uuid.New(), res.ConversationId)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
