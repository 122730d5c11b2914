package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-chat-be/internal/model"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/pkg/token"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type fakeEmailService struct{}

func (f *fakeEmailService) SendResetToken(toEmail, token string) error { return nil }

func newTestApp(t *testing.T) (*fiber.App, *stubGenerator) {
	t.Helper()
	app, gen, _ := newTestAppWithDB(t)
	return app, gen
}

func newTestAppWithDB(t *testing.T) (*fiber.App, *stubGenerator, *gorm.DB) {
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

	log := logger.NewNopLogger()
	uowFactory := unitofwork.NewRepositoryFactory(db)
	issuer := token.NewIssuer("test-secret", 1)
	gen := &stubGenerator{reply: "assistant reply"}

	authService := service.NewAuthService(uowFactory, &fakeEmailService{}, issuer, log, false)
	chatService := service.NewChatService(uowFactory, gen, log)

	authMiddleware := serverutils.AuthMiddleware(authService)
	loginLimiter := serverutils.NewRateLimiter(5, 15*time.Minute).Middleware()
	registerLimiter := serverutils.NewRateLimiter(3, time.Hour).Middleware()

	app := fiber.New(fiber.Config{
		ErrorHandler: serverutils.NewErrorHandler(log),
	})
	api := app.Group("/api")
	NewAuthController(authService, authMiddleware, loginLimiter, registerLimiter).RegisterRoutes(api)
	NewChatController(chatService, authMiddleware).RegisterRoutes(api)

	return app, gen, db
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path, bearer string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

func registerUser(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	resp, env := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"email":            email,
		"password":         password,
		"confirm_password": password,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var data struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)
	return data.Token
}

func TestEndToEndChatFlow(t *testing.T) {
	app, _ := newTestApp(t)

	// register -> login -> send -> conversations with messageCount 2
	registerUser(t, app, "alice@example.com", "Passw0rd1")

	resp, env := doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "Passw0rd1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &login))

	resp, env = doJSON(t, app, "POST", "/api/chat/send", login.Token, fiber.Map{
		"message": "hello",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sent struct {
		Message        string `json:"message"`
		ConversationId string `json:"conversation_id"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, "assistant reply", sent.Message)
	assert.NotEmpty(t, sent.ConversationId)

	resp, env = doJSON(t, app, "GET", "/api/chat/conversations", login.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Conversations []struct {
			ConversationId string `json:"conversation_id"`
			MessageCount   int64  `json:"message_count"`
		} `json:"conversations"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Conversations, 1)
	assert.Equal(t, sent.ConversationId, list.Conversations[0].ConversationId)
	assert.Equal(t, int64(2), list.Conversations[0].MessageCount)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/chat/send", "", fiber.Map{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/api/chat/conversations", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyReturnsCurrentUser(t *testing.T) {
	app, _ := newTestApp(t)
	bearer := registerUser(t, app, "alice@example.com", "Passw0rd1")

	resp, env := doJSON(t, app, "GET", "/api/auth/verify", bearer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Email string `json:"email"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	app, _ := newTestApp(t)
	bearer := registerUser(t, app, "alice@example.com", "Passw0rd1")

	resp, _ := doJSON(t, app, "POST", "/api/auth/logout", bearer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/api/chat/conversations", bearer, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestForeignConversationIsNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	alice := registerUser(t, app, "alice@example.com", "Passw0rd1")
	mallory := registerUser(t, app, "mallory@example.com", "Passw0rd1")

	_, env := doJSON(t, app, "POST", "/api/chat/send", alice, fiber.Map{"message": "private"})
	var sent struct {
		ConversationId string `json:"conversation_id"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &sent))

	// Not 403: ownership failures are indistinguishable from missing rows.
	resp, _ := doJSON(t, app, "GET", "/api/chat/conversations/"+sent.ConversationId, mallory, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, "DELETE", "/api/chat/conversations/"+sent.ConversationId, mallory, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/api/chat/conversations/"+sent.ConversationId, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendChatFallback(t *testing.T) {
	app, gen := newTestApp(t)
	bearer := registerUser(t, app, "alice@example.com", "Passw0rd1")

	gen.err = errors.New("upstream down")

	resp, env := doJSON(t, app, "POST", "/api/chat/send", bearer, fiber.Map{"message": "hello"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sent struct {
		Message string `json:"message"`
		IsError bool   `json:"is_error"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.True(t, sent.IsError)
	assert.Equal(t, service.FallbackAssistantMessage, sent.Message)
}

func TestForgotPasswordIsGeneric(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "alice@example.com", "Passw0rd1")

	respKnown, envKnown := doJSON(t, app, "POST", "/api/auth/request-password-reset", "", fiber.Map{
		"email": "alice@example.com",
	})
	respUnknown, envUnknown := doJSON(t, app, "POST", "/api/auth/request-password-reset", "", fiber.Map{
		"email": "nobody@example.com",
	})

	// Same status and message whether or not the account exists.
	assert.Equal(t, http.StatusOK, respKnown.StatusCode)
	assert.Equal(t, http.StatusOK, respUnknown.StatusCode)
	assert.Equal(t, envKnown.Message, envUnknown.Message)
}

func TestInternalErrorsStayGeneric(t *testing.T) {
	app, _, db := newTestAppWithDB(t)

	// Kill the storage layer so the service fails with a driver error.
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	assert.NoError(t, sqlDB.Close())

	resp, env := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"email":            "alice@example.com",
		"password":         "Passw0rd1",
		"confirm_password": "Passw0rd1",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", env.Message)
	assert.NotContains(t, env.Message, "sql")
}

func TestRegisterRateLimit(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
			"email":            fmt.Sprintf("user%d@example.com", i),
			"password":         "Passw0rd1",
			"confirm_password": "Passw0rd1",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"email":            "user4@example.com",
		"password":         "Passw0rd1",
		"confirm_password": "Passw0rd1",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	bearer := registerUser(t, app, "alice@example.com", "Passw0rd1")

	resp, _ := doJSON(t, app, "POST", "/api/chat/send", bearer, fiber.Map{"message": "where do gophers live"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := doJSON(t, app, "GET", "/api/chat/search?q=gophers", bearer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		Results []struct {
			Content string `json:"content"`
		} `json:"results"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Results, 1)
	assert.Contains(t, res.Results[0].Content, "<mark>gophers</mark>")

	resp, _ = doJSON(t, app, "GET", "/api/chat/search?q=g", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
