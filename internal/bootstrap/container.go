package bootstrap

import (
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/mailer"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/pkg/token"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/chatbot"

	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	MaintenanceService service.IMaintenanceService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.App.ClientURL,
	)

	issuer := token.NewIssuer(cfg.Auth.JwtSecret, cfg.Auth.TokenTTLHours)
	geminiClient := chatbot.NewGeminiClient(cfg.Ai.GeminiAPIKey, cfg.Ai.GeminiModel)

	// 2. Services
	authService := service.NewAuthService(uowFactory, emailService, issuer, sysLogger, cfg.IsProduction())
	chatService := service.NewChatService(uowFactory, geminiClient, sysLogger)
	maintenanceService := service.NewMaintenanceService(uowFactory, sysLogger, time.Hour)

	// 3. HTTP plumbing
	authMiddleware := serverutils.AuthMiddleware(authService)
	loginLimiter := serverutils.NewRateLimiter(5, 15*time.Minute).Middleware()
	registerLimiter := serverutils.NewRateLimiter(3, time.Hour).Middleware()

	return &Container{
		AuthController:     controller.NewAuthController(authService, authMiddleware, loginLimiter, registerLimiter),
		ChatController:     controller.NewChatController(chatService, authMiddleware),
		MaintenanceService: maintenanceService,
		Logger:             sysLogger,
	}
}
