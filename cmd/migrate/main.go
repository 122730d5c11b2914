package main

import (
	"log"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/model"
	"ai-chat-be/pkg/database"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()

	db, err := database.NewGormDB(cfg.Database.File)
	if err != nil {
		log.Fatal("Error: Failed to open database:", err)
	}

	color.Cyan("Starting GORM Migration on %s...", cfg.Database.File)

	models := []interface{}{
		&model.User{},
		&model.UserSession{},
		&model.PasswordResetToken{},
		&model.ChatMessage{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		color.Red("Migration failed: %v", err)
		log.Fatal(err)
	}

	color.Green("Migration completed: %d tables up to date.", len(models))
}
