package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/soloveyska1/gipsrbot-sub000/internal/bot"
	"github.com/soloveyska1/gipsrbot-sub000/internal/catalog"
	"github.com/soloveyska1/gipsrbot-sub000/internal/db"
	"github.com/soloveyska1/gipsrbot-sub000/internal/flow"
	"github.com/soloveyska1/gipsrbot-sub000/internal/pricing"
	"github.com/soloveyska1/gipsrbot-sub000/internal/referral"
)

// sessionMaxIdle bounds memory growth from abandoned conversations.
const sessionMaxIdle = 24 * time.Hour

func main() {
	log.Println("Starting GIPSR order bot...")

	config := loadConfig()

	log.Println("Initializing database...")
	database, err := db.New(config.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	overrides, err := database.PriceOverrides()
	if err != nil {
		log.Fatalf("Failed to load price overrides: %v", err)
	}
	cat := catalog.New(overrides)

	modeValue, err := database.Setting("pricing_mode")
	if err != nil {
		log.Fatalf("Failed to load pricing mode: %v", err)
	}
	mode, err := pricing.ParseMode(modeValue)
	if err != nil {
		mode = pricing.ModeLight
	}
	settings := pricing.NewSettings(mode)

	adminID := config.AdminID
	if adminID == 0 {
		if stored, err := database.Setting("admin_chat_id"); err == nil && stored != "" {
			adminID, _ = strconv.ParseInt(stored, 10, 64)
		}
	}

	sessions := flow.NewSessions()
	ledger := referral.NewLedger(database, database)

	log.Println("Starting Telegram bot...")
	telegramBot, err := bot.New(bot.Config{
		Token:   config.Token,
		AdminID: adminID,
	}, database, cat, settings, sessions, ledger)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Evict idle sessions so abandoned drafts do not accumulate.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if evicted := sessions.Sweep(sessionMaxIdle); evicted > 0 {
				log.Printf("Evicted %d idle sessions", evicted)
			}
		}
	}()

	log.Println("Bot is running. Press Ctrl+C to stop.")

	if err := telegramBot.Run(); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
}

type Config struct {
	Token   string
	AdminID int64
	DBPath  string
}

func loadConfig() Config {
	config := Config{
		Token:  mustGetEnv("TELEGRAM_BOT_TOKEN"),
		DBPath: getEnvOrDefault("DB_PATH", "./data/gipsrbot.db"),
	}

	if adminStr := os.Getenv("ADMIN_CHAT_ID"); adminStr != "" {
		adminID, err := strconv.ParseInt(adminStr, 10, 64)
		if err != nil {
			log.Fatalf("Invalid ADMIN_CHAT_ID: %v", err)
		}
		config.AdminID = adminID
	}

	return config
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Required environment variable %s is not set", key)
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
