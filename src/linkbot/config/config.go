package config

import (
	"log"
	"os"

	"github.com/onchainkit/govtoolkit/src/govapi/data"
	"gorm.io/gorm"
)

type Config struct {
	DiscordToken    string
	TelegramToken   string
	LinkSecret      string
	AppURL          string
	AnnounceChannel string
	RedisURL        string
}

func Load(db *gorm.DB) Config {
	// Load settings from database
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	// Operational values live in settings with env fallbacks; secrets stay
	// in the environment only.
	appURL := data.GetSetting("app_url")
	if appURL == "" {
		appURL = getenv("APP_URL", "http://localhost:3000")
	}

	announceChannel := data.GetSetting("announce_channel_id")
	if announceChannel == "" {
		announceChannel = os.Getenv("ANNOUNCE_CHANNEL_ID")
	}

	return Config{
		DiscordToken:    getenv("DISCORD_TOKEN", ""),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		LinkSecret:      getenv("LINK_SECRET", ""),
		AppURL:          appURL,
		AnnounceChannel: announceChannel,
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}
