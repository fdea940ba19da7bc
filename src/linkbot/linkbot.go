package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/onchainkit/govtoolkit/src/govapi/data"
	"github.com/onchainkit/govtoolkit/src/linkbot/bot"
	"github.com/onchainkit/govtoolkit/src/linkbot/config"
	"github.com/onchainkit/govtoolkit/src/linkbot/telegram"
	"github.com/onchainkit/govtoolkit/src/shared/token"
)

func main() {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "govtoolkit:govtoolkit@tcp(127.0.0.1:3306)/govtoolkit?parseTime=true"
	}
	db := data.MustMySQL(mysqlDSN)

	cfg := config.Load(db)
	rdb := data.MustRedis(cfg.RedisURL)

	codec, err := token.NewCodec([]byte(cfg.LinkSecret))
	if err != nil {
		log.Fatalf("link token codec: %v", err)
	}

	b, err := bot.New(bot.Config{
		Token:           cfg.DiscordToken,
		AppURL:          cfg.AppURL,
		AnnounceChannel: cfg.AnnounceChannel,
		Codec:           codec,
		Redis:           rdb,
	})
	if err != nil {
		log.Fatalf("discord bot: %v", err)
	}
	if err := b.Start(); err != nil {
		log.Fatalf("discord bot: %v", err)
	}
	defer b.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TelegramToken != "" {
		go func() {
			if err := telegram.Run(ctx, cfg.TelegramToken, cfg.AppURL, codec); err != nil {
				log.Printf("telegram bot: %v", err)
			}
		}()
	} else {
		log.Printf("TELEGRAM_TOKEN not set, telegram linking disabled")
	}

	log.Printf("linkbot running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
