package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/onchainkit/govtoolkit/src/shared/token"
)

// Run polls Telegram for commands until ctx is canceled.
func Run(ctx context.Context, botToken, appURL string, codec *token.Codec) error {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return err
	}
	log.Printf("telegram bot authorized as %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			msg := update.Message
			if msg == nil || msg.From == nil {
				continue
			}
			reply := handleCommand(msg, appURL, codec)
			if reply == "" {
				continue
			}
			if _, err := api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
				log.Printf("telegram send: %v", err)
			}
		}
	}
}

func handleCommand(msg *tgbotapi.Message, appURL string, codec *token.Codec) string {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return ""
	}

	userID := fmt.Sprintf("%d", msg.From.ID)
	switch fields[0] {
	case "/start", "/link":
		tok, err := token.NewLinkToken(codec, userID, token.PlatformTelegram, msg.From.UserName)
		if err != nil {
			log.Printf("issue link token for %s: %v", userID, err)
			return "Something went wrong, try again later"
		}
		return fmt.Sprintf("Tap to link your wallet: %s/link?token=%s", appURL, tok)
	case "/vote":
		if len(fields) < 2 {
			return "Usage: /vote <proposalId>"
		}
		return fmt.Sprintf("Vote now: %s/proposals/%s", appURL, fields[1])
	case "/proposal":
		return fmt.Sprintf("Create proposals here: %s/dashboard/new", appURL)
	default:
		return "Unknown command"
	}
}
