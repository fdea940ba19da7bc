package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/onchainkit/govtoolkit/src/shared/token"
)

type Config struct {
	Token           string
	AppURL          string
	AnnounceChannel string
	Codec           *token.Codec
	Redis           *redis.Client
}

type Bot struct {
	session *discordgo.Session
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	bot := &Bot{
		session: dg,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	dg.AddHandler(bot.handleMessage)
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	b.wg.Add(1)
	go b.watchBallots()
	return nil
}

func (b *Bot) Stop() {
	b.cancel()
	_ = b.session.Close()
	b.wg.Wait()
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	fields := strings.Fields(m.Content)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "!link":
		tok, err := token.NewLinkToken(b.config.Codec, m.Author.ID, token.PlatformDiscord, m.Author.Username)
		if err != nil {
			log.Printf("issue link token for %s: %v", m.Author.ID, err)
			return
		}
		url := fmt.Sprintf("%s/link?token=%s", b.config.AppURL, tok)
		// always DM the link so the token never lands in a public channel
		ch, err := s.UserChannelCreate(m.Author.ID)
		if err != nil {
			log.Printf("open DM for %s: %v", m.Author.ID, err)
			return
		}
		if _, err := s.ChannelMessageSend(ch.ID, "Tap to link your wallet: "+url); err != nil {
			log.Printf("send link DM: %v", err)
		}

	case "!vote":
		if len(fields) < 2 {
			_, _ = s.ChannelMessageSend(m.ChannelID, "Usage: !vote <proposalId>")
			return
		}
		url := fmt.Sprintf("%s/proposals/%s", b.config.AppURL, fields[1])
		_, _ = s.ChannelMessageSend(m.ChannelID, "Vote now: "+url)

	case "!proposal":
		url := fmt.Sprintf("%s/dashboard/new", b.config.AppURL)
		_, _ = s.ChannelMessageSend(m.ChannelID, "Start proposals at "+url)
	}
}
