package bot

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/onchainkit/govtoolkit/src/govapi/data"
)

// watchBallots tails the accepted-ballot stream and announces each entry to
// the configured channel.
func (b *Bot) watchBallots() {
	defer b.wg.Done()

	if b.config.AnnounceChannel == "" || b.config.Redis == nil {
		log.Printf("ballot announcements disabled")
		return
	}

	lastID := "$"
	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		res, err := b.config.Redis.XRead(b.ctx, &redis.XReadArgs{
			Streams: []string{data.StreamBallots, lastID},
			Count:   10,
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if b.ctx.Err() != nil {
				return
			}
			log.Printf("read ballot stream: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				b.announce(msg.Values)
			}
		}
	}
}

func (b *Bot) announce(values map[string]any) {
	proposal, _ := values["proposal"].(string)
	address, _ := values["address"].(string)
	weight, _ := values["weight"].(string)
	if proposal == "" || address == "" {
		return
	}

	short := address
	if len(short) > 10 {
		short = short[:6] + "..." + short[len(short)-4:]
	}
	text := fmt.Sprintf("Ballot accepted on proposal %s from %s (weight %s)", proposal, short, weight)
	if _, err := b.session.ChannelMessageSend(b.config.AnnounceChannel, text); err != nil {
		log.Printf("announce ballot: %v", err)
	}
}
