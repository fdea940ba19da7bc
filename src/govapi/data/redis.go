package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
)

// StreamBallots carries accepted ballots to the chat-platform announcers.
const StreamBallots = "govtoolkit.ballots"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishBallot emits an accepted ballot to the announcement stream. Fire
// and forget: a failed publish never fails the vote.
func PublishBallot(ctx context.Context, rdb *redis.Client, vote *types.Vote, address string) {
	err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamBallots,
		Values: map[string]any{
			"proposal": vote.ProposalID,
			"option":   vote.OptionID,
			"address":  address,
			"weight":   vote.Weight.String(),
			"time":     vote.SignedAt.Unix(),
		},
	}).Err()
	if err != nil {
		log.Printf("publish ballot: %v", err)
	}
}
