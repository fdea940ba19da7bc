package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Consume(ctx, "proposal-user1", 3, time.Minute))
	}
	assert.ErrorIs(t, l.Consume(ctx, "proposal-user1", 3, time.Minute), ErrExceeded)

	// keys are independent
	assert.NoError(t, l.Consume(ctx, "proposal-user2", 3, time.Minute))

	// the window resets
	now = now.Add(time.Minute + time.Second)
	assert.NoError(t, l.Consume(ctx, "proposal-user1", 3, time.Minute))
}
