package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundtrip(t *testing.T) {
	c, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)

	issued := LinkPayload{
		UserID:      "discord:42",
		PlatformID:  "42",
		Platform:    PlatformDiscord,
		DisplayName: "alice",
		Iat:         time.Now().UnixMilli(),
	}
	tok, err := c.Issue(issued)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	var got LinkPayload
	require.True(t, c.Decode(tok, &got))
	assert.Equal(t, issued, got)
}

func TestCodecRejectsTampering(t *testing.T) {
	c, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)

	tok, err := c.Issue(LinkPayload{UserID: "discord:42", Platform: PlatformDiscord})
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		flip := byte('A')
		if tok[i] == flip {
			flip = 'B'
		}
		mutated := tok[:i] + string(flip) + tok[i+1:]
		assert.Nil(t, c.Verify(mutated), "mutation at offset %d must not verify", i)
	}
}

func TestCodecRejectsForeignSecret(t *testing.T) {
	a, err := NewCodec([]byte("secret-a"))
	require.NoError(t, err)
	b, err := NewCodec([]byte("secret-b"))
	require.NoError(t, err)

	tok, err := a.Issue(LinkPayload{UserID: "tg:7", Platform: PlatformTelegram})
	require.NoError(t, err)

	assert.NotNil(t, a.Verify(tok))
	assert.Nil(t, b.Verify(tok))
}

func TestCodecRejectsGarbage(t *testing.T) {
	c, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)

	for _, tok := range []string{"", "not base64 at all!!", "aGVsbG8", "eyJib2R5IjoiIn0"} {
		assert.Nil(t, c.Verify(tok))
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec(nil)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = NewCodec([]byte{})
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestLinkPayloadExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := LinkPayload{Iat: issued.UnixMilli()}

	assert.False(t, p.Expired(issued))
	assert.False(t, p.Expired(issued.Add(5*time.Minute)))
	assert.False(t, p.Expired(issued.Add(LinkTTL)))
	assert.True(t, p.Expired(issued.Add(LinkTTL+time.Second)))
}
