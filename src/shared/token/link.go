package token

import "time"

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// LinkTTL is how long a link token stays valid after issuance.
const LinkTTL = 10 * time.Minute

// LinkPayload binds a chat-platform account to a pending wallet link.
type LinkPayload struct {
	UserID      string `json:"userId"`
	PlatformID  string `json:"platformId"`
	Platform    string `json:"platform"`
	DisplayName string `json:"displayName,omitempty"`
	Iat         int64  `json:"iat"` // epoch milliseconds
}

func (p LinkPayload) IssuedAt() time.Time {
	return time.UnixMilli(p.Iat)
}

func (p LinkPayload) Expired(now time.Time) bool {
	return now.Sub(p.IssuedAt()) > LinkTTL
}

// NewLinkToken issues a signed link token for a chat-platform user.
func NewLinkToken(c *Codec, platformUserID, platform, displayName string) (string, error) {
	return c.Issue(LinkPayload{
		UserID:      platformUserID,
		PlatformID:  platformUserID,
		Platform:    platform,
		DisplayName: displayName,
		Iat:         time.Now().UnixMilli(),
	})
}
