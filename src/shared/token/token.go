package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// ErrNoSecret is returned when the signing secret is missing. Tokens must
// never be issued or accepted unsigned.
var ErrNoSecret = errors.New("token: signing secret is not configured")

// envelope is the wire format: the serialized payload plus a hex-encoded
// HMAC-SHA256 over it, wrapped in URL-safe base64.
type envelope struct {
	Body      string `json:"body"`
	Signature string `json:"signature"`
}

// Codec issues and verifies opaque HMAC-signed bearer tokens. It is agnostic
// to expiry policy; callers enforce their own freshness windows.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	return &Codec{secret: secret}, nil
}

func (c *Codec) sign(body []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue serializes payload to JSON and wraps it with its HMAC.
func (c *Codec) Issue(payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(envelope{Body: string(body), Signature: c.sign(body)})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify returns the embedded payload bytes, or nil on any decode error or
// signature mismatch. It fails closed rather than reporting why.
func (c *Codec) Verify(tok string) []byte {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	want := c.sign([]byte(env.Body))
	if !hmac.Equal([]byte(want), []byte(env.Signature)) {
		return nil
	}
	return []byte(env.Body)
}

// Decode verifies tok and unmarshals its payload into v.
func (c *Codec) Decode(tok string, v any) bool {
	body := c.Verify(tok)
	if body == nil {
		return false
	}
	return json.Unmarshal(body, v) == nil
}
