package session

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenVersion is the only payload version Verify accepts.
const TokenVersion = 1

// Payload travels inside the token; the server keeps no copy.
type Payload struct {
	V          int    `json:"v"`
	StartAtMs  int64  `json:"startAtMs"`
	LastBeatMs int64  `json:"lastBeatMs"`
	Nonce      string `json:"nonce"`
	Player     string `json:"player,omitempty"`
	ChainID    uint64 `json:"chainId,omitempty"`
}

// Codec issues and checks base64url(json).base64url(hmac-sha256) tokens.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: append([]byte(nil), secret...)}
}

func (c *Codec) Configured() bool {
	return c != nil && len(c.secret) > 0
}

// Create issues a token for p with LastBeatMs set to nowMs. Every other field
// is kept; an empty Nonce is filled with a fresh one.
func (c *Codec) Create(p Payload, nowMs int64) (string, Payload, error) {
	p.V = TokenVersion
	p.LastBeatMs = nowMs
	if p.Nonce == "" {
		p.Nonce = NewNonce()
	}
	token, err := c.Encode(p)
	if err != nil {
		return "", Payload{}, err
	}
	return token, p, nil
}

// Refresh re-issues token with LastBeatMs moved to nowMs.
func (c *Codec) Refresh(token string, nowMs int64) (string, Payload, error) {
	p, err := c.Verify(token)
	if err != nil {
		return "", Payload{}, err
	}
	p.LastBeatMs = nowMs
	next, err := c.Encode(p)
	if err != nil {
		return "", Payload{}, err
	}
	return next, p, nil
}

func (c *Codec) Encode(p Payload) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(raw)
	mac, err := jwt.SigningMethodHS256.Sign(body, c.secret)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return body + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

func (c *Codec) Verify(token string) (Payload, error) {
	if !c.Configured() {
		return Payload{}, ErrNotConfigured
	}
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" || strings.Contains(sig, ".") {
		return Payload{}, ErrInvalidToken
	}
	mac, err := base64.RawURLEncoding.Strict().DecodeString(sig)
	if err != nil {
		return Payload{}, ErrTamperedToken
	}
	if err := jwt.SigningMethodHS256.Verify(body, mac, c.secret); err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return Payload{}, ErrTamperedToken
		}
		return Payload{}, fmt.Errorf("%w: %v", ErrTamperedToken, err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrInvalidToken
	}
	if p.V != TokenVersion {
		return Payload{}, ErrUnsupportedVersion
	}
	return p, nil
}

// NewNonce returns 128 random bits as 32 hex characters.
func NewNonce() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
