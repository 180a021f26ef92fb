package session

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("liquidation-run-test-secret")

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(testSecret)
	token, issued, err := c.Create(Payload{StartAtMs: 1_000, Player: "0xabc", ChainID: 8453}, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if strings.Count(token, ".") != 1 || strings.ContainsAny(token, "=+/") {
		t.Fatalf("token is not two unpadded base64url segments: %s", token)
	}
	got, err := c.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != issued {
		t.Fatalf("payload mismatch: got %+v want %+v", got, issued)
	}
	if got.V != 1 || got.StartAtMs != 1_000 || got.LastBeatMs != 1_000 {
		t.Fatalf("unexpected payload %+v", got)
	}
	if len(got.Nonce) != 32 {
		t.Fatalf("nonce %q should be 32 hex chars", got.Nonce)
	}

	_, other, err := c.Create(Payload{}, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if other.Nonce == issued.Nonce {
		t.Fatalf("nonces repeated")
	}
}

func TestCodecCreateKeepsCallerFields(t *testing.T) {
	c := NewCodec(testSecret)
	in := Payload{StartAtMs: 500, Nonce: "caller-nonce", Player: "0xabc", ChainID: 1868}
	token, issued, err := c.Create(in, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := c.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	want := in
	want.V = TokenVersion
	want.LastBeatMs = 1_000
	if got != want || issued != want {
		t.Fatalf("payload changed: got %+v issued %+v want %+v", got, issued, want)
	}
}

func TestCodecRefresh(t *testing.T) {
	c := NewCodec(testSecret)
	token, issued, err := c.Create(Payload{Player: "0xabc"}, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	next, refreshed, err := c.Refresh(token, 4_500)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.LastBeatMs != 4_500 || refreshed.StartAtMs != issued.StartAtMs || refreshed.Nonce != issued.Nonce || refreshed.Player != issued.Player {
		t.Fatalf("refresh changed more than lastBeatMs: %+v vs %+v", refreshed, issued)
	}
	got, err := c.Verify(next)
	if err != nil || got != refreshed {
		t.Fatalf("refreshed token verify=%+v err=%v", got, err)
	}
	if _, err := c.Verify(token); err != nil {
		t.Fatalf("old token should remain verifiable: %v", err)
	}
}

func TestCodecRejectsEveryMACBitFlip(t *testing.T) {
	c := NewCodec(testSecret)
	token, _, err := c.Create(Payload{Player: "0xabc", ChainID: 1868}, 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	dot := strings.IndexByte(token, '.')
	for i := dot + 1; i < len(token); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(token)
			b[i] ^= 1 << bit
			_, err := c.Verify(string(b))
			if !errors.Is(err, ErrTamperedToken) && !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("flip byte %d bit %d accepted: err=%v", i, bit, err)
			}
		}
	}
}

func TestCodecRejectsPayloadEdits(t *testing.T) {
	c := NewCodec(testSecret)
	token, _, err := c.Create(Payload{Player: "0xabc"}, 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b := []byte(token)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	if _, err := c.Verify(string(b)); !errors.Is(err, ErrTamperedToken) {
		t.Fatalf("edited payload err=%v", err)
	}
	if _, err := NewCodec([]byte("other")).Verify(token); !errors.Is(err, ErrTamperedToken) {
		t.Fatalf("foreign secret err=%v", err)
	}
}

func TestCodecMalformed(t *testing.T) {
	c := NewCodec(testSecret)
	for _, token := range []string{"", "abc", "abc.", ".abc", "a.b.c"} {
		if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q err=%v", token, err)
		}
	}

	body := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	mac, err := jwt.SigningMethodHS256.Sign(body, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	token := body + "." + base64.RawURLEncoding.EncodeToString(mac)
	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("undecodable payload err=%v", err)
	}
}

func TestCodecVersion(t *testing.T) {
	c := NewCodec(testSecret)
	token, err := c.Encode(Payload{V: 2, Nonce: "n"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err=%v", err)
	}
}

func TestCodecNotConfigured(t *testing.T) {
	c := NewCodec(nil)
	if _, _, err := c.Create(Payload{}, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("create err=%v", err)
	}
	if _, err := c.Verify("a.b"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("verify err=%v", err)
	}
}
