package signer

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	testKeyHex  = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
	testAddrHex = "0x970E8128AB834E8EAC17Ab8E3812F010678CF791"
)

var testPlayer = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestPackScoreLayout(t *testing.T) {
	packed, err := PackScore(testPlayer, 0x01020304, big.NewInt(5))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(packed) != 56 {
		t.Fatalf("len=%d want 56", len(packed))
	}
	want := append(bytes.Repeat([]byte{0x11}, 20), 0x01, 0x02, 0x03, 0x04)
	want = append(want, make([]byte, 31)...)
	want = append(want, 0x05)
	if !bytes.Equal(packed, want) {
		t.Fatalf("packed=%x\nwant  =%x", packed, want)
	}
}

func TestPackScoreRejectsBadCounter(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	for _, c := range []*big.Int{nil, big.NewInt(-1), tooBig} {
		if _, err := PackScore(testPlayer, 1, c); !errors.Is(err, ErrCounterRange) {
			t.Fatalf("counter=%v err=%v", c, err)
		}
	}
	maxCounter := new(big.Int).Sub(tooBig, big.NewInt(1))
	if _, err := PackScore(testPlayer, 1, maxCounter); err != nil {
		t.Fatalf("max uint256 rejected: %v", err)
	}
}

func TestScoreHashIsKeccakOfPacked(t *testing.T) {
	packed, _ := PackScore(testPlayer, 600000, big.NewInt(7))
	hash, err := ScoreHash(testPlayer, 600000, big.NewInt(7))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash != crypto.Keccak256Hash(packed) {
		t.Fatalf("hash mismatch")
	}
}

func TestNewSigner(t *testing.T) {
	for _, key := range []string{testKeyHex, "0x" + testKeyHex, "  " + testKeyHex + "\n"} {
		s, err := NewSigner(key)
		if err != nil {
			t.Fatalf("key %q: %v", key, err)
		}
		if s.Address() != common.HexToAddress(testAddrHex) {
			t.Fatalf("address=%s want %s", s.Address().Hex(), testAddrHex)
		}
	}
	if _, err := NewSigner(""); !errors.Is(err, ErrNoKey) {
		t.Fatalf("empty key err=%v", err)
	}
	if _, err := NewSigner("zz"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("bad key err=%v", err)
	}
}

func TestSignScoreRecovers(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	sig, err := s.SignScore(testPlayer, 42_000, big.NewInt(3))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig.V != 27 && sig.V != 28 {
		t.Fatalf("v=%d", sig.V)
	}
	got, err := Recover(testPlayer, 42_000, big.NewInt(3), sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got != s.Address() {
		t.Fatalf("recovered %s want %s", got.Hex(), s.Address().Hex())
	}

	other, err := Recover(testPlayer, 42_001, big.NewInt(3), sig)
	if err == nil && other == s.Address() {
		t.Fatalf("signature verified for a different time")
	}
	if len(sig.Bytes()) != 65 || len(sig.Hex()) != 132 {
		t.Fatalf("unexpected encoded lengths")
	}
}

func TestRecoverRejectsBadV(t *testing.T) {
	if _, err := Recover(testPlayer, 1, big.NewInt(1), Signature{V: 1}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err=%v", err)
	}
}
