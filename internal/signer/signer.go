package signer

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// PackedScoreLen is address(20) + uint32(4) + uint256(32).
const PackedScoreLen = common.AddressLength + 4 + 32

var (
	ErrNoKey            = errors.New("signer key is not configured")
	ErrInvalidKey       = errors.New("signer key must be a 32-byte hex secp256k1 key")
	ErrCounterRange     = errors.New("counter must be a non-negative uint256")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signature is an Ethereum-style recoverable signature with V in {27, 28}.
type Signature struct {
	V uint8       `json:"v"`
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
}

// Bytes returns the 65-byte r||s||v form wallets and ecrecover expect.
func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

func (s Signature) Hex() string {
	return hexutil.Encode(s.Bytes())
}

// PackScore builds the tightly packed (player, timeMs, counter) message the
// contract re-derives before ecrecover.
func PackScore(player common.Address, timeMs uint32, counter *big.Int) ([]byte, error) {
	if counter == nil || counter.Sign() < 0 || counter.BitLen() > 256 {
		return nil, ErrCounterRange
	}
	out := make([]byte, PackedScoreLen)
	copy(out[:common.AddressLength], player.Bytes())
	binary.BigEndian.PutUint32(out[common.AddressLength:common.AddressLength+4], timeMs)
	counter.FillBytes(out[common.AddressLength+4:])
	return out, nil
}

// ScoreHash is keccak256 of the packed score message.
func ScoreHash(player common.Address, timeMs uint32, counter *big.Int) (common.Hash, error) {
	packed, err := PackScore(player, timeMs, counter)
	if err != nil {
		return common.Hash{}, err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(packed)
	var out common.Hash
	h.Sum(out[:0])
	return out, nil
}

type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	if hexKey == "" {
		return nil, ErrNoKey
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// SignScore signs the EIP-191 personal message wrapping ScoreHash.
func (s *Signer) SignScore(player common.Address, timeMs uint32, counter *big.Int) (Signature, error) {
	hash, err := ScoreHash(player, timeMs, counter)
	if err != nil {
		return Signature{}, err
	}
	raw, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign score: %w", err)
	}
	return Signature{
		V: raw[64] + 27,
		R: common.BytesToHash(raw[:32]),
		S: common.BytesToHash(raw[32:64]),
	}, nil
}

// Recover returns the address that produced sig over the score message.
func Recover(player common.Address, timeMs uint32, counter *big.Int, sig Signature) (common.Address, error) {
	if sig.V != 27 && sig.V != 28 {
		return common.Address{}, ErrInvalidSignature
	}
	hash, err := ScoreHash(player, timeMs, counter)
	if err != nil {
		return common.Address{}, err
	}
	raw := sig.Bytes()
	raw[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
