package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"liqrun/internal/signer"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger reads the replay-protection counter the contract expects next.
type Ledger interface {
	Configured(chainID uint64) bool
	Nonce(ctx context.Context, chainID uint64, player common.Address) (*big.Int, error)
}

type ScoreSigner interface {
	SignScore(player common.Address, timeMs uint32, counter *big.Int) (signer.Signature, error)
}

type Policy struct {
	HeartbeatIdle time.Duration
	FinishIdle    time.Duration
	// MaxSessionAge bounds heartbeats measured from StartAtMs; zero disables it.
	MaxSessionAge time.Duration
	MaxTimeMs     int64
}

func DefaultPolicy() Policy {
	return Policy{
		HeartbeatIdle: 8 * time.Second,
		FinishIdle:    30 * time.Second,
		MaxSessionAge: 15 * time.Minute,
		MaxTimeMs:     600_000,
	}
}

type StartInput struct {
	Player  string
	ChainID uint64
}

type StartResult struct {
	Token     string `json:"token"`
	StartAtMs int64  `json:"startAtMs"`
}

type HeartbeatResult struct {
	Token      string `json:"token"`
	LastBeatMs int64  `json:"lastBeatMs"`
}

type FinishInput struct {
	Token   string
	Player  string
	ChainID uint64
}

// FinishResult always carries TimeMs. Signature and Nonce are set only when
// the player, the chain and its contract were all resolved.
type FinishResult struct {
	TimeMs    int64             `json:"timeMs"`
	Signature *signer.Signature `json:"signature,omitempty"`
	Nonce     string            `json:"nonce,omitempty"`
}

func (r FinishResult) Signed() bool {
	return r.Signature != nil
}

type Service struct {
	codec  *Codec
	ledger Ledger
	signer ScoreSigner
	policy Policy
	now    func() time.Time
	log    *slog.Logger
}

// NewService wires the session protocol. ledger and sig may be nil; Finish
// then returns unsigned results or ErrNotConfigured respectively.
func NewService(codec *Codec, ledger Ledger, sig ScoreSigner, policy Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxTimeMs <= 0 {
		policy.MaxTimeMs = DefaultPolicy().MaxTimeMs
	}
	return &Service{
		codec:  codec,
		ledger: ledger,
		signer: sig,
		policy: policy,
		now:    time.Now,
		log:    logger,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) Start(_ context.Context, in StartInput) (StartResult, error) {
	player, err := NormalizePlayer(in.Player)
	if err != nil {
		return StartResult{}, err
	}
	now := s.nowMs()
	token, p, err := s.codec.Create(Payload{
		StartAtMs: now,
		Nonce:     NewNonce(),
		Player:    player,
		ChainID:   in.ChainID,
	}, now)
	if err != nil {
		return StartResult{}, err
	}
	s.log.Info("session started", "player", player, "chain_id", in.ChainID, "nonce", p.Nonce)
	return StartResult{Token: token, StartAtMs: p.StartAtMs}, nil
}

func (s *Service) Heartbeat(_ context.Context, token string) (HeartbeatResult, error) {
	p, err := s.codec.Verify(token)
	if err != nil {
		return HeartbeatResult{}, err
	}
	now := s.nowMs()
	if idle := now - p.LastBeatMs; idle > s.policy.HeartbeatIdle.Milliseconds() {
		s.log.Info("heartbeat rejected", "reason", "idle", "idle_ms", idle, "nonce", p.Nonce)
		return HeartbeatResult{}, fmt.Errorf("%w: idle for %dms", ErrSessionExpired, idle)
	}
	if maxAge := s.policy.MaxSessionAge.Milliseconds(); maxAge > 0 && now-p.StartAtMs > maxAge {
		s.log.Info("heartbeat rejected", "reason", "age", "age_ms", now-p.StartAtMs, "nonce", p.Nonce)
		return HeartbeatResult{}, fmt.Errorf("%w: session older than %s", ErrSessionExpired, s.policy.MaxSessionAge)
	}
	next, refreshed, err := s.codec.Refresh(token, now)
	if err != nil {
		return HeartbeatResult{}, err
	}
	return HeartbeatResult{Token: next, LastBeatMs: refreshed.LastBeatMs}, nil
}

func (s *Service) Finish(ctx context.Context, in FinishInput) (FinishResult, error) {
	p, err := s.codec.Verify(in.Token)
	if err != nil {
		return FinishResult{}, err
	}
	now := s.nowMs()
	if idle := now - p.LastBeatMs; idle > s.policy.FinishIdle.Milliseconds() {
		s.log.Info("finish rejected", "reason", "idle", "idle_ms", idle, "nonce", p.Nonce)
		return FinishResult{}, fmt.Errorf("%w: idle for %dms", ErrSessionExpired, idle)
	}

	claimed, err := NormalizePlayer(in.Player)
	if err != nil {
		return FinishResult{}, err
	}
	player := claimed
	if p.Player != "" {
		if claimed != "" && claimed != p.Player {
			s.log.Warn("finish rejected", "reason", "player mismatch", "nonce", p.Nonce)
			return FinishResult{}, ErrPlayerMismatch
		}
		player = p.Player
	}

	timeMs := min(max(now-p.StartAtMs, 0), s.policy.MaxTimeMs)
	result := FinishResult{TimeMs: timeMs}

	chainID := in.ChainID
	if chainID == 0 {
		chainID = p.ChainID
	}
	if player == "" || chainID == 0 || s.ledger == nil || !s.ledger.Configured(chainID) {
		s.log.Info("session finished", "time_ms", timeMs, "signed", false, "player", player, "chain_id", chainID)
		return result, nil
	}
	if s.signer == nil {
		return FinishResult{}, fmt.Errorf("%w: signer key missing", ErrNotConfigured)
	}

	addr := common.HexToAddress(player)
	counter, err := s.ledger.Nonce(ctx, chainID, addr)
	if err != nil {
		s.log.Error("ledger nonce read failed", "chain_id", chainID, "player", player, "err", err)
		return FinishResult{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	sig, err := s.signer.SignScore(addr, uint32(timeMs), counter)
	if err != nil {
		return FinishResult{}, fmt.Errorf("sign score: %w", err)
	}
	result.Signature = &sig
	result.Nonce = counter.String()
	s.log.Info("session finished", "time_ms", timeMs, "signed", true, "player", player, "chain_id", chainID, "counter", result.Nonce)
	return result, nil
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}

// NormalizePlayer lowercases a hex address. The empty string is allowed and
// means "no player".
func NormalizePlayer(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return "", ErrInvalidPlayer
	}
	if !common.IsHexAddress(raw) {
		return "", ErrInvalidPlayer
	}
	return strings.ToLower(common.HexToAddress(raw).Hex()), nil
}
