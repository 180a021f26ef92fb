package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

const (
	streakBonusPerDay = 5
	maxStreakBonus    = 100
)

var (
	ErrUnknownChain       = errors.New("unknown chain")
	ErrChainNotConfigured = errors.New("chain has no contract configured")
	ErrInvalidContract    = errors.New("contract must be a 0x-prefixed 20-byte hex address")
)

// Chain is one network the game contract may be deployed on. A chain without
// a contract address is known but not configured.
type Chain struct {
	ID       uint64         `json:"id"`
	Name     string         `json:"name"`
	RPCURL   string         `json:"rpcUrl"`
	Contract common.Address `json:"contract"`
}

// NewChain validates contract, which may be empty.
func NewChain(id uint64, name, rpcURL, contract string) (Chain, error) {
	c := Chain{ID: id, Name: name, RPCURL: strings.TrimSpace(rpcURL)}
	contract = strings.TrimSpace(contract)
	if contract == "" || contract == "0x" {
		return c, nil
	}
	if !strings.HasPrefix(contract, "0x") || !common.IsHexAddress(contract) {
		return c, fmt.Errorf("%s: %w", name, ErrInvalidContract)
	}
	c.Contract = common.HexToAddress(contract)
	return c, nil
}

func (c Chain) Configured() bool {
	return c.RPCURL != "" && c.Contract != (common.Address{})
}

// Caller is the read-only RPC surface; *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Dialer func(ctx context.Context, rpcURL string) (Caller, error)

func dialEthClient(ctx context.Context, rpcURL string) (Caller, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Profile aggregates the per-player reads a client shows before a run.
type Profile struct {
	ChainID             uint64 `json:"chainId"`
	Player              string `json:"player"`
	Nonce               string `json:"nonce"`
	BestTimeMs          uint32 `json:"bestTimeMs"`
	CheckInStreakDays   uint32 `json:"checkInStreakDays"`
	CanCheckIn          bool   `json:"canCheckIn"`
	CheckInPriceWei     string `json:"checkInPriceWei"`
	SubmitScorePriceWei string `json:"submitScorePriceWei"`
	BonusPoints         int    `json:"bonusPoints"`
}

// StreakBonus converts a check-in streak into starting bonus points.
func StreakBonus(days uint32) int {
	return min(int(days)*streakBonusPerDay, maxStreakBonus)
}

type Client struct {
	chains map[uint64]Chain
	dial   Dialer
	log    *slog.Logger

	mu      sync.Mutex
	callers map[uint64]Caller
}

func NewClient(chains []Chain, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[uint64]Chain, len(chains))
	for _, c := range chains {
		byID[c.ID] = c
	}
	return &Client{
		chains:  byID,
		dial:    dialEthClient,
		log:     logger,
		callers: make(map[uint64]Caller),
	}
}

func (c *Client) SetDialer(d Dialer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dial = d
	c.callers = make(map[uint64]Caller)
}

func (c *Client) Chain(id uint64) (Chain, bool) {
	chain, ok := c.chains[id]
	return chain, ok
}

// Chains lists every known chain ordered by id.
func (c *Client) Chains() []Chain {
	out := make([]Chain, 0, len(c.chains))
	for _, chain := range c.chains {
		out = append(out, chain)
	}
	slices.SortFunc(out, func(a, b Chain) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

func (c *Client) Configured(chainID uint64) bool {
	chain, ok := c.chains[chainID]
	return ok && chain.Configured()
}

// Close releases any dialed RPC connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, caller := range c.callers {
		closeCaller(caller)
		delete(c.callers, id)
	}
}

func closeCaller(caller Caller) {
	if closer, ok := caller.(interface{ Close() }); ok {
		closer.Close()
	}
}

func (c *Client) Nonce(ctx context.Context, chainID uint64, player common.Address) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, chainID, "nonces", &out, player); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BestTimeMs(ctx context.Context, chainID uint64, player common.Address) (uint32, error) {
	var out uint32
	err := c.call(ctx, chainID, "bestTimeMs", &out, player)
	return out, err
}

func (c *Client) CheckInStreakDays(ctx context.Context, chainID uint64, player common.Address) (uint32, error) {
	var out uint32
	err := c.call(ctx, chainID, "checkInStreakDays", &out, player)
	return out, err
}

func (c *Client) CanCheckIn(ctx context.Context, chainID uint64, player common.Address) (bool, error) {
	var out bool
	err := c.call(ctx, chainID, "canCheckIn", &out, player)
	return out, err
}

func (c *Client) CheckInPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, chainID, "checkInPrice", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitScorePrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, chainID, "submitScorePrice", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile runs every player read concurrently and fails if any of them does.
func (c *Client) Profile(ctx context.Context, chainID uint64, player common.Address) (Profile, error) {
	if _, err := c.chain(chainID); err != nil {
		return Profile{}, err
	}
	p := Profile{ChainID: chainID, Player: strings.ToLower(player.Hex())}

	var nonce, checkInPrice, submitPrice *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		nonce, err = c.Nonce(gctx, chainID, player)
		return err
	})
	g.Go(func() (err error) {
		p.BestTimeMs, err = c.BestTimeMs(gctx, chainID, player)
		return err
	})
	g.Go(func() (err error) {
		p.CheckInStreakDays, err = c.CheckInStreakDays(gctx, chainID, player)
		return err
	})
	g.Go(func() (err error) {
		p.CanCheckIn, err = c.CanCheckIn(gctx, chainID, player)
		return err
	})
	g.Go(func() (err error) {
		checkInPrice, err = c.CheckInPrice(gctx, chainID)
		return err
	})
	g.Go(func() (err error) {
		submitPrice, err = c.SubmitScorePrice(gctx, chainID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}

	p.Nonce = nonce.String()
	p.CheckInPriceWei = checkInPrice.String()
	p.SubmitScorePriceWei = submitPrice.String()
	p.BonusPoints = StreakBonus(p.CheckInStreakDays)
	return p, nil
}

func (c *Client) chain(chainID uint64) (Chain, error) {
	chain, ok := c.chains[chainID]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	if !chain.Configured() {
		return Chain{}, fmt.Errorf("%w: %s (%d)", ErrChainNotConfigured, chain.Name, chainID)
	}
	return chain, nil
}

// caller dials outside the lock; when two dials race, the first stored
// connection wins and the loser is closed.
func (c *Client) caller(ctx context.Context, chain Chain) (Caller, error) {
	c.mu.Lock()
	cached, ok := c.callers[chain.ID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	dialed, err := c.dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", chain.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.callers[chain.ID]; ok {
		closeCaller(dialed)
		return cached, nil
	}
	c.log.Info("ledger rpc connected", "chain_id", chain.ID, "chain", chain.Name)
	c.callers[chain.ID] = dialed
	return dialed, nil
}

func (c *Client) call(ctx context.Context, chainID uint64, method string, out any, args ...any) error {
	chain, err := c.chain(chainID)
	if err != nil {
		return err
	}
	data, err := ContractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	caller, err := c.caller(ctx, chain)
	if err != nil {
		return err
	}
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &chain.Contract, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s on %s: %w", method, chain.Name, err)
	}
	if err := ContractABI.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}
