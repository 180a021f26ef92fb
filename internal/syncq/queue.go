package syncq

import (
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"liqrun/internal/cli"
	"liqrun/internal/ledger"
	"liqrun/internal/session"
	"liqrun/internal/signer"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

var ErrUnsigned = errors.New("finish result carries no signature")

// Authorization is a signed score waiting for the player's wallet to send
// submitScore. It stays valid until the contract nonce moves past Nonce.
type Authorization struct {
	ID        string           `json:"id"`
	ChainID   uint64           `json:"chain_id"`
	Player    string           `json:"player"`
	TimeMs    int64            `json:"time_ms"`
	Nonce     string           `json:"nonce"`
	Signature signer.Signature `json:"signature"`
	Calldata  string           `json:"calldata"`
	CreatedAt time.Time        `json:"created_at"`
}

func NewAuthorization(chainID uint64, player string, res session.FinishResult) (Authorization, error) {
	if !res.Signed() {
		return Authorization{}, ErrUnsigned
	}
	data, err := ledger.PackSubmitScore(uint32(res.TimeMs), *res.Signature)
	if err != nil {
		return Authorization{}, err
	}
	return Authorization{
		ID:        uuid.NewString(),
		ChainID:   chainID,
		Player:    strings.ToLower(player),
		TimeMs:    res.TimeMs,
		Nonce:     res.Nonce,
		Signature: *res.Signature,
		Calldata:  hexutil.Encode(data),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// queuePath sits next to the CLI session file.
func queuePath() (string, error) {
	dir, err := cli.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pending.json"), nil
}

func Load() ([]Authorization, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Authorization{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Authorization{}, nil
	}
	var out []Authorization
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(items []Authorization) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(a Authorization) error {
	items, err := Load()
	if err != nil {
		return err
	}
	items = append(items, a)
	return Save(items)
}

// Remove deletes the entry with id and reports whether it existed.
func Remove(id string) (bool, error) {
	items, err := Load()
	if err != nil {
		return false, err
	}
	kept := items[:0]
	found := false
	for _, a := range items {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return false, nil
	}
	return true, Save(kept)
}

// Prune drops entries for (chainID, player) whose nonce is below the
// contract's current one; those signatures can no longer be submitted.
func Prune(chainID uint64, player string, current *big.Int) (int, error) {
	items, err := Load()
	if err != nil {
		return 0, err
	}
	player = strings.ToLower(player)
	kept := items[:0]
	dropped := 0
	for _, a := range items {
		if a.ChainID == chainID && a.Player == player && stale(a.Nonce, current) {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	if dropped == 0 {
		return 0, nil
	}
	return dropped, Save(kept)
}

func stale(nonce string, current *big.Int) bool {
	n, ok := new(big.Int).SetString(nonce, 10)
	if !ok {
		return true
	}
	return n.Cmp(current) < 0
}
