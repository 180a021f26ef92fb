package ledger

import (
	"fmt"

	"liqrun/internal/signer"
)

// PackSubmitScore encodes submitScore(timeMs, v, r, s) for a wallet to send
// with submitScorePrice attached.
func PackSubmitScore(timeMs uint32, sig signer.Signature) ([]byte, error) {
	data, err := ContractABI.Pack("submitScore", timeMs, sig.V, [32]byte(sig.R), [32]byte(sig.S))
	if err != nil {
		return nil, fmt.Errorf("pack submitScore: %w", err)
	}
	return data, nil
}

func PackCheckIn() ([]byte, error) {
	data, err := ContractABI.Pack("checkIn")
	if err != nil {
		return nil, fmt.Errorf("pack checkIn: %w", err)
	}
	return data, nil
}
