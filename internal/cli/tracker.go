package cli

import "sync"

// Tracker holds the token of the current run. Every run gets a new epoch;
// async heartbeat and finish results carry the epoch they were issued under
// and are discarded once a newer run has begun.
type Tracker struct {
	mu    sync.Mutex
	epoch uint64
	token string
}

// Begin starts a new run and returns its epoch. The previous token is dropped.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++
	t.token = ""
	return t.epoch
}

func (t *Tracker) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Token returns the current token and the epoch it belongs to.
func (t *Tracker) Token() (string, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, t.epoch
}

// Apply stores token if epoch is still current and reports whether it did.
func (t *Tracker) Apply(epoch uint64, token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch {
		return false
	}
	t.token = token
	return true
}

// Drop clears the token if epoch is still current.
func (t *Tracker) Drop(epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch {
		return false
	}
	t.token = ""
	return true
}
