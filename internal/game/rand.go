package game

import (
	mathrand "math/rand"
	"sync"
	"time"
)

// Source is the randomness the engine draws from. Float64 returns a value in [0, 1).
type Source interface {
	Float64() float64
}

type lockedSource struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

// NewSource returns a time-seeded source safe for concurrent use.
func NewSource() Source {
	return NewSeededSource(time.Now().UnixNano())
}

// NewSeededSource returns a reproducible source.
func NewSeededSource(seed int64) Source {
	return &lockedSource{rand: mathrand.New(mathrand.NewSource(seed))}
}

func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func Lerp(start, end, t float64) float64 {
	return start + (end-start)*t
}

func RandomRange(src Source, min, max float64) float64 {
	return min + src.Float64()*(max-min)
}

// Pick returns a uniformly chosen element of list. list must not be empty.
func Pick[T any](src Source, list []T) T {
	i := int(src.Float64() * float64(len(list)))
	if i >= len(list) {
		i = len(list) - 1
	}
	return list[i]
}
