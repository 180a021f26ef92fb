package game

import (
	"fmt"
	"math"
)

// SwipeThreshold is the dead zone, in pixels, below which a gesture is ignored.
const SwipeThreshold = 24.0

type Intent uint8

const (
	IntentLong Intent = iota + 1
	IntentShort
	IntentLeverageUp
	IntentLeverageDown
)

func (i Intent) String() string {
	switch i {
	case IntentLong:
		return "long"
	case IntentShort:
		return "short"
	case IntentLeverageUp:
		return "leverage_up"
	case IntentLeverageDown:
		return "leverage_down"
	default:
		return fmt.Sprintf("Intent(%d)", uint8(i))
	}
}

// Apply records a control intent. Intents are ignored outside a live run.
// It reports whether the state changed.
func (s *State) Apply(intent Intent) bool {
	if !s.Running || s.Dead {
		return false
	}
	switch intent {
	case IntentLong:
		return s.SetPosition(Long)
	case IntentShort:
		return s.SetPosition(Short)
	case IntentLeverageUp:
		return s.IncreaseLeverage()
	case IntentLeverageDown:
		return s.DecreaseLeverage()
	default:
		return false
	}
}

func (s *State) SetPosition(p Position) bool {
	if p != Long && p != Short {
		return false
	}
	changed := s.Position != p
	s.Position = p
	return changed
}

func (s *State) IncreaseLeverage() bool {
	return s.setLeverageIndex(s.LeverageIndex + 1)
}

func (s *State) DecreaseLeverage() bool {
	return s.setLeverageIndex(s.LeverageIndex - 1)
}

func (s *State) setLeverageIndex(i int) bool {
	i = max(0, min(i, len(Leverages)-1))
	changed := s.LeverageIndex != i
	s.LeverageIndex = i
	return changed
}

// SwipeIntent decodes a drag of (dx, dy) pixels, screen y growing downward.
func SwipeIntent(dx, dy float64) (Intent, bool) {
	absX, absY := math.Abs(dx), math.Abs(dy)
	if math.Max(absX, absY) < SwipeThreshold {
		return 0, false
	}
	if absX > absY {
		if dx > 0 {
			return IntentLong, true
		}
		return IntentShort, true
	}
	if dy < 0 {
		return IntentLeverageUp, true
	}
	return IntentLeverageDown, true
}
