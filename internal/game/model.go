package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PriceMin = 0.06
	PriceMax = 0.94

	// MaxStep is the largest dt callers should pass to Advance.
	MaxStep = 0.05

	BaseScore     = 100.0
	MaxBonusScore = 100.0

	DifficultyRampSeconds = 40.0

	MessageDuration    = 2000.0
	FomoBoostDuration  = 3500.0
	NoiseBoostDuration = 1600.0

	TimeLabelSlots = 48
)

// Leverages is the ordered leverage scale indexed by State.LeverageIndex.
var Leverages = [...]int{1, 2, 3, 4, 5}

var (
	ErrUnknownPosition  = errors.New("position must be LONG or SHORT")
	ErrUnknownEventType = errors.New("event type must be FOMO, NEWS or INFLUENCER")
)

type Position uint8

const (
	Long Position = iota
	Short
)

func (p Position) String() string {
	switch p {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return fmt.Sprintf("Position(%d)", uint8(p))
	}
}

func (p Position) MarshalText() ([]byte, error) {
	if p != Long && p != Short {
		return nil, ErrUnknownPosition
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "LONG":
		*p = Long
	case "SHORT":
		*p = Short
	default:
		return ErrUnknownPosition
	}
	return nil
}

type EventType uint8

const (
	Fomo EventType = iota
	News
	Influencer
)

func (e EventType) String() string {
	switch e {
	case Fomo:
		return "FOMO"
	case News:
		return "NEWS"
	case Influencer:
		return "INFLUENCER"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(e))
	}
}

func (e EventType) MarshalText() ([]byte, error) {
	if e > Influencer {
		return nil, ErrUnknownEventType
	}
	return []byte(e.String()), nil
}

func (e *EventType) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "FOMO":
		*e = Fomo
	case "NEWS":
		*e = News
	case "INFLUENCER":
		*e = Influencer
	default:
		return ErrUnknownEventType
	}
	return nil
}

// Viewport is the drawing surface size in pixels. Only Width and Height
// feed the simulation; track positions are expressed in the same units.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Event struct {
	Type      EventType `json:"type"`
	X         float64   `json:"x"`
	Triggered bool      `json:"triggered"`
}

type Message struct {
	Text    string    `json:"text"`
	Type    EventType `json:"type"`
	UntilMs float64   `json:"until_ms"`
}

// State is one local play session. It is owned by whoever drives Advance;
// readers take a Snapshot between ticks.
type State struct {
	Running bool `json:"running"`
	Dead    bool `json:"dead"`

	StartedAtMs float64 `json:"started_at_ms"`
	ElapsedMs   float64 `json:"elapsed_ms"`
	Score       float64 `json:"score"`

	Position      Position `json:"position"`
	LeverageIndex int      `json:"leverage_index"`

	Price         float64 `json:"price"`
	PriceVelocity float64 `json:"price_velocity"`
	Direction     int     `json:"direction"`
	NextTurnIn    float64 `json:"next_turn_in"`
	LastPrice     float64 `json:"last_price"`

	Speed          float64 `json:"speed"`
	LabelOffset    float64 `json:"label_offset"`
	TimeLabelIndex int     `json:"time_label_index"`

	NextEventIn       float64  `json:"next_event_in"`
	BoostUntilMs      float64  `json:"boost_until_ms"`
	NoiseBoostUntilMs float64  `json:"noise_boost_until_ms"`
	Events            []Event  `json:"events"`
	Message           *Message `json:"message,omitempty"`

	Points      []Point `json:"points"`
	BonusPoints float64 `json:"bonus_points"`
}

// Leverage returns the multiplier selected by LeverageIndex.
func (s *State) Leverage() int {
	if s.LeverageIndex < 0 || s.LeverageIndex >= len(Leverages) {
		return 1
	}
	return Leverages[s.LeverageIndex]
}

// Snapshot is the read-only view a UI needs between ticks.
type Snapshot struct {
	Running   bool     `json:"running"`
	Dead      bool     `json:"dead"`
	Position  Position `json:"position"`
	Leverage  int      `json:"leverage"`
	Score     int      `json:"score"`
	ElapsedMs float64  `json:"elapsed_ms"`
	Message   *Message `json:"message,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Running:   s.Running,
		Dead:      s.Dead,
		Position:  s.Position,
		Leverage:  s.Leverage(),
		Score:     int(s.Score + 0.5),
		ElapsedMs: s.ElapsedMs,
	}
	if s.Message != nil {
		msg := *s.Message
		snap.Message = &msg
	}
	return snap
}

// Difficulty ramps linearly from 0 to 1 over the first DifficultyRampSeconds.
func Difficulty(elapsedMs float64) float64 {
	return Clamp(elapsedMs/1000/DifficultyRampSeconds, 0, 1)
}

// MapPriceToY converts a price into a vertical pixel coordinate with 12% padding.
func MapPriceToY(price, height float64) float64 {
	padding := height * 0.12
	inner := height - padding*2
	return padding + (1-price)*inner
}

// TimeLabel formats a half-hour slot index as HH:MM.
func TimeLabel(index int) string {
	total := (index * 30) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
