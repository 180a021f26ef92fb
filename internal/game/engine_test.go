package game

import (
	"math"
	"testing"
)

// risingState returns a running 1x state whose price only climbs while the
// engine is fed a constant 0.5 source (zero noise) and no turns or events fire.
func risingState(pos Position) *State {
	return &State{
		Running:       true,
		Score:         BaseScore,
		Position:      pos,
		LeverageIndex: 0,
		Price:         0.2,
		LastPrice:     0.2,
		PriceVelocity: 0.1,
		Direction:     1,
		NextTurnIn:    1e9,
		NextEventIn:   1e9,
		Points:        []Point{{X: 640, Y: 0}},
	}
}

func TestApplyScoreExactRates(t *testing.T) {
	const dt = 1.0 / 60
	for _, tc := range []struct {
		pos  Position
		want float64
	}{
		{pos: Long, want: 14},
		{pos: Short, want: -21},
	} {
		s := risingState(tc.pos)
		for i := 0; i < 60; i++ {
			s.Price += 0.001
			applyScore(s, 0, 1, dt)
		}
		if got := s.Score - BaseScore; math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: score delta=%v want=%v", tc.pos, got, tc.want)
		}
	}
}

func TestAdvanceScoresRisingPrice(t *testing.T) {
	const dt = 1.0 / 60
	for _, tc := range []struct {
		pos  Position
		want float64
	}{
		{pos: Long, want: 14},
		{pos: Short, want: -21},
	} {
		eng := NewEngine(constSource(0.5))
		s := risingState(tc.pos)
		prev := s.Price
		now := 0.0
		for i := 0; i < 60; i++ {
			now += dt * 1000
			eng.Advance(s, dt, now, testViewport)
			if s.Price <= prev {
				t.Fatalf("%s: price did not rise at tick %d: %v -> %v", tc.pos, i, prev, s.Price)
			}
			prev = s.Price
		}
		if got := s.Score - BaseScore; math.Abs(got-tc.want) > 0.5 {
			t.Fatalf("%s: score delta=%v want≈%v", tc.pos, got, tc.want)
		}
	}
}

func TestAdvanceNoopWhenNotRunning(t *testing.T) {
	eng := NewEngine(constSource(0.5))
	s := eng.NewState(0, 0, testViewport)
	before := *s
	eng.Advance(s, MaxStep, 50, testViewport)
	if s.Price != before.Price || s.ElapsedMs != 0 || s.Score != before.Score {
		t.Fatalf("stopped state was mutated")
	}
}

func TestDeadStateIsFrozen(t *testing.T) {
	eng := NewEngine(constSource(0.5))
	s := risingState(Short)
	s.Score = 0.5
	now := 0.0
	for i := 0; i < 120 && !s.Dead; i++ {
		now += 1000.0 / 60
		eng.Advance(s, 1.0/60, now, testViewport)
	}
	if !s.Dead {
		t.Fatalf("expected liquidation")
	}
	if s.Score != 0 {
		t.Fatalf("dead score=%v want 0", s.Score)
	}

	price, score, elapsed := s.Price, s.Score, s.ElapsedMs
	for i := 0; i < 100; i++ {
		now += 1000.0 / 60
		eng.Advance(s, 1.0/60, now, testViewport)
	}
	if s.Price != price || s.Score != score || s.ElapsedMs != elapsed {
		t.Fatalf("dead state changed: price %v->%v score %v->%v elapsed %v->%v",
			price, s.Price, score, s.Score, elapsed, s.ElapsedMs)
	}
}

func TestAdvanceInvariantsUnderRandomPlay(t *testing.T) {
	intents := []Intent{IntentLong, IntentShort, IntentLeverageUp, IntentLeverageDown}
	for seed := int64(1); seed <= 8; seed++ {
		src := NewSeededSource(seed)
		eng := NewEngine(src)
		s := eng.Start(0, 0, testViewport)
		now := 0.0
		for tick := 0; tick < 20_000; tick++ {
			dt := ClampStep(src.Float64() * 0.08)
			now += dt * 1000
			if src.Float64() < 0.05 {
				s.Apply(Pick(src, intents))
			}
			eng.Advance(s, dt, now, testViewport)

			if s.Price < PriceMin || s.Price > PriceMax {
				t.Fatalf("seed=%d tick=%d price %v out of bounds", seed, tick, s.Price)
			}
			if s.Score < 0 {
				t.Fatalf("seed=%d tick=%d negative score %v", seed, tick, s.Score)
			}
			if s.LeverageIndex < 0 || s.LeverageIndex >= len(Leverages) {
				t.Fatalf("seed=%d tick=%d leverage index %d", seed, tick, s.LeverageIndex)
			}
			if s.Direction != 1 && s.Direction != -1 {
				t.Fatalf("seed=%d tick=%d direction %d", seed, tick, s.Direction)
			}
			if s.Dead {
				s = eng.Start(0, now, testViewport)
			}
		}
	}
}

func TestWallFlipsDirection(t *testing.T) {
	eng := NewEngine(constSource(0.5))
	s := risingState(Long)
	s.Price = PriceMax - 0.0001
	s.LastPrice = s.Price
	s.PriceVelocity = 0.5
	eng.Advance(s, MaxStep, 50, testViewport)
	if s.Price != PriceMax {
		t.Fatalf("price=%v want clamp to %v", s.Price, PriceMax)
	}
	if s.Direction != -1 || s.PriceVelocity >= 0 {
		t.Fatalf("expected downward reset, direction=%d velocity=%v", s.Direction, s.PriceVelocity)
	}
}

func TestTurnRedrawNarrowsWithDifficulty(t *testing.T) {
	for _, tc := range []struct {
		elapsedMs float64
		min, max  float64
	}{
		{elapsedMs: 0, min: 1.2, max: 2.0},
		{elapsedMs: 40_000, min: 0.45, max: 0.75},
	} {
		for _, draw := range []float64{0, 0.999} {
			eng := NewEngine(constSource(draw))
			s := risingState(Long)
			s.ElapsedMs = tc.elapsedMs
			s.NextTurnIn = 0
			eng.Advance(s, 0.001, 1, testViewport)
			// the countdown was redrawn inside the tick
			if s.NextTurnIn < tc.min-1e-9 || s.NextTurnIn > tc.max+1e-9 {
				t.Fatalf("elapsed=%v draw=%v next turn %v outside [%v,%v]", tc.elapsedMs, draw, s.NextTurnIn, tc.min, tc.max)
			}
		}
	}
}

func TestScrollSpeedIncludesLeverageAndBoost(t *testing.T) {
	eng := NewEngine(constSource(0.5))
	s := risingState(Long)
	s.LeverageIndex = 4
	eng.Advance(s, 0.01, 10, testViewport)
	if want := 120.0 + 5*18; math.Abs(s.Speed-want) > 1e-9 {
		t.Fatalf("speed=%v want=%v", s.Speed, want)
	}
	s.BoostUntilMs = 1000
	eng.Advance(s, 0.01, 20, testViewport)
	want := 120 + (s.ElapsedMs-10)/1000*4 + Difficulty(s.ElapsedMs-10)*80 + 5*18 + 160
	if math.Abs(s.Speed-want) > 1e-9 {
		t.Fatalf("boosted speed=%v want=%v", s.Speed, want)
	}
}

func TestPointsAppendAndTrim(t *testing.T) {
	eng := NewEngine(constSource(0.5))
	s := risingState(Long)
	s.Points = []Point{{X: -59, Y: 1}, {X: 600, Y: 1}}
	eng.Advance(s, MaxStep, 50, testViewport)
	for _, p := range s.Points {
		if p.X <= -60 {
			t.Fatalf("point %v should have been trimmed", p)
		}
	}
	last := s.Points[len(s.Points)-1]
	if last.X != testViewport.Width*0.8 {
		t.Fatalf("leading point x=%v want %v", last.X, testViewport.Width*0.8)
	}
	if last.Y != MapPriceToY(s.Price, testViewport.Height) {
		t.Fatalf("leading point y=%v does not track price", last.Y)
	}
}

func TestNewStateDefaults(t *testing.T) {
	eng := NewEngine(constSource(0.5))
	s := eng.NewState(250, 1234, testViewport)
	if s.Score != BaseScore+MaxBonusScore {
		t.Fatalf("score=%v want bonus capped at %v", s.Score, BaseScore+MaxBonusScore)
	}
	if s.Running || s.Dead {
		t.Fatalf("new state should be idle")
	}
	if s.Leverage() != 2 || s.Position != Long {
		t.Fatalf("leverage=%d position=%s", s.Leverage(), s.Position)
	}
	if s.Price != 0.5 || s.LastPrice != s.Price {
		t.Fatalf("price=%v last=%v", s.Price, s.LastPrice)
	}
	if s.NextEventIn < eventCooldownMin || s.NextEventIn > eventCooldownMax {
		t.Fatalf("next event %v", s.NextEventIn)
	}
}

func TestClampStep(t *testing.T) {
	if got := ClampStep(0.2); got != MaxStep {
		t.Fatalf("got %v", got)
	}
	if got := ClampStep(-1); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := ClampStep(0.016); got != 0.016 {
		t.Fatalf("got %v", got)
	}
}
