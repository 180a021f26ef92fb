package game

// Engine advances game states. It holds only the randomness source, so one
// Engine may drive many states as long as each State has a single owner.
type Engine struct {
	rand Source
}

func NewEngine(src Source) *Engine {
	if src == nil {
		src = NewSource()
	}
	return &Engine{rand: src}
}

// NewState builds a stopped state; set Running to start the clock.
func (e *Engine) NewState(bonusPoints, nowMs float64, vp Viewport) *State {
	price := 0.5 + RandomRange(e.rand, -0.08, 0.08)
	direction := -1
	if e.rand.Float64() > 0.5 {
		direction = 1
	}
	if bonusPoints < 0 {
		bonusPoints = 0
	}
	return &State{
		StartedAtMs:    nowMs,
		Score:          BaseScore + min(bonusPoints, MaxBonusScore),
		Position:       Long,
		LeverageIndex:  1,
		Price:          price,
		PriceVelocity:  RandomRange(e.rand, 0.06, 0.12),
		Direction:      direction,
		NextTurnIn:     RandomRange(e.rand, 0.8, 1.6),
		Speed:          120,
		TimeLabelIndex: int(RandomRange(e.rand, 0, TimeLabelSlots)),
		NextEventIn:    RandomRange(e.rand, eventCooldownMin, eventCooldownMax),
		Points:         []Point{{X: vp.Width * 0.8, Y: MapPriceToY(price, vp.Height)}},
		LastPrice:      price,
		BonusPoints:    bonusPoints,
	}
}

// Start resets s to a fresh running game.
func (e *Engine) Start(bonusPoints, nowMs float64, vp Viewport) *State {
	s := e.NewState(bonusPoints, nowMs, vp)
	s.Running = true
	return s
}

// ClampStep bounds a frame delta to [0, MaxStep] seconds.
func ClampStep(dt float64) float64 {
	return Clamp(dt, 0, MaxStep)
}

// Advance moves s forward by dt seconds. It is a no-op once the run is over.
func (e *Engine) Advance(s *State, dt, nowMs float64, vp Viewport) {
	if !s.Running || s.Dead {
		return
	}

	elapsedSeconds := s.ElapsedMs / 1000
	difficulty := Difficulty(s.ElapsedMs)
	pace := 1 + difficulty*1.4
	leverage := float64(s.Leverage())
	boostActive := nowMs < s.BoostUntilMs
	noiseBoost := nowMs < s.NoiseBoostUntilMs

	s.Speed = 120 + elapsedSeconds*4 + difficulty*80 + leverage*18
	if boostActive {
		s.Speed += 160
	}

	s.NextTurnIn -= dt * pace
	if s.NextTurnIn <= 0 {
		s.Direction = -s.Direction
		s.NextTurnIn = RandomRange(e.rand, Lerp(1.2, 0.45, difficulty), Lerp(2.0, 0.75, difficulty))
		s.PriceVelocity = float64(s.Direction) * RandomRange(e.rand, 0.08, 0.18) * (1 + difficulty*0.7)
	}

	e.movePrice(s, dt, difficulty, leverage, noiseBoost)
	applyScore(s, difficulty, leverage, dt)

	s.ElapsedMs += dt * 1000
	scrollTrack(s, dt, vp)
	e.scheduleEvents(s, dt, difficulty, vp)
	e.triggerEvent(s, nowMs, vp)

	if s.Message != nil && nowMs > s.Message.UntilMs {
		s.Message = nil
	}
}

func (e *Engine) movePrice(s *State, dt, difficulty, leverage float64, noiseBoost bool) {
	target := float64(s.Direction) * (0.08 + difficulty*0.28) * (1 + leverage*0.11)
	noise := 0.16 + difficulty*0.6 + leverage*0.1
	if noiseBoost {
		noise += 0.6
	}
	noise *= dt

	s.PriceVelocity += (target - s.PriceVelocity) * 0.2
	s.Price += s.PriceVelocity*dt*(1+difficulty*0.6) + (e.rand.Float64()-0.5)*noise

	if s.Price <= PriceMin || s.Price >= PriceMax {
		s.Price = Clamp(s.Price, PriceMin, PriceMax)
		s.Direction = -s.Direction
		s.PriceVelocity = float64(s.Direction) * RandomRange(e.rand, 0.09, 0.2) * (1 + difficulty*0.6)
	}
}

// applyScore credits or debits the tick against the price move since LastPrice.
func applyScore(s *State, difficulty, leverage, dt float64) {
	delta := s.Price - s.LastPrice
	rate := (14 + difficulty*16) * leverage
	aligned := (delta > 0 && s.Position == Long) || (delta < 0 && s.Position == Short)
	if aligned {
		s.Score += rate * dt
	} else {
		s.Score -= 1.5 * rate * dt
	}
	if s.Score < 0 {
		s.Score = 0
	}
	s.LastPrice = s.Price
	if s.Score <= 0 {
		s.Dead = true
	}
}

func scrollTrack(s *State, dt float64, vp Viewport) {
	shift := s.Speed * dt

	kept := s.Points[:0]
	for _, p := range s.Points {
		p.X -= shift
		if p.X > -60 {
			kept = append(kept, p)
		}
	}
	s.Points = kept

	y := MapPriceToY(s.Price, vp.Height)
	lineEnd := vp.Width * 0.8
	if n := len(s.Points); n == 0 || lineEnd-s.Points[n-1].X >= 6 {
		s.Points = append(s.Points, Point{X: lineEnd, Y: y})
	} else {
		s.Points[n-1].Y = y
	}

	s.LabelOffset -= shift
	spacing := vp.Width * 0.38
	if spacing > 0 && s.LabelOffset <= -spacing {
		s.LabelOffset += spacing
		s.TimeLabelIndex = (s.TimeLabelIndex + 1) % TimeLabelSlots
	}
}
