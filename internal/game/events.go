package game

const (
	eventCooldownMin = 4.2
	eventCooldownMax = 7.2

	eventCooldownHardMin = 2.6
	eventCooldownHardMax = 4.4

	eventDespawnX = -80
)

// pickEventType draws 30% FOMO, 40% NEWS, 30% INFLUENCER.
func pickEventType(src Source) EventType {
	roll := src.Float64()
	switch {
	case roll < 0.3:
		return Fomo
	case roll < 0.7:
		return News
	default:
		return Influencer
	}
}

func (e *Engine) scheduleEvents(s *State, dt, difficulty float64, vp Viewport) {
	shift := s.Speed * dt
	kept := s.Events[:0]
	for _, ev := range s.Events {
		ev.X -= shift
		if ev.X > eventDespawnX {
			kept = append(kept, ev)
		}
	}
	s.Events = kept

	s.NextEventIn -= dt * (1 + difficulty*0.7)
	if s.NextEventIn > 0 {
		return
	}
	s.Events = append(s.Events, Event{
		Type: pickEventType(e.rand),
		X:    vp.Width*0.8 + RandomRange(e.rand, 120, 260),
	})
	s.NextEventIn = RandomRange(e.rand,
		Lerp(eventCooldownMin, eventCooldownHardMin, difficulty),
		Lerp(eventCooldownMax, eventCooldownHardMax, difficulty),
	)
}

// triggerEvent fires at most one event per tick: the first untriggered one
// that has reached the middle of the viewport.
func (e *Engine) triggerEvent(s *State, nowMs float64, vp Viewport) {
	mid := vp.Width / 2
	for i := range s.Events {
		ev := &s.Events[i]
		if ev.Triggered || ev.X > mid {
			continue
		}
		s.Message = &Message{
			Text:    Pick(e.rand, messagePool(ev.Type)),
			Type:    ev.Type,
			UntilMs: nowMs + MessageDuration,
		}
		if ev.Type == Fomo {
			s.BoostUntilMs = nowMs + FomoBoostDuration
		} else {
			s.Direction = -s.Direction
			s.PriceVelocity = float64(s.Direction) * RandomRange(e.rand, 0.18, 0.3)
			s.NoiseBoostUntilMs = nowMs + NoiseBoostDuration
		}
		ev.Triggered = true
		return
	}
}
