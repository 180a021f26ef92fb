package main

import (
	"fmt"
	"time"

	"liqrun/internal/game"

	"github.com/spf13/cobra"
)

const simStep = 1.0 / 60

func newSimCmd() *cobra.Command {
	var (
		seed     int64
		seconds  float64
		strategy string
		leverage int
		bonus    float64
	)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a headless game with a scripted player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			if seconds <= 0 {
				return fmt.Errorf("--seconds must be positive")
			}
			if leverage < 1 || leverage > len(game.Leverages) {
				return fmt.Errorf("--leverage must be between 1 and %d", len(game.Leverages))
			}
			pick, err := simStrategy(strategy)
			if err != nil {
				return err
			}
			renderSimSummary(runSim(seed, seconds, leverage, bonus, strategy, pick))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().Float64Var(&seconds, "seconds", 120, "maximum simulated seconds")
	cmd.Flags().StringVar(&strategy, "strategy", "follow", "player script: follow, hold or flip")
	cmd.Flags().IntVar(&leverage, "leverage", 2, "starting leverage multiplier")
	cmd.Flags().Float64Var(&bonus, "bonus", 0, "starting bonus points")
	return cmd
}

type simPlayer func(s *game.State, src game.Source) game.Intent

func simStrategy(name string) (simPlayer, error) {
	switch name {
	case "follow":
		// Trades with the underlying trend, which the UI never shows.
		return func(s *game.State, _ game.Source) game.Intent {
			if s.Direction > 0 {
				return game.IntentLong
			}
			return game.IntentShort
		}, nil
	case "hold":
		return func(*game.State, game.Source) game.Intent { return 0 }, nil
	case "flip":
		return func(s *game.State, src game.Source) game.Intent {
			if src.Float64() < 0.02 {
				return game.Pick(src, []game.Intent{game.IntentLong, game.IntentShort})
			}
			return 0
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func runSim(seed int64, seconds float64, leverage int, bonus float64, name string, play simPlayer) simSummary {
	src := game.NewSeededSource(seed)
	eng := game.NewEngine(src)
	vp := game.Viewport{Width: 800, Height: 480}
	s := eng.Start(bonus, 0, vp)
	s.LeverageIndex = leverage - 1

	sum := simSummary{Seed: seed, Strategy: name}
	nowMs := 0.0
	limit := int(seconds / simStep)
	peak := s.Score
	for sum.Ticks < limit && !s.Dead {
		if intent := play(s, src); intent != 0 {
			s.Apply(intent)
		}
		nowMs += simStep * 1000
		eng.Advance(s, simStep, nowMs, vp)
		sum.Ticks++
		peak = max(peak, s.Score)
		if sum.Ticks%6 == 0 {
			sum.Prices = append(sum.Prices, s.Price)
		}
	}

	snap := s.Snapshot()
	sum.Dead = snap.Dead
	sum.Elapsed = snap.ElapsedMs
	sum.Score = snap.Score
	sum.Peak = int(peak + 0.5)
	sum.Leverage = snap.Leverage
	if s.Dead {
		sum.Lines = game.DeathLines(s, src)
	}
	return sum
}
