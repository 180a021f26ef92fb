package main

import (
	"testing"
	"unicode/utf8"
)

func TestRunSimIsReproducible(t *testing.T) {
	for _, name := range []string{"follow", "hold", "flip"} {
		play, err := simStrategy(name)
		if err != nil {
			t.Fatalf("strategy %s: %v", name, err)
		}
		a := runSim(42, 30, 2, 0, name, play)
		b := runSim(42, 30, 2, 0, name, play)
		if a.Ticks != b.Ticks || a.Score != b.Score || a.Dead != b.Dead || len(a.Prices) != len(b.Prices) {
			t.Fatalf("%s: runs diverged: %+v vs %+v", name, a, b)
		}
		if a.Ticks > int(30/simStep) {
			t.Fatalf("%s: ran %d ticks past the limit", name, a.Ticks)
		}
		if a.Dead && len(a.Lines) == 0 {
			t.Fatalf("%s: dead run without death lines", name)
		}
		if a.Leverage != 2 {
			t.Fatalf("%s: leverage=%d", name, a.Leverage)
		}
	}
}

func TestSimStrategyUnknown(t *testing.T) {
	if _, err := simStrategy("yolo"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline(nil, 10); got != "" {
		t.Fatalf("empty sparkline=%q", got)
	}
	got := sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 4)
	if utf8.RuneCountInString(got) != 4 {
		t.Fatalf("width=%d", utf8.RuneCountInString(got))
	}
	flat := sparkline([]float64{3, 3, 3}, 10)
	if flat != "▁▁▁" {
		t.Fatalf("flat=%q", flat)
	}
	ramp := []rune(sparkline([]float64{0, 7}, 2))
	if ramp[0] != '▁' || ramp[1] != '█' {
		t.Fatalf("ramp=%q", string(ramp))
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatMs(12345); got != "12.3s" {
		t.Fatalf("formatMs=%q", got)
	}
	if got := formatMs(-5); got != "0.0s" {
		t.Fatalf("negative formatMs=%q", got)
	}
	if got := formatWei("1500000000000000"); got != "0.001500" {
		t.Fatalf("formatWei=%q", got)
	}
	if got := formatWei("nope"); got != "?" {
		t.Fatalf("bad formatWei=%q", got)
	}
	if got := truncate("0x1111111111111111", 8); got != "0x111..." {
		t.Fatalf("truncate=%q", got)
	}
}
