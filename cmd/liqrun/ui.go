package main

import (
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"
	"time"

	cl "liqrun/internal/cli"
	"liqrun/internal/ledger"
	"liqrun/internal/session"
	"liqrun/internal/syncq"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func renderFinish(res session.FinishResult) error {
	accent.Println("\n== RUN FINISHED ==")
	fmt.Printf("Survived:  %s\n", formatMs(res.TimeMs))
	if !res.Signed() {
		printWarn("No authorization issued (player, chain or contract not configured).")
		fmt.Println()
		return nil
	}
	sig := res.Signature
	fmt.Printf("Nonce:     %s\n", res.Nonce)
	fmt.Printf("v:         %d\n", sig.V)
	fmt.Printf("r:         %s\n", sig.R.Hex())
	fmt.Printf("s:         %s\n", sig.S.Hex())
	fmt.Printf("Signature: %s\n", sig.Hex())
	fmt.Println()
	return nil
}

func renderAuthorization(a syncq.Authorization) {
	accent.Printf("Queued %s (chain %d, nonce %s)\n", a.ID, a.ChainID, a.Nonce)
	fmt.Printf("submitScore calldata: %s\n\n", a.Calldata)
}

func renderProfile(p ledger.Profile) {
	accent.Printf("\n== PLAYER %s (chain %d) ==\n", truncate(p.Player, 42), p.ChainID)
	fmt.Printf("Best time:        %s\n", formatMs(int64(p.BestTimeMs)))
	fmt.Printf("Check-in streak:  %d day(s)\n", p.CheckInStreakDays)
	fmt.Printf("Starting bonus:   %s\n", success.Sprintf("+%d", p.BonusPoints))
	if p.CanCheckIn {
		fmt.Printf("Check-in:         %s\n", success.Sprint("available"))
	} else {
		fmt.Printf("Check-in:         %s\n", neutral.Sprint("done for today"))
	}
	fmt.Printf("Check-in price:   %s ETH\n", formatWei(p.CheckInPriceWei))
	fmt.Printf("Submit price:     %s ETH\n", formatWei(p.SubmitScorePriceWei))
	fmt.Printf("Score nonce:      %s\n", p.Nonce)
	fmt.Println()
}

func renderPending(items []syncq.Authorization) {
	accent.Println("\n== PENDING SCORES ==")
	if len(items) == 0 {
		printInfo("Nothing queued.")
		return
	}
	fmt.Printf("%-36s %-8s %-12s %10s %6s %-16s\n", "ID", "CHAIN", "PLAYER", "TIME", "NONCE", "CREATED")
	for _, a := range items {
		fmt.Printf("%-36s %-8d %-12s %10s %6s %-16s\n",
			a.ID,
			a.ChainID,
			truncate(a.Player, 12),
			formatMs(a.TimeMs),
			a.Nonce,
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
	printInfo("Send the calldata with `to` set to the score contract; see pending.json for full payloads.")
}

func renderLocalSession(s cl.Session, now time.Time) {
	accent.Println("\n== LOCAL SESSION ==")
	fmt.Printf("Started:    %s\n", time.UnixMilli(s.StartAtMs).Local().Format("2006-01-02 15:04:05"))
	idle := now.UnixMilli() - s.LastBeatMs
	idleText := formatMs(idle)
	switch {
	case idle > session.DefaultPolicy().FinishIdle.Milliseconds():
		idleText = danger.Sprint(idleText + " (expired)")
	case idle > session.DefaultPolicy().HeartbeatIdle.Milliseconds():
		idleText = warn.Sprint(idleText + " (finish only)")
	}
	fmt.Printf("Last beat:  %s ago\n", idleText)
	if s.Player != "" {
		fmt.Printf("Player:     %s\n", s.Player)
	}
	if s.ChainID != 0 {
		fmt.Printf("Chain:      %d\n", s.ChainID)
	}
	fmt.Println()
}

type simSummary struct {
	Seed     int64
	Strategy string
	Ticks    int
	Dead     bool
	Elapsed  float64
	Score    int
	Peak     int
	Leverage int
	Prices   []float64
	Lines    []string
}

func renderSimSummary(sum simSummary) {
	accent.Printf("\n== SIMULATION seed=%d strategy=%s ==\n", sum.Seed, sum.Strategy)
	fmt.Printf("Ticks:     %d\n", sum.Ticks)
	fmt.Printf("Survived:  %s\n", formatMs(int64(sum.Elapsed)))
	fmt.Printf("Score:     %d (peak %d)\n", sum.Score, sum.Peak)
	fmt.Printf("Leverage:  x%d\n", sum.Leverage)
	if len(sum.Prices) > 1 {
		fmt.Println()
		fmt.Println(neutral.Sprint(sparkline(sum.Prices, terminalWidth()-2)))
	}
	fmt.Println()
	if sum.Dead {
		for i, line := range sum.Lines {
			if i == 0 {
				danger.Println(line)
				continue
			}
			printInfo(line)
		}
	} else {
		printSuccess("Still alive when the clock ran out.")
	}
	fmt.Println()
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline downsamples values to at most width columns.
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	cols := min(width, len(values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	var b strings.Builder
	for c := 0; c < cols; c++ {
		v := values[c*len(values)/cols]
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

func formatMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

func formatWei(raw string) string {
	wei, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return "?"
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return eth.Text('f', 6)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
