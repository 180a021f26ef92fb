package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	cl "liqrun/internal/cli"
	"liqrun/internal/config"
	"liqrun/internal/game"
	"liqrun/internal/session"
	"liqrun/internal/syncq"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const frameInterval = 16 * time.Millisecond

// The simulation runs on a fixed virtual surface; the terminal only scales it.
var playViewport = game.Viewport{Width: 800, Height: 480}

var (
	hudStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E6EDF3"))
	longStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	shortStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F85149"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E"))
	messageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D29922"))
	deathStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F85149")).
			Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#F85149")).Padding(0, 2)
	chartStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#30363D"))
)

type keyMap struct {
	Long         key.Binding
	Short        key.Binding
	LeverageUp   key.Binding
	LeverageDown key.Binding
	Restart      key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Long:         key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "long")),
		Short:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "short")),
		LeverageUp:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "leverage up")),
		LeverageDown: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "leverage down")),
		Restart:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "new run")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) help() string {
	parts := make([]string, 0, 6)
	for _, b := range []key.Binding{k.Short, k.Long, k.LeverageUp, k.LeverageDown, k.Restart, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

type frameMsg time.Time

type startedMsg struct {
	epoch uint64
	res   session.StartResult
	err   error
}

type beatMsg struct {
	epoch uint64
	res   session.HeartbeatResult
	err   error
}

type finishedMsg struct {
	epoch uint64
	res   session.FinishResult
	err   error
}

type playModel struct {
	eng     *game.Engine
	src     game.Source
	state   *game.State
	keys    keyMap
	client  *cl.Client
	tracker *cl.Tracker

	player  string
	chainID uint64
	bonus   float64

	clock0        time.Time
	lastFrame     time.Time
	lastBeat      time.Time
	beatEvery     time.Duration
	beatInFlight  bool
	deathLines    []string
	finish        *session.FinishResult
	finishPending bool
	queued        []syncq.Authorization
	status        string

	width  int
	height int
}

func newPlayModel(client *cl.Client, player string, chainID uint64, bonus float64, beatEvery time.Duration) *playModel {
	src := game.NewSource()
	return &playModel{
		eng:       game.NewEngine(src),
		src:       src,
		keys:      defaultKeys(),
		client:    client,
		tracker:   &cl.Tracker{},
		player:    player,
		chainID:   chainID,
		bonus:     bonus,
		beatEvery: beatEvery,
		clock0:    time.Now(),
		width:     100,
		height:    30,
	}
}

func (m *playModel) nowMs() float64 {
	return float64(time.Since(m.clock0)) / float64(time.Millisecond)
}

func (m *playModel) Init() tea.Cmd {
	return tea.Batch(m.newRun(), frame())
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// newRun resets the local game and opens a backend session for it. Any
// response still in flight for the previous run is discarded by epoch.
func (m *playModel) newRun() tea.Cmd {
	m.state = m.eng.Start(m.bonus, m.nowMs(), playViewport)
	m.deathLines = nil
	m.finish = nil
	m.finishPending = false
	m.beatInFlight = false
	m.lastFrame = time.Now()
	m.lastBeat = m.lastFrame
	epoch := m.tracker.Begin()
	if m.client == nil {
		m.status = "offline run"
		return nil
	}
	m.status = "opening session..."
	client, player, chainID := m.client, m.player, m.chainID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		res, err := client.Start(ctx, player, chainID)
		return startedMsg{epoch: epoch, res: res, err: err}
	}
}

func (m *playModel) heartbeat(token string) tea.Cmd {
	epoch := m.tracker.Epoch()
	client := m.client
	m.beatInFlight = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := client.Heartbeat(ctx, token)
		return beatMsg{epoch: epoch, res: res, err: err}
	}
}

func (m *playModel) finishRun() tea.Cmd {
	token, epoch := m.tracker.Token()
	if m.client == nil || token == "" {
		return nil
	}
	m.finishPending = true
	m.status = "submitting run..."
	client, player, chainID := m.client, m.player, m.chainID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		res, err := client.Finish(ctx, token, player, chainID)
		return finishedMsg{epoch: epoch, res: res, err: err}
	}
}

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case frameMsg:
		return m, tea.Batch(m.step(time.Time(msg)), frame())

	case startedMsg:
		if msg.epoch != m.tracker.Epoch() {
			return m, nil
		}
		if msg.err != nil {
			m.status = "offline run: " + msg.err.Error()
			return m, nil
		}
		if m.tracker.Apply(msg.epoch, msg.res.Token) {
			m.status = "session live"
		}
		if m.state.Dead && !m.finishPending {
			return m, m.finishRun()
		}

	case beatMsg:
		if msg.epoch != m.tracker.Epoch() {
			return m, nil
		}
		m.beatInFlight = false
		if msg.err != nil {
			// The run keeps going locally but can no longer be authorized.
			if m.tracker.Drop(msg.epoch) {
				m.status = "heartbeat failed, run is offline: " + msg.err.Error()
			}
			return m, nil
		}
		m.tracker.Apply(msg.epoch, msg.res.Token)

	case finishedMsg:
		if msg.epoch != m.tracker.Epoch() {
			return m, nil
		}
		m.finishPending = false
		if msg.err != nil {
			m.status = "finish rejected: " + msg.err.Error()
			return m, nil
		}
		res := msg.res
		m.finish = &res
		m.status = m.queueResult(res)
	}
	return m, nil
}

func (m *playModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Restart):
		if m.state.Dead {
			return m.newRun()
		}
	case key.Matches(msg, m.keys.Long):
		m.state.Apply(game.IntentLong)
	case key.Matches(msg, m.keys.Short):
		m.state.Apply(game.IntentShort)
	case key.Matches(msg, m.keys.LeverageUp):
		m.state.Apply(game.IntentLeverageUp)
	case key.Matches(msg, m.keys.LeverageDown):
		m.state.Apply(game.IntentLeverageDown)
	}
	return nil
}

func (m *playModel) step(now time.Time) tea.Cmd {
	dt := game.ClampStep(now.Sub(m.lastFrame).Seconds())
	m.lastFrame = now
	if m.state.Dead {
		return nil
	}

	m.eng.Advance(m.state, dt, m.nowMs(), playViewport)
	if m.state.Dead {
		m.deathLines = game.DeathLines(m.state, m.src)
		return m.finishRun()
	}

	token, _ := m.tracker.Token()
	if m.client == nil || token == "" || m.beatInFlight || now.Sub(m.lastBeat) < m.beatEvery {
		return nil
	}
	m.lastBeat = now
	return m.heartbeat(token)
}

func (m *playModel) queueResult(res session.FinishResult) string {
	if !res.Signed() {
		return fmt.Sprintf("run recorded: %s (unsigned)", formatMs(res.TimeMs))
	}
	a, err := queueAuthorization(m.chainID, m.player, res)
	if err != nil {
		return "signed, but queueing failed: " + err.Error()
	}
	m.queued = append(m.queued, a)
	return fmt.Sprintf("signed %s at nonce %s, queued for submission", formatMs(res.TimeMs), res.Nonce)
}

func (m *playModel) View() string {
	if m.state == nil {
		return ""
	}
	snap := m.state.Snapshot()

	pos := longStyle.Render("▲ LONG")
	if snap.Position == game.Short {
		pos = shortStyle.Render("▼ SHORT")
	}
	hud := lipgloss.JoinHorizontal(lipgloss.Top,
		pos, "   ",
		hudStyle.Render(fmt.Sprintf("x%d", snap.Leverage)), "   ",
		hudStyle.Render(fmt.Sprintf("score %d", snap.Score)), "   ",
		hudStyle.Render(formatMs(int64(snap.ElapsedMs))), "   ",
		dimStyle.Render(game.TimeLabel(m.state.TimeLabelIndex)),
	)

	message := " "
	if snap.Message != nil {
		message = messageStyle.Render(snap.Message.Text)
	}

	chartW := max(20, m.width-2)
	chartH := max(6, m.height-7)
	body := chartStyle.Render(m.renderChart(chartW, chartH))
	if snap.Dead {
		body = lipgloss.Place(chartW+2, chartH+2, lipgloss.Center, lipgloss.Center, m.renderDeath())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		hud,
		message,
		body,
		dimStyle.Render(m.status),
		dimStyle.Render(m.keys.help()),
	)
}

func (m *playModel) renderChart(w, h int) string {
	grid := make([][]rune, h)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", w))
	}
	toCell := func(x, y float64) (int, int) {
		cx := int(x / playViewport.Width * float64(w))
		cy := int(y / playViewport.Height * float64(h))
		return cx, cy
	}
	for _, ev := range m.state.Events {
		cx, _ := toCell(ev.X, 0)
		if cx < 0 || cx >= w {
			continue
		}
		mark := '┆'
		if !ev.Triggered {
			mark = rune(ev.Type.String()[0])
		}
		for y := range grid {
			if y == 0 {
				grid[y][cx] = mark
				continue
			}
			if grid[y][cx] == ' ' && !ev.Triggered {
				grid[y][cx] = '┆'
			}
		}
	}
	for i, p := range m.state.Points {
		cx, cy := toCell(p.X, p.Y)
		if cx < 0 || cx >= w || cy < 0 || cy >= h {
			continue
		}
		mark := '•'
		if i == len(m.state.Points)-1 {
			mark = '◆'
		}
		grid[cy][cx] = mark
	}
	lines := make([]string, h)
	for y, row := range grid {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}

func (m *playModel) renderDeath() string {
	lines := append([]string{"LIQUIDATED"}, m.deathLines...)
	if m.finish != nil && m.finish.Signed() {
		lines = append(lines, "", "signature "+truncate(m.finish.Signature.Hex(), 24))
	}
	lines = append(lines, "", "space for a new run")
	return deathStyle.Render(strings.Join(lines, "\n"))
}

func newPlayCmd(flags *globalFlags, cfg config.CLIConfig) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			var client *cl.Client
			bonus := 0.0
			if !offline {
				client = newClient(flags)
				if flags.player != "" && flags.chainID != 0 {
					ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
					p, err := client.Profile(ctx, flags.chainID, flags.player)
					cancel()
					if err != nil {
						printWarn("Could not load check-in bonus: " + err.Error())
					} else {
						bonus = float64(p.BonusPoints)
					}
				}
			}

			m := newPlayModel(client, flags.player, flags.chainID, bonus, cfg.HeartbeatInterval)
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				printError("TUI exited with error: " + err.Error())
				return err
			}
			if m.finish != nil {
				if err := renderFinish(*m.finish); err != nil {
					return err
				}
			}
			for _, a := range m.queued {
				renderAuthorization(a)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "play without a backend session")
	return cmd
}
