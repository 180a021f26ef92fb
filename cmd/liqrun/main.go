package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	cl "liqrun/internal/cli"
	"liqrun/internal/config"
	"liqrun/internal/session"
	"liqrun/internal/syncq"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	apiBase string
	player  string
	chainID uint64
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	cfg := config.LoadCLIFromEnv()
	flags := &globalFlags{apiBase: cfg.APIBaseURL, player: cfg.Player, chainID: cfg.ChainID}

	root := &cobra.Command{
		Use:          "liqrun",
		Short:        "Liquidation Run: a leveraged-trading arcade game",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.player == "" {
				return nil
			}
			player, err := session.NormalizePlayer(flags.player)
			if err != nil {
				return err
			}
			flags.player = player
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.apiBase, "api", flags.apiBase, "backend base URL")
	root.PersistentFlags().StringVar(&flags.player, "player", flags.player, "wallet address (0x...)")
	root.PersistentFlags().Uint64Var(&flags.chainID, "chain", flags.chainID, "chain id for score authorization")

	root.AddCommand(
		newPlayCmd(flags, cfg),
		newSimCmd(),
		newSessionCmd(flags),
		newProfileCmd(flags),
		newPendingCmd(flags),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(flags *globalFlags) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(flags.apiBase), "/"))
}

func newSessionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Drive the session protocol by hand",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Open a session and save its token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			res, err := newClient(flags).Start(ctx, flags.player, flags.chainID)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:      res.Token,
				StartAtMs:  res.StartAtMs,
				LastBeatMs: res.StartAtMs,
				Player:     flags.player,
				ChainID:    flags.chainID,
			}); err != nil {
				return err
			}
			printSuccess("Session started.")
			printInfo(fmt.Sprintf("Started at %s", time.UnixMilli(res.StartAtMs).Format(time.RFC3339)))
			return nil
		},
	}

	heartbeat := &cobra.Command{
		Use:   "heartbeat",
		Short: "Refresh the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			res, err := newClient(flags).Heartbeat(ctx, s.Token)
			if err != nil {
				var apiErr *cl.APIError
				if errors.As(err, &apiErr) && apiErr.Status == 400 {
					_ = cl.ClearSession()
					printWarn("Session rejected by the backend and cleared.")
				}
				return err
			}
			s.Token = res.Token
			s.LastBeatMs = res.LastBeatMs
			if err := cl.SaveSession(s); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Heartbeat ok, %s into the run.", formatMs(res.LastBeatMs-s.StartAtMs)))
			return nil
		},
	}

	var queue bool
	finish := &cobra.Command{
		Use:   "finish",
		Short: "Finish the saved session and print the authorization",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cl.LoadSession()
			if err != nil {
				return err
			}
			player := flags.player
			if player == "" {
				player = s.Player
			}
			chainID := flags.chainID
			if chainID == 0 {
				chainID = s.ChainID
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			res, err := newClient(flags).Finish(ctx, s.Token, player, chainID)
			if err != nil {
				return err
			}
			_ = cl.ClearSession()
			if err := renderFinish(res); err != nil {
				return err
			}
			if queue && res.Signed() {
				a, err := queueAuthorization(chainID, player, res)
				if err != nil {
					return err
				}
				renderAuthorization(a)
			}
			return nil
		},
	}
	finish.Flags().BoolVar(&queue, "queue", true, "queue signed authorizations for wallet submission")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cl.LoadSession()
			if err != nil {
				return err
			}
			renderLocalSession(s, time.Now())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared.")
			return nil
		},
	}

	cmd.AddCommand(start, heartbeat, finish, status, clearCmd)
	return cmd
}

func newProfileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show on-chain stats for --player on --chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.player == "" || flags.chainID == 0 {
				return errors.New("--player and --chain are required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()
			p, err := newClient(flags).Profile(ctx, flags.chainID, flags.player)
			if err != nil {
				return err
			}
			renderProfile(p)
			return nil
		},
	}
}

func newPendingCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Signed scores waiting to be submitted from a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := syncq.Load()
			if err != nil {
				return err
			}
			renderPending(items)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Drop a queued authorization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := syncq.Remove(args[0])
			if err != nil {
				return err
			}
			if !ok {
				printWarn("No queued authorization with that id.")
				return nil
			}
			printSuccess("Removed.")
			return nil
		},
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Drop authorizations the contract nonce has moved past",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.player == "" || flags.chainID == 0 {
				return errors.New("--player and --chain are required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()
			p, err := newClient(flags).Profile(ctx, flags.chainID, flags.player)
			if err != nil {
				return err
			}
			current, ok := new(big.Int).SetString(p.Nonce, 10)
			if !ok {
				return fmt.Errorf("backend returned invalid nonce %q", p.Nonce)
			}
			dropped, err := syncq.Prune(flags.chainID, flags.player, current)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Pruned %d stale authorization(s).", dropped))
			return nil
		},
	}

	cmd.AddCommand(remove, prune)
	return cmd
}

func queueAuthorization(chainID uint64, player string, res session.FinishResult) (syncq.Authorization, error) {
	a, err := syncq.NewAuthorization(chainID, player, res)
	if err != nil {
		return syncq.Authorization{}, err
	}
	return a, syncq.Push(a)
}
