package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liqrun/internal/api"
	"liqrun/internal/config"
	"liqrun/internal/ledger"
	"liqrun/internal/session"
	"liqrun/internal/signer"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	chains := make([]ledger.Chain, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		chain, err := ledger.NewChain(c.ID, c.Name, c.RPCURL, c.Contract)
		if err != nil {
			logger.Error("chain config invalid", "chain_id", c.ID, "err", err)
			os.Exit(1)
		}
		if chain.Configured() {
			logger.Info("chain configured", "chain_id", chain.ID, "chain", chain.Name, "contract", chain.Contract.Hex())
		}
		chains = append(chains, chain)
	}
	ledgerClient := ledger.NewClient(chains, logger)
	defer ledgerClient.Close()

	var scoreSigner session.ScoreSigner
	if cfg.SignerKey != "" {
		s, err := signer.NewSigner(cfg.SignerKey)
		if err != nil {
			logger.Error("signer key invalid", "err", err)
			os.Exit(1)
		}
		logger.Info("score signer loaded", "address", s.Address().Hex())
		scoreSigner = s
	} else {
		logger.Warn("LIQRUN_SIGNER_KEY not set; finishes on configured chains will fail")
	}
	if cfg.SessionSecret == "" {
		logger.Warn("LIQRUN_SESSION_SECRET not set; session endpoints will fail")
	}

	sessions := session.NewService(
		session.NewCodec([]byte(cfg.SessionSecret)),
		ledgerClient,
		scoreSigner,
		session.Policy{
			HeartbeatIdle: cfg.HeartbeatIdle,
			FinishIdle:    cfg.FinishIdle,
			MaxSessionAge: cfg.MaxSessionAge,
			MaxTimeMs:     cfg.MaxTimeMs,
		},
		logger,
	)

	server := api.New(cfg, logger, sessions, ledgerClient)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("liqrun api listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("liqrun api stopped")
}
