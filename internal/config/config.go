package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr            string
	SessionSecret   string
	SignerKey       string
	HeartbeatIdle   time.Duration
	FinishIdle      time.Duration
	MaxSessionAge   time.Duration
	MaxTimeMs       int64
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	Chains          []ChainConfig
}

// ChainConfig describes one network. Contract is empty when the game is not
// deployed there.
type ChainConfig struct {
	ID       uint64
	Name     string
	RPCURL   string
	Contract string
}

type CLIConfig struct {
	APIBaseURL        string
	Player            string
	ChainID           uint64
	HeartbeatInterval time.Duration
}

type knownChain struct {
	id     uint64
	name   string
	envKey string
	rpcURL string
}

var knownChains = []knownChain{
	{id: 8453, name: "Base", envKey: "BASE", rpcURL: "https://mainnet.base.org"},
	{id: 1868, name: "Soneium", envKey: "SONEIUM", rpcURL: "https://rpc.soneium.org"},
	{id: 5031, name: "Somnia", envKey: "SOMNIA", rpcURL: "https://api.infra.mainnet.somnia.network"},
	{id: 11155111, name: "Sepolia", envKey: "SEPOLIA", rpcURL: "https://rpc.sepolia.org"},
}

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped; a
// file that exists but cannot be parsed is an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadAPIFromEnv never fails on a missing secret or signer key: those are
// reported per request so a half-configured backend can still serve health
// and unsigned results.
func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("LIQRUN_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:            addr,
		SessionSecret:   envFirst("LIQRUN_SESSION_SECRET", "SESSION_HMAC_SECRET"),
		SignerKey:       envFirst("LIQRUN_SIGNER_KEY", "SIGNER_PRIVATE_KEY"),
		HeartbeatIdle:   envDurationDefault("LIQRUN_HEARTBEAT_IDLE", 8*time.Second),
		FinishIdle:      envDurationDefault("LIQRUN_FINISH_IDLE", 30*time.Second),
		MaxSessionAge:   envDurationDefault("LIQRUN_MAX_SESSION_AGE", 15*time.Minute),
		MaxTimeMs:       envIntDefault("LIQRUN_MAX_TIME", 600_000),
		ShutdownTimeout: envDurationDefault("LIQRUN_SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     envListDefault("LIQRUN_CORS_ORIGINS", []string{"*"}),
	}
	if cfg.MaxTimeMs <= 0 || cfg.MaxTimeMs > math.MaxUint32 {
		return cfg, fmt.Errorf("LIQRUN_MAX_TIME must be between 1 and %d", uint32(math.MaxUint32))
	}
	if cfg.HeartbeatIdle <= 0 || cfg.FinishIdle <= 0 {
		return cfg, fmt.Errorf("idle windows must be positive")
	}

	chains, err := loadChains()
	if err != nil {
		return cfg, err
	}
	cfg.Chains = chains
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL:        strings.TrimRight(envDefault("LIQRUN_API_BASE_URL", "http://localhost:8080"), "/"),
		Player:            strings.TrimSpace(os.Getenv("LIQRUN_PLAYER")),
		ChainID:           uint64(max(envIntDefault("LIQRUN_CHAIN_ID", 0), 0)),
		HeartbeatInterval: envDurationDefault("LIQRUN_HEARTBEAT_INTERVAL", 2500*time.Millisecond),
	}
}

func loadChains() ([]ChainConfig, error) {
	chains := make([]ChainConfig, 0, len(knownChains)+1)
	for _, k := range knownChains {
		chains = append(chains, ChainConfig{
			ID:       k.id,
			Name:     k.name,
			RPCURL:   envDefault("LIQRUN_RPC_URL_"+k.envKey, k.rpcURL),
			Contract: envFirst("LIQRUN_CONTRACT_"+k.envKey, "CONTRACT_ADDRESS_"+k.envKey),
		})
	}

	rawID := strings.TrimSpace(os.Getenv("LIQRUN_MEAGETH_CHAIN_ID"))
	rpcURL := strings.TrimSpace(os.Getenv("LIQRUN_MEAGETH_RPC_URL"))
	if rawID == "" || rpcURL == "" {
		return chains, nil
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("LIQRUN_MEAGETH_CHAIN_ID must be a positive integer")
	}
	for _, c := range chains {
		if c.ID == id {
			return nil, fmt.Errorf("LIQRUN_MEAGETH_CHAIN_ID %d collides with %s", id, c.Name)
		}
	}
	return append(chains, ChainConfig{
		ID:       id,
		Name:     "Meageth",
		RPCURL:   rpcURL,
		Contract: envFirst("LIQRUN_CONTRACT_MEAGETH", "CONTRACT_ADDRESS_MEAGETH"),
	}), nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envListDefault(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
