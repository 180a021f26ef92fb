package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAPIDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LIQRUN_API_ADDR", "")
	t.Setenv("LIQRUN_SESSION_SECRET", "")
	t.Setenv("SESSION_HMAC_SECRET", "legacy-secret")
	t.Setenv("LIQRUN_MEAGETH_CHAIN_ID", "")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.SessionSecret != "legacy-secret" {
		t.Fatalf("secret alias not honoured: %q", cfg.SessionSecret)
	}
	if cfg.HeartbeatIdle != 8*time.Second || cfg.FinishIdle != 30*time.Second || cfg.MaxTimeMs != 600_000 {
		t.Fatalf("unexpected windows %+v", cfg)
	}
	if len(cfg.Chains) != 4 {
		t.Fatalf("chains=%d want 4", len(cfg.Chains))
	}
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LIQRUN_SESSION_SECRET", "primary")
	t.Setenv("SESSION_HMAC_SECRET", "legacy")
	t.Setenv("LIQRUN_CONTRACT_BASE", "0x00000000000000000000000000000000000000c0")
	t.Setenv("LIQRUN_RPC_URL_BASE", "http://localhost:8545")
	t.Setenv("LIQRUN_MEAGETH_CHAIN_ID", "6342")
	t.Setenv("LIQRUN_MEAGETH_RPC_URL", "http://meageth.local")
	t.Setenv("LIQRUN_CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("LIQRUN_FINISH_IDLE", "45s")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.SessionSecret != "primary" || cfg.FinishIdle != 45*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("cors=%v", cfg.CORSOrigins)
	}
	base := cfg.Chains[0]
	if base.ID != 8453 || base.RPCURL != "http://localhost:8545" || base.Contract == "" {
		t.Fatalf("base=%+v", base)
	}
	last := cfg.Chains[len(cfg.Chains)-1]
	if last.ID != 6342 || last.Name != "Meageth" {
		t.Fatalf("meageth=%+v", last)
	}
}

func TestLoadAPIRejectsBadValues(t *testing.T) {
	t.Setenv("LIQRUN_MAX_TIME", "5000000000")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected max time above uint32 to fail")
	}
	t.Setenv("LIQRUN_MAX_TIME", "")
	t.Setenv("LIQRUN_MEAGETH_CHAIN_ID", "8453")
	t.Setenv("LIQRUN_MEAGETH_RPC_URL", "http://x")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected chain id collision to fail")
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("LIQRUN_TEST_A=from-file\nLIQRUN_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LIQRUN_TEST_A", "from-env")
	t.Setenv("LIQRUN_TEST_B", "")
	os.Unsetenv("LIQRUN_TEST_B")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("LIQRUN_TEST_A"); got != "from-env" {
		t.Fatalf("A=%q", got)
	}
	if got := os.Getenv("LIQRUN_TEST_B"); got != "from-file" {
		t.Fatalf("B=%q", got)
	}
}

func TestLoadDotEnvReportsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LIQRUN_TEST_C=\"unterminated\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := LoadDotEnv(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadCLI(t *testing.T) {
	t.Setenv("LIQRUN_API_BASE_URL", "http://api.test/")
	t.Setenv("LIQRUN_CHAIN_ID", "1868")
	t.Setenv("LIQRUN_PLAYER", " 0xabc ")
	cfg := LoadCLIFromEnv()
	if cfg.APIBaseURL != "http://api.test" || cfg.ChainID != 1868 || cfg.Player != "0xabc" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.HeartbeatInterval != 2500*time.Millisecond {
		t.Fatalf("interval=%s", cfg.HeartbeatInterval)
	}
}
