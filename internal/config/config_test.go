package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Unset all PFT_ env vars to test pure defaults
	envVars := []string{
		"PFT_PORT", "PFT_METRICS_PORT", "PFT_ADMIN_TOKEN",
		"PFT_DATABASE_URL", "PFT_NATS_URL", "PFT_LEDGER_URL",
		"PFT_NODE_ACCOUNT", "PFT_NODE_NAME", "PFT_POLL_INTERVAL_MS",
		"PFT_ARBITER_URL", "PFT_ARBITER_MODEL", "PFT_ARBITER_TOKEN",
		"PFT_LOG_LEVEL",
	}
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.NATS.URL)
	}
	if cfg.Ledger.URL != "http://localhost:8800" {
		t.Errorf("expected ledger URL, got %s", cfg.Ledger.URL)
	}
	if cfg.Ledger.NodeName != "tasknode" {
		t.Errorf("expected node name 'tasknode', got %s", cfg.Ledger.NodeName)
	}
	if cfg.Ledger.PollIntervalMs != 10000 {
		t.Errorf("expected poll interval 10000, got %d", cfg.Ledger.PollIntervalMs)
	}
	if cfg.Arbiter.Attempts != 3 {
		t.Errorf("expected 3 arbiter attempts, got %d", cfg.Arbiter.Attempts)
	}
	if cfg.Reward.Min != 1 || cfg.Reward.Max != 1200 {
		t.Errorf("expected reward bounds [1, 1200], got [%f, %f]", cfg.Reward.Min, cfg.Reward.Max)
	}
	if cfg.Reward.HistoryDays != 35 {
		t.Errorf("expected 35 history days, got %d", cfg.Reward.HistoryDays)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	// Duration helpers
	if cfg.PollInterval() != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", cfg.PollInterval())
	}
	if cfg.RewardHistoryWindow() != 35*24*time.Hour {
		t.Errorf("expected RewardHistoryWindow 35 days, got %v", cfg.RewardHistoryWindow())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PFT_PORT", "9000")
	t.Setenv("PFT_METRICS_PORT", "9001")
	t.Setenv("PFT_ADMIN_TOKEN", "secret-token")
	t.Setenv("PFT_DATABASE_URL", "postgres://localhost/tasknode_test")
	t.Setenv("PFT_NATS_URL", "nats://nats:4222")
	t.Setenv("PFT_LEDGER_URL", "http://ledger:8800")
	t.Setenv("PFT_NODE_ACCOUNT", "rNodeAccount")
	t.Setenv("PFT_NODE_NAME", "prod-node")
	t.Setenv("PFT_POLL_INTERVAL_MS", "2000")
	t.Setenv("PFT_ARBITER_URL", "http://arbiter:8081")
	t.Setenv("PFT_ARBITER_MODEL", "o1")
	t.Setenv("PFT_ARBITER_TOKEN", "arbiter-secret")
	t.Setenv("PFT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/tasknode_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected nats URL, got '%s'", cfg.NATS.URL)
	}
	if cfg.Ledger.URL != "http://ledger:8800" {
		t.Errorf("expected ledger URL, got '%s'", cfg.Ledger.URL)
	}
	if cfg.Ledger.NodeAccount != "rNodeAccount" {
		t.Errorf("expected node account, got '%s'", cfg.Ledger.NodeAccount)
	}
	if cfg.Ledger.NodeName != "prod-node" {
		t.Errorf("expected node name 'prod-node', got '%s'", cfg.Ledger.NodeName)
	}
	if cfg.Ledger.PollIntervalMs != 2000 {
		t.Errorf("expected poll interval 2000, got %d", cfg.Ledger.PollIntervalMs)
	}
	if cfg.Arbiter.URL != "http://arbiter:8081" {
		t.Errorf("expected arbiter URL, got '%s'", cfg.Arbiter.URL)
	}
	if cfg.Arbiter.Model != "o1" {
		t.Errorf("expected arbiter model 'o1', got '%s'", cfg.Arbiter.Model)
	}
	if cfg.Arbiter.Token != "arbiter-secret" {
		t.Errorf("expected arbiter token, got '%s'", cfg.Arbiter.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8888
ledger:
  node_account: rFileAccount
  poll_interval_ms: 500
reward:
  max: 900
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("expected port 8888, got %d", cfg.Server.Port)
	}
	if cfg.Ledger.NodeAccount != "rFileAccount" {
		t.Errorf("expected node account from file, got '%s'", cfg.Ledger.NodeAccount)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Errorf("expected PollInterval 500ms, got %v", cfg.PollInterval())
	}
	if cfg.Reward.Max != 900 {
		t.Errorf("expected reward max 900, got %f", cfg.Reward.Max)
	}
	// Unset fields keep their defaults
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
}
