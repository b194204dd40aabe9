package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Arbiter  ArbiterConfig  `yaml:"arbiter"`
	Reward   RewardConfig   `yaml:"reward"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type LedgerConfig struct {
	URL            string `yaml:"url"`
	NodeAccount    string `yaml:"node_account"`
	NodeName       string `yaml:"node_name"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

type ArbiterConfig struct {
	URL      string `yaml:"url"`
	Model    string `yaml:"model"`
	Token    string `yaml:"token"`
	Attempts int    `yaml:"attempts"`
}

type RewardConfig struct {
	Min         float64 `yaml:"min"`
	Max         float64 `yaml:"max"`
	HistoryDays int     `yaml:"history_days"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Ledger.PollIntervalMs) * time.Millisecond
}

func (c *Config) RewardHistoryWindow() time.Duration {
	return time.Duration(c.Reward.HistoryDays) * 24 * time.Hour
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Ledger: LedgerConfig{
			URL:            "http://localhost:8800",
			NodeName:       "tasknode",
			PollIntervalMs: 10000,
		},
		Arbiter: ArbiterConfig{
			URL:      "http://localhost:8081",
			Model:    "gpt-4o",
			Attempts: 3,
		},
		Reward: RewardConfig{
			Min:         1,
			Max:         1200,
			HistoryDays: 35,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PFT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("PFT_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("PFT_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("PFT_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PFT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("PFT_LEDGER_URL"); v != "" {
		cfg.Ledger.URL = v
	}
	if v := os.Getenv("PFT_NODE_ACCOUNT"); v != "" {
		cfg.Ledger.NodeAccount = v
	}
	if v := os.Getenv("PFT_NODE_NAME"); v != "" {
		cfg.Ledger.NodeName = v
	}
	if v := os.Getenv("PFT_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ledger.PollIntervalMs = n
		}
	}
	if v := os.Getenv("PFT_ARBITER_URL"); v != "" {
		cfg.Arbiter.URL = v
	}
	if v := os.Getenv("PFT_ARBITER_MODEL"); v != "" {
		cfg.Arbiter.Model = v
	}
	if v := os.Getenv("PFT_ARBITER_TOKEN"); v != "" {
		cfg.Arbiter.Token = v
	}
	if v := os.Getenv("PFT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
