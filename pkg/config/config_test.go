package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOptional_EmptyPath(t *testing.T) {
	t.Setenv("PORT", "9999")

	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional with empty path should not error: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected Port=9999 from env, got %d", cfg.Port)
	}
}

func TestLoadConfigOptional_FileNotExist(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigOptional with non-existent file should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional: %v", err)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr default = %q", cfg.RedisAddr)
	}
	if cfg.RewardPolicy != "fixed" || cfg.RewardBaseAmount != "10" {
		t.Errorf("reward defaults = %q/%q", cfg.RewardPolicy, cfg.RewardBaseAmount)
	}
	if cfg.RelayMaxAttempts != 3 {
		t.Errorf("RelayMaxAttempts default = %d, want 3", cfg.RelayMaxAttempts)
	}
	if cfg.RelaySweepIntervalSeconds != 15 || cfg.RelayWorkers != 4 {
		t.Errorf("relay defaults = %d/%d", cfg.RelaySweepIntervalSeconds, cfg.RelayWorkers)
	}
	if cfg.AutoApproveThreshold != 85 {
		t.Errorf("AutoApproveThreshold default = %d, want 85", cfg.AutoApproveThreshold)
	}
	if cfg.BackoffPolicy != "exponential" {
		t.Errorf("BackoffPolicy default = %q", cfg.BackoffPolicy)
	}
}

func TestLoadConfigFromFileWithEnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "curator.yaml")
	yaml := `
port: 7070
redisAddr: "redis-0:6379"
primaryLedgerUrl: "http://primary.ledger.local"
secondaryLedgerUrl: "http://secondary.ledger.local"
rewardPolicy: scaled
rewardBaseAmount: "20"
relayWorkers: 8
rateLimit:
  submit:
    requestsPerMinute: 120
    burstSize: 30
`
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RELAY_WORKERS", "2")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 7070 || cfg.RedisAddr != "redis-0:6379" {
		t.Errorf("file values not applied: %d %q", cfg.Port, cfg.RedisAddr)
	}
	if cfg.RewardPolicy != "scaled" || cfg.RewardBaseAmount != "20" {
		t.Errorf("reward config = %q/%q", cfg.RewardPolicy, cfg.RewardBaseAmount)
	}
	if cfg.RelayWorkers != 2 {
		t.Errorf("env override lost: RelayWorkers = %d, want 2", cfg.RelayWorkers)
	}
	if !cfg.RateLimit.Submit.Enabled() || cfg.RateLimit.Submit.BurstSize != 30 {
		t.Errorf("rate limit = %+v", cfg.RateLimit.Submit)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	bad := "port: 8080\n  badly: indented\n"
	if err := os.WriteFile(configPath, []byte(bad), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(configPath); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, _ := LoadConfigOptional("")
		cfg.Env = "prod"
		cfg.PrimaryLedgerURL = "http://primary.ledger.local"
		cfg.SecondaryLedgerURL = "http://secondary.ledger.local"
		cfg.LedgerHmacSecret = "secret"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid prod config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing primary ledger", func(c *Config) { c.PrimaryLedgerURL = "" }},
		{"missing secondary ledger", func(c *Config) { c.SecondaryLedgerURL = "" }},
		{"bad secondary scheme", func(c *Config) { c.SecondaryLedgerURL = "ftp://nope" }},
		{"missing hmac secret", func(c *Config) { c.LedgerHmacSecret = " " }},
		{"unknown reward policy", func(c *Config) { c.RewardPolicy = "lottery" }},
		{"threshold out of range", func(c *Config) { c.AutoApproveThreshold = 101 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	// Dev can run without ledgers configured.
	dev, _ := LoadConfigOptional("")
	dev.Env = "dev"
	if err := dev.Validate(); err != nil {
		t.Fatalf("dev config rejected: %v", err)
	}
}
