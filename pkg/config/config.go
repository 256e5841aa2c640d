package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datapeak/curator/internal/ratelimit"
)

type RateLimits struct {
	Submit ratelimit.Bucket `yaml:"submit"`
	Review ratelimit.Bucket `yaml:"review"`
}

type Config struct {
	Port          int    `yaml:"port"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	Timezone      string `yaml:"timezone"`
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	Env           string `yaml:"env"`

	PrimaryLedgerURL     string `yaml:"primaryLedgerUrl"`
	SecondaryLedgerURL   string `yaml:"secondaryLedgerUrl"`
	LedgerHmacSecret     string `yaml:"ledgerHmacSecret"`
	LedgerTimeoutSeconds int    `yaml:"ledgerTimeoutSeconds"`

	RewardPolicy         string `yaml:"rewardPolicy"` // fixed | scaled
	RewardBaseAmount     string `yaml:"rewardBaseAmount"`
	ReviewerRewardAmount string `yaml:"reviewerRewardAmount"`
	ReputationDelta      int64  `yaml:"reputationDelta"`
	AutoApproveThreshold int    `yaml:"autoApproveThreshold"`

	RelaySweepIntervalSeconds int    `yaml:"relaySweepIntervalSeconds"`
	RelaySweepBatchLimit      int    `yaml:"relaySweepBatchLimit"`
	RelayWorkers              int    `yaml:"relayWorkers"`
	RelayMaxAttempts          int    `yaml:"relayMaxAttempts"`
	RelayClaimTTLSeconds      int    `yaml:"relayClaimTtlSeconds"`
	BackoffPolicy             string `yaml:"backoffPolicy"`
	BackoffBaseSeconds        int    `yaml:"backoffBaseSeconds"`
	BackoffMaxSeconds         int    `yaml:"backoffMaxSeconds"`

	// Auth provider configs are JSON documents embedded as strings so the
	// same payload works from YAML and from env.
	SubmitterAuthProvider string `yaml:"submitterAuthProvider"`
	SubmitterAuthConfig   string `yaml:"submitterAuthConfig"`
	ReviewerAuthProvider  string `yaml:"reviewerAuthProvider"`
	ReviewerAuthConfig    string `yaml:"reviewerAuthConfig"`

	RateLimit RateLimits `yaml:"rateLimit"`

	OTLPEndpoint string `yaml:"otlpEndpoint"`
}

// LoadConfigOptional behaves like LoadConfig but treats a missing or blank
// path as "env and defaults only".
func LoadConfigOptional(filePath string) (*Config, error) {
	if strings.TrimSpace(filePath) == "" {
		return load(nil)
	}
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return load(nil)
	}
	if err != nil {
		return nil, err
	}
	return load(data)
}

func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return load(data)
}

func load(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("PRIMARY_LEDGER_URL"); v != "" {
		c.PrimaryLedgerURL = v
	}
	if v := os.Getenv("SECONDARY_LEDGER_URL"); v != "" {
		c.SecondaryLedgerURL = v
	}
	if v := os.Getenv("LEDGER_HMAC_SECRET"); v != "" {
		c.LedgerHmacSecret = v
	}
	if v := os.Getenv("LEDGER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LedgerTimeoutSeconds = n
		}
	}
	if v := os.Getenv("REWARD_POLICY"); v != "" {
		c.RewardPolicy = v
	}
	if v := os.Getenv("REWARD_BASE_AMOUNT"); v != "" {
		c.RewardBaseAmount = v
	}
	if v := os.Getenv("REVIEWER_REWARD_AMOUNT"); v != "" {
		c.ReviewerRewardAmount = v
	}
	if v := os.Getenv("REPUTATION_DELTA"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ReputationDelta = n
		}
	}
	if v := os.Getenv("AUTO_APPROVE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AutoApproveThreshold = n
		}
	}
	if v := os.Getenv("RELAY_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RelaySweepIntervalSeconds = n
		}
	}
	if v := os.Getenv("RELAY_SWEEP_BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RelaySweepBatchLimit = n
		}
	}
	if v := os.Getenv("RELAY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RelayWorkers = n
		}
	}
	if v := os.Getenv("RELAY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RelayMaxAttempts = n
		}
	}
	if v := os.Getenv("RELAY_CLAIM_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RelayClaimTTLSeconds = n
		}
	}
	if v := os.Getenv("BACKOFF_POLICY"); v != "" {
		c.BackoffPolicy = v
	}
	if v := os.Getenv("BACKOFF_BASE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BackoffBaseSeconds = n
		}
	}
	if v := os.Getenv("BACKOFF_MAX_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BackoffMaxSeconds = n
		}
	}
	if v := os.Getenv("SUBMITTER_AUTH_PROVIDER"); v != "" {
		c.SubmitterAuthProvider = v
	}
	if v := os.Getenv("SUBMITTER_AUTH_CONFIG"); v != "" {
		c.SubmitterAuthConfig = v
	}
	if v := os.Getenv("REVIEWER_AUTH_PROVIDER"); v != "" {
		c.ReviewerAuthProvider = v
	}
	if v := os.Getenv("REVIEWER_AUTH_CONFIG"); v != "" {
		c.ReviewerAuthConfig = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}

	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.LedgerTimeoutSeconds <= 0 {
		c.LedgerTimeoutSeconds = 10
	}
	if c.RewardPolicy == "" {
		c.RewardPolicy = "fixed"
	}
	if c.RewardBaseAmount == "" {
		c.RewardBaseAmount = "10"
	}
	if c.ReputationDelta <= 0 {
		c.ReputationDelta = 10
	}
	if c.AutoApproveThreshold <= 0 {
		c.AutoApproveThreshold = 85
	}
	if c.RelaySweepIntervalSeconds <= 0 {
		c.RelaySweepIntervalSeconds = 15
	}
	if c.RelaySweepBatchLimit <= 0 {
		c.RelaySweepBatchLimit = 100
	}
	if c.RelayWorkers <= 0 {
		c.RelayWorkers = 4
	}
	if c.RelayMaxAttempts <= 0 {
		c.RelayMaxAttempts = 3
	}
	if c.RelayClaimTTLSeconds <= 0 {
		c.RelayClaimTTLSeconds = 300
	}
	if c.BackoffPolicy == "" {
		c.BackoffPolicy = "exponential"
	}
	if c.BackoffBaseSeconds <= 0 {
		c.BackoffBaseSeconds = 5
	}
	if c.BackoffMaxSeconds <= 0 {
		c.BackoffMaxSeconds = 300
	}

	log.Printf("Curator Config: {Port:%d Redis:%s Primary:%s Secondary:%s TZ:%s Workers:%d Sweep:%ds}\n",
		c.Port, c.RedisAddr, c.PrimaryLedgerURL, c.SecondaryLedgerURL, c.Timezone, c.RelayWorkers, c.RelaySweepIntervalSeconds)
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []string
	env := strings.ToLower(strings.TrimSpace(c.Env))
	dev := env == "dev"

	if c.PrimaryLedgerURL == "" {
		if !dev {
			errs = append(errs, "primaryLedgerUrl is required in non-dev")
		}
	} else if !validHTTPURL(c.PrimaryLedgerURL) {
		errs = append(errs, "primaryLedgerUrl must be a valid http(s) URL")
	}

	// The relay pipeline has no fallback destination: a missing secondary
	// ledger is a deployment error, not something to paper over at runtime.
	if c.SecondaryLedgerURL == "" {
		if !dev {
			errs = append(errs, "secondaryLedgerUrl is required in non-dev")
		}
	} else if !validHTTPURL(c.SecondaryLedgerURL) {
		errs = append(errs, "secondaryLedgerUrl must be a valid http(s) URL")
	}

	if strings.TrimSpace(c.LedgerHmacSecret) == "" && !dev {
		errs = append(errs, "ledgerHmacSecret is required in non-dev")
	}

	switch c.RewardPolicy {
	case "", "fixed", "scaled":
	default:
		errs = append(errs, fmt.Sprintf("unknown rewardPolicy %q", c.RewardPolicy))
	}
	if c.AutoApproveThreshold < 1 || c.AutoApproveThreshold > 100 {
		errs = append(errs, "autoApproveThreshold must be in [1,100]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
