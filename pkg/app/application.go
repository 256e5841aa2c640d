package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/datapeak/curator/internal/metrics"
	"github.com/datapeak/curator/internal/middleware"
	"github.com/datapeak/curator/internal/providers"
	"github.com/datapeak/curator/internal/ratelimit"
	"github.com/datapeak/curator/internal/repository"
	"github.com/datapeak/curator/internal/reward"
	"github.com/datapeak/curator/internal/services"
	"github.com/datapeak/curator/internal/tracing"
	"github.com/datapeak/curator/pkg/auth"
	"github.com/datapeak/curator/pkg/config"
)

type Application struct {
	Config   *config.Config
	Engine   *gin.Engine
	Redis    *redis.Client
	Curation services.CurationService
	Approval services.ApprovalService
	Relay    services.RelayService
	Logger   *slog.Logger
	TZ       *time.Location

	SubmitterValidator auth.Validator
	ReviewerValidator  auth.Validator
	RateLimiter        ratelimit.Limiter

	TracingShutdown func(context.Context) error

	primaryOverride   providers.PrimaryLedger
	secondaryOverride providers.SecondaryLedger
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithSubmitterValidator sets a custom validator for contribution endpoints
func WithSubmitterValidator(validator auth.Validator) ApplicationOption {
	return func(app *Application) error {
		app.SubmitterValidator = validator
		return nil
	}
}

// WithReviewerValidator sets a custom validator for review endpoints
func WithReviewerValidator(validator auth.Validator) ApplicationOption {
	return func(app *Application) error {
		app.ReviewerValidator = validator
		return nil
	}
}

// WithPrimaryLedger overrides the HTTP primary-ledger adapter (tests).
func WithPrimaryLedger(ledger providers.PrimaryLedger) ApplicationOption {
	return func(app *Application) error {
		app.primaryOverride = ledger
		return nil
	}
}

// WithSecondaryLedger overrides the HTTP secondary-ledger adapter (tests).
func WithSecondaryLedger(ledger providers.SecondaryLedger) ApplicationOption {
	return func(app *Application) error {
		app.secondaryOverride = ledger
		return nil
	}
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	redisClient := providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword)
	limiter := ratelimit.NewTokenBucketLimiter(redisClient)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.FixedZone("UTC", 0)
	}

	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With("service", "curator", "env", cfg.Env)
	slog.SetDefault(logger)

	metrics.RegisterRelayCollector(redisClient, logger)

	tracingShutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.OTLPEndpoint != "",
		ServiceName:  "curator",
		OTLPEndpoint: cfg.OTLPEndpoint,
	}, logger)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.TracingMiddleware("curator"),
	)

	app := &Application{
		Config:          cfg,
		Engine:          engine,
		Redis:           redisClient,
		Logger:          logger,
		TZ:              loc,
		RateLimiter:     limiter,
		TracingShutdown: tracingShutdown,
	}

	// Apply options before wiring so overrides take effect.
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	ledgerTimeout := time.Duration(cfg.LedgerTimeoutSeconds) * time.Second
	primary := app.primaryOverride
	if primary == nil {
		primary = providers.NewHTTPPrimaryLedger(cfg.PrimaryLedgerURL, cfg.LedgerHmacSecret, ledgerTimeout)
	}
	secondary := app.secondaryOverride
	if secondary == nil {
		secondary = providers.NewHTTPSecondaryLedger(cfg.SecondaryLedgerURL, cfg.LedgerHmacSecret, ledgerTimeout)
	}

	policy, err := reward.FromConfig(cfg.RewardPolicy, cfg.RewardBaseAmount)
	if err != nil {
		return nil, err
	}

	subs := repository.NewSubmissionRepository(redisClient, loc, time.Now)
	users := repository.NewUserRepository(redisClient, loc, time.Now)
	claimTTL := time.Duration(cfg.RelayClaimTTLSeconds) * time.Second
	queue := repository.NewRelayQueueRepository(redisClient, loc, time.Now, claimTTL, cfg.RelayMaxAttempts)

	approval := services.NewApprovalService(
		subs, users, queue, primary, policy, logger, time.Now,
		cfg.ReviewerRewardAmount, cfg.RelayMaxAttempts,
	)
	curation := services.NewCurationService(subs, users, approval, logger, time.Now, cfg.AutoApproveThreshold)
	relay := services.NewRelayService(subs, users, queue, secondary, services.RelayConfig{
		SweepInterval:   time.Duration(cfg.RelaySweepIntervalSeconds) * time.Second,
		SweepBatchLimit: cfg.RelaySweepBatchLimit,
		Workers:         cfg.RelayWorkers,
		MaxAttempts:     cfg.RelayMaxAttempts,
		ReputationDelta: cfg.ReputationDelta,
		BackoffPolicy:   cfg.BackoffPolicy,
		BackoffBase:     time.Duration(cfg.BackoffBaseSeconds) * time.Second,
		BackoffMax:      time.Duration(cfg.BackoffMaxSeconds) * time.Second,
	}, logger, time.Now)

	app.Curation = curation
	app.Approval = approval
	app.Relay = relay

	// Default validators from config when not injected.
	if app.SubmitterValidator == nil && cfg.SubmitterAuthProvider != "" {
		validator, err := auth.NewValidator(auth.ProviderConfig{
			Type:   cfg.SubmitterAuthProvider,
			Config: json.RawMessage(cfg.SubmitterAuthConfig),
		})
		if err != nil {
			return nil, err
		}
		app.SubmitterValidator = validator
	}
	if app.ReviewerValidator == nil && cfg.ReviewerAuthProvider != "" {
		validator, err := auth.NewValidator(auth.ProviderConfig{
			Type:   cfg.ReviewerAuthProvider,
			Config: json.RawMessage(cfg.ReviewerAuthConfig),
		})
		if err != nil {
			return nil, err
		}
		app.ReviewerValidator = validator
	}

	return app, nil
}
