package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/datapeak/curator/internal/backoff"
	"github.com/datapeak/curator/internal/metrics"
	"github.com/datapeak/curator/internal/providers"
	"github.com/datapeak/curator/internal/repository"
	"github.com/datapeak/curator/pkg/domain"
)

// RelayConfig tunes the background propagation pipeline. Zero values fall
// back to the defaults used in tests.
type RelayConfig struct {
	SweepInterval   time.Duration
	SweepBatchLimit int
	Workers         int
	MaxAttempts     int
	ReputationDelta int64
	BackoffPolicy   string
	BackoffBase     time.Duration
	BackoffMax      time.Duration
}

func (c *RelayConfig) normalize() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 15 * time.Second
	}
	if c.SweepBatchLimit <= 0 {
		c.SweepBatchLimit = 100
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.ReputationDelta <= 0 {
		c.ReputationDelta = 10
	}
	if c.BackoffPolicy == "" {
		c.BackoffPolicy = backoff.PolicyExponential
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}
}

type RelayService interface {
	// Start launches the sweep loop and worker pool. Safe to call once.
	Start(ctx context.Context)
	// Stop signals both loops and blocks until in-flight jobs drain.
	Stop()
	// SweepOnce runs one discovery pass: promote due retries, then enqueue
	// every approved-but-unrelayed submission that is not already claimed.
	SweepOnce(ctx context.Context) (int, error)
	// ProcessJob executes a single relay attempt.
	ProcessJob(ctx context.Context, job *domain.RelayJob) error
	// EnqueueRelay requests propagation for one submission out of band.
	EnqueueRelay(ctx context.Context, submissionID string) (bool, error)
	Stats(ctx context.Context) (*domain.RelayStats, error)
}

type relayService struct {
	subs      repository.SubmissionRepository
	users     repository.UserRepository
	queue     repository.RelayQueueRepository
	secondary providers.SecondaryLedger
	cfg       RelayConfig
	logger    *slog.Logger
	now       func() time.Time
	rng       *rand.Rand

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewRelayService(
	subs repository.SubmissionRepository,
	users repository.UserRepository,
	queue repository.RelayQueueRepository,
	secondary providers.SecondaryLedger,
	cfg RelayConfig,
	logger *slog.Logger,
	now func() time.Time,
) RelayService {
	cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &relayService{
		subs:      subs,
		users:     users,
		queue:     queue,
		secondary: secondary,
		cfg:       cfg,
		logger:    logger,
		now:       now,
		rng:       rand.New(rand.NewSource(now().UnixNano())),
	}
}

func (s *relayService) Start(ctx context.Context) {
	s.once.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel

		s.wg.Add(1)
		go s.sweepLoop(runCtx)

		for i := 0; i < s.cfg.Workers; i++ {
			s.wg.Add(1)
			go s.workerLoop(runCtx, i)
		}
		s.logger.Info("relay pipeline started",
			"workers", s.cfg.Workers,
			"sweepInterval", s.cfg.SweepInterval,
		)
	})
}

func (s *relayService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("relay pipeline stopped")
}

func (s *relayService) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("relay sweep failed", "err", err)
			} else if n > 0 {
				s.logger.Debug("relay sweep enqueued", "count", n)
			}
		}
	}
}

func (s *relayService) workerLoop(ctx context.Context, id int) {
	defer s.wg.Done()
	idle := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, claimed, err := s.queue.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("relay claim failed", "worker", id, "err", err)
			claimed = false
		}
		if !claimed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		if err := s.ProcessJob(ctx, job); err != nil {
			s.logger.Warn("relay attempt failed",
				"worker", id, "submissionId", job.SubmissionID,
				"attempts", job.Attempts, "err", err)
		}
	}
}

func (s *relayService) SweepOnce(ctx context.Context) (int, error) {
	if _, err := s.queue.PromoteDelayed(ctx, s.cfg.SweepBatchLimit); err != nil {
		return 0, fmt.Errorf("promote delayed: %w", err)
	}

	ids, err := s.subs.RelayEligibleIDs(ctx, s.cfg.SweepBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("relay eligible scan: %w", err)
	}

	enqueued := 0
	for _, id := range ids {
		ok, err := s.queue.Enqueue(ctx, id, s.cfg.MaxAttempts)
		if err != nil {
			return enqueued, fmt.Errorf("enqueue %s: %w", id, err)
		}
		if ok {
			enqueued++
		}
	}
	if enqueued > 0 {
		metrics.SweepEnqueuedTotal.Add(float64(enqueued))
	}
	return enqueued, nil
}

func (s *relayService) ProcessJob(ctx context.Context, job *domain.RelayJob) error {
	start := s.now()
	job.Attempts++

	sub, err := s.subs.Get(ctx, job.SubmissionID)
	if errors.Is(err, repository.ErrNotFound) {
		// Submission vanished; drop the job rather than retrying forever.
		metrics.RelayAttemptsTotal.WithLabelValues("dropped").Inc()
		return s.queue.Complete(ctx, job.SubmissionID)
	}
	if err != nil {
		return s.retryOrFail(ctx, job, err)
	}
	if !sub.RelayEligible() {
		// Already relayed or no longer approved; nothing to propagate.
		metrics.RelayAttemptsTotal.WithLabelValues("skipped").Inc()
		return s.queue.Complete(ctx, job.SubmissionID)
	}

	user, err := s.users.Get(ctx, sub.UserID)
	if err != nil || user.SecondaryAddress == "" {
		return s.retryOrFail(ctx, job, ErrNoRelayAddress)
	}

	reason := fmt.Sprintf("submission:%s approved", sub.ID)
	txRef, err := s.secondary.IncreaseReputation(ctx, user.SecondaryAddress, s.cfg.ReputationDelta, reason)
	if err != nil {
		return s.retryOrFail(ctx, job, err)
	}

	if err := s.subs.SetRelayResult(ctx, sub.ID, txRef); err != nil {
		return s.retryOrFail(ctx, job, err)
	}
	if err := s.queue.Complete(ctx, sub.ID); err != nil {
		return err
	}

	metrics.RelayAttemptsTotal.WithLabelValues("success").Inc()
	metrics.RelayLatencySeconds.Observe(s.now().Sub(start).Seconds())
	s.logger.Info("relay delivered",
		"submissionId", sub.ID, "relayTxRef", txRef, "attempts", job.Attempts)
	return nil
}

// retryOrFail applies the retry budget. Exhausted jobs are parked on the
// failed hash with their claim marker left to expire, which rate-limits how
// soon the sweep can rediscover them.
func (s *relayService) retryOrFail(ctx context.Context, job *domain.RelayJob, cause error) error {
	metrics.RelayAttemptsTotal.WithLabelValues("failure").Inc()

	if job.Attempts >= job.MaxAttempts {
		metrics.RelayFailuresTotal.Inc()
		s.logger.Error("relay attempts exhausted",
			"submissionId", job.SubmissionID, "attempts", job.Attempts, "err", cause)
		if err := s.queue.Fail(ctx, job, cause.Error()); err != nil {
			return err
		}
		return cause
	}

	delay := backoff.Delay(s.cfg.BackoffPolicy, s.cfg.BackoffBase, s.cfg.BackoffMax, job.Attempts, s.rng)
	if err := s.queue.Retry(ctx, job, delay, cause.Error()); err != nil {
		return err
	}
	return cause
}

func (s *relayService) EnqueueRelay(ctx context.Context, submissionID string) (bool, error) {
	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return false, err
	}
	if !sub.RelayEligible() {
		return false, fmt.Errorf("%w: submission is not awaiting relay", ErrInvalidState)
	}
	return s.queue.Enqueue(ctx, submissionID, s.cfg.MaxAttempts)
}

func (s *relayService) Stats(ctx context.Context) (*domain.RelayStats, error) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, err
	}
	backlog, err := s.subs.RelayBacklog(ctx)
	if err != nil {
		return nil, err
	}
	stats.Backlog = backlog
	return stats, nil
}
