package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/datapeak/curator/internal/metrics"
	"github.com/datapeak/curator/internal/providers"
	"github.com/datapeak/curator/internal/repository"
	"github.com/datapeak/curator/internal/reward"
	"github.com/datapeak/curator/pkg/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ApprovalService interface {
	Approve(ctx context.Context, submissionID, reviewerID string) (*domain.Submission, error)
	Reject(ctx context.Context, submissionID, reviewerID string) (*domain.Submission, error)
}

type approvalService struct {
	subs    repository.SubmissionRepository
	users   repository.UserRepository
	queue   repository.RelayQueueRepository
	primary providers.PrimaryLedger
	policy  reward.Policy
	logger  *slog.Logger
	now     func() time.Time

	reviewerAmount   string
	relayMaxAttempts int
}

func NewApprovalService(
	subs repository.SubmissionRepository,
	users repository.UserRepository,
	queue repository.RelayQueueRepository,
	primary providers.PrimaryLedger,
	policy reward.Policy,
	logger *slog.Logger,
	now func() time.Time,
	reviewerAmount string,
	relayMaxAttempts int,
) ApprovalService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if policy == nil {
		policy = reward.Fixed("10")
	}
	if relayMaxAttempts <= 0 {
		relayMaxAttempts = 3
	}
	return &approvalService{
		subs:             subs,
		users:            users,
		queue:            queue,
		primary:          primary,
		policy:           policy,
		logger:           logger,
		now:              now,
		reviewerAmount:   reviewerAmount,
		relayMaxAttempts: relayMaxAttempts,
	}
}

// Approve drives the PENDING -> APPROVED transition. The primary-ledger
// approval call is the only hard dependency: its failure aborts the whole
// operation. A failed reward mint is recorded on the submission instead of
// failing the review, so a flaky reward rail never blocks the decision.
func (s *approvalService) Approve(ctx context.Context, submissionID, reviewerID string) (*domain.Submission, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, fmt.Errorf("%w: reviewerId is required", ErrValidation)
	}

	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: submission is %s", ErrInvalidState, sub.Status)
	}

	ctx, span := otel.Tracer("curator/approval").Start(ctx, "curator.submission.approve",
		trace.WithAttributes(
			attribute.String("curator.submission_id", submissionID),
			attribute.String("curator.reviewer_id", reviewerID),
		),
	)
	defer span.End()

	approvalTx, err := s.primary.RecordApproval(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record approval failed")
		return nil, fmt.Errorf("%w: %v", ErrLedger, err)
	}

	score := 0
	if sub.QualityScore != nil {
		score = *sub.QualityScore
	}
	amount := s.policy(score)

	sub.ReviewerID = reviewerID
	sub.ApprovalTxRef = approvalTx
	sub.RewardAmount = amount
	sub.RewardTxRef = ""
	sub.RewardError = ""

	user, userErr := s.users.Get(ctx, sub.UserID)
	switch {
	case userErr != nil || user.PrimaryAddress == "":
		sub.RewardError = "no destination address"
		metrics.RewardMintsTotal.WithLabelValues("skipped").Inc()
	default:
		reason := fmt.Sprintf("submission:%s reward", submissionID)
		txRef, mintErr := s.primary.Mint(ctx, user.PrimaryAddress, amount, reason)
		if mintErr != nil {
			sub.RewardError = mintErr.Error()
			metrics.RewardMintsTotal.WithLabelValues("failure").Inc()
			span.RecordError(mintErr)
			s.logger.Warn("reward mint failed; approval continues",
				"submissionId", submissionID, "err", mintErr)
		} else {
			sub.RewardTxRef = txRef
			metrics.RewardMintsTotal.WithLabelValues("success").Inc()
		}
	}

	if err := s.subs.MarkApproved(ctx, sub); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist approval failed")
		return nil, err
	}
	metrics.ReviewDecisionsTotal.WithLabelValues("approved").Inc()

	s.mintReviewerReward(ctx, submissionID, reviewerID)

	// Optimistic fast path; the discovery sweep remains the source of truth
	// if this enqueue is lost.
	if s.queue != nil {
		if _, err := s.queue.Enqueue(ctx, submissionID, s.relayMaxAttempts); err != nil {
			s.logger.Warn("relay enqueue failed; sweep will rediscover",
				"submissionId", submissionID, "err", err)
		}
	}

	s.logger.Info("submission approved",
		"submissionId", submissionID,
		"reviewerId", reviewerID,
		"rewardTxRef", sub.RewardTxRef,
		"rewardError", sub.RewardError,
	)
	return sub, nil
}

func (s *approvalService) Reject(ctx context.Context, submissionID, reviewerID string) (*domain.Submission, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, fmt.Errorf("%w: reviewerId is required", ErrValidation)
	}

	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: submission is %s", ErrInvalidState, sub.Status)
	}

	sub.ReviewerID = reviewerID
	if err := s.subs.MarkRejected(ctx, sub); err != nil {
		return nil, err
	}
	metrics.ReviewDecisionsTotal.WithLabelValues("rejected").Inc()
	s.logger.Info("submission rejected", "submissionId", submissionID, "reviewerId", reviewerID)
	return sub, nil
}

// mintReviewerReward is best-effort: reviewer incentives never influence the
// submission's own reward bookkeeping.
func (s *approvalService) mintReviewerReward(ctx context.Context, submissionID, reviewerID string) {
	if strings.TrimSpace(s.reviewerAmount) == "" || s.reviewerAmount == "0" {
		return
	}
	reviewer, err := s.users.Get(ctx, reviewerID)
	if err != nil || reviewer.PrimaryAddress == "" {
		return
	}
	reason := fmt.Sprintf("submission:%s review", submissionID)
	if _, err := s.primary.Mint(ctx, reviewer.PrimaryAddress, s.reviewerAmount, reason); err != nil {
		metrics.RewardMintsTotal.WithLabelValues("failure").Inc()
		s.logger.Warn("reviewer reward mint failed",
			"submissionId", submissionID, "reviewerId", reviewerID, "err", err)
		return
	}
	metrics.RewardMintsTotal.WithLabelValues("success").Inc()
}
