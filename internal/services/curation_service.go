package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/datapeak/curator/internal/metrics"
	"github.com/datapeak/curator/internal/repository"
	"github.com/datapeak/curator/internal/scoring"
	"github.com/datapeak/curator/pkg/domain"
)

// SubmissionInput is the intake payload. Artifact references are opaque to
// this core; they belong to the storage collaborator.
type SubmissionInput struct {
	TaskID     string                    `json:"taskId,omitempty"`
	ResultHash string                    `json:"resultHash,omitempty"`
	StorageURI string                    `json:"storageUri,omitempty"`
	Metadata   domain.SubmissionMetadata `json:"metadata"`
}

type CurationService interface {
	// Score is the pure scoring entry point; it never touches storage.
	Score(metadata domain.SubmissionMetadata, reputation int64) domain.QualityAssessment
	CreateSubmission(ctx context.Context, userID string, input SubmissionInput, idempotencyKey string) (*domain.Submission, error)
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	ListByStatus(ctx context.Context, status domain.SubmissionStatus, limit int) ([]*domain.Submission, error)
	GetCurationStats(ctx context.Context) (*domain.CurationStats, error)
	// RegisterUser upserts a contributor profile, including the ledger
	// addresses rewards and relays are sent to.
	RegisterUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// AutoApproveHighQuality bulk-approves every PENDING submission at or
	// above threshold, one Approve per item so all state-machine and reward
	// semantics apply unchanged.
	AutoApproveHighQuality(ctx context.Context, threshold int, reviewerID string) (*domain.AutoApproveReport, error)
}

type curationService struct {
	subs     repository.SubmissionRepository
	users    repository.UserRepository
	approval ApprovalService
	logger   *slog.Logger
	now      func() time.Time

	defaultThreshold int
	autoBatchLimit   int
}

func NewCurationService(subs repository.SubmissionRepository, users repository.UserRepository, approval ApprovalService, logger *slog.Logger, now func() time.Time, defaultThreshold int) CurationService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if defaultThreshold <= 0 || defaultThreshold > 100 {
		defaultThreshold = 85
	}
	return &curationService{
		subs:             subs,
		users:            users,
		approval:         approval,
		logger:           logger,
		now:              now,
		defaultThreshold: defaultThreshold,
		autoBatchLimit:   500,
	}
}

func (s *curationService) Score(metadata domain.SubmissionMetadata, reputation int64) domain.QualityAssessment {
	return scoring.Score(metadata, reputation)
}

func (s *curationService) CreateSubmission(ctx context.Context, userID string, input SubmissionInput, idempotencyKey string) (*domain.Submission, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if strings.TrimSpace(input.Metadata.Title) == "" {
		return nil, fmt.Errorf("%w: metadata.title is required", ErrValidation)
	}
	if strings.TrimSpace(input.Metadata.DataType) == "" {
		return nil, fmt.Errorf("%w: metadata.dataType is required", ErrValidation)
	}

	// The user record is owned by the identity collaborator and may lag
	// intake; score with zero reputation when it is not there yet.
	var reputation int64
	if user, err := s.users.Get(ctx, userID); err == nil {
		reputation = user.Reputation
	}

	assessment := scoring.Score(input.Metadata, reputation)
	score := assessment.Score

	sub := &domain.Submission{
		UserID:       userID,
		TaskID:       input.TaskID,
		ResultHash:   input.ResultHash,
		StorageURI:   input.StorageURI,
		Metadata:     input.Metadata,
		QualityScore: &score,
	}
	sub.Metadata.Assessment = &assessment

	created, err := s.subs.Create(ctx, sub, idempotencyKey)
	if err != nil {
		return nil, err
	}

	metrics.SubmissionCreatedTotal.Inc()
	metrics.SubmissionScoreHistogram.Observe(float64(score))
	s.logger.Info("submission created",
		"submissionId", created.ID,
		"userId", userID,
		"score", score,
		"valid", assessment.Valid,
	)
	return created, nil
}

func (s *curationService) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	return s.subs.Get(ctx, id)
}

func (s *curationService) ListByStatus(ctx context.Context, status domain.SubmissionStatus, limit int) ([]*domain.Submission, error) {
	return s.subs.ListByStatus(ctx, status, limit)
}

func (s *curationService) RegisterUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	user.ID = strings.TrimSpace(user.ID)
	user.PrimaryAddress = strings.TrimSpace(user.PrimaryAddress)
	user.SecondaryAddress = strings.TrimSpace(user.SecondaryAddress)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "userId", user.ID)
	return user, nil
}

func (s *curationService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *curationService) GetCurationStats(ctx context.Context) (*domain.CurationStats, error) {
	subs, err := s.subs.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.CurationStats{IssueFrequency: map[string]int{}}
	total := 0
	for _, sub := range subs {
		if sub.QualityScore == nil {
			continue
		}
		score := *sub.QualityScore
		stats.Count++
		total += score
		switch {
		case score >= 90:
			stats.Distribution.Excellent++
		case score >= 70:
			stats.Distribution.Good++
		case score >= 50:
			stats.Distribution.Acceptable++
		default:
			stats.Distribution.Poor++
		}
		if sub.Metadata.Assessment != nil {
			for _, issue := range sub.Metadata.Assessment.Issues {
				stats.IssueFrequency[issue]++
			}
		}
	}
	if stats.Count > 0 {
		stats.AverageScore = float64(total) / float64(stats.Count)
	}
	return stats, nil
}

func (s *curationService) AutoApproveHighQuality(ctx context.Context, threshold int, reviewerID string) (*domain.AutoApproveReport, error) {
	if threshold <= 0 || threshold > 100 {
		threshold = s.defaultThreshold
	}
	if strings.TrimSpace(reviewerID) == "" {
		reviewerID = "auto-approver"
	}

	candidates, err := s.subs.ListPendingAtOrAbove(ctx, threshold, s.autoBatchLimit)
	if err != nil {
		return nil, err
	}

	report := &domain.AutoApproveReport{ConsideredCount: len(candidates)}
	for _, sub := range candidates {
		if _, err := s.approval.Approve(ctx, sub.ID, reviewerID); err != nil {
			report.FailedCount++
			s.logger.Warn("auto-approve failed",
				"submissionId", sub.ID, "err", err)
			continue
		}
		report.ApprovedCount++
		report.ApprovedIDs = append(report.ApprovedIDs, sub.ID)
	}
	s.logger.Info("auto-approve pass finished",
		"threshold", threshold,
		"considered", report.ConsideredCount,
		"approved", report.ApprovedCount,
		"failed", report.FailedCount,
	)
	return report, nil
}
