package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datapeak/curator/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupSubmissionRepo(t *testing.T) (context.Context, *miniredis.Miniredis, *redis.Client, SubmissionRepository) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	now := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	repo := NewSubmissionRepository(rdb, time.UTC, now)
	return context.Background(), mr, rdb, repo
}

func pendingSubmission(id string, score int) *domain.Submission {
	s := score
	return &domain.Submission{
		ID:           id,
		UserID:       "user-1",
		QualityScore: &s,
		Metadata: domain.SubmissionMetadata{
			Title:    "Weather readings",
			DataType: "tabular",
			Assessment: &domain.QualityAssessment{
				Score: score,
				Valid: score >= 50,
			},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	created, err := repo.Create(ctx, pendingSubmission("", 80), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", created.Status)
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "user-1" || got.QualityScore == nil || *got.QualityScore != 80 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)
	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateIdempotent(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	first, err := repo.Create(ctx, pendingSubmission("", 70), "intake-123")
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	second, err := repo.Create(ctx, pendingSubmission("", 70), "intake-123")
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same id for idempotency key, got %s vs %s", first.ID, second.ID)
	}
}

func TestMarkApprovedTransition(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	sub, err := repo.Create(ctx, pendingSubmission("", 90), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sub.ReviewerID = "reviewer-1"
	sub.ApprovalTxRef = "0xapproval"
	sub.RewardAmount = "10"
	sub.RewardTxRef = "0xmint"
	if err := repo.MarkApproved(ctx, sub); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got, err := repo.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusApproved {
		t.Errorf("status = %s, want APPROVED", got.Status)
	}
	if got.RewardTxRef != "0xmint" || got.ApprovalTxRef != "0xapproval" {
		t.Errorf("bookkeeping lost: %+v", got)
	}

	ids, err := repo.RelayEligibleIDs(ctx, 10)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(ids) != 1 || ids[0] != sub.ID {
		t.Errorf("expected submission in relay-eligible index, got %v", ids)
	}
}

func TestMarkApprovedRequiresPending(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	sub, _ := repo.Create(ctx, pendingSubmission("", 90), "")
	if err := repo.MarkApproved(ctx, sub); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	again, _ := repo.Get(ctx, sub.ID)
	if err := repo.MarkApproved(ctx, again); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second approve: expected ErrInvalidState, got %v", err)
	}

	rejected, _ := repo.Create(ctx, pendingSubmission("", 40), "")
	if err := repo.MarkRejected(ctx, rejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	fetched, _ := repo.Get(ctx, rejected.ID)
	if err := repo.MarkApproved(ctx, fetched); !errors.Is(err, ErrInvalidState) {
		t.Errorf("approve rejected: expected ErrInvalidState, got %v", err)
	}
}

func TestMarkRejectedNoRelayEligibility(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	sub, _ := repo.Create(ctx, pendingSubmission("", 30), "")
	if err := repo.MarkRejected(ctx, sub); err != nil {
		t.Fatalf("reject: %v", err)
	}
	ids, _ := repo.RelayEligibleIDs(ctx, 10)
	if len(ids) != 0 {
		t.Errorf("rejected submission must not be relay-eligible, got %v", ids)
	}
	got, _ := repo.Get(ctx, sub.ID)
	if got.Status != domain.StatusRejected {
		t.Errorf("status = %s, want REJECTED", got.Status)
	}
}

func TestSetRelayResult(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	sub, _ := repo.Create(ctx, pendingSubmission("", 90), "")
	if err := repo.MarkApproved(ctx, sub); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := repo.SetRelayResult(ctx, sub.ID, "0xrelay"); err != nil {
		t.Fatalf("set relay result: %v", err)
	}

	got, _ := repo.Get(ctx, sub.ID)
	if got.RelayTxRef != "0xrelay" {
		t.Errorf("relay ref = %q, want 0xrelay", got.RelayTxRef)
	}
	ids, _ := repo.RelayEligibleIDs(ctx, 10)
	if len(ids) != 0 {
		t.Errorf("relayed submission must leave the eligible index, got %v", ids)
	}
	if n, _ := repo.RelayBacklog(ctx); n != 0 {
		t.Errorf("backlog = %d, want 0", n)
	}
}

func TestListPendingAtOrAbove(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	for i, score := range []int{95, 90, 84, 60, 20} {
		if _, err := repo.Create(ctx, pendingSubmission("", score), ""); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	subs, err := repo.ListPendingAtOrAbove(ctx, 85, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 high-quality pending submissions, got %d", len(subs))
	}
	for _, s := range subs {
		if s.QualityScore == nil || *s.QualityScore < 85 {
			t.Errorf("submission below threshold returned: %+v", s.QualityScore)
		}
	}
}

func TestListPendingExcludesDecided(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	approved, _ := repo.Create(ctx, pendingSubmission("", 95), "")
	if err := repo.MarkApproved(ctx, approved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := repo.Create(ctx, pendingSubmission("", 92), ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	subs, err := repo.ListPendingAtOrAbove(ctx, 85, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("expected only the still-pending submission, got %d", len(subs))
	}
}

func TestAllScansEverySubmission(t *testing.T) {
	ctx, _, _, repo := setupSubmissionRepo(t)

	for i := 0; i < 25; i++ {
		if _, err := repo.Create(ctx, pendingSubmission("", 50+i), ""); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	subs, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(subs) != 25 {
		t.Errorf("expected 25 submissions, got %d", len(subs))
	}
}

func TestListByStatusOrderedNewestFirst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewSubmissionRepository(rdb, time.UTC, func() time.Time { return current })
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := repo.Create(ctx, pendingSubmission("", 70), "")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, created.ID)
		current = current.Add(time.Second)
	}

	// Repeated listings return the same newest-first order, not a sample.
	for call := 0; call < 3; call++ {
		subs, err := repo.ListByStatus(ctx, domain.StatusPending, 10)
		if err != nil {
			t.Fatalf("list call %d: %v", call, err)
		}
		if len(subs) != 3 {
			t.Fatalf("list call %d: got %d submissions, want 3", call, len(subs))
		}
		for i, want := range []string{ids[2], ids[1], ids[0]} {
			if subs[i].ID != want {
				t.Fatalf("list call %d: position %d = %s, want %s", call, i, subs[i].ID, want)
			}
		}
	}

	limited, err := repo.ListByStatus(ctx, domain.StatusPending, 2)
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != ids[2] || limited[1].ID != ids[1] {
		t.Errorf("limited listing not the two newest: %+v", limited)
	}
}
