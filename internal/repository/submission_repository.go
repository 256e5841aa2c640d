package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/datapeak/curator/pkg/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a mutation expects a status the
	// submission is no longer in. APPROVED and REJECTED are terminal.
	ErrInvalidState = errors.New("invalid submission state")
)

// submissionRetention is how long intake idempotency keys stay reserved.
const submissionRetention = 24 * time.Hour

type SubmissionRepository interface {
	Create(ctx context.Context, sub *domain.Submission, idempotencyKey string) (*domain.Submission, error)
	Get(ctx context.Context, id string) (*domain.Submission, error)
	ListByStatus(ctx context.Context, status domain.SubmissionStatus, limit int) ([]*domain.Submission, error)
	// ListPendingAtOrAbove returns PENDING submissions with score >= minScore,
	// highest first, bounded by limit.
	ListPendingAtOrAbove(ctx context.Context, minScore int, limit int) ([]*domain.Submission, error)
	// All streams every stored submission (stats are computed over the full
	// store; the scan is cursor-based so large stores do not block redis).
	All(ctx context.Context) ([]*domain.Submission, error)

	// MarkApproved atomically transitions PENDING -> APPROVED and persists
	// the approval and reward bookkeeping carried on sub. Fails with
	// ErrInvalidState when the stored submission is not PENDING.
	MarkApproved(ctx context.Context, sub *domain.Submission) error
	// MarkRejected atomically transitions PENDING -> REJECTED.
	MarkRejected(ctx context.Context, sub *domain.Submission) error

	// SetRelayResult persists the relay completion marker and removes the
	// submission from the relay-eligible index.
	SetRelayResult(ctx context.Context, id string, relayTxRef string) error
	// RelayEligibleIDs returns up to limit APPROVED submissions whose relay
	// marker is still absent, oldest approval first.
	RelayEligibleIDs(ctx context.Context, limit int) ([]string, error)
	RelayBacklog(ctx context.Context) (int64, error)
}

type submissionRedisRepo struct {
	rdb *redis.Client
	tz  *time.Location
	now func() time.Time
}

func NewSubmissionRepository(rdb *redis.Client, tz *time.Location, now func() time.Time) SubmissionRepository {
	if tz == nil {
		tz = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &submissionRedisRepo{rdb: rdb, tz: tz, now: now}
}

func (r *submissionRedisRepo) keySubmissions() string { return "curator:submissions" }
func (r *submissionRedisRepo) keyStatus(status domain.SubmissionStatus) string {
	return fmt.Sprintf("curator:submissions:status:%s", status)
}
func (r *submissionRedisRepo) keyPendingByScore() string {
	return "curator:submissions:pending_by_score"
}
func (r *submissionRedisRepo) keyUnrelayed() string { return "curator:submissions:unrelayed" }
func (r *submissionRedisRepo) keyIdempotency(key string) string {
	return fmt.Sprintf("curator:idempo:%s", key)
}

func marshal(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalSubmission(js string) (*domain.Submission, error) {
	var s domain.Submission
	if err := json.Unmarshal([]byte(js), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRedisRepo) Create(ctx context.Context, sub *domain.Submission, idempotencyKey string) (*domain.Submission, error) {
	if idempotencyKey != "" {
		idKey := r.keyIdempotency(idempotencyKey)
		if existingID, err := r.rdb.Get(ctx, idKey).Result(); err == nil && existingID != "" {
			if existing, err := r.Get(ctx, existingID); err == nil {
				return existing, nil
			}
			_ = r.rdb.Del(ctx, idKey).Err()
		}
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := r.now().In(r.tz)
	sub.Status = domain.StatusPending
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if idempotencyKey != "" {
		ok, err := r.rdb.SetNX(ctx, r.keyIdempotency(idempotencyKey), sub.ID, submissionRetention).Result()
		if err != nil {
			return nil, fmt.Errorf("redis SETNX idempotency: %w", err)
		}
		if !ok {
			if existingID, err := r.rdb.Get(ctx, r.keyIdempotency(idempotencyKey)).Result(); err == nil && existingID != "" {
				if existing, err := r.Get(ctx, existingID); err == nil {
					return existing, nil
				}
			}
			return nil, fmt.Errorf("idempotency conflict")
		}
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keySubmissions(), sub.ID, marshal(sub))
	pipe.ZAdd(ctx, r.keyStatus(domain.StatusPending), &redis.Z{Score: float64(now.UTC().UnixNano()), Member: sub.ID})
	if sub.QualityScore != nil {
		pipe.ZAdd(ctx, r.keyPendingByScore(), &redis.Z{Score: float64(*sub.QualityScore), Member: sub.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis create submission: %w", err)
	}
	return sub, nil
}

func (r *submissionRedisRepo) Get(ctx context.Context, id string) (*domain.Submission, error) {
	js, err := r.rdb.HGet(ctx, r.keySubmissions(), id).Result()
	if err == redis.Nil || js == "" {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET submission: %w", err)
	}
	return unmarshalSubmission(js)
}

func (r *submissionRedisRepo) ListByStatus(ctx context.Context, status domain.SubmissionStatus, limit int) ([]*domain.Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	// Status indexes are ZSETs scored by transition time, so listings are
	// stable across calls: newest first.
	ids, err := r.rdb.ZRevRange(ctx, r.keyStatus(status), 0, int64(limit)-1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis ZREVRANGE status: %w", err)
	}
	return r.fetchMany(ctx, ids)
}

func (r *submissionRedisRepo) ListPendingAtOrAbove(ctx context.Context, minScore int, limit int) ([]*domain.Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := r.rdb.ZRevRangeByScore(ctx, r.keyPendingByScore(), &redis.ZRangeBy{
		Min:   strconv.Itoa(minScore),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis ZREVRANGEBYSCORE pending: %w", err)
	}
	return r.fetchMany(ctx, ids)
}

func (r *submissionRedisRepo) All(ctx context.Context) ([]*domain.Submission, error) {
	var subs []*domain.Submission
	var cursor uint64
	for {
		pairs, next, err := r.rdb.HScan(ctx, r.keySubmissions(), cursor, "*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("redis HSCAN submissions: %w", err)
		}
		// HScan yields alternating field, value entries.
		for i := 1; i < len(pairs); i += 2 {
			if s, err := unmarshalSubmission(pairs[i]); err == nil {
				subs = append(subs, s)
			}
		}
		cursor = next
		if cursor == 0 {
			return subs, nil
		}
	}
}

func (r *submissionRedisRepo) fetchMany(ctx context.Context, ids []string) ([]*domain.Submission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := r.rdb.HMGet(ctx, r.keySubmissions(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HMGET submissions: %w", err)
	}
	subs := make([]*domain.Submission, 0, len(vals))
	for _, v := range vals {
		js, ok := v.(string)
		if !ok || js == "" {
			continue
		}
		if s, err := unmarshalSubmission(js); err == nil {
			subs = append(subs, s)
		}
	}
	return subs, nil
}

// transitionScript guards the PENDING -> terminal transition server-side so
// two concurrent reviewers cannot both win.
//
// KEYS[1] = submissions hash
// ARGV[1] = submission id
// ARGV[2] = replacement JSON
// Returns 1 on success, 0 when not PENDING, -1 when missing.
var transitionScript = redis.NewScript(`
local js = redis.call("HGET", KEYS[1], ARGV[1])
if not js then
  return -1
end
local cur = cjson.decode(js)
if cur["status"] ~= "PENDING" then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

func (r *submissionRedisRepo) transition(ctx context.Context, sub *domain.Submission) error {
	sub.UpdatedAt = r.now().In(r.tz)
	res, err := transitionScript.Run(ctx, r.rdb, []string{r.keySubmissions()}, sub.ID, marshal(sub)).Int()
	if err != nil {
		return fmt.Errorf("redis transition script: %w", err)
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return ErrInvalidState
	}
	return nil
}

func (r *submissionRedisRepo) MarkApproved(ctx context.Context, sub *domain.Submission) error {
	sub.Status = domain.StatusApproved
	if err := r.transition(ctx, sub); err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, r.keyStatus(domain.StatusPending), sub.ID)
	pipe.ZAdd(ctx, r.keyStatus(domain.StatusApproved), &redis.Z{Score: float64(sub.UpdatedAt.UTC().UnixNano()), Member: sub.ID})
	pipe.ZRem(ctx, r.keyPendingByScore(), sub.ID)
	if sub.RelayTxRef == "" {
		pipe.ZAdd(ctx, r.keyUnrelayed(), &redis.Z{Score: float64(sub.UpdatedAt.UTC().Unix()), Member: sub.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis approve indexes: %w", err)
	}
	return nil
}

func (r *submissionRedisRepo) MarkRejected(ctx context.Context, sub *domain.Submission) error {
	sub.Status = domain.StatusRejected
	if err := r.transition(ctx, sub); err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, r.keyStatus(domain.StatusPending), sub.ID)
	pipe.ZAdd(ctx, r.keyStatus(domain.StatusRejected), &redis.Z{Score: float64(sub.UpdatedAt.UTC().UnixNano()), Member: sub.ID})
	pipe.ZRem(ctx, r.keyPendingByScore(), sub.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis reject indexes: %w", err)
	}
	return nil
}

func (r *submissionRedisRepo) SetRelayResult(ctx context.Context, id string, relayTxRef string) error {
	sub, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	sub.RelayTxRef = relayTxRef
	sub.UpdatedAt = r.now().In(r.tz)

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keySubmissions(), id, marshal(sub))
	pipe.ZRem(ctx, r.keyUnrelayed(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set relay result: %w", err)
	}
	return nil
}

func (r *submissionRedisRepo) RelayEligibleIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := r.rdb.ZRangeByScore(ctx, r.keyUnrelayed(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis ZRANGEBYSCORE unrelayed: %w", err)
	}
	return ids, nil
}

func (r *submissionRedisRepo) RelayBacklog(ctx context.Context) (int64, error) {
	n, err := r.rdb.ZCard(ctx, r.keyUnrelayed()).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("redis ZCARD unrelayed: %w", err)
	}
	return n, nil
}
