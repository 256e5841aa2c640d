package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/datapeak/curator/pkg/domain"

	"github.com/go-redis/redis/v8"
)

// RelayQueueRepository is the durable at-least-once queue feeding the relay
// worker pool. Jobs carry only a submission id; the claim marker (SETNX with
// TTL) suppresses the duplicate-enqueue race between overlapping sweep
// cycles, so at most one job per submission is live at a time.
type RelayQueueRepository interface {
	// Enqueue adds a job for the submission unless a claim is already held.
	// Returns false when the claim marker suppressed the enqueue.
	Enqueue(ctx context.Context, submissionID string, maxAttempts int) (bool, error)
	// Claim pops one due job for exclusive processing.
	Claim(ctx context.Context) (*domain.RelayJob, bool, error)
	// Complete removes a finished job and releases its claim.
	Complete(ctx context.Context, submissionID string) error
	// Retry reschedules a failed job after delay, persisting the attempt
	// count carried on job. The worker owns the counter.
	Retry(ctx context.Context, job *domain.RelayJob, delay time.Duration, lastError string) error
	// Fail drops a job whose attempts are exhausted. The claim marker is
	// left to expire so the next sweep after the TTL rediscovers the
	// submission instead of hammering a persistently failing adapter.
	Fail(ctx context.Context, job *domain.RelayJob, lastError string) error
	// PromoteDelayed moves due delayed jobs back onto the pending list.
	PromoteDelayed(ctx context.Context, limit int) (int, error)
	Stats(ctx context.Context) (*domain.RelayStats, error)
}

type relayQueueRedisRepo struct {
	rdb         *redis.Client
	tz          *time.Location
	now         func() time.Time
	claimTTL    time.Duration
	maxAttempts int
}

func NewRelayQueueRepository(rdb *redis.Client, tz *time.Location, now func() time.Time, claimTTL time.Duration, maxAttempts int) RelayQueueRepository {
	if tz == nil {
		tz = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if claimTTL <= 0 {
		claimTTL = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &relayQueueRedisRepo{rdb: rdb, tz: tz, now: now, claimTTL: claimTTL, maxAttempts: maxAttempts}
}

func (r *relayQueueRedisRepo) keyPending() string  { return "curator:relay:pending" }
func (r *relayQueueRedisRepo) keyDelayed() string  { return "curator:relay:delayed" }
func (r *relayQueueRedisRepo) keyInFlight() string { return "curator:relay:inflight" }
func (r *relayQueueRedisRepo) keyJobs() string     { return "curator:relay:jobs" }
func (r *relayQueueRedisRepo) keyFailed() string   { return "curator:relay:failed_total" }
func (r *relayQueueRedisRepo) keyFailures() string { return "curator:relay:failures" }
func (r *relayQueueRedisRepo) keyClaim(id string) string {
	return fmt.Sprintf("curator:relay:claim:%s", id)
}

func (r *relayQueueRedisRepo) Enqueue(ctx context.Context, submissionID string, maxAttempts int) (bool, error) {
	if maxAttempts <= 0 {
		maxAttempts = r.maxAttempts
	}
	ok, err := r.rdb.SetNX(ctx, r.keyClaim(submissionID), "1", r.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX relay claim: %w", err)
	}
	if !ok {
		return false, nil
	}

	job := domain.RelayJob{
		SubmissionID: submissionID,
		Attempts:     0,
		MaxAttempts:  maxAttempts,
		EnqueuedAt:   r.now().In(r.tz),
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyJobs(), submissionID, marshal(job))
	pipe.LPush(ctx, r.keyPending(), submissionID)
	if _, err := pipe.Exec(ctx); err != nil {
		_ = r.rdb.Del(ctx, r.keyClaim(submissionID)).Err()
		return false, fmt.Errorf("redis enqueue relay job: %w", err)
	}
	return true, nil
}

// claimScript pops one id from pending into the in-flight set, skipping ids
// that somehow already are in flight.
//
// KEYS[1] = pending list
// KEYS[2] = in-flight set
// ARGV[1] = max inner iterations
var claimScript = redis.NewScript(`
local src = KEYS[1]
local dst = KEYS[2]
local maxIter = tonumber(ARGV[1]) or 1
for i=1,maxIter do
  local id = redis.call("RPOP", src)
  if not id then
    return false
  end
  if redis.call("SADD", dst, id) == 1 then
    return id
  end
end
return false
`)

func (r *relayQueueRedisRepo) Claim(ctx context.Context) (*domain.RelayJob, bool, error) {
	res, err := claimScript.Run(ctx, r.rdb, []string{r.keyPending(), r.keyInFlight()}, 10).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis relay claim script: %w", err)
	}
	id, ok := res.(string)
	if !ok || id == "" {
		return nil, false, nil
	}

	js, err := r.rdb.HGet(ctx, r.keyJobs(), id).Result()
	if err == redis.Nil || js == "" {
		// Job meta lost; synthesize so the worker can still process the id.
		return &domain.RelayJob{SubmissionID: id, MaxAttempts: r.maxAttempts, EnqueuedAt: r.now().In(r.tz)}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis HGET relay job: %w", err)
	}
	var job domain.RelayJob
	if err := json.Unmarshal([]byte(js), &job); err != nil {
		return &domain.RelayJob{SubmissionID: id, MaxAttempts: r.maxAttempts, EnqueuedAt: r.now().In(r.tz)}, true, nil
	}
	return &job, true, nil
}

func (r *relayQueueRedisRepo) Complete(ctx context.Context, submissionID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.SRem(ctx, r.keyInFlight(), submissionID)
	pipe.HDel(ctx, r.keyJobs(), submissionID)
	pipe.Del(ctx, r.keyClaim(submissionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis complete relay job: %w", err)
	}
	return nil
}

func (r *relayQueueRedisRepo) Retry(ctx context.Context, job *domain.RelayJob, delay time.Duration, lastError string) error {
	job.LastError = lastError
	job.NotBefore = r.now().In(r.tz).Add(delay)

	// Keep the claim alive while the retry waits, otherwise a sweep could
	// enqueue a second concurrent job for the same submission.
	pipe := r.rdb.TxPipeline()
	pipe.Expire(ctx, r.keyClaim(job.SubmissionID), r.claimTTL+delay)
	pipe.HSet(ctx, r.keyJobs(), job.SubmissionID, marshal(job))
	pipe.SRem(ctx, r.keyInFlight(), job.SubmissionID)
	pipe.ZAdd(ctx, r.keyDelayed(), &redis.Z{
		Score:  float64(job.NotBefore.UTC().Unix()),
		Member: job.SubmissionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis retry relay job: %w", err)
	}
	return nil
}

func (r *relayQueueRedisRepo) Fail(ctx context.Context, job *domain.RelayJob, lastError string) error {
	pipe := r.rdb.TxPipeline()
	pipe.SRem(ctx, r.keyInFlight(), job.SubmissionID)
	pipe.HDel(ctx, r.keyJobs(), job.SubmissionID)
	pipe.HSet(ctx, r.keyFailures(), job.SubmissionID, lastError)
	pipe.Incr(ctx, r.keyFailed())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis fail relay job: %w", err)
	}
	return nil
}

func (r *relayQueueRedisRepo) PromoteDelayed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 200
	}
	maxTS := strconv.FormatInt(r.now().UTC().Unix(), 10)
	ids, err := r.rdb.ZRangeByScore(ctx, r.keyDelayed(), &redis.ZRangeBy{
		Min: "-inf", Max: maxTS, Count: int64(limit),
	}).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("redis ZRANGEBYSCORE relay delayed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	pipe := r.rdb.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, r.keyDelayed(), id)
		pipe.LPush(ctx, r.keyPending(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis promote delayed: %w", err)
	}
	return len(ids), nil
}

func (r *relayQueueRedisRepo) Stats(ctx context.Context) (*domain.RelayStats, error) {
	pipe := r.rdb.Pipeline()
	pending := pipe.LLen(ctx, r.keyPending())
	delayed := pipe.ZCard(ctx, r.keyDelayed())
	inflight := pipe.SCard(ctx, r.keyInFlight())
	failed := pipe.Get(ctx, r.keyFailed())
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis relay stats: %w", err)
	}
	failedN, _ := strconv.ParseInt(failed.Val(), 10, 64)
	return &domain.RelayStats{
		Pending:  pending.Val(),
		Delayed:  delayed.Val(),
		InFlight: inflight.Val(),
		Failed:   failedN,
	}, nil
}
