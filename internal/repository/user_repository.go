package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/datapeak/curator/pkg/domain"

	"github.com/go-redis/redis/v8"
)

// UserRepository is read-mostly from this core's perspective: users are
// provisioned by the identity collaborator, and the curation pipeline only
// resolves reward and relay destinations from them.
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
}

type userRedisRepo struct {
	rdb *redis.Client
	tz  *time.Location
	now func() time.Time
}

func NewUserRepository(rdb *redis.Client, tz *time.Location, now func() time.Time) UserRepository {
	if tz == nil {
		tz = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &userRedisRepo{rdb: rdb, tz: tz, now: now}
}

func (r *userRedisRepo) keyUsers() string { return "curator:users" }

func (r *userRedisRepo) Save(ctx context.Context, user *domain.User) error {
	now := r.now().In(r.tz)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if err := r.rdb.HSet(ctx, r.keyUsers(), user.ID, marshal(user)).Err(); err != nil {
		return fmt.Errorf("redis HSET user: %w", err)
	}
	return nil
}

func (r *userRedisRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	js, err := r.rdb.HGet(ctx, r.keyUsers(), id).Result()
	if err == redis.Nil || js == "" {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET user: %w", err)
	}
	var u domain.User
	if err := json.Unmarshal([]byte(js), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
