package providers

import "github.com/go-redis/redis/v8"

// NewRedisProvider builds the shared redis client. Lifecycle (Close) is owned
// by the process entry point, not by any component that receives it.
func NewRedisProvider(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}
