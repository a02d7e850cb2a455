package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/spellsync/internal/config"
)

// Open builds the configured backend wrapped in a throttle
func Open(ctx context.Context, cfg config.RemoteConfig) (DocumentStore, error) {
	var store DocumentStore

	switch cfg.Backend {
	case config.BackendFirestore:
		fs, err := NewFirestoreStore(ctx, cfg.ProjectID, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		store = fs
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = NewRedisStore(rdb, WithRedisPrefix(cfg.RedisPrefix))
	case config.BackendMemory, "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported remote backend %q", cfg.Backend)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewThrottled(store, cfg.RatePerSecond, cfg.Burst, WithCallTimeout(timeout)), nil
}
