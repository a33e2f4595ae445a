package memory

import (
	"context"
	"fmt"

	"medconsult-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads fragments from a redis list where new chunks are RPUSHed.
type RedisSource struct {
	rdb    *redis.Client
	key    string
	logger logger.ILogger
}

var _ Source = &RedisSource{}

func NewRedisSource(rdb *redis.Client, key string, log logger.ILogger) *RedisSource {
	return &RedisSource{rdb: rdb, key: key, logger: log}
}

func (s *RedisSource) Recent(ctx context.Context, n int) []Fragment {
	if n <= 0 {
		return []Fragment{}
	}
	items, err := s.rdb.LRange(ctx, s.key, -int64(n), -1).Result()
	if err != nil {
		err = fmt.Errorf("failed to read list %s: %w", s.key, err)
		s.logger.Warn("MEMORY", "Knowledge store unavailable", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return diagnostic(err)
	}
	return tail(items, n)
}
