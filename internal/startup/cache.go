package startup

import (
	"context"
	"time"

	"github.com/taskhub/internal/logger"
	"github.com/taskhub/internal/storage"
	"github.com/taskhub/internal/storage/memory"
	redisstorage "github.com/taskhub/internal/storage/redis"
)

// ConnectTaskStatusCache returns the task-status cache: Redis when a URL
// is configured and reachable, otherwise the in-process cache. The cache
// is an optimization, so an unreachable Redis degrades instead of
// failing startup.
func ConnectTaskStatusCache(redisURL string) storage.TaskStatusCache {
	if redisURL == "" {
		logger.Info("task-status cache: in-memory (REDIS_URL not set)")
		return memory.New()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := redisstorage.New(ctx, redisURL)
	if err != nil {
		logger.Errorf("task-status cache: redis unavailable, falling back to in-memory: %v", err)
		return memory.New()
	}
	logger.Info("task-status cache: redis")
	return client
}
