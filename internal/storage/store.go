package storage

import (
	"context"
	"time"

	"github.com/taskhub/internal/model"
)

// TaskStatusCache is a short-TTL read-through cache in front of the task
// lookup. Chat availability is derived from the task status on every
// authorization check, so this bounds the per-request cost; closure may
// lag a task transition by at most the TTL.
// Implementations: redis.Client, memory.Client (when Redis is not configured).
type TaskStatusCache interface {
	GetTaskRef(ctx context.Context, taskID string) (*model.TaskRef, error)
	SetTaskRef(ctx context.Context, ref *model.TaskRef, ttl time.Duration) error
	Close() error
}
