package memory

import (
	"context"
	"sync"
	"time"

	"github.com/taskhub/internal/model"
)

type item struct {
	ref model.TaskRef
	exp time.Time
}

// Client is the in-process fallback for storage.TaskStatusCache, used
// when no Redis URL is configured.
type Client struct {
	mu    sync.RWMutex
	tasks map[string]item
}

func New() *Client {
	return &Client{tasks: make(map[string]item)}
}

func (c *Client) Close() error { return nil }

func (c *Client) GetTaskRef(ctx context.Context, taskID string) (*model.TaskRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tasks[taskID]
	if !ok || time.Now().After(v.exp) {
		return nil, nil
	}
	ref := v.ref
	return &ref, nil
}

func (c *Client) SetTaskRef(ctx context.Context, ref *model.TaskRef, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[ref.ID] = item{ref: *ref, exp: time.Now().Add(ttl)}
	return nil
}
