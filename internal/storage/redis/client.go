package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taskhub/internal/model"
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// GetTaskRef returns the cached task ref for task_ref:{id}, or nil on a
// miss. Cache errors surface to the caller, which treats them as misses.
func (c *Client) GetTaskRef(ctx context.Context, taskID string) (*model.TaskRef, error) {
	val, err := c.cli.Get(ctx, "task_ref:"+taskID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get task_ref: %w", err)
	}
	ref := &model.TaskRef{}
	if err := json.Unmarshal([]byte(val), ref); err != nil {
		return nil, fmt.Errorf("redis task_ref decode: %w", err)
	}
	return ref, nil
}

func (c *Client) SetTaskRef(ctx context.Context, ref *model.TaskRef, ttl time.Duration) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("redis task_ref encode: %w", err)
	}
	return c.cli.Set(ctx, "task_ref:"+ref.ID, data, ttl).Err()
}
