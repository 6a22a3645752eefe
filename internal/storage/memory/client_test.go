package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/internal/model"
)

func TestGetSetExpiry(t *testing.T) {
	c := New()
	ctx := context.Background()

	got, err := c.GetTaskRef(ctx, "task1")
	require.NoError(t, err)
	assert.Nil(t, got)

	ref := &model.TaskRef{ID: "task1", Status: model.TaskStatusInProgress, UploadedBy: "alice", AssignedTo: "bob"}
	require.NoError(t, c.SetTaskRef(ctx, ref, time.Minute))

	got, err = c.GetTaskRef(ctx, "task1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TaskStatusInProgress, got.Status)

	// The returned ref is a copy, not a handle into the cache.
	got.Status = model.TaskStatusCancelled
	again, err := c.GetTaskRef(ctx, "task1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, again.Status)

	// Expired entries read as misses.
	require.NoError(t, c.SetTaskRef(ctx, ref, -time.Second))
	got, err = c.GetTaskRef(ctx, "task1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
