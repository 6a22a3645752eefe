package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/internal/logger"
	"github.com/taskhub/internal/model"
)

// TaskRepository is the read-only lookup into the task subsystem. The
// chat core consumes only status, uploaded_by and assigned_to; task CRUD
// lives elsewhere.
type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) GetRef(ctx context.Context, id string) (*model.TaskRef, error) {
	defer logger.DeferLogDuration("task.GetRef", time.Now())()
	t := &model.TaskRef{}
	var assignedTo *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, status, uploaded_by, assigned_to FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Status, &t.UploadedBy, &assignedTo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetRef: %w", err)
	}
	if assignedTo != nil {
		t.AssignedTo = *assignedTo
	}
	return t, nil
}
