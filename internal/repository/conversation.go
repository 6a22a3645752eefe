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

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, c *model.Conversation) error {
	defer logger.DeferLogDuration("conv.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (id, task_id, application_id, participant_a, participant_b, status, last_message_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.TaskID, c.ApplicationID, c.ParticipantA, c.ParticipantB, c.Status, c.LastMessageAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("convRepo.Create: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.GetByID", time.Now())()
	c := &model.Conversation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, task_id, application_id, participant_a, participant_b, status, last_message_at, created_at, updated_at
		 FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.TaskID, &c.ApplicationID, &c.ParticipantA, &c.ParticipantB, &c.Status, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.GetByID: %w", err)
	}
	return c, nil
}

// ListForUser returns the caller's active conversations, newest activity
// first. With updatedSince set it returns only conversations touched
// after that instant, by a new message (last_message_at) or by any other
// mutation (updated_at). This is the incremental polling contract.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string, updatedSince *time.Time) ([]model.Conversation, error) {
	defer logger.DeferLogDuration("conv.ListForUser", time.Now())()
	sql := `SELECT id, task_id, application_id, participant_a, participant_b, status, last_message_at, created_at, updated_at
		 FROM conversations
		 WHERE ($1 = participant_a OR $1 = participant_b) AND status = 'active'`
	args := []any{userID}
	if updatedSince != nil {
		args = append(args, *updatedSince)
		sql += ` AND (last_message_at > $2 OR updated_at > $2)`
	}
	sql += ` ORDER BY last_message_at DESC NULLS LAST, updated_at DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser query: %w", err)
	}
	defer rows.Close()

	convs := make([]model.Conversation, 0, 16)
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.TaskID, &c.ApplicationID, &c.ParticipantA, &c.ParticipantB, &c.Status, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("convRepo.ListForUser scan: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser rows: %w", err)
	}
	return convs, nil
}

// TouchLastMessageAt records message activity; updated_at moves with it
// so the incremental-sync filter sees the conversation either way.
// Last write wins on concurrent sends.
func (r *ConversationRepository) TouchLastMessageAt(ctx context.Context, id string, t time.Time) error {
	defer logger.DeferLogDuration("conv.TouchLastMessageAt", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET last_message_at = $2, updated_at = $2 WHERE id = $1`,
		id, t,
	)
	if err != nil {
		return fmt.Errorf("convRepo.TouchLastMessageAt: %w", err)
	}
	return nil
}
