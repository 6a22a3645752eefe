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

const DefaultPageLimit = 30

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create persists a new message. created_at comes from the server clock
// here, never from the client, so per-conversation ordering follows a
// single authoritative clock.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	if m.EncryptedText == "" && len(m.Attachments) == 0 {
		return ErrEmptyMessage
	}
	if m.Attachments == nil {
		m.Attachments = []model.Attachment{}
	}
	m.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, encrypted_text, attachments, is_read, read_at, deleted_for, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', $8)`,
		m.ID, m.ConversationID, m.SenderID, m.EncryptedText, m.Attachments, m.IsRead, m.ReadAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

// ListPage returns one page of messages for the caller: rows soft-deleted
// for the caller are excluded, before/after are exclusive created_at
// bounds. Rows are fetched newest-first with a LIMIT (bounded cost), then
// reversed so the client reads oldest-first.
func (r *MessageRepository) ListPage(ctx context.Context, conversationID, callerID string, limit int, before, after *time.Time) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListPage", time.Now())()
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	sql := `SELECT id, conversation_id, sender_id, encrypted_text, attachments, is_read, read_at, deleted_for, created_at
		 FROM messages
		 WHERE conversation_id = $1 AND NOT ($2 = ANY(deleted_for))`
	args := []any{conversationID, callerID}
	if before != nil {
		args = append(args, *before)
		sql += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	if after != nil {
		args = append(args, *after)
		sql += fmt.Sprintf(` AND created_at > $%d`, len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListPage query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.EncryptedText, &m.Attachments, &m.IsRead, &m.ReadAt, &m.DeletedFor, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("msgRepo.ListPage scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListPage rows: %w", err)
	}
	// Oldest first for the client.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkReadFromOther marks every unread message from the other participant
// as read. Idempotent: a repeat call matches zero rows.
func (r *MessageRepository) MarkReadFromOther(ctx context.Context, conversationID, callerID string) (int64, error) {
	defer logger.DeferLogDuration("msg.MarkReadFromOther", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET is_read = true, read_at = $3
		 WHERE conversation_id = $1 AND sender_id != $2 AND is_read = false`,
		conversationID, callerID, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.MarkReadFromOther: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SoftDeleteForCaller hides the message for its sender ("delete for me").
// deleted_for is a set: repeat calls add nothing.
func (r *MessageRepository) SoftDeleteForCaller(ctx context.Context, messageID, callerID string) error {
	defer logger.DeferLogDuration("msg.SoftDeleteForCaller", time.Now())()
	var senderID string
	err := r.pool.QueryRow(ctx,
		`SELECT sender_id FROM messages WHERE id = $1`, messageID,
	).Scan(&senderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("msgRepo.SoftDeleteForCaller: %w", err)
	}
	if senderID != callerID {
		return ErrForbidden
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE messages SET deleted_for = array_append(deleted_for, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(deleted_for))`,
		messageID, callerID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.SoftDeleteForCaller update: %w", err)
	}
	return nil
}

// DeleteForEveryone removes the message row outright and returns its
// attachments so the caller can attempt remote cleanup. Only the sender
// may do this; the row is gone regardless of how that cleanup goes.
func (r *MessageRepository) DeleteForEveryone(ctx context.Context, messageID, callerID string) ([]model.Attachment, error) {
	defer logger.DeferLogDuration("msg.DeleteForEveryone", time.Now())()
	var senderID string
	var attachments []model.Attachment
	err := r.pool.QueryRow(ctx,
		`SELECT sender_id, attachments FROM messages WHERE id = $1`, messageID,
	).Scan(&senderID, &attachments)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.DeleteForEveryone: %w", err)
	}
	if senderID != callerID {
		return nil, ErrForbidden
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID); err != nil {
		return nil, fmt.Errorf("msgRepo.DeleteForEveryone delete: %w", err)
	}
	return attachments, nil
}
