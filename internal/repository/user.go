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

// UserRepository resolves display data for chat parties. Account
// management belongs to the auth subsystem; the chat core only reads.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetPublicByID(ctx context.Context, id string) (*model.UserPublic, error) {
	defer logger.DeferLogDuration("user.GetPublicByID", time.Now())()
	u := &model.UserPublic{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(avatar_url,'') FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetPublicByID: %w", err)
	}
	return u, nil
}
