package repository

import (
	"context"
	"errors"
	"fmt"

	"corechat/internal/domain"
	corechat_errors "corechat/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresPresenceRepository struct {
	pool *pgxpool.Pool
}

func NewPresenceRepository(pool *pgxpool.Pool) PresenceRepository {
	return &PostgresPresenceRepository{pool: pool}
}

func (r *PostgresPresenceRepository) Upsert(ctx context.Context, p domain.UserPresence) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_presence (user_id, status, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET status = $2, last_seen_at = $3
	`, p.UserID, p.Status, p.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

func (r *PostgresPresenceRepository) Get(ctx context.Context, userID uuid.UUID) (domain.UserPresence, error) {
	var p domain.UserPresence
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, status, last_seen_at FROM user_presence WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Status, &p.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserPresence{}, corechat_errors.ErrNotFound
		}
		return domain.UserPresence{}, fmt.Errorf("get presence: %w", err)
	}
	return p, nil
}
