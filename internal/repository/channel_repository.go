package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corechat/internal/domain"
	corechat_errors "corechat/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &PostgresChannelRepository{pool: pool}
}

const channelColumns = `id, name, description, type, team_id, created_by, is_archived, last_message_at, direct_key, created_at, updated_at`

func scanChannel(row pgx.Row) (domain.Channel, error) {
	var c domain.Channel
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Type, &c.TeamID, &c.CreatedBy,
		&c.IsArchived, &c.LastMessageAt, &c.DirectKey, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func insertMember(ctx context.Context, tx DBTX, channelID uuid.UUID, m domain.ChannelMember) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO channel_members (channel_id, user_id, role, joined_at, notification_preference)
		VALUES ($1, $2, $3, $4, $5)
	`, channelID, m.UserID, m.Role, m.JoinedAt, m.NotificationPreference)
	return err
}

// CreateWithMembers inserts the channel row and all membership rows in a
// single transaction. Any failure leaves no orphan channel behind.
func (r *PostgresChannelRepository) CreateWithMembers(ctx context.Context, ch *domain.Channel, members []domain.ChannelMember) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO channels (id, name, description, type, team_id, created_by, direct_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`, ch.ID, ch.Name, ch.Description, ch.Type, ch.TeamID, ch.CreatedBy, ch.DirectKey).
			Scan(&ch.CreatedAt, &ch.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return corechat_errors.ErrAlreadyExists
			}
			return fmt.Errorf("insert channel: %w", err)
		}

		for _, m := range members {
			if err := insertMember(ctx, tx, ch.ID, m); err != nil {
				return fmt.Errorf("insert member %s: %w", m.UserID, err)
			}
		}
		ch.Members = members
		return nil
	})
}

func (r *PostgresChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Channel, error) {
	c, err := scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Channel{}, corechat_errors.ErrNotFound
		}
		return domain.Channel{}, fmt.Errorf("get channel: %w", err)
	}

	members, err := r.GetMembers(ctx, id)
	if err != nil {
		return domain.Channel{}, err
	}
	c.Members = members
	return c, nil
}

// GetTeamChannelsForUser lists a team's channels restricted to the ones the
// user is a member of, newest activity first.
func (r *PostgresChannelRepository) GetTeamChannelsForUser(ctx context.Context, teamID, userID uuid.UUID, includeArchived bool) ([]domain.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.description, c.type, c.team_id, c.created_by, c.is_archived,
		       c.last_message_at, c.direct_key, c.created_at, c.updated_at
		FROM channels c
		JOIN channel_members cm ON cm.channel_id = c.id AND cm.user_id = $2
		WHERE c.team_id = $1
		  AND ($3 OR NOT c.is_archived)
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
	`, teamID, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("list team channels: %w", err)
	}
	defer rows.Close()

	var res []domain.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *PostgresChannelRepository) Update(ctx context.Context, ch domain.Channel) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE channels
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`, ch.ID, ch.Name, ch.Description)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChannelRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE channels SET is_archived = $2, updated_at = NOW() WHERE id = $1
	`, id, archived)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

// DeleteWithMembers removes the channel, its membership rows and all message
// rows (with their reactions, mentions and attachments) in one transaction.
// The schema has no ON DELETE CASCADE; the cascade is explicit here.
func (r *PostgresChannelRepository) DeleteWithMembers(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, q := range []string{
			`DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE channel_id = $1)`,
			`DELETE FROM message_mentions WHERE message_id IN (SELECT id FROM messages WHERE channel_id = $1)`,
			`DELETE FROM message_attachments WHERE message_id IN (SELECT id FROM messages WHERE channel_id = $1)`,
			`DELETE FROM messages WHERE channel_id = $1`,
			`DELETE FROM channel_members WHERE channel_id = $1`,
		} {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return fmt.Errorf("delete channel children: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete channel: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return corechat_errors.ErrNotFound
		}
		return nil
	})
}

func (r *PostgresChannelRepository) AddMembers(ctx context.Context, channelID uuid.UUID, members []domain.ChannelMember) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, m := range members {
			if err := insertMember(ctx, tx, channelID, m); err != nil {
				if isUniqueViolation(err) {
					return corechat_errors.ErrAlreadyExists
				}
				return fmt.Errorf("insert member %s: %w", m.UserID, err)
			}
		}
		return nil
	})
}

func (r *PostgresChannelRepository) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChannelRepository) GetMember(ctx context.Context, channelID, userID uuid.UUID) (domain.ChannelMember, error) {
	var m domain.ChannelMember
	err := r.pool.QueryRow(ctx, `
		SELECT channel_id, user_id, role, joined_at, last_read_at, notification_preference
		FROM channel_members
		WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID).Scan(&m.ChannelID, &m.UserID, &m.Role, &m.JoinedAt, &m.LastReadAt, &m.NotificationPreference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChannelMember{}, corechat_errors.ErrNotFound
		}
		return domain.ChannelMember{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *PostgresChannelRepository) GetMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel_id, user_id, role, joined_at, last_read_at, notification_preference
		FROM channel_members
		WHERE channel_id = $1
		ORDER BY joined_at
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var res []domain.ChannelMember
	for rows.Next() {
		var m domain.ChannelMember
		if err := rows.Scan(&m.ChannelID, &m.UserID, &m.Role, &m.JoinedAt, &m.LastReadAt, &m.NotificationPreference); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *PostgresChannelRepository) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM channel_members WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return count > 0, nil
}

func (r *PostgresChannelRepository) MarkRead(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE channel_members SET last_read_at = $3 WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID, at)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChannelRepository) GetUserChannelIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel_id FROM channel_members WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user channels: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindDirectCandidates returns every direct channel with at least one
// membership row for either user, members loaded. The caller filters the
// candidate set in memory for the exact pair.
func (r *PostgresChannelRepository) FindDirectCandidates(ctx context.Context, userA, userB uuid.UUID) ([]domain.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT c.id, c.name, c.description, c.type, c.team_id, c.created_by, c.is_archived,
		       c.last_message_at, c.direct_key, c.created_at, c.updated_at
		FROM channels c
		JOIN channel_members cm ON cm.channel_id = c.id
		WHERE c.type = 'direct' AND cm.user_id IN ($1, $2)
	`, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("find direct candidates: %w", err)
	}
	defer rows.Close()

	var res []domain.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range res {
		members, err := r.GetMembers(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].Members = members
	}
	return res, nil
}

// CreateDirectChannel inserts a direct channel and exactly two membership
// rows in one transaction. The unique index on direct_key turns a concurrent
// duplicate into ErrAlreadyExists so the caller can re-fetch the winner.
func (r *PostgresChannelRepository) CreateDirectChannel(ctx context.Context, ch *domain.Channel, members []domain.ChannelMember) error {
	if len(members) != 2 {
		return corechat_errors.ErrInvalidInput
	}
	return r.CreateWithMembers(ctx, ch, members)
}
