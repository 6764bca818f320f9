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

type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

const messageColumns = `id, channel_id, sender_id, sender_name, sender_avatar, content, message_type,
	parent_message_id, thread_reply_count, is_edited, is_deleted, deleted_at, created_at, updated_at`

func scanMessage(row pgx.Row) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.SenderName, &m.SenderAvatar,
		&m.Content, &m.MessageType, &m.ParentMessageID, &m.ThreadReplyCount,
		&m.IsEdited, &m.IsDeleted, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts the message together with its mention and attachment rows,
// bumps the parent's thread_reply_count for replies and the channel's
// last_message_at, all in one transaction.
func (r *PostgresMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO messages (id, channel_id, sender_id, sender_name, sender_avatar, content, message_type, parent_message_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`, m.ID, m.ChannelID, m.SenderID, m.SenderName, m.SenderAvatar, m.Content, m.MessageType, m.ParentMessageID).
			Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		for i := range m.Mentions {
			mn := &m.Mentions[i]
			mn.MessageID = m.ID
			if err := tx.QueryRow(ctx, `
				INSERT INTO message_mentions (id, message_id, mentioned_user_id)
				VALUES ($1, $2, $3)
				RETURNING created_at
			`, mn.ID, mn.MessageID, mn.MentionedUserID).Scan(&mn.CreatedAt); err != nil {
				return fmt.Errorf("insert mention: %w", err)
			}
		}

		for i := range m.Attachments {
			a := &m.Attachments[i]
			a.MessageID = m.ID
			if err := tx.QueryRow(ctx, `
				INSERT INTO message_attachments (id, message_id, file_name, file_url, file_type, file_size)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING created_at
			`, a.ID, a.MessageID, a.FileName, a.FileURL, a.FileType, a.FileSize).Scan(&a.CreatedAt); err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}

		if m.ParentMessageID.Valid {
			if _, err := tx.Exec(ctx, `
				UPDATE messages SET thread_reply_count = thread_reply_count + 1, updated_at = NOW()
				WHERE id = $1
			`, m.ParentMessageID.UUID); err != nil {
				return fmt.Errorf("bump thread reply count: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE channels SET last_message_at = $2, updated_at = NOW() WHERE id = $1
		`, m.ChannelID, m.CreatedAt); err != nil {
			return fmt.Errorf("bump channel last_message_at: %w", err)
		}
		return nil
	})
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, corechat_errors.ErrNotFound
		}
		return domain.Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET content = $2, is_edited = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, id, content)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

// SoftDelete flags the message; content is never physically purged here.
func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET is_deleted = TRUE, deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

// ListChannelMessages returns up to limit non-deleted top-level messages,
// newest first, strictly older than the cursor when one is given. The cursor
// is exclusive so a held cursor is stable under concurrent inserts.
func (r *PostgresMessageRepository) ListChannelMessages(ctx context.Context, channelID uuid.UUID, before *time.Time, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE channel_id = $1
		  AND parent_message_id IS NULL
		  AND NOT is_deleted
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, channelID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list channel messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *PostgresMessageRepository) ListThread(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE parent_message_id = $1 AND NOT is_deleted
		ORDER BY created_at ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// Search does a substring match on content, always scoped to channels the
// user is a member of.
func (r *PostgresMessageRepository) Search(ctx context.Context, in SearchQuery) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE NOT m.is_deleted
		  AND m.content ILIKE '%' || $1 || '%'
		  AND m.channel_id IN (SELECT channel_id FROM channel_members WHERE user_id = $2)
		  AND ($3::uuid IS NULL OR m.channel_id = $3)
		  AND ($4::timestamptz IS NULL OR m.created_at >= $4)
		  AND ($5::timestamptz IS NULL OR m.created_at <= $5)
		ORDER BY m.created_at DESC
		LIMIT $6
	`, in.Query, in.MemberUserID, in.ChannelID, in.FromDate, in.ToDate, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var res []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// LoadChildren attaches reactions, mentions and attachments to each message
// with one query per child table. Explicit loading, no ORM lazy relations.
func (r *PostgresMessageRepository) LoadChildren(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	if len(msgs) == 0 {
		return msgs, nil
	}

	ids := make([]uuid.UUID, len(msgs))
	index := make(map[uuid.UUID]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		index[m.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM message_reactions WHERE message_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}
	for rows.Next() {
		var re domain.MessageReaction
		if err := rows.Scan(&re.ID, &re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		i := index[re.MessageID]
		msgs[i].Reactions = append(msgs[i].Reactions, re)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, message_id, mentioned_user_id, is_read, created_at
		FROM message_mentions WHERE message_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("load mentions: %w", err)
	}
	for rows.Next() {
		var mn domain.MessageMention
		if err := rows.Scan(&mn.ID, &mn.MessageID, &mn.MentionedUserID, &mn.IsRead, &mn.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		i := index[mn.MessageID]
		msgs[i].Mentions = append(msgs[i].Mentions, mn)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, message_id, file_name, file_url, file_type, file_size, created_at
		FROM message_attachments WHERE message_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	for rows.Next() {
		var a domain.MessageAttachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.FileName, &a.FileURL, &a.FileType, &a.FileSize, &a.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		i := index[a.MessageID]
		msgs[i].Attachments = append(msgs[i].Attachments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return msgs, nil
}

func (r *PostgresMessageRepository) AddReaction(ctx context.Context, re *domain.MessageReaction) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO message_reactions (id, message_id, user_id, emoji)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, re.ID, re.MessageID, re.UserID, re.Emoji).Scan(&re.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return corechat_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return corechat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) GetReactions(ctx context.Context, messageID uuid.UUID) ([]domain.MessageReaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM message_reactions WHERE message_id = $1 ORDER BY created_at
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var res []domain.MessageReaction
	for rows.Next() {
		var re domain.MessageReaction
		if err := rows.Scan(&re.ID, &re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		res = append(res, re)
	}
	return res, rows.Err()
}

func (r *PostgresMessageRepository) MarkMentionsRead(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE message_mentions SET is_read = TRUE
		WHERE mentioned_user_id = $1 AND message_id = ANY($2)
	`, userID, messageIDs)
	if err != nil {
		return fmt.Errorf("mark mentions read: %w", err)
	}
	return nil
}
