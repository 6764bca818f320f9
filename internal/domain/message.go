package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message represents the messages table
type Message struct {
	ID               uuid.UUID
	ChannelID        uuid.UUID
	SenderID         uuid.UUID
	SenderName       string
	SenderAvatar     sql.NullString
	Content          string
	MessageType      string
	ParentMessageID  uuid.NullUUID
	ThreadReplyCount int
	IsEdited         bool
	IsDeleted        bool
	DeletedAt        sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Relationships, loaded by explicit queries (no lazy loading)
	Reactions   []MessageReaction
	Mentions    []MessageMention
	Attachments []MessageAttachment
}

// MessageReaction represents the message_reactions table.
// (message_id, user_id, emoji) is unique.
type MessageReaction struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	UserID    uuid.UUID
	Emoji     string
	CreatedAt time.Time
}

// MessageMention represents the message_mentions table
type MessageMention struct {
	ID              uuid.UUID
	MessageID       uuid.UUID
	MentionedUserID uuid.UUID
	IsRead          bool
	CreatedAt       time.Time
}

// MessageAttachment represents the message_attachments table.
// Metadata only; the binary lives in external blob storage.
type MessageAttachment struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	FileName  string
	FileURL   string
	FileType  string
	FileSize  int64
	CreatedAt time.Time
}

// IsReply reports whether the message belongs to a thread.
func (m Message) IsReply() bool {
	return m.ParentMessageID.Valid
}

func (Message) TableName() string {
	return "messages"
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

func (MessageMention) TableName() string {
	return "message_mentions"
}

func (MessageAttachment) TableName() string {
	return "message_attachments"
}
