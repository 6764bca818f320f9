package httpdto

import (
	"time"

	"corechat/internal/domain"
)

type CreateMessageRequest struct {
	ChannelID       string              `json:"channel_id" binding:"required"`
	Content         string              `json:"content" binding:"required"`
	MessageType     string              `json:"message_type"`
	ParentMessageID string              `json:"parent_message_id"`
	MentionUserIDs  []string            `json:"mention_user_ids"`
	Attachments     []AttachmentRequest `json:"attachments"`
}

type AttachmentRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type SearchMessagesRequest struct {
	Query     string     `json:"query" binding:"required"`
	ChannelID string     `json:"channel_id"`
	FromDate  *time.Time `json:"from_date"`
	ToDate    *time.Time `json:"to_date"`
}

type MarkMentionsReadRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

type MessageResponse struct {
	ID               string               `json:"id"`
	ChannelID        string               `json:"channel_id"`
	SenderID         string               `json:"sender_id"`
	SenderName       string               `json:"sender_name"`
	SenderAvatar     string               `json:"sender_avatar,omitempty"`
	Content          string               `json:"content"`
	MessageType      string               `json:"message_type"`
	ParentMessageID  string               `json:"parent_message_id,omitempty"`
	ThreadReplyCount int                  `json:"thread_reply_count"`
	IsEdited         bool                 `json:"is_edited"`
	IsDeleted        bool                 `json:"is_deleted"`
	CreatedAt        time.Time            `json:"created_at"`
	Reactions        []ReactionResponse   `json:"reactions"`
	Mentions         []MentionResponse    `json:"mentions"`
	Attachments      []AttachmentResponse `json:"attachments"`
}

type ReactionResponse struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type MentionResponse struct {
	MessageID       string `json:"message_id"`
	MentionedUserID string `json:"mentioned_user_id"`
	IsRead          bool   `json:"is_read"`
}

type AttachmentResponse struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// ReactionChange is the reaction-changed event payload: the message id plus
// its full reaction set after the change.
type ReactionChange struct {
	MessageID string             `json:"message_id"`
	ChannelID string             `json:"channel_id"`
	Reactions []ReactionResponse `json:"reactions"`
}

func FromMessage(m domain.Message) MessageResponse {
	res := MessageResponse{
		ID:               m.ID.String(),
		ChannelID:        m.ChannelID.String(),
		SenderID:         m.SenderID.String(),
		SenderName:       m.SenderName,
		Content:          m.Content,
		MessageType:      m.MessageType,
		ThreadReplyCount: m.ThreadReplyCount,
		IsEdited:         m.IsEdited,
		IsDeleted:        m.IsDeleted,
		CreatedAt:        m.CreatedAt,
		Reactions:        FromReactionSlice(m.Reactions),
		Mentions:         make([]MentionResponse, 0, len(m.Mentions)),
		Attachments:      make([]AttachmentResponse, 0, len(m.Attachments)),
	}
	if m.SenderAvatar.Valid {
		res.SenderAvatar = m.SenderAvatar.String
	}
	if m.ParentMessageID.Valid {
		res.ParentMessageID = m.ParentMessageID.UUID.String()
	}
	for _, mn := range m.Mentions {
		res.Mentions = append(res.Mentions, MentionResponse{
			MessageID:       mn.MessageID.String(),
			MentionedUserID: mn.MentionedUserID.String(),
			IsRead:          mn.IsRead,
		})
	}
	for _, a := range m.Attachments {
		res.Attachments = append(res.Attachments, AttachmentResponse{
			ID:       a.ID.String(),
			FileName: a.FileName,
			FileURL:  a.FileURL,
			FileType: a.FileType,
			FileSize: a.FileSize,
		})
	}
	return res
}

func FromMessageSlice(msgs []domain.Message) []MessageResponse {
	res := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, FromMessage(m))
	}
	return res
}

func FromReactionSlice(reactions []domain.MessageReaction) []ReactionResponse {
	res := make([]ReactionResponse, 0, len(reactions))
	for _, re := range reactions {
		res = append(res, ReactionResponse{
			MessageID: re.MessageID.String(),
			UserID:    re.UserID.String(),
			Emoji:     re.Emoji,
			CreatedAt: re.CreatedAt,
		})
	}
	return res
}
