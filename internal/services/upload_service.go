package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"corechat/internal/identity"
	"corechat/internal/storage"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

// Attachment uploads above this size are rejected up front.
const maxUploadBytes = 100 << 20

type UploadService struct {
	storage *storage.Client
	logger  *logger.Logger
}

func NewUploadService(storageClient *storage.Client, log *logger.Logger) *UploadService {
	return &UploadService{storage: storageClient, logger: log}
}

// PresignUpload issues a presigned PUT URL so the client uploads the
// attachment binary straight to blob storage. The returned key goes back in
// the message's attachment metadata.
func (s *UploadService) PresignUpload(ctx context.Context, actor identity.Actor, in httpdto.PresignUploadRequest) (httpdto.PresignUploadResponse, error) {
	if s.storage == nil {
		return httpdto.PresignUploadResponse{}, fmt.Errorf("%w: uploads are not configured", corechat_errors.ErrServiceUnavailable)
	}
	if in.FileSize <= 0 || in.FileSize > maxUploadBytes {
		return httpdto.PresignUploadResponse{}, fmt.Errorf("%w: file size must be between 1 and %d bytes", corechat_errors.ErrInvalidInput, maxUploadBytes)
	}
	name := sanitizeFileName(in.FileName)
	if name == "" {
		return httpdto.PresignUploadResponse{}, fmt.Errorf("%w: invalid file name", corechat_errors.ErrInvalidInput)
	}

	key := fmt.Sprintf("attachments/%s/%s/%s/%s",
		actor.OrganizationID, actor.UserID, uuid.New(), name)

	url, headers, err := s.storage.PresignPut(ctx, key, in.ContentType, in.FileSize)
	if err != nil {
		return httpdto.PresignUploadResponse{}, fmt.Errorf("presign upload: %w", err)
	}
	s.logger.InfofCtx(ctx, "presigned upload %s for %s (ttl %s)", key, actor.UserID, s.storage.PresignTTL().Round(time.Second))

	return httpdto.PresignUploadResponse{
		UploadURL: url,
		Key:       key,
		FileURL:   s.storage.FileURL(key),
		Headers:   headers,
	}, nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
