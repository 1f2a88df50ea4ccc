package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// AttachmentService stores card files in object storage.
type AttachmentService struct {
	attachments ports.AttachmentRepository
	cards       ports.CardRepository
	storage     ports.ObjectStorage
	access      boardAccess
	folder      string
	maxSize     int64
	allowed     map[string]bool
	logger      *logger.Logger
}

func NewAttachmentService(
	attachments ports.AttachmentRepository,
	cards ports.CardRepository,
	boards ports.BoardRepository,
	users ports.UserRepository,
	storage ports.ObjectStorage,
	cfg config.StorageConfig,
	log *logger.Logger,
) *AttachmentService {
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, ext := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &AttachmentService{
		attachments: attachments,
		cards:       cards,
		storage:     storage,
		access:      boardAccess{boards: boards, users: users},
		folder:      cfg.Folder,
		maxSize:     cfg.MaxFileSize,
		allowed:     allowed,
		logger:      log.WithComponent("attachments"),
	}
}

func (s *AttachmentService) List(ctx context.Context, actorID, cardID uuid.UUID) ([]*entities.Attachment, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.check(ctx, actorID, card.BoardID); err != nil {
		return nil, err
	}
	return s.attachments.ListByCard(ctx, cardID)
}

// Upload validates the file, stores it and records the attachment. The
// stored object is removed again if the row cannot be written.
func (s *AttachmentService) Upload(ctx context.Context, actorID, cardID uuid.UUID, req ports.UploadRequest) (*entities.Attachment, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.check(ctx, actorID, card.BoardID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(req.Filename), "."))
	if ext == "" || !s.allowed[ext] {
		return nil, entities.Invalid("file type %q is not allowed", ext)
	}
	if s.maxSize > 0 && req.Size > s.maxSize {
		return nil, entities.Invalid("file exceeds %d bytes", s.maxSize)
	}

	body := req.Body
	if s.maxSize > 0 {
		body = io.LimitReader(req.Body, s.maxSize+1)
	}

	key := path.Join(s.folder, uuid.NewString()+"."+ext)
	url, err := s.storage.Save(ctx, key, body, req.Size, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	attachment := &entities.Attachment{
		CardID:     cardID,
		Filename:   path.Base(req.Filename),
		URL:        url,
		StorageKey: key,
		FileType:   ext,
		FileSize:   req.Size,
		UploadedBy: actorID,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		deleteObjects(ctx, s.storage, []string{key}, s.logger.Warnw)
		return nil, err
	}

	s.logger.LogUserAction(actorID.String(), "upload_attachment", map[string]interface{}{"card_id": cardID, "size": req.Size})
	return attachment, nil
}

// Delete removes the row first, then the stored object.
func (s *AttachmentService) Delete(ctx context.Context, actorID, attachmentID uuid.UUID) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	card, err := s.cards.GetByID(ctx, attachment.CardID)
	if err != nil {
		return err
	}
	if _, _, err := s.access.check(ctx, actorID, card.BoardID); err != nil {
		return err
	}

	if err := s.attachments.Delete(ctx, attachmentID); err != nil {
		return err
	}
	deleteObjects(ctx, s.storage, []string{attachment.StorageKey}, s.logger.Warnw)
	return nil
}
