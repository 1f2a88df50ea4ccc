package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/ports"
)

const attachmentSelect = `
	SELECT a.id, a.card_id, a.filename, a.url, a.storage_key, a.file_type, a.file_size,
		a.uploaded_by, u.name AS uploaded_by_name, a.created_at
	FROM attachments a JOIN users u ON u.id = a.uploaded_by`

type AttachmentRepositoryImpl struct {
	db *database.DB
}

func NewAttachmentRepository(db *database.DB) ports.AttachmentRepository {
	return &AttachmentRepositoryImpl{db: db}
}

func (r *AttachmentRepositoryImpl) Create(ctx context.Context, a *entities.Attachment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now()

	if _, err := execx(ctx, r.db.DB, `
		INSERT INTO attachments (id, card_id, filename, url, storage_key, file_type, file_size, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CardID, a.Filename, a.URL, a.StorageKey, a.FileType, a.FileSize, a.UploadedBy, a.CreatedAt); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	if err := getx(ctx, r.db.DB, &a.UploadedByName, `SELECT name FROM users WHERE id = ?`, a.UploadedBy); err != nil {
		return fmt.Errorf("load uploader name: %w", err)
	}
	return nil
}

func (r *AttachmentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Attachment, error) {
	var a entities.Attachment
	if err := getx(ctx, r.db.DB, &a, attachmentSelect+` WHERE a.id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &a, nil
}

func (r *AttachmentRepositoryImpl) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*entities.Attachment, error) {
	list := []*entities.Attachment{}
	if err := selectx(ctx, r.db.DB, &list, attachmentSelect+` WHERE a.card_id = ? ORDER BY a.created_at DESC, a.id`, cardID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return list, nil
}

func (r *AttachmentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrAttachmentNotFound, `DELETE FROM attachments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
