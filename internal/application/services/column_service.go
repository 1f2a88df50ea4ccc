package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// ColumnService handles column operations. Column order changes hold the
// board lock.
type ColumnService struct {
	columns ports.ColumnRepository
	storage ports.ObjectStorage
	access  boardAccess
	locker  lock.Locker
	logger  *logger.Logger
}

func NewColumnService(columns ports.ColumnRepository, boards ports.BoardRepository, users ports.UserRepository, storage ports.ObjectStorage, locker lock.Locker, log *logger.Logger) *ColumnService {
	return &ColumnService{
		columns: columns,
		storage: storage,
		access:  boardAccess{boards: boards, users: users},
		locker:  locker,
		logger:  log.WithComponent("columns"),
	}
}

func (s *ColumnService) Create(ctx context.Context, actorID, boardID uuid.UUID, req ports.CreateColumnRequest) (*entities.Column, error) {
	if _, _, err := s.access.check(ctx, actorID, boardID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.Invalid("column name is required")
	}

	release, err := s.locker.Lock(ctx, lock.BoardKey(boardID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	column := &entities.Column{BoardID: boardID, Name: name}
	if err := s.columns.Create(ctx, column); err != nil {
		return nil, err
	}
	return column, nil
}

// Update renames and/or repositions a column.
func (s *ColumnService) Update(ctx context.Context, actorID, columnID uuid.UUID, req ports.UpdateColumnRequest) (*entities.Column, error) {
	column, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.check(ctx, actorID, column.BoardID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, entities.Invalid("column name cannot be empty")
		}
		if err := s.columns.Rename(ctx, columnID, name); err != nil {
			return nil, err
		}
	}

	if req.Position != nil {
		release, err := s.locker.Lock(ctx, lock.BoardKey(column.BoardID.String()))
		if err != nil {
			return nil, err
		}
		defer release()
		if _, err := s.columns.Reorder(ctx, columnID, *req.Position); err != nil {
			return nil, err
		}
	}

	return s.columns.GetByID(ctx, columnID)
}

// Delete removes the column with its cards and compacts the board.
func (s *ColumnService) Delete(ctx context.Context, actorID, columnID uuid.UUID) error {
	column, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return err
	}
	if _, _, err := s.access.check(ctx, actorID, column.BoardID); err != nil {
		return err
	}

	release, err := lock.LockMany(ctx, s.locker, lock.BoardKey(column.BoardID.String()), lock.ColumnKey(columnID.String()))
	if err != nil {
		return err
	}
	defer release()

	keys, err := s.columns.Delete(ctx, columnID)
	if err != nil {
		return err
	}
	deleteObjects(ctx, s.storage, keys, s.logger.Warnw)
	return nil
}
