package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/ports"
)

// boardAccess decides who may read and change a board: its owner, its
// members and global admins.
type boardAccess struct {
	boards ports.BoardRepository
	users  ports.UserRepository
}

// actor loads the acting user. Unknown or deactivated accounts are
// rejected even when they still hold a valid token.
func (a boardAccess) actor(ctx context.Context, actorID uuid.UUID) (*entities.User, error) {
	return loadActor(ctx, a.users, actorID)
}

func loadActor(ctx context.Context, users ports.UserRepository, actorID uuid.UUID) (*entities.User, error) {
	u, err := users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return nil, fmt.Errorf("unknown actor: %w", entities.ErrForbidden)
		}
		return nil, err
	}
	if !u.Active {
		return nil, entities.ErrAccountInactive
	}
	return u, nil
}

// check returns the board when actorID may access it.
func (a boardAccess) check(ctx context.Context, actorID, boardID uuid.UUID) (*entities.Board, *entities.User, error) {
	board, err := a.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	actor, err := a.actor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if actor.IsAdmin() || board.OwnerID == actorID {
		return board, actor, nil
	}

	member, err := a.boards.IsMember(ctx, boardID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		return nil, nil, entities.ErrNoBoardAccess
	}
	return board, actor, nil
}

// deleteObjects removes stored attachment payloads after their rows are
// gone. Failures only leave orphaned objects, so they are logged.
func deleteObjects(ctx context.Context, storage ports.ObjectStorage, keys []string, logf func(msg string, kv ...interface{})) {
	if storage == nil {
		return
	}
	for _, key := range keys {
		if err := storage.Delete(ctx, key); err != nil {
			logf("Failed to delete stored object", "key", key, "error", err)
		}
	}
}
