package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// BoardService handles board operations
type BoardService struct {
	boards         ports.BoardRepository
	users          ports.UserRepository
	storage        ports.ObjectStorage
	access         boardAccess
	defaultColumns []string
	logger         *logger.Logger
}

// NewBoardService creates boards with defaultColumns.
func NewBoardService(boards ports.BoardRepository, users ports.UserRepository, storage ports.ObjectStorage, defaultColumns []string, log *logger.Logger) *BoardService {
	return &BoardService{
		boards:         boards,
		users:          users,
		storage:        storage,
		access:         boardAccess{boards: boards, users: users},
		defaultColumns: defaultColumns,
		logger:         log.WithComponent("boards"),
	}
}

// List returns the boards the actor owns or belongs to.
func (s *BoardService) List(ctx context.Context, actorID uuid.UUID) ([]*entities.Board, error) {
	if _, err := s.access.actor(ctx, actorID); err != nil {
		return nil, err
	}
	return s.boards.ListForUser(ctx, actorID)
}

// Get returns the board with its columns and cards.
func (s *BoardService) Get(ctx context.Context, actorID, boardID uuid.UUID) (*entities.BoardDetail, error) {
	if _, _, err := s.access.check(ctx, actorID, boardID); err != nil {
		return nil, err
	}
	return s.boards.GetDetail(ctx, boardID)
}

func (s *BoardService) Create(ctx context.Context, actorID uuid.UUID, req ports.CreateBoardRequest) (*entities.Board, error) {
	if _, err := s.access.actor(ctx, actorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.Invalid("board name is required")
	}

	board := &entities.Board{
		Name:        name,
		Description: req.Description,
		OwnerID:     actorID,
	}
	if err := s.boards.Create(ctx, board, s.defaultColumns); err != nil {
		return nil, err
	}

	s.logger.LogUserAction(actorID.String(), "create_board", map[string]interface{}{"board_id": board.ID})
	return board, nil
}

func (s *BoardService) Update(ctx context.Context, actorID, boardID uuid.UUID, req ports.UpdateBoardRequest) (*entities.Board, error) {
	board, _, err := s.access.check(ctx, actorID, boardID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, entities.Invalid("board name cannot be empty")
		}
		board.Name = name
	}
	if req.Description != nil {
		board.Description = req.Description
		if *req.Description == "" {
			board.Description = nil
		}
	}
	if err := s.boards.Update(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

// Delete removes the board and everything in it. Only the owner or an
// admin may do so.
func (s *BoardService) Delete(ctx context.Context, actorID, boardID uuid.UUID) error {
	board, actor, err := s.access.check(ctx, actorID, boardID)
	if err != nil {
		return err
	}
	if board.OwnerID != actorID && !actor.IsAdmin() {
		return entities.ErrForbidden
	}

	keys, err := s.boards.Delete(ctx, boardID)
	if err != nil {
		return err
	}
	deleteObjects(ctx, s.storage, keys, s.logger.Warnw)

	s.logger.LogUserAction(actorID.String(), "delete_board", map[string]interface{}{"board_id": boardID, "objects": len(keys)})
	return nil
}

func (s *BoardService) ListMembers(ctx context.Context, actorID, boardID uuid.UUID) ([]entities.BoardMember, error) {
	if _, _, err := s.access.check(ctx, actorID, boardID); err != nil {
		return nil, err
	}
	return s.boards.ListMembers(ctx, boardID)
}

// AddMember adds or updates a membership. Any member may invite.
func (s *BoardService) AddMember(ctx context.Context, actorID, boardID uuid.UUID, req ports.AddMemberRequest) error {
	if _, _, err := s.access.check(ctx, actorID, boardID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return err
	}
	role := req.Role
	if role == "" {
		role = entities.MemberRoleMember
	}
	if role != entities.MemberRoleAdmin && role != entities.MemberRoleMember {
		return entities.Invalid("unknown member role %q", role)
	}
	return s.boards.AddMember(ctx, boardID, req.UserID, role)
}
