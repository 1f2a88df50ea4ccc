package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/ports"
)

const boardColumns = `id, name, description, owner_id, created_at`

// BoardRepositoryImpl implements the BoardRepository interface
type BoardRepositoryImpl struct {
	db *database.DB
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db *database.DB) ports.BoardRepository {
	return &BoardRepositoryImpl{db: db}
}

func (r *BoardRepositoryImpl) Create(ctx context.Context, board *entities.Board, columns []string) error {
	if board.ID == uuid.Nil {
		board.ID = uuid.New()
	}
	board.CreatedAt = now()

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := execx(ctx, tx, `INSERT INTO boards (`+boardColumns+`) VALUES (?, ?, ?, ?, ?)`,
			board.ID, board.Name, board.Description, board.OwnerID, board.CreatedAt); err != nil {
			return err
		}
		if _, err := execx(ctx, tx, `INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)`,
			board.ID, board.OwnerID, entities.MemberRoleAdmin); err != nil {
			return err
		}
		for i, name := range columns {
			if _, err := execx(ctx, tx, `INSERT INTO board_columns (id, board_id, name, position) VALUES (?, ?, ?, ?)`,
				uuid.New(), board.ID, name, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (r *BoardRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Board, error) {
	var board entities.Board
	if err := getx(ctx, r.db.DB, &board, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

// GetDetail loads the board with its columns in order and every card with
// assignees, labels and comment counts.
func (r *BoardRepositoryImpl) GetDetail(ctx context.Context, id uuid.UUID) (*entities.BoardDetail, error) {
	board, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := []*entities.Column{}
	if err := selectx(ctx, r.db.DB, &columns,
		`SELECT id, board_id, name, position FROM board_columns WHERE board_id = ? ORDER BY position, id`, id); err != nil {
		return nil, fmt.Errorf("get board columns: %w", err)
	}

	cards, err := loadCards(ctx, r.db.DB, `bc.board_id = ?`, id)
	if err != nil {
		return nil, err
	}

	byColumn := make(map[uuid.UUID]*entities.Column, len(columns))
	for _, col := range columns {
		col.Cards = []*entities.Card{}
		byColumn[col.ID] = col
	}
	for _, card := range cards {
		if col, ok := byColumn[card.ColumnID]; ok {
			col.Cards = append(col.Cards, card)
		}
	}

	return &entities.BoardDetail{Board: board, Columns: columns}, nil
}

func (r *BoardRepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Board, error) {
	boards := []*entities.Board{}
	err := selectx(ctx, r.db.DB, &boards, `
		SELECT `+boardColumns+` FROM boards
		WHERE owner_id = ? OR id IN (SELECT board_id FROM board_members WHERE user_id = ?)
		ORDER BY created_at DESC, id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (r *BoardRepositoryImpl) Update(ctx context.Context, board *entities.Board) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrBoardNotFound,
		`UPDATE boards SET name = ?, description = ? WHERE id = ?`,
		board.Name, board.Description, board.ID); err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for everything below the board and
// returns the storage keys of the attachments that went with it.
func (r *BoardRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := selectx(ctx, tx, &keys, `
			SELECT a.storage_key FROM attachments a
			JOIN cards c ON c.id = a.card_id
			JOIN board_columns bc ON bc.id = c.column_id
			WHERE bc.board_id = ?`, id); err != nil {
			return fmt.Errorf("collect attachment keys: %w", err)
		}
		return execAffected(ctx, tx, entities.ErrBoardNotFound, `DELETE FROM boards WHERE id = ?`, id)
	})
	if err != nil {
		return nil, fmt.Errorf("delete board: %w", err)
	}
	return keys, nil
}

func (r *BoardRepositoryImpl) IsMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	var count int
	if err := getx(ctx, r.db.DB, &count, `
		SELECT COUNT(*) FROM boards b
		WHERE b.id = ? AND (b.owner_id = ? OR EXISTS (
			SELECT 1 FROM board_members m WHERE m.board_id = b.id AND m.user_id = ?))`,
		boardID, userID, userID); err != nil {
		return false, fmt.Errorf("check board membership: %w", err)
	}
	return count > 0, nil
}

func (r *BoardRepositoryImpl) ListMembers(ctx context.Context, boardID uuid.UUID) ([]entities.BoardMember, error) {
	members := []entities.BoardMember{}
	err := selectx(ctx, r.db.DB, &members, `
		SELECT u.id, u.name, u.email, u.department, m.role
		FROM board_members m JOIN users u ON u.id = m.user_id
		WHERE m.board_id = ?
		ORDER BY u.name, u.id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list board members: %w", err)
	}
	return members, nil
}

// AddMember inserts or updates the membership role.
func (r *BoardRepositoryImpl) AddMember(ctx context.Context, boardID, userID uuid.UUID, role entities.MemberRole) error {
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		updated, err := execx(ctx, tx, `UPDATE board_members SET role = ? WHERE board_id = ? AND user_id = ?`,
			role, boardID, userID)
		if err != nil {
			return err
		}
		if n, _ := updated.RowsAffected(); n > 0 {
			return nil
		}
		_, err = execx(ctx, tx, `INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)`,
			boardID, userID, role)
		return err
	})
	if err != nil {
		return fmt.Errorf("add board member: %w", err)
	}
	return nil
}
