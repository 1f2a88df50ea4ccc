package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/domain/position"
	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/ports"
)

type ColumnRepositoryImpl struct {
	db *database.DB
}

func NewColumnRepository(db *database.DB) ports.ColumnRepository {
	return &ColumnRepositoryImpl{db: db}
}

func (r *ColumnRepositoryImpl) Create(ctx context.Context, column *entities.Column) error {
	if column.ID == uuid.Nil {
		column.ID = uuid.New()
	}
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := getx(ctx, tx, &exists, `SELECT COUNT(*) FROM boards WHERE id = ?`, column.BoardID); err != nil {
			return err
		}
		if exists == 0 {
			return entities.ErrBoardNotFound
		}

		var maxPos sql.NullInt64
		if err := getx(ctx, tx, &maxPos, `SELECT MAX(position) FROM board_columns WHERE board_id = ?`, column.BoardID); err != nil {
			return err
		}
		column.Position = position.Next(nullableInt(maxPos))

		_, err := execx(ctx, tx, `INSERT INTO board_columns (id, board_id, name, position) VALUES (?, ?, ?, ?)`,
			column.ID, column.BoardID, column.Name, column.Position)
		return err
	})
	if err != nil {
		return fmt.Errorf("create column: %w", err)
	}
	return nil
}

func (r *ColumnRepositoryImpl) get(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*entities.Column, error) {
	var column entities.Column
	if err := getx(ctx, q, &column, `SELECT id, board_id, name, position FROM board_columns WHERE id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrColumnNotFound
		}
		return nil, fmt.Errorf("get column: %w", err)
	}
	return &column, nil
}

func (r *ColumnRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Column, error) {
	return r.get(ctx, r.db.DB, id)
}

func (r *ColumnRepositoryImpl) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*entities.Column, error) {
	columns := []*entities.Column{}
	if err := selectx(ctx, r.db.DB, &columns,
		`SELECT id, board_id, name, position FROM board_columns WHERE board_id = ? ORDER BY position, id`, boardID); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return columns, nil
}

func (r *ColumnRepositoryImpl) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrColumnNotFound,
		`UPDATE board_columns SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("rename column: %w", err)
	}
	return nil
}

func (r *ColumnRepositoryImpl) Reorder(ctx context.Context, id uuid.UUID, index int) (*entities.Column, error) {
	var result *entities.Column
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		column, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		var rows []positioned
		if err := selectx(ctx, tx, &rows,
			`SELECT id, position FROM board_columns WHERE board_id = ? ORDER BY position, id`, column.BoardID); err != nil {
			return err
		}
		order, current := splitPositioned(rows)
		order, final, _ := position.Move(order, id, index)
		if err := applyOrder(ctx, tx, "board_columns", order, current); err != nil {
			return err
		}

		column.Position = final
		result = column
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reorder column: %w", err)
	}
	return result, nil
}

func (r *ColumnRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		column, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := selectx(ctx, tx, &keys, `
			SELECT a.storage_key FROM attachments a
			JOIN cards c ON c.id = a.card_id
			WHERE c.column_id = ?`, id); err != nil {
			return fmt.Errorf("collect attachment keys: %w", err)
		}
		if _, err := execx(ctx, tx, `DELETE FROM board_columns WHERE id = ?`, id); err != nil {
			return err
		}
		return compactColumns(ctx, tx, column.BoardID)
	})
	if err != nil {
		return nil, fmt.Errorf("delete column: %w", err)
	}
	return keys, nil
}
