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

type DepartmentRepositoryImpl struct {
	db *database.DB
}

func NewDepartmentRepository(db *database.DB) ports.DepartmentRepository {
	return &DepartmentRepositoryImpl{db: db}
}

func (r *DepartmentRepositoryImpl) Create(ctx context.Context, dept *entities.Department) error {
	if dept.ID == uuid.Nil {
		dept.ID = uuid.New()
	}
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var maxPos sql.NullInt64
		if err := getx(ctx, tx, &maxPos, `SELECT MAX(position) FROM departments`); err != nil {
			return err
		}
		dept.Position = position.Next(nullableInt(maxPos))

		_, err := execx(ctx, tx, `INSERT INTO departments (id, name, position) VALUES (?, ?, ?)`,
			dept.ID, dept.Name, dept.Position)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrDepartmentExists
		}
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

func (r *DepartmentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Department, error) {
	var dept entities.Department
	if err := getx(ctx, r.db.DB, &dept, `SELECT id, name, position FROM departments WHERE id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &dept, nil
}

func (r *DepartmentRepositoryImpl) GetByName(ctx context.Context, name string) (*entities.Department, error) {
	var dept entities.Department
	if err := getx(ctx, r.db.DB, &dept, `SELECT id, name, position FROM departments WHERE name = ?`, name); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department by name: %w", err)
	}
	return &dept, nil
}

func (r *DepartmentRepositoryImpl) List(ctx context.Context) ([]*entities.Department, error) {
	depts := []*entities.Department{}
	if err := selectx(ctx, r.db.DB, &depts, `SELECT id, name, position FROM departments ORDER BY position, name`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return depts, nil
}

func (r *DepartmentRepositoryImpl) Rename(ctx context.Context, id uuid.UUID, name string) error {
	err := execAffected(ctx, r.db.DB, entities.ErrDepartmentNotFound,
		`UPDATE departments SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrDepartmentExists
		}
		return fmt.Errorf("rename department: %w", err)
	}
	return nil
}

func (r *DepartmentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := execAffected(ctx, tx, entities.ErrDepartmentNotFound, `DELETE FROM departments WHERE id = ?`, id); err != nil {
			return err
		}
		var rows []positioned
		if err := selectx(ctx, tx, &rows, `SELECT id, position FROM departments ORDER BY position, name`); err != nil {
			return err
		}
		order, current := splitPositioned(rows)
		return applyOrder(ctx, tx, "departments", order, current)
	})
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
