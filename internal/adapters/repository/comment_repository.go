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

const commentSelect = `
	SELECT cm.id, cm.card_id, cm.user_id, u.name AS user_name, cm.content, cm.created_at
	FROM comments cm JOIN users u ON u.id = cm.user_id`

type CommentRepositoryImpl struct {
	db *database.DB
}

func NewCommentRepository(db *database.DB) ports.CommentRepository {
	return &CommentRepositoryImpl{db: db}
}

// Create stores the comment and one mention row per entry, atomically.
func (r *CommentRepositoryImpl) Create(ctx context.Context, comment *entities.Comment, mentions []*entities.Mention) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = now()

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := getx(ctx, tx, &count, `SELECT COUNT(*) FROM cards WHERE id = ?`, comment.CardID); err != nil {
			return err
		}
		if count == 0 {
			return entities.ErrCardNotFound
		}

		if _, err := execx(ctx, tx, `
			INSERT INTO comments (id, card_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			comment.ID, comment.CardID, comment.UserID, comment.Content, comment.CreatedAt); err != nil {
			return err
		}

		for _, m := range mentions {
			if m.ID == uuid.Nil {
				m.ID = uuid.New()
			}
			m.CommentID = comment.ID
			m.CardID = comment.CardID
			m.CreatedAt = comment.CreatedAt
			if _, err := execx(ctx, tx, `
				INSERT INTO mentions (id, comment_id, card_id, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
				m.ID, m.CommentID, m.CardID, m.UserID, m.CreatedAt); err != nil {
				return fmt.Errorf("insert mention: %w", err)
			}
		}

		return getx(ctx, tx, &comment.UserName, `SELECT name FROM users WHERE id = ?`, comment.UserID)
	})
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *CommentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Comment, error) {
	var comment entities.Comment
	if err := getx(ctx, r.db.DB, &comment, commentSelect+` WHERE cm.id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

func (r *CommentRepositoryImpl) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*entities.Comment, error) {
	comments := []*entities.Comment{}
	if err := selectx(ctx, r.db.DB, &comments, commentSelect+` WHERE cm.card_id = ? ORDER BY cm.created_at, cm.id`, cardID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepositoryImpl) ListMentions(ctx context.Context, commentID uuid.UUID) ([]*entities.Mention, error) {
	mentions := []*entities.Mention{}
	if err := selectx(ctx, r.db.DB, &mentions,
		`SELECT id, comment_id, card_id, user_id, created_at FROM mentions WHERE comment_id = ? ORDER BY created_at, id`, commentID); err != nil {
		return nil, fmt.Errorf("list mentions: %w", err)
	}
	return mentions, nil
}

func (r *CommentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrCommentNotFound, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
