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

const cardSelect = `
	SELECT c.id, c.column_id, bc.board_id, c.title, c.description, c.priority, c.due_date,
		c.position, c.created_by, c.created_at,
		(SELECT COUNT(*) FROM comments cm WHERE cm.card_id = c.id) AS comments_count
	FROM cards c
	JOIN board_columns bc ON bc.id = c.column_id`

type assigneeRow struct {
	CardID uuid.UUID `db:"card_id"`
	entities.UserSummary
}

// loadCards selects cards matching where and fills assignees and labels.
func loadCards(ctx context.Context, q sqlx.ExtContext, where string, args ...interface{}) ([]*entities.Card, error) {
	cards := []*entities.Card{}
	if err := selectx(ctx, q, &cards, cardSelect+` WHERE `+where+` ORDER BY c.position, c.created_at, c.id`, args...); err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	if len(cards) == 0 {
		return cards, nil
	}

	ids := make([]uuid.UUID, len(cards))
	byID := make(map[uuid.UUID]*entities.Card, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
		card.Assignees = []entities.UserSummary{}
		card.Labels = []entities.Label{}
		byID[card.ID] = card
	}

	var assignees []assigneeRow
	if err := selectIn(ctx, q, &assignees, `
		SELECT ca.card_id, u.id, u.name, u.email, u.department
		FROM card_assignees ca JOIN users u ON u.id = ca.user_id
		WHERE ca.card_id IN (?)
		ORDER BY u.name, u.id`, ids); err != nil {
		return nil, fmt.Errorf("load card assignees: %w", err)
	}
	for _, a := range assignees {
		byID[a.CardID].Assignees = append(byID[a.CardID].Assignees, a.UserSummary)
	}

	var labels []entities.Label
	if err := selectIn(ctx, q, &labels,
		`SELECT id, card_id, name, color FROM labels WHERE card_id IN (?) ORDER BY name, id`, ids); err != nil {
		return nil, fmt.Errorf("load card labels: %w", err)
	}
	for _, l := range labels {
		byID[l.CardID].Labels = append(byID[l.CardID].Labels, l)
	}

	return cards, nil
}

// CardRepositoryImpl implements the CardRepository interface
type CardRepositoryImpl struct {
	db *database.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *database.DB) ports.CardRepository {
	return &CardRepositoryImpl{db: db}
}

func columnExists(ctx context.Context, q sqlx.ExtContext, columnID uuid.UUID) error {
	var count int
	if err := getx(ctx, q, &count, `SELECT COUNT(*) FROM board_columns WHERE id = ?`, columnID); err != nil {
		return err
	}
	if count == 0 {
		return entities.ErrColumnNotFound
	}
	return nil
}

func (r *CardRepositoryImpl) Create(ctx context.Context, card *entities.Card) error {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.CreatedAt = now()

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := columnExists(ctx, tx, card.ColumnID); err != nil {
			return err
		}

		var maxPos sql.NullInt64
		if err := getx(ctx, tx, &maxPos, `SELECT MAX(position) FROM cards WHERE column_id = ?`, card.ColumnID); err != nil {
			return err
		}
		card.Position = position.Next(nullableInt(maxPos))

		if _, err := execx(ctx, tx, `
			INSERT INTO cards (id, column_id, title, description, priority, due_date, position, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			card.ID, card.ColumnID, card.Title, card.Description, card.Priority, card.DueDate,
			card.Position, card.CreatedBy, card.CreatedAt); err != nil {
			return err
		}

		for _, a := range card.Assignees {
			if _, err := execx(ctx, tx, `INSERT INTO card_assignees (card_id, user_id) VALUES (?, ?)`, card.ID, a.ID); err != nil {
				return fmt.Errorf("assign user %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

func (r *CardRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Card, error) {
	cards, err := loadCards(ctx, r.db.DB, `c.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	if len(cards) == 0 {
		return nil, entities.ErrCardNotFound
	}
	return cards[0], nil
}

func (r *CardRepositoryImpl) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*entities.Card, error) {
	return loadCards(ctx, r.db.DB, `c.column_id = ?`, columnID)
}

func (r *CardRepositoryImpl) Update(ctx context.Context, card *entities.Card) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrCardNotFound, `
		UPDATE cards SET title = ?, description = ?, priority = ?, due_date = ? WHERE id = ?`,
		card.Title, card.Description, card.Priority, card.DueDate, card.ID); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

// Move clamps index to the number of other cards in the target column,
// shifts the cards at or after it by one and compacts the source column
// on cross-column moves. Moving a card onto its current slot changes nothing.
func (r *CardRepositoryImpl) Move(ctx context.Context, cardID, targetColumnID uuid.UUID, index int) (*entities.Card, error) {
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var sourceColumnID uuid.UUID
		if err := getx(ctx, tx, &sourceColumnID, `SELECT column_id FROM cards WHERE id = ?`, cardID); err != nil {
			if isNoRows(err) {
				return entities.ErrCardNotFound
			}
			return err
		}
		if err := columnExists(ctx, tx, targetColumnID); err != nil {
			return err
		}

		var rows []positioned
		if err := selectx(ctx, tx, &rows,
			`SELECT id, position FROM cards WHERE column_id = ? ORDER BY position, created_at, id`, targetColumnID); err != nil {
			return err
		}
		order, current := splitPositioned(rows)

		sameColumn := sourceColumnID == targetColumnID
		order, final, changed := position.Move(order, cardID, index)
		if sameColumn && !changed && current[cardID] == final {
			return nil
		}

		if !sameColumn {
			if _, err := execx(ctx, tx, `UPDATE cards SET column_id = ?, position = ? WHERE id = ?`,
				targetColumnID, final, cardID); err != nil {
				return err
			}
			current[cardID] = final
		}
		if err := applyOrder(ctx, tx, "cards", order, current); err != nil {
			return err
		}
		if !sameColumn {
			return compactCards(ctx, tx, sourceColumnID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("move card: %w", err)
	}
	return r.GetByID(ctx, cardID)
}

func (r *CardRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var columnID uuid.UUID
		if err := getx(ctx, tx, &columnID, `SELECT column_id FROM cards WHERE id = ?`, id); err != nil {
			if isNoRows(err) {
				return entities.ErrCardNotFound
			}
			return err
		}
		if err := selectx(ctx, tx, &keys, `SELECT storage_key FROM attachments WHERE card_id = ?`, id); err != nil {
			return err
		}
		if _, err := execx(ctx, tx, `DELETE FROM cards WHERE id = ?`, id); err != nil {
			return err
		}
		return compactCards(ctx, tx, columnID)
	})
	if err != nil {
		return nil, fmt.Errorf("delete card: %w", err)
	}
	return keys, nil
}

// AddAssignee is idempotent.
func (r *CardRepositoryImpl) AddAssignee(ctx context.Context, cardID, userID uuid.UUID) error {
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := getx(ctx, tx, &count,
			`SELECT COUNT(*) FROM card_assignees WHERE card_id = ? AND user_id = ?`, cardID, userID); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		_, err := execx(ctx, tx, `INSERT INTO card_assignees (card_id, user_id) VALUES (?, ?)`, cardID, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("add assignee: %w", err)
	}
	return nil
}

func (r *CardRepositoryImpl) RemoveAssignee(ctx context.Context, cardID, userID uuid.UUID) error {
	if _, err := execx(ctx, r.db.DB, `DELETE FROM card_assignees WHERE card_id = ? AND user_id = ?`, cardID, userID); err != nil {
		return fmt.Errorf("remove assignee: %w", err)
	}
	return nil
}

func (r *CardRepositoryImpl) AddLabel(ctx context.Context, label *entities.Label) error {
	if label.ID == uuid.Nil {
		label.ID = uuid.New()
	}
	if _, err := execx(ctx, r.db.DB, `INSERT INTO labels (id, card_id, name, color) VALUES (?, ?, ?, ?)`,
		label.ID, label.CardID, label.Name, label.Color); err != nil {
		return fmt.Errorf("add label: %w", err)
	}
	return nil
}

func (r *CardRepositoryImpl) RemoveLabel(ctx context.Context, cardID, labelID uuid.UUID) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrLabelNotFound,
		`DELETE FROM labels WHERE id = ? AND card_id = ?`, labelID, cardID); err != nil {
		return fmt.Errorf("remove label: %w", err)
	}
	return nil
}
