package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

// moveAttempts bounds retries when a card changes column between reading
// it and acquiring its column lock.
const moveAttempts = 3

// CardService handles card operations. Anything that renumbers a column
// holds that column's lock.
type CardService struct {
	cards   ports.CardRepository
	columns ports.ColumnRepository
	users   ports.UserRepository
	storage ports.ObjectStorage
	access  boardAccess
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewCardService(
	cards ports.CardRepository,
	columns ports.ColumnRepository,
	boards ports.BoardRepository,
	users ports.UserRepository,
	storage ports.ObjectStorage,
	locker lock.Locker,
	m *metrics.Metrics,
	log *logger.Logger,
) *CardService {
	return &CardService{
		cards:   cards,
		columns: columns,
		users:   users,
		storage: storage,
		access:  boardAccess{boards: boards, users: users},
		locker:  locker,
		metrics: m,
		logger:  log.WithComponent("cards"),
	}
}

// cardForActor loads a card the actor may see.
func (s *CardService) cardForActor(ctx context.Context, actorID, cardID uuid.UUID) (*entities.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.check(ctx, actorID, card.BoardID); err != nil {
		return nil, err
	}
	return card, nil
}

// Create appends a card to the end of columnID.
func (s *CardService) Create(ctx context.Context, actorID, columnID uuid.UUID, req ports.CreateCardRequest) (*entities.Card, error) {
	column, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.check(ctx, actorID, column.BoardID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entities.Invalid("title is required")
	}
	card := &entities.Card{
		ColumnID:    columnID,
		BoardID:     column.BoardID,
		Title:       title,
		Description: emptyToNil(req.Description),
		CreatedBy:   actorID,
	}
	if err := applyOptional(card, req.Priority, req.DueDate); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(req.AssigneeIDs))
	for _, id := range req.AssigneeIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("assignee %s: %w", id, err)
		}
		card.Assignees = append(card.Assignees, u.Summary())
	}

	release, err := s.locker.Lock(ctx, lock.ColumnKey(columnID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	s.logger.LogUserAction(actorID.String(), "create_card", map[string]interface{}{"card_id": card.ID, "column_id": columnID})
	return s.cards.GetByID(ctx, card.ID)
}

func (s *CardService) Get(ctx context.Context, actorID, cardID uuid.UUID) (*entities.Card, error) {
	return s.cardForActor(ctx, actorID, cardID)
}

// Update changes the fields present in req. Position and column are only
// changed through Move.
func (s *CardService) Update(ctx context.Context, actorID, cardID uuid.UUID, req ports.UpdateCardRequest) (*entities.Card, error) {
	card, err := s.cardForActor(ctx, actorID, cardID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, entities.Invalid("title cannot be empty")
		}
		card.Title = title
	}
	if req.Description != nil {
		card.Description = emptyToNil(req.Description)
	}
	if err := applyOptional(card, req.Priority, req.DueDate); err != nil {
		return nil, err
	}

	if err := s.cards.Update(ctx, card); err != nil {
		return nil, err
	}
	return s.cards.GetByID(ctx, cardID)
}

// Move places the card at req.Position in req.ColumnID. The target may be
// on another board the actor can access.
func (s *CardService) Move(ctx context.Context, actorID, cardID uuid.UUID, req ports.MoveCardRequest) (*entities.Card, error) {
	card, err := s.cardForActor(ctx, actorID, cardID)
	if err != nil {
		return nil, err
	}
	target, err := s.columns.GetByID(ctx, req.ColumnID)
	if err != nil {
		return nil, err
	}
	if target.BoardID != card.BoardID {
		if _, _, err := s.access.check(ctx, actorID, target.BoardID); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < moveAttempts; attempt++ {
		source := card.ColumnID
		release, err := lock.LockMany(ctx, s.locker, lock.ColumnKey(source.String()), lock.ColumnKey(target.ID.String()))
		if err != nil {
			return nil, err
		}

		current, err := s.cards.GetByID(ctx, cardID)
		if err != nil {
			release()
			return nil, err
		}
		if current.ColumnID != source {
			release()
			card = current
			continue
		}

		moved, err := s.cards.Move(ctx, cardID, target.ID, req.Position)
		release()
		if err != nil {
			return nil, err
		}
		s.metrics.CardMoved(source != target.ID)
		return moved, nil
	}
	return nil, fmt.Errorf("card %s kept moving: %w", cardID, entities.ErrConflict)
}

func (s *CardService) Delete(ctx context.Context, actorID, cardID uuid.UUID) error {
	card, err := s.cardForActor(ctx, actorID, cardID)
	if err != nil {
		return err
	}

	release, err := s.locker.Lock(ctx, lock.ColumnKey(card.ColumnID.String()))
	if err != nil {
		return err
	}
	keys, err := s.cards.Delete(ctx, cardID)
	release()
	if err != nil {
		return err
	}

	deleteObjects(ctx, s.storage, keys, s.logger.Warnw)
	s.logger.LogUserAction(actorID.String(), "delete_card", map[string]interface{}{"card_id": cardID})
	return nil
}

func (s *CardService) AddAssignee(ctx context.Context, actorID, cardID, userID uuid.UUID) (*entities.Card, error) {
	if _, err := s.cardForActor(ctx, actorID, cardID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.cards.AddAssignee(ctx, cardID, userID); err != nil {
		return nil, err
	}
	return s.cards.GetByID(ctx, cardID)
}

func (s *CardService) RemoveAssignee(ctx context.Context, actorID, cardID, userID uuid.UUID) (*entities.Card, error) {
	if _, err := s.cardForActor(ctx, actorID, cardID); err != nil {
		return nil, err
	}
	if err := s.cards.RemoveAssignee(ctx, cardID, userID); err != nil {
		return nil, err
	}
	return s.cards.GetByID(ctx, cardID)
}

func (s *CardService) AddLabel(ctx context.Context, actorID, cardID uuid.UUID, req ports.AddLabelRequest) (*entities.Label, error) {
	if _, err := s.cardForActor(ctx, actorID, cardID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.Invalid("label name is required")
	}
	label := &entities.Label{CardID: cardID, Name: name, Color: strings.TrimSpace(req.Color)}
	if err := s.cards.AddLabel(ctx, label); err != nil {
		return nil, err
	}
	return label, nil
}

func (s *CardService) RemoveLabel(ctx context.Context, actorID, cardID, labelID uuid.UUID) error {
	if _, err := s.cardForActor(ctx, actorID, cardID); err != nil {
		return err
	}
	return s.cards.RemoveLabel(ctx, cardID, labelID)
}

// applyOptional sets priority and due date from their string forms. nil
// leaves a field untouched and "" clears it.
func applyOptional(card *entities.Card, priority, dueDate *string) error {
	if priority != nil {
		p, err := entities.ParsePriority(*priority)
		if err != nil {
			return err
		}
		card.Priority = p
	}
	if dueDate != nil {
		d, err := entities.ParseDueDate(*dueDate)
		if err != nil {
			return err
		}
		card.DueDate = d
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
