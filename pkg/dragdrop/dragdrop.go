// Package dragdrop turns drag gestures over a board view into card moves.
//
// A Controller holds the client-side view of a board. Hovering a different
// column relocates the dragged card optimistically; dropping issues at most
// one MoveCard call for the whole gesture. Cancelling restores the layout
// captured when the drag started.
package dragdrop

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/domain/position"
)

var (
	ErrUnknownCard = errors.New("card is not on the board")
	ErrDragging    = errors.New("a drag is already in progress")
	ErrNotDragging = errors.New("no drag in progress")
)

// Mover persists a card move.
type Mover interface {
	MoveCard(ctx context.Context, cardID, columnID uuid.UUID, position int) error
}

// Column is a column with its cards in display order.
type Column struct {
	ID    uuid.UUID
	Cards []uuid.UUID
}

// View is the client-side layout of a board.
type View struct {
	Columns []Column
}

// FromBoard builds a view from the board read model.
func FromBoard(detail *entities.BoardDetail) View {
	v := View{Columns: make([]Column, 0, len(detail.Columns))}
	for _, col := range detail.Columns {
		c := Column{ID: col.ID, Cards: make([]uuid.UUID, 0, len(col.Cards))}
		for _, card := range col.Cards {
			c.Cards = append(c.Cards, card.ID)
		}
		v.Columns = append(v.Columns, c)
	}
	return v
}

// Clone returns a deep copy of v.
func (v View) Clone() View {
	out := View{Columns: make([]Column, len(v.Columns))}
	for i, c := range v.Columns {
		out.Columns[i] = Column{ID: c.ID, Cards: append([]uuid.UUID(nil), c.Cards...)}
	}
	return out
}

// Locate returns the column index and card index of cardID.
func (v View) Locate(cardID uuid.UUID) (col, idx int, ok bool) {
	for ci, c := range v.Columns {
		if i := position.IndexOf(c.Cards, cardID); i >= 0 {
			return ci, i, true
		}
	}
	return -1, -1, false
}

func (v View) column(id uuid.UUID) int {
	for i, c := range v.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Target is what the pointer is over. CardID is uuid.Nil when hovering
// the column body rather than a card.
type Target struct {
	ColumnID uuid.UUID
	CardID   uuid.UUID
}

// State of the gesture.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Move is the single server call a completed gesture produced.
type Move struct {
	CardID   uuid.UUID
	ColumnID uuid.UUID
	Position int
}

// Controller tracks one drag gesture at a time. It is not safe for
// concurrent use; drive it from the UI event loop.
type Controller struct {
	mover Mover
	view  View
	state State

	card        uuid.UUID
	origin      uuid.UUID
	originIndex int
	snapshot    View
}

func New(view View, mover Mover) *Controller {
	return &Controller{mover: mover, view: view.Clone()}
}

// View returns a copy of the current layout, including optimistic moves.
func (c *Controller) View() View {
	return c.view.Clone()
}

func (c *Controller) State() State {
	return c.state
}

// Reset replaces the layout, for example after reloading the board. It is
// ignored while dragging.
func (c *Controller) Reset(view View) {
	if c.state == Dragging {
		return
	}
	c.view = view.Clone()
}

// Start begins dragging cardID and remembers where it came from.
func (c *Controller) Start(cardID uuid.UUID) error {
	if c.state == Dragging {
		return ErrDragging
	}
	col, idx, ok := c.view.Locate(cardID)
	if !ok {
		return ErrUnknownCard
	}
	c.state = Dragging
	c.card = cardID
	c.origin = c.view.Columns[col].ID
	c.originIndex = idx
	c.snapshot = c.view.Clone()
	return nil
}

// Over handles a hover event. The card moves to the hovered column only
// when that column differs from its current one; reordering inside a
// column waits for the drop. It never calls the server.
func (c *Controller) Over(target Target) {
	if c.state != Dragging {
		return
	}
	to, idx, ok := c.resolve(target)
	if !ok {
		return
	}
	from, _, _ := c.view.Locate(c.card)
	if from == to {
		return
	}
	c.relocate(from, to, idx)
}

// Drop ends the gesture over target. A nil or unknown target cancels.
// The view reflects the final layout before the server is called; if the
// call fails the error is returned and the caller should reload.
func (c *Controller) Drop(ctx context.Context, target *Target) (*Move, error) {
	if c.state != Dragging {
		return nil, ErrNotDragging
	}
	if target == nil {
		c.Cancel()
		return nil, nil
	}
	to, idx, ok := c.resolve(*target)
	if !ok {
		c.Cancel()
		return nil, nil
	}

	from, _, _ := c.view.Locate(c.card)
	switch {
	case from != to:
		c.relocate(from, to, idx)
	case target.CardID != c.card:
		// Same column: the card takes the hovered card's slot, or goes to
		// the end when dropped on the column body.
		c.view.Columns[to].Cards, _, _ = position.Move(c.view.Columns[to].Cards, c.card, idx)
	}

	col, final, _ := c.view.Locate(c.card)
	move := &Move{CardID: c.card, ColumnID: c.view.Columns[col].ID, Position: final}
	changed := move.ColumnID != c.origin || move.Position != c.originIndex
	c.finish()

	if !changed {
		return nil, nil
	}
	if err := c.mover.MoveCard(ctx, move.CardID, move.ColumnID, move.Position); err != nil {
		return move, err
	}
	return move, nil
}

// Cancel aborts the gesture and restores the layout from drag start.
func (c *Controller) Cancel() {
	if c.state != Dragging {
		return
	}
	c.view = c.snapshot
	c.finish()
}

func (c *Controller) finish() {
	c.state = Idle
	c.card = uuid.Nil
	c.origin = uuid.Nil
	c.originIndex = 0
	c.snapshot = View{}
}

// resolve maps a target to a column index and an insertion index: before
// the hovered card, or the end of the hovered column.
func (c *Controller) resolve(t Target) (col, idx int, ok bool) {
	if t.CardID != uuid.Nil {
		if ci, i, found := c.view.Locate(t.CardID); found {
			return ci, i, true
		}
	}
	ci := c.view.column(t.ColumnID)
	if ci < 0 {
		return -1, -1, false
	}
	return ci, len(c.view.Columns[ci].Cards), true
}

func (c *Controller) relocate(from, to, idx int) {
	c.view.Columns[from].Cards = position.Without(c.view.Columns[from].Cards, c.card)
	c.view.Columns[to].Cards, _ = position.Insert(c.view.Columns[to].Cards, c.card, idx)
}
