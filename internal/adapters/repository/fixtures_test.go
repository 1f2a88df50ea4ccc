package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/infrastructure/database/dbtest"
)

type fixture struct {
	t           *testing.T
	ctx         context.Context
	db          *database.DB
	users       *UserRepositoryImpl
	boards      *BoardRepositoryImpl
	columns     *ColumnRepositoryImpl
	cards       *CardRepositoryImpl
	comments    *CommentRepositoryImpl
	attachments *AttachmentRepositoryImpl
	departments *DepartmentRepositoryImpl
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.New(t)
	return &fixture{
		t:           t,
		ctx:         context.Background(),
		db:          db,
		users:       &UserRepositoryImpl{db: db},
		boards:      &BoardRepositoryImpl{db: db},
		columns:     &ColumnRepositoryImpl{db: db},
		cards:       &CardRepositoryImpl{db: db},
		comments:    &CommentRepositoryImpl{db: db},
		attachments: &AttachmentRepositoryImpl{db: db},
		departments: &DepartmentRepositoryImpl{db: db},
	}
}

func (f *fixture) user(name string) *entities.User {
	u := &entities.User{
		Email:        name + "@example.test",
		PasswordHash: "x",
		Name:         name,
		Role:         entities.UserRoleUser,
		Active:       true,
	}
	require.NoError(f.t, f.users.Create(f.ctx, u))
	return u
}

// board creates a board owned by owner with the given columns.
func (f *fixture) board(owner *entities.User, columns ...string) (*entities.Board, []*entities.Column) {
	b := &entities.Board{Name: "Board", OwnerID: owner.ID}
	require.NoError(f.t, f.boards.Create(f.ctx, b, columns))
	cols, err := f.columns.ListByBoard(f.ctx, b.ID)
	require.NoError(f.t, err)
	return b, cols
}

func (f *fixture) card(column *entities.Column, creator *entities.User, title string) *entities.Card {
	c := &entities.Card{ColumnID: column.ID, Title: title, CreatedBy: creator.ID}
	require.NoError(f.t, f.cards.Create(f.ctx, c))
	return c
}

func (f *fixture) attachment(card *entities.Card, uploader *entities.User, key string) *entities.Attachment {
	a := &entities.Attachment{
		CardID: card.ID, Filename: key + ".pdf", URL: "http://files/" + key,
		StorageKey: key, FileType: "pdf", FileSize: 10, UploadedBy: uploader.ID,
	}
	require.NoError(f.t, f.attachments.Create(f.ctx, a))
	return a
}

// titles returns the card titles of a column in position order and checks
// that positions are dense.
func (f *fixture) titles(columnID uuid.UUID) []string {
	cards, err := f.cards.ListByColumn(f.ctx, columnID)
	require.NoError(f.t, err)
	out := make([]string, len(cards))
	for i, c := range cards {
		require.Equal(f.t, i, c.Position, "column %s not dense", columnID)
		out[i] = c.Title
	}
	return out
}

func (f *fixture) count(table string) int {
	var n int
	require.NoError(f.t, f.db.DB.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}
