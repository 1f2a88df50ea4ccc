package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/ports"
)

func TestCommentMentionNotifiesUser(t *testing.T) {
	f := newFixture(t)
	luis := f.user("Luis Pérez")
	ana := f.user("Ana García")
	board, columns := f.board(luis, "Marketing")
	card := f.card(luis, columns[0], "Lanzamiento")

	comment, err := f.comments.Create(f.ctx, luis.ID, card.ID, ports.CreateCommentRequest{Content: "Revisa esto @Ana"})
	require.NoError(t, err)

	mentions, err := f.commentRepo.ListMentions(f.ctx, comment.ID)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, ana.ID, mentions[0].UserID)
	assert.Equal(t, card.ID, mentions[0].CardID)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, ana.ID, n.Recipient.ID)
	assert.Equal(t, "Luis Pérez", n.MentionerName)
	assert.Equal(t, "Marketing", n.BoardName)
	assert.Equal(t, "Lanzamiento", n.CardTitle)
	assert.Equal(t, "Revisa esto @Ana", n.Comment)
	assert.Equal(t, fmt.Sprintf("http://planner.test/board/%s?card=%s", board.ID, card.ID), n.CardURL)

	comments, err := f.comments.List(f.ctx, luis.ID, card.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Luis Pérez", comments[0].UserName)
}

func TestCommentMentionEdgeCases(t *testing.T) {
	f := newFixture(t)
	luis := f.user("Luis")
	f.user("Ana")
	inactive := f.user("Carmen")
	require.NoError(t, f.users.UpdateActive(f.ctx, inactive.ID, false))
	_, columns := f.board(luis, "B")
	card := f.card(luis, columns[0], "T")

	tests := []struct {
		name     string
		content  string
		mentions int
		notified int
	}{
		{name: "unknown name", content: "hola @Nadie", mentions: 0, notified: 0},
		{name: "repeated mention", content: "@Ana y otra vez @ana", mentions: 1, notified: 1},
		{name: "self mention", content: "nota para mí @Luis", mentions: 1, notified: 0},
		{name: "inactive user", content: "@Carmen", mentions: 0, notified: 0},
		{name: "no tokens", content: "correo ana@", mentions: 0, notified: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.notifier.sent = nil
			comment, err := f.comments.Create(f.ctx, luis.ID, card.ID, ports.CreateCommentRequest{Content: tt.content})
			require.NoError(t, err)
			mentions, err := f.commentRepo.ListMentions(f.ctx, comment.ID)
			require.NoError(t, err)
			assert.Len(t, mentions, tt.mentions)
			assert.Len(t, f.notifier.sent, tt.notified)
		})
	}
}

func TestCommentValidationAndDelete(t *testing.T) {
	f := newFixture(t)
	luis := f.user("Luis")
	ana := f.user("Ana")
	admin := f.userWithRole("Root", entities.UserRoleAdmin)
	board, columns := f.board(luis, "B")
	require.NoError(t, f.boards.AddMember(f.ctx, luis.ID, board.ID, ports.AddMemberRequest{UserID: ana.ID}))
	card := f.card(luis, columns[0], "T")

	_, err := f.comments.Create(f.ctx, luis.ID, card.ID, ports.CreateCommentRequest{Content: "   "})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
	_, err = f.comments.Create(f.ctx, luis.ID, uuid.New(), ports.CreateCommentRequest{Content: "x"})
	assert.ErrorIs(t, err, entities.ErrCardNotFound)

	mine, err := f.comments.Create(f.ctx, luis.ID, card.ID, ports.CreateCommentRequest{Content: "mine"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.comments.Delete(f.ctx, ana.ID, mine.ID), entities.ErrForbidden)
	require.NoError(t, f.comments.Delete(f.ctx, admin.ID, mine.ID))
	assert.ErrorIs(t, f.comments.Delete(f.ctx, luis.ID, mine.ID), entities.ErrCommentNotFound)
}
