package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/domain/entities"
)

func TestUserCreateAndLookup(t *testing.T) {
	f := newFixture(t)
	ana := f.user("ana")

	got, err := f.users.GetByEmail(f.ctx, "ANA@example.test")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)
	assert.True(t, got.Active)

	err = f.users.Create(f.ctx, &entities.User{Email: "ana@example.test", PasswordHash: "x", Name: "dup"})
	assert.ErrorIs(t, err, entities.ErrEmailTaken)

	_, err = f.users.GetByID(f.ctx, uuid.New())
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
}

func TestUserTeamsLinkMovesBetweenAccounts(t *testing.T) {
	f := newFixture(t)
	ana := f.user("Ana")
	bob := f.user("Bob")

	teamsID := "29:abc"
	ref := `{"conversation":{"id":"c1"}}`
	require.NoError(t, f.users.SetTeamsLink(f.ctx, ana.ID, &teamsID, &ref))

	got, err := f.users.GetByTeamsUserID(f.ctx, teamsID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)
	assert.True(t, got.HasBotLink())

	require.NoError(t, f.users.SetTeamsLink(f.ctx, bob.ID, &teamsID, &ref))
	got, err = f.users.GetByTeamsUserID(f.ctx, teamsID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	anaNow, err := f.users.GetByID(f.ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, anaNow.HasBotLink())

	views, err := f.users.ListForAdmin(f.ctx)
	require.NoError(t, err)
	linked := map[uuid.UUID]bool{}
	for _, v := range views {
		linked[v.ID] = v.TeamsLinked
	}
	assert.True(t, linked[bob.ID])
	assert.False(t, linked[ana.ID])
}

func TestFindMentionableIsCaseInsensitiveAndSkipsInactive(t *testing.T) {
	f := newFixture(t)
	f.user("Ana García")
	f.user("Mariana")
	inactive := f.user("Anabel")
	f.user("Ángela")
	require.NoError(t, f.users.UpdateActive(f.ctx, inactive.ID, false))

	found, err := f.users.FindMentionable(f.ctx, "ana")
	require.NoError(t, err)
	names := []string{}
	for _, u := range found {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{"Ana García", "Mariana"}, names)

	found, err = f.users.FindMentionable(f.ctx, "ÁNGELA")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = f.users.FindMentionable(f.ctx, "Nadie")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUserDeleteRemovesReferences(t *testing.T) {
	f := newFixture(t)
	ana := f.user("Ana")
	bob := f.user("Bob")

	anaBoard, anaCols := f.board(ana, "Todo")
	bobBoard, bobCols := f.board(bob, "Todo")
	require.NoError(t, f.boards.AddMember(f.ctx, bobBoard.ID, ana.ID, entities.MemberRoleMember))

	f.card(bobCols[0], bob, "B1")
	anaCard := f.card(bobCols[0], ana, "A-in-bob")
	f.card(bobCols[0], bob, "B2")
	f.attachment(anaCard, bob, "on-ana-card")
	bobCard := f.card(anaCols[0], bob, "bob-in-ana")
	f.attachment(bobCard, bob, "in-ana-board")

	kept := f.card(bobCols[0], bob, "B3")
	require.NoError(t, f.cards.AddAssignee(f.ctx, kept.ID, ana.ID))
	require.NoError(t, f.comments.Create(f.ctx, &entities.Comment{CardID: kept.ID, UserID: ana.ID, Content: "x"}, nil))
	bobComment := &entities.Comment{CardID: kept.ID, UserID: bob.ID, Content: "@Ana"}
	require.NoError(t, f.comments.Create(f.ctx, bobComment, []*entities.Mention{{UserID: ana.ID}}))
	f.attachment(kept, ana, "uploaded-by-ana")

	touched, err := f.users.CardColumns(f.ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bobCols[0].ID}, touched)

	keys, err := f.users.Delete(f.ctx, ana.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"on-ana-card", "in-ana-board", "uploaded-by-ana"}, keys)

	_, err = f.users.GetByID(f.ctx, ana.ID)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
	_, err = f.boards.GetByID(f.ctx, anaBoard.ID)
	assert.ErrorIs(t, err, entities.ErrBoardNotFound)

	assert.Equal(t, []string{"B1", "B2", "B3"}, f.titles(bobCols[0].ID))
	assert.Zero(t, f.count("card_assignees"))
	assert.Zero(t, f.count("mentions"))
	assert.Zero(t, f.count("attachments"))
	assert.Equal(t, 1, f.count("comments"))
	assert.Equal(t, 1, f.count("board_members"))

	_, err = f.users.Delete(f.ctx, ana.ID)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
}

func TestDepartmentsStayDense(t *testing.T) {
	f := newFixture(t)

	names := []string{"Ventas", "Marketing", "IT"}
	var depts []*entities.Department
	for i, name := range names {
		d := &entities.Department{Name: name}
		require.NoError(t, f.departments.Create(f.ctx, d))
		assert.Equal(t, i, d.Position)
		depts = append(depts, d)
	}

	err := f.departments.Create(f.ctx, &entities.Department{Name: "IT"})
	assert.ErrorIs(t, err, entities.ErrDepartmentExists)

	require.NoError(t, f.departments.Delete(f.ctx, depts[0].ID))
	list, err := f.departments.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Marketing", list[0].Name)
	assert.Equal(t, 0, list[0].Position)
	assert.Equal(t, 1, list[1].Position)

	err = f.departments.Rename(f.ctx, depts[1].ID, "IT")
	assert.ErrorIs(t, err, entities.ErrDepartmentExists)

	err = f.departments.Delete(f.ctx, depts[0].ID)
	assert.ErrorIs(t, err, entities.ErrDepartmentNotFound)
}

func TestCommentWithMentions(t *testing.T) {
	f := newFixture(t)
	ana := f.user("Ana")
	bob := f.user("Bob")
	_, cols := f.board(ana, "Todo")
	card := f.card(cols[0], ana, "A")

	c := &entities.Comment{CardID: card.ID, UserID: bob.ID, Content: "@Ana mira"}
	require.NoError(t, f.comments.Create(f.ctx, c, []*entities.Mention{{UserID: ana.ID}}))
	assert.Equal(t, "Bob", c.UserName)

	mentions, err := f.comments.ListMentions(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, ana.ID, mentions[0].UserID)
	assert.Equal(t, card.ID, mentions[0].CardID)

	list, err := f.comments.ListByCard(f.ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].UserName)

	require.NoError(t, f.comments.Delete(f.ctx, c.ID))
	assert.Zero(t, f.count("mentions"))

	err = f.comments.Create(f.ctx, &entities.Comment{CardID: uuid.New(), UserID: bob.ID, Content: "x"}, nil)
	assert.ErrorIs(t, err, entities.ErrCardNotFound)
}
