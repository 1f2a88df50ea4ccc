package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/ports"
)

func TestAdminRequiresAdminRole(t *testing.T) {
	f := newFixture(t)
	user := f.user("User")
	other := f.user("Other")

	_, err := f.admin.ListUsers(f.ctx, user.ID)
	assert.ErrorIs(t, err, entities.ErrForbidden)
	assert.ErrorIs(t, f.admin.SetRole(f.ctx, user.ID, other.ID, entities.UserRoleAdmin), entities.ErrForbidden)
	_, err = f.admin.CreateDepartment(f.ctx, user.ID, "IT")
	assert.ErrorIs(t, err, entities.ErrForbidden)
}

func TestAdminCannotTargetSelf(t *testing.T) {
	f := newFixture(t)
	admin := f.userWithRole("Admin", entities.UserRoleAdmin)

	assert.ErrorIs(t, f.admin.DeleteUser(f.ctx, admin.ID, admin.ID), entities.ErrSelfTarget)
	assert.ErrorIs(t, f.admin.SetRole(f.ctx, admin.ID, admin.ID, entities.UserRoleUser), entities.ErrSelfTarget)
	assert.ErrorIs(t, f.admin.SetActive(f.ctx, admin.ID, admin.ID, false), entities.ErrSelfTarget)
}

func TestAdminManagesUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.userWithRole("Admin", entities.UserRoleAdmin)

	created, err := f.admin.CreateUser(f.ctx, admin.ID, ports.CreateUserRequest{
		Email: "new@example.test", Password: "secret1", Name: "New", Role: entities.UserRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, created.Role)

	_, err = f.admin.CreateUser(f.ctx, admin.ID, ports.CreateUserRequest{Email: "x@example.test", Password: "secret1", Name: "X", Role: "root"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	require.NoError(t, f.admin.SetRole(f.ctx, admin.ID, created.ID, entities.UserRoleUser))
	require.NoError(t, f.admin.SetActive(f.ctx, admin.ID, created.ID, false))
	got, err := f.users.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleUser, got.Role)
	assert.False(t, got.Active)

	users, err := f.admin.ListUsers(f.ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdminDeleteUserRemovesOwnedData(t *testing.T) {
	f := newFixture(t)
	admin := f.userWithRole("Admin", entities.UserRoleAdmin)
	gone := f.user("Gone")
	board, columns := f.board(gone, "Doomed")
	card := f.card(gone, columns[0], "T")
	a, err := f.attachments.Upload(f.ctx, gone.ID, card.ID, upload("x.pdf", "%PDF"))
	require.NoError(t, err)

	require.NoError(t, f.admin.DeleteUser(f.ctx, admin.ID, gone.ID))

	_, err = f.users.GetByID(f.ctx, gone.ID)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
	_, err = f.boardsRepo.GetByID(f.ctx, board.ID)
	assert.ErrorIs(t, err, entities.ErrBoardNotFound)
	assert.Equal(t, []string{a.StorageKey}, f.storage.deleted)

	assert.ErrorIs(t, f.admin.DeleteUser(f.ctx, admin.ID, gone.ID), entities.ErrUserNotFound)
}

func TestAdminDeleteUserHoldsColumnLocks(t *testing.T) {
	f := newFixture(t)
	admin := f.userWithRole("Admin", entities.UserRoleAdmin)
	owner := f.user("Owner")
	gone := f.user("Gone")
	board, columns := f.board(owner, "Shared")
	require.NoError(t, f.boards.AddMember(f.ctx, owner.ID, board.ID, ports.AddMemberRequest{UserID: gone.ID}))
	f.card(owner, columns[0], "A")
	f.card(gone, columns[0], "B")
	f.card(owner, columns[0], "C")

	release, err := f.locker.Lock(f.ctx, lock.ColumnKey(columns[0].ID.String()))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(f.ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.admin.DeleteUser(ctx, admin.ID, gone.ID), context.DeadlineExceeded)
	_, err = f.users.GetByID(f.ctx, gone.ID)
	require.NoError(t, err, "delete must not run without the column lock")
	release()

	require.NoError(t, f.admin.DeleteUser(f.ctx, admin.ID, gone.ID))
	assert.Equal(t, []string{"A", "C"}, f.titles(columns[0]))
}

func TestAdminDepartments(t *testing.T) {
	f := newFixture(t)
	admin := f.userWithRole("Admin", entities.UserRoleAdmin)

	it, err := f.admin.CreateDepartment(f.ctx, admin.ID, " IT ")
	require.NoError(t, err)
	assert.Equal(t, "IT", it.Name)
	_, err = f.admin.CreateDepartment(f.ctx, admin.ID, "IT")
	assert.ErrorIs(t, err, entities.ErrDepartmentExists)

	renamed, err := f.admin.RenameDepartment(f.ctx, admin.ID, it.ID, "Sistemas")
	require.NoError(t, err)
	assert.Equal(t, "Sistemas", renamed.Name)

	public, err := f.admin.PublicDepartments(f.ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)

	require.NoError(t, f.admin.DeleteDepartment(f.ctx, admin.ID, it.ID))
	assert.ErrorIs(t, f.admin.DeleteDepartment(f.ctx, admin.ID, it.ID), entities.ErrDepartmentNotFound)
}

func TestAdminSeedNeedsNoActor(t *testing.T) {
	f := newFixture(t)

	seeded, err := f.admin.Seed(f.ctx, ports.CreateUserRequest{
		Email: " Root@Example.test ", Password: "secret1", Name: "Root", Role: entities.UserRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "root@example.test", seeded.Email)
	assert.True(t, seeded.IsAdmin())

	_, err = f.admin.Seed(f.ctx, ports.CreateUserRequest{Email: "root@example.test", Password: "secret1", Name: "Again"})
	assert.ErrorIs(t, err, entities.ErrConflict)
}
