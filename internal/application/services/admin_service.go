package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// AdminService manages accounts and the department list.
type AdminService struct {
	users       ports.UserRepository
	departments ports.DepartmentRepository
	storage     ports.ObjectStorage
	locker      lock.Locker
	bcryptCost  int
	logger      *logger.Logger
}

func NewAdminService(
	users ports.UserRepository,
	departments ports.DepartmentRepository,
	storage ports.ObjectStorage,
	locker lock.Locker,
	bcryptCost int,
	log *logger.Logger,
) *AdminService {
	return &AdminService{
		users:       users,
		departments: departments,
		storage:     storage,
		locker:      locker,
		bcryptCost:  bcryptCost,
		logger:      log.WithComponent("admin"),
	}
}

// requireAdmin checks the stored role, not the one in the token.
func (s *AdminService) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		s.logger.LogSecurityEvent("admin_denied", actorID.String(), "", nil)
		return entities.ErrForbidden
	}
	return nil
}

func (s *AdminService) requireOther(ctx context.Context, actorID, userID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if actorID == userID {
		return entities.ErrSelfTarget
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, actorID uuid.UUID) ([]*entities.AdminUserView, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.users.ListForAdmin(ctx)
}

func (s *AdminService) CreateUser(ctx context.Context, actorID uuid.UUID, req ports.CreateUserRequest) (*entities.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	user, err := createUser(ctx, s.users, s.bcryptCost, req)
	if err != nil {
		return nil, err
	}
	s.logger.LogUserAction(actorID.String(), "create_user", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// Seed creates an account without an acting admin. It backs the operator
// CLI and is not reachable over HTTP.
func (s *AdminService) Seed(ctx context.Context, req ports.CreateUserRequest) (*entities.User, error) {
	user, err := createUser(ctx, s.users, s.bcryptCost, req)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Seeded user", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// DeleteUser removes the account with everything it owns, then the stored
// attachment payloads.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if err := s.requireOther(ctx, actorID, userID); err != nil {
		return err
	}
	keys, err := s.deleteLocked(ctx, userID)
	if err != nil {
		return err
	}
	deleteObjects(ctx, s.storage, keys, s.logger.Warnw)
	s.logger.LogUserAction(actorID.String(), "delete_user", map[string]interface{}{"user_id": userID, "objects": len(keys)})
	return nil
}

// deleteLocked removes the user while holding the locks of every column
// the delete renumbers. A card created meanwhile in a column outside the
// locked set forces another round.
func (s *AdminService) deleteLocked(ctx context.Context, userID uuid.UUID) ([]string, error) {
	columns, err := s.users.CardColumns(ctx, userID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < moveAttempts; attempt++ {
		release, err := lock.LockMany(ctx, s.locker, columnKeys(columns)...)
		if err != nil {
			return nil, err
		}

		current, err := s.users.CardColumns(ctx, userID)
		if err != nil {
			release()
			return nil, err
		}
		if !coversColumns(columns, current) {
			release()
			columns = current
			continue
		}

		keys, err := s.users.Delete(ctx, userID)
		release()
		return keys, err
	}
	return nil, fmt.Errorf("user %s kept adding cards: %w", userID, entities.ErrConflict)
}

func columnKeys(ids []uuid.UUID) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = lock.ColumnKey(id.String())
	}
	return keys
}

func coversColumns(locked, needed []uuid.UUID) bool {
	held := make(map[uuid.UUID]bool, len(locked))
	for _, id := range locked {
		held[id] = true
	}
	for _, id := range needed {
		if !held[id] {
			return false
		}
	}
	return true
}

func (s *AdminService) SetRole(ctx context.Context, actorID, userID uuid.UUID, role entities.UserRole) error {
	if err := s.requireOther(ctx, actorID, userID); err != nil {
		return err
	}
	if !role.IsValid() {
		return entities.Invalid("unknown role %q", role)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.LogUserAction(actorID.String(), "set_role", map[string]interface{}{"user_id": userID, "role": role})
	return nil
}

func (s *AdminService) SetActive(ctx context.Context, actorID, userID uuid.UUID, active bool) error {
	if err := s.requireOther(ctx, actorID, userID); err != nil {
		return err
	}
	if err := s.users.UpdateActive(ctx, userID, active); err != nil {
		return err
	}
	s.logger.LogUserAction(actorID.String(), "set_active", map[string]interface{}{"user_id": userID, "active": active})
	return nil
}

func (s *AdminService) ListDepartments(ctx context.Context, actorID uuid.UUID) ([]*entities.Department, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.departments.List(ctx)
}

// PublicDepartments lists departments for the registration form.
func (s *AdminService) PublicDepartments(ctx context.Context) ([]*entities.Department, error) {
	return s.departments.List(ctx)
}

func (s *AdminService) CreateDepartment(ctx context.Context, actorID uuid.UUID, name string) (*entities.Department, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entities.Invalid("department name is required")
	}
	dept := &entities.Department{Name: name}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

func (s *AdminService) RenameDepartment(ctx context.Context, actorID, id uuid.UUID, name string) (*entities.Department, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entities.Invalid("department name is required")
	}
	if err := s.departments.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	return s.departments.GetByID(ctx, id)
}

func (s *AdminService) DeleteDepartment(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.departments.Delete(ctx, id)
}
