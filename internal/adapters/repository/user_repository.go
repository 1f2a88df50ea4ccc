package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/ports"
)

const userColumns = `id, email, password_hash, name, department, role, active,
	teams_user_id, teams_conversation_ref, teams_webhook, created_at`

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = entities.UserRoleUser
	}
	user.CreatedAt = now()

	_, err := execx(ctx, r.db.DB, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Department, user.Role, user.Active,
		user.TeamsUserID, user.TeamsConversationRef, user.TeamsWebhook, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepositoryImpl) getBy(ctx context.Context, column string, value interface{}) (*entities.User, error) {
	var user entities.User
	err := getx(ctx, r.db.DB, &user, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		if isNoRows(err) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return &user, nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepositoryImpl) GetByTeamsUserID(ctx context.Context, teamsUserID string) (*entities.User, error) {
	return r.getBy(ctx, "teams_user_id", teamsUserID)
}

func (r *UserRepositoryImpl) ListSummaries(ctx context.Context) ([]entities.UserSummary, error) {
	users := []entities.UserSummary{}
	err := selectx(ctx, r.db.DB, &users,
		`SELECT id, name, email, department FROM users WHERE active = ? ORDER BY name, id`, true)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepositoryImpl) ListForAdmin(ctx context.Context) ([]*entities.AdminUserView, error) {
	var users []*entities.User
	if err := selectx(ctx, r.db.DB, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`); err != nil {
		return nil, fmt.Errorf("list users for admin: %w", err)
	}

	views := make([]*entities.AdminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, &entities.AdminUserView{
			User:        *u,
			TeamsLinked: u.HasBotLink(),
			HasWebhook:  u.HasWebhook(),
		})
	}
	return views, nil
}

// FindMentionable filters in Go so that case folding covers accented
// names on every driver.
func (r *UserRepositoryImpl) FindMentionable(ctx context.Context, token string) ([]*entities.User, error) {
	var users []*entities.User
	if err := selectx(ctx, r.db.DB, &users, `SELECT `+userColumns+` FROM users WHERE active = ?`, true); err != nil {
		return nil, fmt.Errorf("find mentionable users: %w", err)
	}

	needle := strings.ToLower(token)
	matches := make([]*entities.User, 0)
	for _, u := range users {
		if needle != "" && strings.Contains(strings.ToLower(u.Name), needle) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

func (r *UserRepositoryImpl) UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrUserNotFound,
		`UPDATE users SET role = ? WHERE id = ?`, role, id); err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) UpdateActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrUserNotFound,
		`UPDATE users SET active = ? WHERE id = ?`, active, id); err != nil {
		return fmt.Errorf("update user active: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) SetTeamsWebhook(ctx context.Context, id uuid.UUID, webhook *string) error {
	if err := execAffected(ctx, r.db.DB, entities.ErrUserNotFound,
		`UPDATE users SET teams_webhook = ? WHERE id = ?`, webhook, id); err != nil {
		return fmt.Errorf("set teams webhook: %w", err)
	}
	return nil
}

// SetTeamsLink stores the chat identity. A chat account links to at most
// one user, so any previous owner of teamsUserID is unlinked first.
func (r *UserRepositoryImpl) SetTeamsLink(ctx context.Context, id uuid.UUID, teamsUserID, conversationRef *string) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if teamsUserID != nil {
			if _, err := execx(ctx, tx,
				`UPDATE users SET teams_user_id = NULL, teams_conversation_ref = NULL WHERE teams_user_id = ? AND id <> ?`,
				*teamsUserID, id); err != nil {
				return fmt.Errorf("release previous teams link: %w", err)
			}
		}
		if err := execAffected(ctx, tx, entities.ErrUserNotFound,
			`UPDATE users SET teams_user_id = ?, teams_conversation_ref = ? WHERE id = ?`,
			teamsUserID, conversationRef, id); err != nil {
			return fmt.Errorf("set teams link: %w", err)
		}
		return nil
	})
}

// cardColumnsQuery finds columns on boards owned by someone else that hold
// cards the user created.
const cardColumnsQuery = `
	SELECT DISTINCT c.column_id FROM cards c
	JOIN board_columns bc ON bc.id = c.column_id
	JOIN boards b ON b.id = bc.board_id
	WHERE c.created_by = ? AND b.owner_id <> ?
	ORDER BY c.column_id`

// CardColumns lists the columns Delete would compact.
func (r *UserRepositoryImpl) CardColumns(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	columns := []uuid.UUID{}
	if err := selectx(ctx, r.db.DB, &columns, cardColumnsQuery, id, id); err != nil {
		return nil, fmt.Errorf("list card columns: %w", err)
	}
	return columns, nil
}

// Delete removes rows that do not cascade (attachments uploaded, comments
// written, cards created, boards owned) before the cascading ones, then
// compacts the columns that lost cards.
func (r *UserRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := selectx(ctx, tx, &keys, `
			SELECT storage_key FROM attachments
			WHERE uploaded_by = ?
				OR card_id IN (SELECT id FROM cards WHERE created_by = ?)
				OR card_id IN (
					SELECT c.id FROM cards c
					JOIN board_columns bc ON bc.id = c.column_id
					JOIN boards b ON b.id = bc.board_id
					WHERE b.owner_id = ?)`, id, id, id); err != nil {
			return fmt.Errorf("collect attachment keys: %w", err)
		}

		var touched []uuid.UUID
		if err := selectx(ctx, tx, &touched, cardColumnsQuery, id, id); err != nil {
			return fmt.Errorf("collect touched columns: %w", err)
		}

		steps := []struct{ what, query string }{
			{"attachments", `DELETE FROM attachments WHERE uploaded_by = ?`},
			{"comments", `DELETE FROM comments WHERE user_id = ?`},
			{"cards", `DELETE FROM cards WHERE created_by = ?`},
			{"boards", `DELETE FROM boards WHERE owner_id = ?`},
			{"assignments", `DELETE FROM card_assignees WHERE user_id = ?`},
			{"memberships", `DELETE FROM board_members WHERE user_id = ?`},
			{"mentions", `DELETE FROM mentions WHERE user_id = ?`},
		}
		for _, step := range steps {
			if _, err := execx(ctx, tx, step.query, id); err != nil {
				return fmt.Errorf("delete user %s: %w", step.what, err)
			}
		}

		if err := execAffected(ctx, tx, entities.ErrUserNotFound, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return err
		}

		for _, columnID := range touched {
			if err := compactCards(ctx, tx, columnID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return keys, nil
}
