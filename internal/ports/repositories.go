package ports

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByTeamsUserID(ctx context.Context, teamsUserID string) (*entities.User, error)
	ListSummaries(ctx context.Context) ([]entities.UserSummary, error)
	ListForAdmin(ctx context.Context) ([]*entities.AdminUserView, error)
	// FindMentionable returns active users whose name contains token,
	// compared case-insensitively.
	FindMentionable(ctx context.Context, token string) ([]*entities.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) error
	SetTeamsWebhook(ctx context.Context, id uuid.UUID, webhook *string) error
	SetTeamsLink(ctx context.Context, id uuid.UUID, teamsUserID, conversationRef *string) error
	// CardColumns returns the columns on other users' boards that hold
	// cards created by id. Delete renumbers exactly these.
	CardColumns(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	// Delete removes the user and everything that references it. It
	// returns the storage keys of attachments removed along the way.
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
}

// DepartmentRepository defines the interface for department data operations
type DepartmentRepository interface {
	Create(ctx context.Context, dept *entities.Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Department, error)
	GetByName(ctx context.Context, name string) (*entities.Department, error)
	List(ctx context.Context) ([]*entities.Department, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BoardRepository defines the interface for board data operations
type BoardRepository interface {
	// Create inserts the board, its owner as admin member and one column
	// per name, atomically.
	Create(ctx context.Context, board *entities.Board, columns []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Board, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*entities.BoardDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Board, error)
	Update(ctx context.Context, board *entities.Board) error
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
	IsMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, boardID uuid.UUID) ([]entities.BoardMember, error)
	AddMember(ctx context.Context, boardID, userID uuid.UUID, role entities.MemberRole) error
}

// ColumnRepository defines the interface for column data operations
type ColumnRepository interface {
	// Create appends the column at the end of its board.
	Create(ctx context.Context, column *entities.Column) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Column, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*entities.Column, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	// Reorder moves the column to index within its board and renumbers the rest.
	Reorder(ctx context.Context, id uuid.UUID, index int) (*entities.Column, error)
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
}

// CardRepository defines the interface for card data operations
type CardRepository interface {
	// Create appends the card at the end of its column.
	Create(ctx context.Context, card *entities.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Card, error)
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*entities.Card, error)
	Update(ctx context.Context, card *entities.Card) error
	// Move places the card at index in the target column, renumbering the
	// target and compacting the source column in one transaction.
	Move(ctx context.Context, cardID, targetColumnID uuid.UUID, index int) (*entities.Card, error)
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
	AddAssignee(ctx context.Context, cardID, userID uuid.UUID) error
	RemoveAssignee(ctx context.Context, cardID, userID uuid.UUID) error
	AddLabel(ctx context.Context, label *entities.Label) error
	RemoveLabel(ctx context.Context, cardID, labelID uuid.UUID) error
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	// Create inserts the comment together with its mention rows.
	Create(ctx context.Context, comment *entities.Comment, mentions []*entities.Mention) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Comment, error)
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*entities.Comment, error)
	ListMentions(ctx context.Context, commentID uuid.UUID) ([]*entities.Mention, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AttachmentRepository defines the interface for attachment data operations
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *entities.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Attachment, error)
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*entities.Attachment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStorage stores attachment payloads outside the database.
type ObjectStorage interface {
	// Save stores r under key and returns the URL clients download it from.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// PendingLink is a bot link request waiting to be claimed from the web client.
type PendingLink struct {
	TeamsUserID     string    `json:"teams_user_id"`
	TeamsUserName   string    `json:"teams_user_name"`
	ConversationRef string    `json:"conversation_ref"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// LinkStore keeps pending link codes until they are claimed or expire.
type LinkStore interface {
	Put(ctx context.Context, code string, link PendingLink) error
	// Claim returns and removes the link for code. Unknown or expired
	// codes yield entities.ErrInvalidLinkCode.
	Claim(ctx context.Context, code string) (*PendingLink, error)
}
