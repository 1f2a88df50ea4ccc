package ports

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Profile(ctx context.Context, userID uuid.UUID) (*entities.User, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// UserService covers the self-service user endpoints.
type UserService interface {
	List(ctx context.Context) ([]entities.UserSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.UserSummary, error)
	Settings(ctx context.Context, userID uuid.UUID) (*UserSettings, error)
	SetWebhook(ctx context.Context, userID uuid.UUID, webhookURL string) error
	ClaimTeamsLink(ctx context.Context, userID uuid.UUID, code string) (*UserSettings, error)
	UnlinkTeams(ctx context.Context, userID uuid.UUID) error
}

// AdminService covers user and department administration. Every method
// takes the acting user and fails with ErrForbidden unless it is an admin.
type AdminService interface {
	ListUsers(ctx context.Context, actorID uuid.UUID) ([]*entities.AdminUserView, error)
	CreateUser(ctx context.Context, actorID uuid.UUID, req CreateUserRequest) (*entities.User, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
	SetRole(ctx context.Context, actorID, userID uuid.UUID, role entities.UserRole) error
	SetActive(ctx context.Context, actorID, userID uuid.UUID, active bool) error
	ListDepartments(ctx context.Context, actorID uuid.UUID) ([]*entities.Department, error)
	// PublicDepartments needs no actor; the registration form lists them.
	PublicDepartments(ctx context.Context) ([]*entities.Department, error)
	CreateDepartment(ctx context.Context, actorID uuid.UUID, name string) (*entities.Department, error)
	RenameDepartment(ctx context.Context, actorID, id uuid.UUID, name string) (*entities.Department, error)
	DeleteDepartment(ctx context.Context, actorID, id uuid.UUID) error
}

// BoardService interface for board operations
type BoardService interface {
	List(ctx context.Context, actorID uuid.UUID) ([]*entities.Board, error)
	Get(ctx context.Context, actorID, boardID uuid.UUID) (*entities.BoardDetail, error)
	Create(ctx context.Context, actorID uuid.UUID, req CreateBoardRequest) (*entities.Board, error)
	Update(ctx context.Context, actorID, boardID uuid.UUID, req UpdateBoardRequest) (*entities.Board, error)
	Delete(ctx context.Context, actorID, boardID uuid.UUID) error
	ListMembers(ctx context.Context, actorID, boardID uuid.UUID) ([]entities.BoardMember, error)
	AddMember(ctx context.Context, actorID, boardID uuid.UUID, req AddMemberRequest) error
}

// ColumnService interface for column operations
type ColumnService interface {
	Create(ctx context.Context, actorID, boardID uuid.UUID, req CreateColumnRequest) (*entities.Column, error)
	Update(ctx context.Context, actorID, columnID uuid.UUID, req UpdateColumnRequest) (*entities.Column, error)
	Delete(ctx context.Context, actorID, columnID uuid.UUID) error
}

// CardService interface for card operations
type CardService interface {
	Create(ctx context.Context, actorID, columnID uuid.UUID, req CreateCardRequest) (*entities.Card, error)
	Get(ctx context.Context, actorID, cardID uuid.UUID) (*entities.Card, error)
	Update(ctx context.Context, actorID, cardID uuid.UUID, req UpdateCardRequest) (*entities.Card, error)
	Move(ctx context.Context, actorID, cardID uuid.UUID, req MoveCardRequest) (*entities.Card, error)
	Delete(ctx context.Context, actorID, cardID uuid.UUID) error
	AddAssignee(ctx context.Context, actorID, cardID, userID uuid.UUID) (*entities.Card, error)
	RemoveAssignee(ctx context.Context, actorID, cardID, userID uuid.UUID) (*entities.Card, error)
	AddLabel(ctx context.Context, actorID, cardID uuid.UUID, req AddLabelRequest) (*entities.Label, error)
	RemoveLabel(ctx context.Context, actorID, cardID, labelID uuid.UUID) error
}

// CommentService interface for comment operations
type CommentService interface {
	List(ctx context.Context, actorID, cardID uuid.UUID) ([]*entities.Comment, error)
	Create(ctx context.Context, actorID, cardID uuid.UUID, req CreateCommentRequest) (*entities.Comment, error)
	Delete(ctx context.Context, actorID, commentID uuid.UUID) error
}

// AttachmentService interface for attachment operations
type AttachmentService interface {
	List(ctx context.Context, actorID, cardID uuid.UUID) ([]*entities.Attachment, error)
	Upload(ctx context.Context, actorID, cardID uuid.UUID, req UploadRequest) (*entities.Attachment, error)
	Delete(ctx context.Context, actorID, attachmentID uuid.UUID) error
}

// MentionNotification is everything a channel needs to tell a user they
// were mentioned.
type MentionNotification struct {
	Recipient     *entities.User
	MentionerName string
	BoardName     string
	CardTitle     string
	Comment       string
	CardURL       string
}

// Notifier delivers mention notifications. Delivery happens in the
// background; failures never reach the caller.
type Notifier interface {
	NotifyMention(n MentionNotification)
}

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6"`
	Name       string  `json:"name" validate:"required,max=120"`
	Department *string `json:"department" validate:"omitempty,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresIn int64          `json:"expires_in"`
	User      *entities.User `json:"user"`
}

type Claims struct {
	UserID uuid.UUID         `json:"user_id"`
	Email  string            `json:"email"`
	Name   string            `json:"name"`
	Role   entities.UserRole `json:"role"`
}

// User related types
type UserSettings struct {
	TeamsLinked  bool    `json:"teams_linked"`
	TeamsWebhook *string `json:"teams_webhook"`
}

type WebhookRequest struct {
	WebhookURL string `json:"webhookUrl" validate:"omitempty,url"`
}

type TeamsLinkRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

type CreateUserRequest struct {
	Email      string            `json:"email" validate:"required,email"`
	Password   string            `json:"password" validate:"required,min=6"`
	Name       string            `json:"name" validate:"required,max=120"`
	Department *string           `json:"department" validate:"omitempty,max=120"`
	Role       entities.UserRole `json:"role" validate:"omitempty,oneof=admin user"`
}

type RoleRequest struct {
	Role entities.UserRole `json:"role" validate:"required,oneof=admin user"`
}

type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type DepartmentRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// Board related types
type CreateBoardRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateBoardRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type AddMemberRequest struct {
	UserID uuid.UUID           `json:"userId" validate:"required"`
	Role   entities.MemberRole `json:"role" validate:"omitempty,oneof=admin member"`
}

// Column related types
type CreateColumnRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type UpdateColumnRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Position *int    `json:"position"`
}

// Card related types

// CreateCardRequest carries optional fields as strings so both the web
// client and the bot can send them. Priority accepts English or Spanish
// names; DueDate accepts YYYY-MM-DD or RFC 3339.
type CreateCardRequest struct {
	Title       string      `json:"title" validate:"required,max=500"`
	Description *string     `json:"description" validate:"omitempty,max=5000"`
	Priority    *string     `json:"priority"`
	DueDate     *string     `json:"due_date"`
	AssigneeIDs []uuid.UUID `json:"assignees"`
}

// UpdateCardRequest leaves nil fields untouched; an empty string clears
// an optional field.
type UpdateCardRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=500"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

type MoveCardRequest struct {
	ColumnID uuid.UUID `json:"columnId" validate:"required"`
	Position int       `json:"position"`
}

type AssigneeRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

type AddLabelRequest struct {
	Name  string `json:"name" validate:"required,max=60"`
	Color string `json:"color" validate:"required,max=30"`
}

// Comment related types
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// UploadRequest describes a single multipart file.
type UploadRequest struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
