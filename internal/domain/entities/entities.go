package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Error kinds. Handlers map these to HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// Common errors
var (
	ErrBoardNotFound      = fmt.Errorf("board %w", ErrNotFound)
	ErrColumnNotFound     = fmt.Errorf("column %w", ErrNotFound)
	ErrCardNotFound       = fmt.Errorf("card %w", ErrNotFound)
	ErrCommentNotFound    = fmt.Errorf("comment %w", ErrNotFound)
	ErrLabelNotFound      = fmt.Errorf("label %w", ErrNotFound)
	ErrAttachmentNotFound = fmt.Errorf("attachment %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("department %w", ErrNotFound)

	ErrNoBoardAccess    = fmt.Errorf("no access to board: %w", ErrForbidden)
	ErrSelfTarget       = fmt.Errorf("cannot target your own account: %w", ErrForbidden)
	ErrAccountInactive  = fmt.Errorf("account is inactive: %w", ErrForbidden)
	ErrEmailTaken       = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrDepartmentExists = fmt.Errorf("department already exists: %w", ErrConflict)
	ErrInvalidLinkCode  = fmt.Errorf("%w: link code is invalid or expired", ErrInvalidInput)
)

// Invalid builds a validation error for a user-facing message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// User represents an account. Bot-linking fields are set once the user
// claims a link code issued in the chat client.
type User struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Email                string    `json:"email" db:"email"`
	PasswordHash         string    `json:"-" db:"password_hash"`
	Name                 string    `json:"name" db:"name"`
	Department           *string   `json:"department" db:"department"`
	Role                 UserRole  `json:"role" db:"role"`
	Active               bool      `json:"active" db:"active"`
	TeamsUserID          *string   `json:"-" db:"teams_user_id"`
	TeamsConversationRef *string   `json:"-" db:"teams_conversation_ref"`
	TeamsWebhook         *string   `json:"-" db:"teams_webhook"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// UserSummary is the public projection used for assignees and member lists.
type UserSummary struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Department *string   `json:"department" db:"department"`
}

// AdminUserView adds the notification status admins see in the user list.
type AdminUserView struct {
	User
	TeamsLinked bool `json:"teams_linked" db:"teams_linked"`
	HasWebhook  bool `json:"has_webhook" db:"has_webhook"`
}

// Department is an admin-managed list used by the registration form.
type Department struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Position int       `json:"position" db:"position"`
}

// Board is the top-level aggregate.
type Board struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BoardMember is a user listed in a board's membership.
type BoardMember struct {
	UserSummary
	Role MemberRole `json:"role" db:"role"`
}

// Column orders cards left to right on a board.
type Column struct {
	ID       uuid.UUID `json:"id" db:"id"`
	BoardID  uuid.UUID `json:"board_id" db:"board_id"`
	Name     string    `json:"name" db:"name"`
	Position int       `json:"position" db:"position"`
	Cards    []*Card   `json:"cards,omitempty"`
}

// Card is a unit of work inside a column.
type Card struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ColumnID      uuid.UUID     `json:"column_id" db:"column_id"`
	BoardID       uuid.UUID     `json:"board_id" db:"board_id"`
	Title         string        `json:"title" db:"title"`
	Description   *string       `json:"description" db:"description"`
	Priority      *Priority     `json:"priority" db:"priority"`
	DueDate       *time.Time    `json:"due_date" db:"due_date"`
	Position      int           `json:"position" db:"position"`
	CreatedBy     uuid.UUID     `json:"created_by" db:"created_by"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	CommentsCount int           `json:"comments_count" db:"comments_count"`
	Assignees     []UserSummary `json:"assignees"`
	Labels        []Label       `json:"labels"`
}

// Label is a colored tag owned by a single card.
type Label struct {
	ID     uuid.UUID `json:"id" db:"id"`
	CardID uuid.UUID `json:"card_id" db:"card_id"`
	Name   string    `json:"name" db:"name"`
	Color  string    `json:"color" db:"color"`
}

// Comment is free text on a card. Content may carry @name mention tokens.
type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CardID    uuid.UUID `json:"card_id" db:"card_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	UserName  string    `json:"user_name" db:"user_name"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Mention records that a comment referenced a user.
type Mention struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CommentID uuid.UUID `json:"comment_id" db:"comment_id"`
	CardID    uuid.UUID `json:"card_id" db:"card_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Attachment points at a file kept in external object storage.
type Attachment struct {
	ID             uuid.UUID `json:"id" db:"id"`
	CardID         uuid.UUID `json:"card_id" db:"card_id"`
	Filename       string    `json:"filename" db:"filename"`
	URL            string    `json:"url" db:"url"`
	StorageKey     string    `json:"public_id" db:"storage_key"`
	FileType       string    `json:"file_type" db:"file_type"`
	FileSize       int64     `json:"file_size" db:"file_size"`
	UploadedBy     uuid.UUID `json:"uploaded_by" db:"uploaded_by"`
	UploadedByName string    `json:"uploaded_by_name" db:"uploaded_by_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// BoardDetail is the nested read model returned by GET /boards/:id.
type BoardDetail struct {
	Board   *Board    `json:"board"`
	Columns []*Column `json:"columns"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasBotLink reports whether proactive bot messages can reach the user.
func (u *User) HasBotLink() bool {
	return u.TeamsConversationRef != nil && *u.TeamsConversationRef != ""
}

// HasWebhook reports whether an outbound webhook is configured.
func (u *User) HasWebhook() bool {
	return u.TeamsWebhook != nil && *u.TeamsWebhook != ""
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Department: u.Department}
}

func (ur UserRole) IsValid() bool {
	switch ur {
	case UserRoleAdmin, UserRoleUser:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// ParsePriority accepts English and Spanish spellings. An empty string
// yields nil so callers can clear the field.
func ParsePriority(s string) (*Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "low", "baja":
		p := PriorityLow
		return &p, nil
	case "medium", "media":
		p := PriorityMedium
		return &p, nil
	case "high", "alta":
		p := PriorityHigh
		return &p, nil
	case "urgent", "urgente":
		p := PriorityUrgent
		return &p, nil
	default:
		return nil, Invalid("unknown priority %q", s)
	}
}

// ParseDueDate accepts YYYY-MM-DD or RFC 3339. An empty string yields nil.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, Invalid("invalid due date %q, expected YYYY-MM-DD", s)
}
