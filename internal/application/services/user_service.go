package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// UserService handles user-related operations
type UserService struct {
	userRepo ports.UserRepository
	links    ports.LinkStore
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, links ports.LinkStore, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		links:    links,
		logger:   logger,
	}
}

// List returns every user in the directory, for assignee and member pickers.
func (s *UserService) List(ctx context.Context) ([]entities.UserSummary, error) {
	return s.userRepo.ListSummaries(ctx)
}

// Get returns the public projection of one user.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*entities.UserSummary, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := u.Summary()
	return &summary, nil
}

func (s *UserService) Settings(ctx context.Context, userID uuid.UUID) (*ports.UserSettings, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return settingsOf(u), nil
}

// SetWebhook stores the user's incoming webhook. An empty URL clears it.
func (s *UserService) SetWebhook(ctx context.Context, userID uuid.UUID, webhookURL string) error {
	var webhook *string
	if trimmed := strings.TrimSpace(webhookURL); trimmed != "" {
		if !strings.HasPrefix(trimmed, "https://") && !strings.HasPrefix(trimmed, "http://") {
			return entities.Invalid("webhook must be an http(s) URL")
		}
		webhook = &trimmed
	}
	if err := s.userRepo.SetTeamsWebhook(ctx, userID, webhook); err != nil {
		return err
	}
	s.logger.LogUserAction(userID.String(), "set_webhook", map[string]interface{}{"enabled": webhook != nil})
	return nil
}

// ClaimTeamsLink binds the chat account that requested code to userID.
func (s *UserService) ClaimTeamsLink(ctx context.Context, userID uuid.UUID, code string) (*ports.UserSettings, error) {
	link, err := s.links.Claim(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetTeamsLink(ctx, userID, &link.TeamsUserID, &link.ConversationRef); err != nil {
		return nil, fmt.Errorf("link teams account: %w", err)
	}
	s.logger.LogUserAction(userID.String(), "link_teams", map[string]interface{}{"teams_user": link.TeamsUserName})
	return s.Settings(ctx, userID)
}

func (s *UserService) UnlinkTeams(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetTeamsLink(ctx, userID, nil, nil); err != nil {
		return err
	}
	s.logger.LogUserAction(userID.String(), "unlink_teams", nil)
	return nil
}

func settingsOf(u *entities.User) *ports.UserSettings {
	return &ports.UserSettings{
		TeamsLinked:  u.TeamsUserID != nil && *u.TeamsUserID != "",
		TeamsWebhook: u.TeamsWebhook,
	}
}
