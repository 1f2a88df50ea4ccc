package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// UserHandler serves the user directory and per-user notification settings.
type UserHandler struct {
	userService ports.UserService
	logger      *logger.Logger
}

func NewUserHandler(userService ports.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} entities.UserSummary
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} entities.UserSummary
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Settings godoc
// @Summary Notification settings of the current user
// @Tags users
// @Produce json
// @Success 200 {object} ports.UserSettings
// @Security BearerAuth
// @Router /users/me/settings [get]
func (h *UserHandler) Settings(c echo.Context) error {
	settings, err := h.userService.Settings(c.Request().Context(), actorID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, settings)
}

// SetWebhook godoc
// @Summary Set or clear the notification webhook
// @Tags users
// @Accept json
// @Produce json
// @Param request body ports.WebhookRequest true "Webhook URL, empty to clear"
// @Success 200 {object} ports.MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /users/me/teams-webhook [put]
func (h *UserHandler) SetWebhook(c echo.Context) error {
	var req ports.WebhookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.userService.SetWebhook(c.Request().Context(), actorID(c), req.WebhookURL); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Webhook updated"})
}

// ClaimTeamsLink godoc
// @Summary Link the chat account that requested a code
// @Tags users
// @Accept json
// @Produce json
// @Param request body ports.TeamsLinkRequest true "Link code"
// @Success 200 {object} ports.UserSettings
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /users/me/teams-link [post]
func (h *UserHandler) ClaimTeamsLink(c echo.Context) error {
	var req ports.TeamsLinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	settings, err := h.userService.ClaimTeamsLink(c.Request().Context(), actorID(c), req.Code)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UnlinkTeams removes the chat link of the current user.
func (h *UserHandler) UnlinkTeams(c echo.Context) error {
	if err := h.userService.UnlinkTeams(c.Request().Context(), actorID(c)); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Teams account unlinked"})
}
