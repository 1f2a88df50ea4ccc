package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/adapters/botframework"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
)

// ActivityHandler computes the replies for an inbound activity.
type ActivityHandler interface {
	Handle(ctx context.Context, act *botframework.Activity) ([]*botframework.Activity, error)
}

// ActivityVerifier authenticates inbound activities.
type ActivityVerifier interface {
	Verify(authHeader string, act *botframework.Activity) error
}

// Replier posts a reply into the conversation it answers.
type Replier interface {
	Reply(ctx context.Context, act *botframework.Activity) error
}

// BotHandler is the messaging endpoint the Bot Framework channel calls.
type BotHandler struct {
	bot      ActivityHandler
	verifier ActivityVerifier
	replier  Replier
	logger   *logger.Logger
}

// NewBotHandler creates the bot endpoint. A nil verifier accepts every
// activity; use it only for local emulator sessions.
func NewBotHandler(bot ActivityHandler, verifier ActivityVerifier, replier Replier, logger *logger.Logger) *BotHandler {
	return &BotHandler{
		bot:      bot,
		verifier: verifier,
		replier:  replier,
		logger:   logger.WithComponent("bot_endpoint"),
	}
}

// Messages godoc
// @Summary Bot Framework messaging endpoint
// @Tags bot
// @Accept json
// @Param activity body botframework.Activity true "Activity"
// @Success 200
// @Failure 400 {object} ports.ErrorResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /messages [post]
func (h *BotHandler) Messages(c echo.Context) error {
	var act botframework.Activity
	if err := c.Bind(&act); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid activity")
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(c.Request().Header.Get(echo.HeaderAuthorization), &act); err != nil {
			h.logger.LogSecurityEvent("bot_auth_failed", "", c.RealIP(), map[string]interface{}{
				"error":   err.Error(),
				"channel": act.ChannelID,
			})
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
	}

	ctx := c.Request().Context()
	replies, err := h.bot.Handle(ctx, &act)
	if err != nil {
		return toHTTPError(err)
	}

	for _, r := range replies {
		if err := h.replier.Reply(ctx, r); err != nil {
			h.logger.Errorw("Failed to send bot reply",
				"error", err,
				"conversation", act.Conversation.ID,
			)
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to send reply")
		}
	}
	return c.NoContent(http.StatusOK)
}
