package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// CardHandler handles card requests including moves, assignees and labels.
type CardHandler struct {
	cardService ports.CardService
	logger      *logger.Logger
}

func NewCardHandler(cardService ports.CardService, logger *logger.Logger) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		logger:      logger,
	}
}

// CreateCard godoc
// @Summary Append a card to a column
// @Tags cards
// @Accept json
// @Produce json
// @Param id path string true "Column ID"
// @Param request body ports.CreateCardRequest true "Card data"
// @Success 201 {object} entities.Card
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /columns/{id}/cards [post]
func (h *CardHandler) CreateCard(c echo.Context) error {
	columnID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.CreateCardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	card, err := h.cardService.Create(c.Request().Context(), actorID(c), columnID, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, card)
}

// GetCard godoc
// @Summary Get a card with assignees and labels
// @Tags cards
// @Produce json
// @Param id path string true "Card ID"
// @Success 200 {object} entities.Card
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /cards/{id} [get]
func (h *CardHandler) GetCard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	card, err := h.cardService.Get(c.Request().Context(), actorID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, card)
}

func (h *CardHandler) UpdateCard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.UpdateCardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	card, err := h.cardService.Update(c.Request().Context(), actorID(c), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, card)
}

// MoveCard godoc
// @Summary Move a card to a column and position
// @Description The position is clamped to the target column; both columns stay densely numbered.
// @Tags cards
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param request body ports.MoveCardRequest true "Target"
// @Success 200 {object} entities.Card
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /cards/{id}/move [patch]
func (h *CardHandler) MoveCard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.MoveCardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	card, err := h.cardService.Move(c.Request().Context(), actorID(c), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, card)
}

func (h *CardHandler) DeleteCard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.cardService.Delete(c.Request().Context(), actorID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Card deleted"})
}

func (h *CardHandler) AddAssignee(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.AssigneeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	card, err := h.cardService.AddAssignee(c.Request().Context(), actorID(c), id, req.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, card)
}

func (h *CardHandler) RemoveAssignee(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	card, err := h.cardService.RemoveAssignee(c.Request().Context(), actorID(c), id, userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, card)
}

func (h *CardHandler) AddLabel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.AddLabelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	label, err := h.cardService.AddLabel(c.Request().Context(), actorID(c), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, label)
}

func (h *CardHandler) RemoveLabel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	labelID, err := pathID(c, "labelId")
	if err != nil {
		return err
	}
	if err := h.cardService.RemoveLabel(c.Request().Context(), actorID(c), id, labelID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Label removed"})
}
