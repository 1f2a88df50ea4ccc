package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

type CommentHandler struct {
	commentService ports.CommentService
	logger         *logger.Logger
}

func NewCommentHandler(commentService ports.CommentService, logger *logger.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// ListComments godoc
// @Summary Comments of a card, oldest first
// @Tags comments
// @Produce json
// @Param id path string true "Card ID"
// @Success 200 {array} entities.Comment
// @Security BearerAuth
// @Router /cards/{id}/comments [get]
func (h *CommentHandler) ListComments(c echo.Context) error {
	cardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	comments, err := h.commentService.List(c.Request().Context(), actorID(c), cardID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

// CreateComment godoc
// @Summary Comment on a card; @mentions notify the mentioned users
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param request body ports.CreateCommentRequest true "Comment"
// @Success 201 {object} entities.Comment
// @Security BearerAuth
// @Router /cards/{id}/comments [post]
func (h *CommentHandler) CreateComment(c echo.Context) error {
	cardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.commentService.Create(c.Request().Context(), actorID(c), cardID, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.commentService.Delete(c.Request().Context(), actorID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Comment deleted"})
}
