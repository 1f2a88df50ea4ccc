package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// BoardHandler handles board, membership and column requests
type BoardHandler struct {
	boardService  ports.BoardService
	columnService ports.ColumnService
	logger        *logger.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService ports.BoardService, columnService ports.ColumnService, logger *logger.Logger) *BoardHandler {
	return &BoardHandler{
		boardService:  boardService,
		columnService: columnService,
		logger:        logger,
	}
}

// ListBoards godoc
// @Summary Boards the current user can see
// @Tags boards
// @Produce json
// @Success 200 {array} entities.Board
// @Security BearerAuth
// @Router /boards [get]
func (h *BoardHandler) ListBoards(c echo.Context) error {
	boards, err := h.boardService.List(c.Request().Context(), actorID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, boards)
}

// CreateBoard godoc
// @Summary Create a board with the default columns
// @Tags boards
// @Accept json
// @Produce json
// @Param request body ports.CreateBoardRequest true "Board data"
// @Success 201 {object} entities.Board
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards [post]
func (h *BoardHandler) CreateBoard(c echo.Context) error {
	var req ports.CreateBoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	userID := actorID(c)
	board, err := h.boardService.Create(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(err)
	}

	h.logger.LogUserAction(userID.String(), "create_board", map[string]interface{}{
		"board_id": board.ID,
	})
	return c.JSON(http.StatusCreated, board)
}

// GetBoard godoc
// @Summary Board with its ordered columns and cards
// @Tags boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} entities.BoardDetail
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards/{id} [get]
func (h *BoardHandler) GetBoard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.boardService.Get(c.Request().Context(), actorID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *BoardHandler) UpdateBoard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.UpdateBoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	board, err := h.boardService.Update(c.Request().Context(), actorID(c), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, board)
}

// DeleteBoard godoc
// @Summary Delete a board with everything on it
// @Tags boards
// @Param id path string true "Board ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID := actorID(c)
	if err := h.boardService.Delete(c.Request().Context(), userID, id); err != nil {
		return toHTTPError(err)
	}

	h.logger.LogUserAction(userID.String(), "delete_board", map[string]interface{}{
		"board_id": id,
	})
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Board deleted"})
}

func (h *BoardHandler) ListMembers(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	members, err := h.boardService.ListMembers(c.Request().Context(), actorID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, members)
}

func (h *BoardHandler) AddMember(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.AddMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.boardService.AddMember(c.Request().Context(), actorID(c), id, req); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, ports.MessageResponse{Message: "Member added"})
}

// CreateColumn godoc
// @Summary Append a column to a board
// @Tags columns
// @Accept json
// @Produce json
// @Param id path string true "Board ID"
// @Param request body ports.CreateColumnRequest true "Column data"
// @Success 201 {object} entities.Column
// @Security BearerAuth
// @Router /boards/{id}/columns [post]
func (h *BoardHandler) CreateColumn(c echo.Context) error {
	boardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.CreateColumnRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	column, err := h.columnService.Create(c.Request().Context(), actorID(c), boardID, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, column)
}

// UpdateColumn renames and/or repositions a column.
func (h *BoardHandler) UpdateColumn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.UpdateColumnRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	column, err := h.columnService.Update(c.Request().Context(), actorID(c), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, column)
}

func (h *BoardHandler) DeleteColumn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.columnService.Delete(c.Request().Context(), actorID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Column deleted"})
}
