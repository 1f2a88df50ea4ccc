package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

type AttachmentHandler struct {
	attachmentService ports.AttachmentService
	logger            *logger.Logger
}

func NewAttachmentHandler(attachmentService ports.AttachmentService, logger *logger.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

func (h *AttachmentHandler) ListAttachments(c echo.Context) error {
	cardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	attachments, err := h.attachmentService.List(c.Request().Context(), actorID(c), cardID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, attachments)
}

// UploadAttachment godoc
// @Summary Attach a file to a card
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Card ID"
// @Param file formData file true "File"
// @Success 201 {object} entities.Attachment
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /cards/{id}/attachments [post]
func (h *AttachmentHandler) UploadAttachment(c echo.Context) error {
	cardID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}
	defer src.Close()

	attachment, err := h.attachmentService.Upload(c.Request().Context(), actorID(c), cardID, ports.UploadRequest{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        src,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, attachment)
}

func (h *AttachmentHandler) DeleteAttachment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.attachmentService.Delete(c.Request().Context(), actorID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Attachment deleted"})
}
