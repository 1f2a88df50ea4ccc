package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

// AdminHandler exposes user and department administration. The service
// checks the admin role against the stored account.
type AdminHandler struct {
	adminService ports.AdminService
	logger       *logger.Logger
}

func NewAdminHandler(adminService ports.AdminService, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// ListUsers godoc
// @Summary List accounts with notification status
// @Tags admin
// @Produce json
// @Success 200 {array} entities.AdminUserView
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.adminService.ListUsers(c.Request().Context(), actorID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create an account
// @Tags admin
// @Accept json
// @Produce json
// @Param request body ports.CreateUserRequest true "Account data"
// @Success 201 {object} entities.User
// @Failure 409 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req ports.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.adminService.CreateUser(c.Request().Context(), actorID(c), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// DeleteUser godoc
// @Summary Delete an account and everything it owns
// @Tags admin
// @Param id path string true "User ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.DeleteUser(c.Request().Context(), actorID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "User deleted"})
}

func (h *AdminHandler) SetRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.RoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.adminService.SetRole(c.Request().Context(), actorID(c), id, req.Role); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Role updated"})
}

func (h *AdminHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.ActiveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.adminService.SetActive(c.Request().Context(), actorID(c), id, *req.Active); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Status updated"})
}

func (h *AdminHandler) ListDepartments(c echo.Context) error {
	depts, err := h.adminService.ListDepartments(c.Request().Context(), actorID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, depts)
}

// PublicDepartments godoc
// @Summary Departments offered by the registration form
// @Tags auth
// @Produce json
// @Success 200 {array} entities.Department
// @Router /departments [get]
func (h *AdminHandler) PublicDepartments(c echo.Context) error {
	depts, err := h.adminService.PublicDepartments(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, depts)
}

func (h *AdminHandler) CreateDepartment(c echo.Context) error {
	var req ports.DepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dept, err := h.adminService.CreateDepartment(c.Request().Context(), actorID(c), req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dept)
}

func (h *AdminHandler) RenameDepartment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.DepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dept, err := h.adminService.RenameDepartment(c.Request().Context(), actorID(c), id, req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dept)
}

func (h *AdminHandler) DeleteDepartment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.adminService.DeleteDepartment(c.Request().Context(), actorID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Department deleted"})
}
