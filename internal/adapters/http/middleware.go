package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/ports"
)

const (
	ctxUserID = "user"
	ctxClaims = "claims"
)

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*ports.Claims, error)
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Authenticate requires a token in the Authorization header. A missing
// header is 401. Whatever follows the scheme is validated as a token, so a
// wrong scheme or a bad token is 403.
func Authenticate(tokens TokenValidator, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			parts := strings.Fields(c.Request().Header.Get(echo.HeaderAuthorization))
			if len(parts) < 2 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err == nil && !strings.EqualFold(parts[0], "Bearer") {
				err = errors.New("unsupported authorization scheme " + parts[0])
			}
			if err != nil {
				userID := ""
				if claims != nil {
					userID = claims.UserID.String()
				}
				reqLog := log.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID))
				reqLog.LogSecurityEvent("invalid_token", userID, c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired token")
			}

			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxClaims, claims)
			return next(c)
		}
	}
}

// actorID returns the authenticated user. Routes behind Authenticate
// always have one.
func actorID(c echo.Context) uuid.UUID {
	id, _ := UserID(c)
	return id
}

// UserID reports the user Authenticate resolved for this request, if any.
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ctxUserID).(uuid.UUID)
	return id, ok
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return toHTTPError(err)
	}
	return nil
}
