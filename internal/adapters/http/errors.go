package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/plannerhq/planner/internal/application/services"
	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/ports"
)

// toHTTPError maps domain errors onto status codes. Anything it does not
// recognise becomes a 500 carrying the original error for the logs.
func toHTTPError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(verrs))
	case errors.Is(err, services.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, entities.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, entities.ErrInvalidInput))
	case errors.Is(err, entities.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, publicMessage(err, entities.ErrNotFound))
	case errors.Is(err, entities.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, publicMessage(err, entities.ErrForbidden))
	case errors.Is(err, entities.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, publicMessage(err, entities.ErrConflict))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// publicMessage strips the error kind from err's text so "card not found"
// stays readable and "invalid input: title is required" loses its prefix.
func publicMessage(err, kind error) string {
	msg := err.Error()
	if kind == entities.ErrNotFound {
		return msg
	}
	msg = strings.TrimPrefix(msg, kind.Error()+": ")
	msg = strings.TrimSuffix(msg, ": "+kind.Error())
	return msg
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min", "max", "len":
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}

// ErrorHandler renders every error as {"message": ...} and logs server
// failures with their cause.
func ErrorHandler(logf func(msg string, keysAndValues ...interface{})) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		he, ok := toHTTPError(err).(*echo.HTTPError)
		if !ok {
			he = echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
		}

		if he.Code >= http.StatusInternalServerError {
			logf("Internal server error", "error", err, "path", c.Request().URL.Path, "method", c.Request().Method)
		}

		if c.Response().Committed {
			return
		}

		msg := he.Message
		if s, ok := msg.(string); ok {
			msg = ports.ErrorResponse{Message: s}
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, msg)
		}
		if err != nil {
			logf("Error sending response", "error", err)
		}
	}
}
