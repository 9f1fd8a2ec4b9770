package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "github.com/smallbiznis/invoicenexus/internal/auth/domain"
	"github.com/smallbiznis/invoicenexus/internal/form"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/rowmap"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
)

type ValidationError = form.FieldError

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &form.ValidationErrors{
		Errors: []ValidationError{{Field: field, Code: code, Message: message}},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *form.ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var partial *workspace.PartialWriteError
	if errors.As(err, &partial) {
		return http.StatusBadGateway, errorPayload{
			Type:    "partial_write",
			Message: partial.Error(),
		}
	}

	var remote *gateway.RemoteError
	if errors.As(err, &remote) {
		if remote.Kind == gateway.KindConflict {
			return http.StatusConflict, errorPayload{Type: "conflict", Message: remote.Cause}
		}
		return http.StatusBadGateway, errorPayload{Type: "remote_error", Message: remote.Cause}
	}

	var mapping *rowmap.MappingError
	if errors.As(err, &mapping) {
		return http.StatusBadGateway, errorPayload{Type: "remote_error", Message: mapping.Error()}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, form.ErrLastItem),
		errors.Is(err, form.ErrItemIndex):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, workspace.ErrNoSession),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, workspace.ErrEmployeeHasInvoices):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "Cannot delete employee with existing invoices",
		}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "user already exists",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, workspace.ErrEmployeeNotFound),
		errors.Is(err, workspace.ErrInvoiceNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same classification clients see.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	return payload.Type, http.StatusText(status)
}
