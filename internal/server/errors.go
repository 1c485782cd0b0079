package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shopdesk/internal/authorization"
	"github.com/smallbiznis/shopdesk/internal/identity"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	"github.com/smallbiznis/shopdesk/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type        string            `json:"type"`
	Message     string            `json:"message"`
	Retryable   *bool             `json:"retryable,omitempty"`
	Unconfirmed bool              `json:"unconfirmed,omitempty"`
	Errors      []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
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
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var se *subscriptiondomain.SwitchError
	if errors.As(err, &se) {
		return mapSwitchError(se)
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, subscriptiondomain.ErrInvalidOwner),
		errors.Is(err, licensedomain.ErrInvalidID):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:      "rate_limited",
			Message:   "too many switch requests",
			Retryable: boolPtr(true),
		}
	case errors.Is(err, licensedomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "license_not_found",
			Message: "license not found",
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, db.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "store_unavailable",
			Message:   "store unavailable, retry later",
			Retryable: boolPtr(true),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func mapSwitchError(se *subscriptiondomain.SwitchError) (int, errorPayload) {
	payload := errorPayload{
		Type:        string(se.Kind),
		Retryable:   boolPtr(se.Retryable()),
		Unconfirmed: se.Unconfirmed,
	}

	switch se.Kind {
	case subscriptiondomain.KindLicenseNotFound:
		payload.Message = "license not found"
		return http.StatusNotFound, payload
	case subscriptiondomain.KindSwitchFailed:
		payload.Message = "subscription was not changed, retry"
		return http.StatusConflict, payload
	case subscriptiondomain.KindStoreUnavailable:
		payload.Message = "store unavailable, retry later"
		return http.StatusServiceUnavailable, payload
	case subscriptiondomain.KindDuplicateActive:
		payload.Message = "subscription state needs reconciliation"
		return http.StatusInternalServerError, payload
	default:
		payload.Type = "internal_error"
		payload.Message = "internal server error"
		return http.StatusInternalServerError, payload
	}
}

// classifyErrorForLog returns the response type and, for switch failures,
// the step that failed.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	var se *subscriptiondomain.SwitchError
	if errors.As(err, &se) {
		return payload.Type, se.Op
	}
	return payload.Type, ""
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }
