package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/domain/shared/faults"
)

type errorBody struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	Conflicts []string `json:"conflicts,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// respondError maps the fault kind of err onto an HTTP status.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, kind := statusFor(err)
	body := errorBody{Error: err.Error(), Kind: kind, RequestID: c.GetString("request_id")}
	var conflict *faults.ConflictError
	if errors.As(err, &conflict) {
		body.Conflicts = conflict.BookingIDs
	}
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "route", c.FullPath(), "status", status, "error", err, "request_id", body.RequestID)
		}
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, faults.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, faults.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, faults.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, faults.ErrState):
		return http.StatusUnprocessableEntity, "state"
	case errors.Is(err, faults.ErrUpstream):
		return http.StatusBadGateway, "upstream"
	case errors.Is(err, policies.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, policies.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, commands.ErrHandlerNotFound), errors.Is(err, queries.ErrHandlerNotFound):
		return http.StatusNotImplemented, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Kind: "validation", RequestID: c.GetString("request_id")})
}
