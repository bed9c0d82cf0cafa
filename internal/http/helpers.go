package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"omzet/internal/core"
	"omzet/internal/log"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}

// serviceError maps pipeline and source errors onto API responses.
func serviceError(ctx context.Context, op string, err error) *JSONResponseBuilder {
	var pe *ParamError
	switch {
	case errors.As(err, &pe):
		return BadRequestError(pe.Error())
	case errors.Is(err, core.ErrInvalidRange):
		return InvalidRangeError("start date must not be after end date")
	case errors.Is(err, core.ErrSourceUnavailable):
		log.FromContext(ctx).WarnContext(ctx, "Record source unavailable",
			log.FieldOperation, op, log.FieldError, err)
		return UnavailableError("record source unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, CodeUnavailable, "request timed out")
	default:
		log.FromContext(ctx).Log(ctx, slog.LevelError, "Request failed",
			log.FieldOperation, op, log.FieldError, err)
		return InternalServerError("internal error")
	}
}
