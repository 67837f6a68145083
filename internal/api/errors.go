package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/navigation"
	"github.com/stwalsh4118/livetv/internal/player"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps player and navigation errors to an HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, player.ErrEventUpcoming):
		return http.StatusConflict, "event_upcoming"
	case errors.Is(err, player.ErrNotSelectable):
		return http.StatusConflict, "event_not_selectable"
	case errors.Is(err, player.ErrNoAdjacentEvent):
		return http.StatusConflict, "no_adjacent_event"
	case errors.Is(err, player.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, navigation.ErrNoSelection):
		return http.StatusConflict, "no_selection"
	case errors.Is(err, player.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, player.ErrEventNotFound):
		return http.StatusNotFound, "event_not_found"
	case errors.Is(err, player.ErrNoCatalog), errors.Is(err, catalog.ErrNoChannel):
		return http.StatusServiceUnavailable, "catalog_unavailable"
	case errors.Is(err, player.ErrClosed):
		return http.StatusServiceUnavailable, "player_closed"
	case errors.Is(err, navigation.ErrUnknownKey):
		return http.StatusBadRequest, "unknown_key"
	case errors.Is(err, navigation.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	if _, ok := player.AsPlayerError(err); ok {
		return http.StatusBadGateway, "playback_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes err as an ErrorResponse. Playback errors carry their user-visible message.
func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if perr, ok := player.AsPlayerError(err); ok {
		message = perr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("code", code).
			Msg("Request failed")
	}

	c.JSON(status, ErrorResponse{Error: code, Message: message})
}
