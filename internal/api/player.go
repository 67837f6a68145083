// Package api provides HTTP handlers for the REST API endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/player"
)

// switchTimeout bounds how long a request waits for a queued transition
const switchTimeout = 30 * time.Second

// playerController defines the interface required by PlayerHandler
type playerController interface {
	Snapshot() player.Snapshot
	Catalog() *catalog.Catalog
	ActiveIndex() int
	SelectFromSchedule(ctx context.Context, id string) error
	SelectNext(ctx context.Context) error
	SelectPrevious(ctx context.Context) error
	SeekRequest(ctx context.Context, t float64) error
	Play(ctx context.Context) error
	Pause() error
	Toggle(ctx context.Context) error
	SetVolume(v float64)
	SetMuted(muted bool)
	DismissError()
}

// SelectRequest represents a request to play a lineup event
type SelectRequest struct {
	EventID string `json:"event_id" binding:"required"`
}

// SeekRequest represents a request to move the playhead
type SeekRequest struct {
	Time *float64 `json:"time" binding:"required"`
}

// VolumeRequest represents a request to change the volume
type VolumeRequest struct {
	Volume *float64 `json:"volume" binding:"required"`
}

// MuteRequest represents a request to change the muted flag
type MuteRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

// PlayerHandler handles playback intents
type PlayerHandler struct {
	player playerController
}

// NewPlayerHandler creates a new player handler instance
func NewPlayerHandler(p playerController) *PlayerHandler {
	return &PlayerHandler{player: p}
}

// GetState handles GET /api/player
func (h *PlayerHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.player.Snapshot())
}

// Select handles POST /api/player/select
func (h *PlayerHandler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), switchTimeout)
	defer cancel()

	logger.Log.Info().
		Str("event_id", req.EventID).
		Str("client_ip", c.ClientIP()).
		Msg("Event selected from schedule")

	h.respond(c, h.player.SelectFromSchedule(ctx, req.EventID))
}

// Next handles POST /api/player/next
func (h *PlayerHandler) Next(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), switchTimeout)
	defer cancel()
	h.respond(c, h.player.SelectNext(ctx))
}

// Previous handles POST /api/player/previous
func (h *PlayerHandler) Previous(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), switchTimeout)
	defer cancel()
	h.respond(c, h.player.SelectPrevious(ctx))
}

// Seek handles POST /api/player/seek
func (h *PlayerHandler) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	if *req.Time < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_time",
			Message: "Seek time must not be negative",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), switchTimeout)
	defer cancel()
	h.respond(c, h.player.SeekRequest(ctx, *req.Time))
}

// Play handles POST /api/player/play
func (h *PlayerHandler) Play(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	h.respond(c, h.player.Play(ctx))
}

// Pause handles POST /api/player/pause
func (h *PlayerHandler) Pause(c *gin.Context) {
	h.respond(c, h.player.Pause())
}

// Toggle handles POST /api/player/toggle
func (h *PlayerHandler) Toggle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	h.respond(c, h.player.Toggle(ctx))
}

// SetVolume handles PUT /api/player/volume
func (h *PlayerHandler) SetVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	h.player.SetVolume(*req.Volume)
	c.JSON(http.StatusOK, h.player.Snapshot())
}

// SetMuted handles PUT /api/player/mute
func (h *PlayerHandler) SetMuted(c *gin.Context) {
	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	h.player.SetMuted(*req.Muted)
	c.JSON(http.StatusOK, h.player.Snapshot())
}

// DismissError handles DELETE /api/player/error
func (h *PlayerHandler) DismissError(c *gin.Context) {
	h.player.DismissError()
	c.Status(http.StatusNoContent)
}

// respond writes the snapshot on success, the mapped error otherwise
func (h *PlayerHandler) respond(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.player.Snapshot())
}

// SetupPlayerRoutes registers playback routes
func SetupPlayerRoutes(apiGroup *gin.RouterGroup, p playerController) {
	handler := NewPlayerHandler(p)

	playerGroup := apiGroup.Group("/player")
	playerGroup.GET("", handler.GetState)
	playerGroup.POST("/select", handler.Select)
	playerGroup.POST("/next", handler.Next)
	playerGroup.POST("/previous", handler.Previous)
	playerGroup.POST("/seek", handler.Seek)
	playerGroup.POST("/play", handler.Play)
	playerGroup.POST("/pause", handler.Pause)
	playerGroup.POST("/toggle", handler.Toggle)
	playerGroup.PUT("/volume", handler.SetVolume)
	playerGroup.PUT("/mute", handler.SetMuted)
	playerGroup.DELETE("/error", handler.DismissError)
}
