package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/models"
	"github.com/stwalsh4118/livetv/internal/player"
)

// ChannelResponse represents the channel in API responses
type ChannelResponse struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Slug        string                `json:"slug,omitempty"`
	Type        string                `json:"type,omitempty"`
	Genres      []string              `json:"genres,omitempty"`
	Images      []models.ChannelImage `json:"images,omitempty"`
	EventCount  int                   `json:"event_count"`
	LiveEventID *string               `json:"live_event_id,omitempty"`
}

// EventResponse represents one lineup entry in API responses
type EventResponse struct {
	ID          string              `json:"id"`
	Index       int                 `json:"index"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Status      string              `json:"status"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     time.Time           `json:"end_time"`
	Schedule    string              `json:"schedule"`
	Duration    string              `json:"duration"`
	DurationMs  int64               `json:"duration_ms"`
	Genres      []string            `json:"genres,omitempty"`
	Images      []models.EventImage `json:"images,omitempty"`
	Selectable  bool                `json:"selectable"`
	Current     bool                `json:"current"`
}

// ScheduleResponse represents the filtered program schedule
type ScheduleResponse struct {
	Filter string          `json:"filter"`
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

// ChannelHandler serves the channel lineup
type ChannelHandler struct {
	player scheduleSource
}

// scheduleSource is the part of the player the schedule views read
type scheduleSource interface {
	Catalog() *catalog.Catalog
	ActiveIndex() int
}

// NewChannelHandler creates a new channel handler instance
func NewChannelHandler(p scheduleSource) *ChannelHandler {
	return &ChannelHandler{player: p}
}

func toEventResponse(e *models.Event, index int, current bool) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Index:       index,
		Title:       e.Title,
		Description: e.Description,
		Status:      e.Status.String(),
		StartTime:   e.StartTime(),
		EndTime:     e.EndTime(),
		Schedule:    e.ScheduleString(),
		Duration:    e.DurationString(),
		DurationMs:  e.Duration,
		Genres:      e.Genres,
		Images:      e.Images,
		Selectable:  e.IsSelectable(),
		Current:     current,
	}
}

// lineup returns the installed catalog or writes a 503
func (h *ChannelHandler) lineup(c *gin.Context) (*catalog.Catalog, bool) {
	cat := h.player.Catalog()
	if cat == nil {
		respondError(c, player.ErrNoCatalog)
		return nil, false
	}
	return cat, true
}

// GetChannel handles GET /api/channel
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	cat, ok := h.lineup(c)
	if !ok {
		return
	}

	ch := cat.Channel()
	response := ChannelResponse{
		ID:          ch.ID,
		Title:       ch.Title,
		Description: ch.Description,
		Slug:        ch.Slug,
		Type:        ch.Type,
		Genres:      ch.Genres,
		Images:      ch.Images,
		EventCount:  cat.Len(),
	}
	if live := cat.FindLiveEvent(); live != nil {
		id := live.ID
		response.LiveEventID = &id
	}

	c.JSON(http.StatusOK, response)
}

// GetSchedule handles GET /api/schedule?filter=all|live|upcoming|ended
func (h *ChannelHandler) GetSchedule(c *gin.Context) {
	filter := catalog.Filter(c.DefaultQuery("filter", string(catalog.FilterAll)))
	if !filter.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_filter",
			Message: fmt.Sprintf("Filter must be one of all, live, upcoming, ended (got %q)", filter),
		})
		return
	}

	cat, ok := h.lineup(c)
	if !ok {
		return
	}

	active := h.player.ActiveIndex()
	events := cat.Filter(filter)
	response := ScheduleResponse{
		Filter: string(filter),
		Events: make([]EventResponse, 0, len(events)),
		Total:  len(events),
	}
	for i := range events {
		index := cat.IndexOf(events[i].ID)
		response.Events = append(response.Events, toEventResponse(&events[i], index, index >= 0 && index == active))
	}

	c.JSON(http.StatusOK, response)
}

// GetEvent handles GET /api/schedule/:event_id
func (h *ChannelHandler) GetEvent(c *gin.Context) {
	cat, ok := h.lineup(c)
	if !ok {
		return
	}

	id := c.Param("event_id")
	index := cat.IndexOf(id)
	if index < 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "event_not_found",
			Message: "Event not found",
		})
		return
	}

	c.JSON(http.StatusOK, toEventResponse(cat.At(index), index, index == h.player.ActiveIndex()))
}

// SetupChannelRoutes registers channel and schedule routes
func SetupChannelRoutes(apiGroup *gin.RouterGroup, p scheduleSource) {
	handler := NewChannelHandler(p)
	apiGroup.GET("/channel", handler.GetChannel)
	apiGroup.GET("/schedule", handler.GetSchedule)
	apiGroup.GET("/schedule/:event_id", handler.GetEvent)
}
