package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/navigation"
)

// keyNavigator defines the interface required by NavigationHandler
type keyNavigator interface {
	HandleKey(ctx context.Context, key navigation.Key) error
	Pick(ctx context.Context, index int) error
	SelectorState() navigation.SelectorState
}

// KeyRequest represents a remote-control key press
type KeyRequest struct {
	Key string `json:"key" binding:"required"`
}

// PickRequest represents a pointer pick on the selector
type PickRequest struct {
	Index *int `json:"index" binding:"required"`
}

// NavigationHandler handles key input and the selector overlay
type NavigationHandler struct {
	navigator keyNavigator
}

// NewNavigationHandler creates a new navigation handler instance
func NewNavigationHandler(n keyNavigator) *NavigationHandler {
	return &NavigationHandler{navigator: n}
}

// PressKey handles POST /api/keys
func (h *NavigationHandler) PressKey(c *gin.Context) {
	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	key, err := navigation.ParseKey(req.Key)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), switchTimeout)
	defer cancel()

	if err := h.navigator.HandleKey(ctx, key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.navigator.SelectorState())
}

// GetSelector handles GET /api/selector
func (h *NavigationHandler) GetSelector(c *gin.Context) {
	c.JSON(http.StatusOK, h.navigator.SelectorState())
}

// Pick handles POST /api/selector/pick
func (h *NavigationHandler) Pick(c *gin.Context) {
	var req PickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), switchTimeout)
	defer cancel()

	if err := h.navigator.Pick(ctx, *req.Index); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.navigator.SelectorState())
}

// SetupNavigationRoutes registers key input and selector routes
func SetupNavigationRoutes(apiGroup *gin.RouterGroup, n keyNavigator) {
	handler := NewNavigationHandler(n)
	apiGroup.POST("/keys", handler.PressKey)
	apiGroup.GET("/selector", handler.GetSelector)
	apiGroup.POST("/selector/pick", handler.Pick)
}
