package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/catalog"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Catalog  string                 `json:"catalog"`
	Time     string                 `json:"time"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// healthChecker is satisfied by *db.DB
type healthChecker interface {
	Health(ctx context.Context) error
}

// catalogSource exposes the lineup currently installed in the player
type catalogSource interface {
	Catalog() *catalog.Catalog
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      healthChecker
	catalog catalogSource
}

// NewHealthHandler creates a new health check handler. database may be nil when the
// lineup is served from the fixture.
func NewHealthHandler(database healthChecker, source catalogSource) *HealthHandler {
	return &HealthHandler{db: database, catalog: source}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "ok",
		Database: "disabled",
		Catalog:  "loaded",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Details:  make(map[string]interface{}),
	}

	if cat := h.catalog.Catalog(); cat == nil {
		response.Status = "degraded"
		response.Catalog = "missing"
	} else {
		response.Details["events"] = cat.Len()
	}

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			response.Status = "degraded"
			response.Database = "unhealthy"
			response.Details["database_error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "healthy"
	}

	status := http.StatusOK
	if response.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database healthChecker, source catalogSource) {
	handler := NewHealthHandler(database, source)
	apiGroup.GET("/health", handler.Check)
}
