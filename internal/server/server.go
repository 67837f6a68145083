// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/api"
	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/config"
	"github.com/stwalsh4118/livetv/internal/db"
	"github.com/stwalsh4118/livetv/internal/headless"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/metrics"
	"github.com/stwalsh4118/livetv/internal/middleware"
	"github.com/stwalsh4118/livetv/internal/models"
	"github.com/stwalsh4118/livetv/internal/navigation"
	"github.com/stwalsh4118/livetv/internal/player"
	"github.com/stwalsh4118/livetv/internal/resolver"
)

const (
	catalogLoadTimeout = 30 * time.Second
	closeTimeout       = 10 * time.Second
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	db         *db.DB
	fixture    *catalog.FixtureProvider
	provider   catalog.Provider
	element    *headless.Element
	metrics    *metrics.Metrics
	controller *player.Controller
	navigator  *navigation.Navigator
	watcher    *catalog.Watcher
	router     *gin.Engine
	server     *http.Server
}

// New creates a new server instance. database is required when the catalog source is "database".
func New(cfg *config.Config, database *db.DB) (*Server, error) {
	if cfg.Catalog.Source == config.CatalogSourceDatabase && database == nil {
		return nil, fmt.Errorf("catalog source %q requires a database", cfg.Catalog.Source)
	}

	client := &http.Client{Timeout: cfg.Engine.RequestTimeout}
	element := headless.NewElement(headless.WithProber(headless.NewHTTPProber(client, 0)))
	module := headless.NewModule(client)
	loader := backend.NewEngineLoader(cfg.Engine.RequestTimeout,
		headless.NewLocalSource(cfg.Engine.LocalPath, module),
		headless.NewRemoteSource(cfg.Engine.CDNURL, client, module),
	)
	factory := backend.NewFactory(backend.NewSurface(element), loader, backend.EngineConfig{
		BufferingGoal:     cfg.Engine.BufferingGoal,
		RebufferingGoal:   cfg.Engine.RebufferingGoal,
		PresentationDelay: cfg.Engine.PresentationDelay,
	})

	m := metrics.New()
	controller := player.NewController(cfg.Player, factory, resolver.New(cfg.Player.FallbackURL), player.WithMetrics(m))

	s := &Server{
		config:     cfg,
		db:         database,
		fixture:    catalog.NewFixtureProvider(cfg.Catalog.FixturePath),
		element:    element,
		metrics:    m,
		controller: controller,
		navigator:  navigation.NewNavigator(controller, cfg.Navigation),
	}

	s.provider = s.fixture
	if cfg.Catalog.Source == config.CatalogSourceDatabase {
		s.provider = catalog.NewDBProvider(db.NewRepositories(database), 0)
	}

	if cfg.Catalog.Watch && cfg.Catalog.FixturePath != "" {
		w, err := catalog.NewWatcher(s.fixture, s.onLineupChanged)
		if err != nil {
			return nil, fmt.Errorf("failed to create lineup watcher: %w", err)
		}
		s.watcher = w
	}

	s.setupRouter()
	return s, nil
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestLogger("/api/health", "/metrics"))
	s.router.Use(gin.Recovery())
	s.router.Use(cors.Default())

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	apiGroup := s.router.Group("/api")

	// A nil *db.DB must not reach the interface
	var health interface {
		Health(ctx context.Context) error
	}
	if s.db != nil {
		health = s.db
	}
	api.SetupHealthRoutes(apiGroup, health, s.controller)
	api.SetupChannelRoutes(apiGroup, s.controller)
	api.SetupPlayerRoutes(apiGroup, s.controller)
	api.SetupNavigationRoutes(apiGroup, s.navigator)
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Controller returns the playback controller
func (s *Server) Controller() *player.Controller {
	return s.controller
}

// loadCatalog seeds the database when it is the source, then installs the lineup and starts playback
func (s *Server) loadCatalog(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, catalogLoadTimeout)
	defer cancel()

	if s.config.Catalog.Source == config.CatalogSourceDatabase {
		if _, err := catalog.Seed(ctx, s.db, s.fixture); err != nil {
			// A stale stored lineup is still playable
			logger.Log.Warn().Err(err).Msg("Failed to seed catalog database")
		}
	}

	return s.controller.LoadCatalog(ctx, s.provider)
}

// onLineupChanged pushes a reloaded fixture lineup into the player
func (s *Server) onLineupChanged(ctx context.Context, c *catalog.Catalog) {
	if s.config.Catalog.Source != config.CatalogSourceDatabase {
		s.controller.SetCatalog(c)
		return
	}

	channel := c.Channel()
	src := catalog.ProviderFunc(func(context.Context) (*models.Channel, error) {
		return &channel, nil
	})
	if _, err := catalog.Seed(ctx, s.db, src); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to store reloaded lineup")
		return
	}
	stored, err := catalog.Load(ctx, s.provider)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read back stored lineup")
		return
	}
	s.controller.SetCatalog(stored)
}

// Start loads the lineup, starts the watcher and serves HTTP until Shutdown
func (s *Server) Start(ctx context.Context) error {
	if err := s.loadCatalog(ctx); err != nil {
		// The error slot carries the message; the API stays up to report it
		logger.Log.Error().Err(err).Msg("Initial lineup load failed")
	}

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			return fmt.Errorf("failed to start lineup watcher: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Str("catalog_source", s.config.Catalog.Source).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("watcher stop error: %w", err))
		}
	}

	s.navigator.Close()

	closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	if err := s.controller.Close(closeCtx); err != nil {
		errs = append(errs, fmt.Errorf("player close error: %w", err))
	}
	s.element.Close()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
