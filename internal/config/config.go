// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/livetv.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	envPrefix                        = "LIVETV"

	// Catalog defaults
	defaultCatalogSource = CatalogSourceFixture
	defaultCatalogWatch  = false

	// Player defaults (mirror the behaviour of the web player this service drives)
	defaultFallbackURL         = "https://dash.akamaized.net/akamai/bbb_30fps/bbb_30fps.mpd"
	defaultSeekDebounce        = 10 * time.Millisecond
	defaultReconcileSettle     = 50 * time.Millisecond
	defaultSwitchGuardWindow   = 1 * time.Second
	defaultEdgeThreshold       = 2.0
	defaultReadyPollInterval   = 100 * time.Millisecond
	defaultReadyPollAttempts   = 150
	defaultTimeUpdateThrottle  = 100 * time.Millisecond
	defaultNetworkErrorCodeMin = 7000
	defaultNetworkErrorCodeMax = 7999
	defaultAutoPlay            = true

	// Adaptive engine defaults
	defaultEngineLocalPath         = "./assets/adaptive-engine.js"
	defaultEngineCDNURL            = "https://ajax.googleapis.com/ajax/libs/shaka-player/4.7.0/shaka-player.compiled.js"
	defaultEngineBufferingGoal     = 30 * time.Second
	defaultEngineRebufferingGoal   = 15 * time.Second
	defaultEnginePresentationDelay = 10 * time.Second
	defaultEngineRequestTimeout    = 10 * time.Second

	// Navigation defaults
	defaultSelectorInactivity = 8 * time.Second
	defaultKeyRate            = 20.0
	defaultKeyBurst           = 5
)

// Catalog sources
const (
	CatalogSourceFixture  = "fixture"
	CatalogSourceDatabase = "database"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Catalog    CatalogConfig
	Player     PlayerConfig
	Engine     EngineConfig
	Navigation NavigationConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// CatalogConfig selects where the channel lineup comes from
type CatalogConfig struct {
	// Source is "fixture" (embedded or file lineup) or "database" (sqlite store seeded from the fixture)
	Source string
	// FixturePath optionally points at a lineup JSON file; empty uses the embedded lineup
	FixturePath string
	// Watch reloads the lineup when FixturePath changes on disk
	Watch bool
}

// PlayerConfig holds playback controller timing and policy
type PlayerConfig struct {
	FallbackURL         string
	SeekDebounce        time.Duration
	ReconcileSettle     time.Duration
	SwitchGuardWindow   time.Duration
	EdgeThreshold       float64 // seconds
	ReadyPollInterval   time.Duration
	ReadyPollAttempts   int
	TimeUpdateThrottle  time.Duration
	NetworkErrorCodeMin int
	NetworkErrorCodeMax int
	AutoPlay            bool
}

// EngineConfig holds adaptive engine loading and buffering configuration
type EngineConfig struct {
	LocalPath         string
	CDNURL            string
	BufferingGoal     time.Duration
	RebufferingGoal   time.Duration
	PresentationDelay time.Duration
	RequestTimeout    time.Duration
}

// NavigationConfig holds key input and selector overlay configuration
type NavigationConfig struct {
	SelectorInactivity time.Duration
	KeyRate            float64 // keys per second
	KeyBurst           int
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/livetv")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	v.SetDefault("catalog.source", defaultCatalogSource)
	v.SetDefault("catalog.fixturepath", "")
	v.SetDefault("catalog.watch", defaultCatalogWatch)

	v.SetDefault("player.fallbackurl", defaultFallbackURL)
	v.SetDefault("player.seekdebounce", defaultSeekDebounce)
	v.SetDefault("player.reconcilesettle", defaultReconcileSettle)
	v.SetDefault("player.switchguardwindow", defaultSwitchGuardWindow)
	v.SetDefault("player.edgethreshold", defaultEdgeThreshold)
	v.SetDefault("player.readypollinterval", defaultReadyPollInterval)
	v.SetDefault("player.readypollattempts", defaultReadyPollAttempts)
	v.SetDefault("player.timeupdatethrottle", defaultTimeUpdateThrottle)
	v.SetDefault("player.networkerrorcodemin", defaultNetworkErrorCodeMin)
	v.SetDefault("player.networkerrorcodemax", defaultNetworkErrorCodeMax)
	v.SetDefault("player.autoplay", defaultAutoPlay)

	v.SetDefault("engine.localpath", defaultEngineLocalPath)
	v.SetDefault("engine.cdnurl", defaultEngineCDNURL)
	v.SetDefault("engine.bufferinggoal", defaultEngineBufferingGoal)
	v.SetDefault("engine.rebufferinggoal", defaultEngineRebufferingGoal)
	v.SetDefault("engine.presentationdelay", defaultEnginePresentationDelay)
	v.SetDefault("engine.requesttimeout", defaultEngineRequestTimeout)

	v.SetDefault("navigation.selectorinactivity", defaultSelectorInactivity)
	v.SetDefault("navigation.keyrate", defaultKeyRate)
	v.SetDefault("navigation.keyburst", defaultKeyBurst)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	validSources := []string{CatalogSourceFixture, CatalogSourceDatabase}
	if !contains(validSources, c.Catalog.Source) {
		return fmt.Errorf("invalid catalog source: %s (must be one of: %s)", c.Catalog.Source, strings.Join(validSources, ", "))
	}
	if c.Catalog.Watch && c.Catalog.FixturePath == "" {
		return fmt.Errorf("catalog watch requires a fixture path")
	}

	if err := c.Player.Validate(); err != nil {
		return err
	}

	if c.Navigation.SelectorInactivity <= 0 {
		return fmt.Errorf("invalid selector inactivity: %v (must be > 0)", c.Navigation.SelectorInactivity)
	}
	if c.Navigation.KeyRate <= 0 || c.Navigation.KeyBurst < 1 {
		return fmt.Errorf("invalid key rate limit: rate=%v burst=%d", c.Navigation.KeyRate, c.Navigation.KeyBurst)
	}

	return nil
}

// Validate checks the player timing values
func (p *PlayerConfig) Validate() error {
	if p.FallbackURL == "" {
		return fmt.Errorf("fallback url cannot be empty")
	}
	if p.SeekDebounce <= 0 || p.ReconcileSettle <= 0 || p.SwitchGuardWindow <= 0 {
		return fmt.Errorf("invalid player timing: debounce=%v settle=%v guard=%v (must be > 0)",
			p.SeekDebounce, p.ReconcileSettle, p.SwitchGuardWindow)
	}
	if p.EdgeThreshold < 0 {
		return fmt.Errorf("invalid edge threshold: %v (must be >= 0)", p.EdgeThreshold)
	}
	if p.ReadyPollInterval <= 0 || p.ReadyPollAttempts < 1 {
		return fmt.Errorf("invalid ready poll: interval=%v attempts=%d", p.ReadyPollInterval, p.ReadyPollAttempts)
	}
	if p.NetworkErrorCodeMin > p.NetworkErrorCodeMax {
		return fmt.Errorf("invalid network error code range: [%d, %d]", p.NetworkErrorCodeMin, p.NetworkErrorCodeMax)
	}
	return nil
}

// DefaultPlayerConfig returns the player configuration used when nothing is overridden
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		FallbackURL:         defaultFallbackURL,
		SeekDebounce:        defaultSeekDebounce,
		ReconcileSettle:     defaultReconcileSettle,
		SwitchGuardWindow:   defaultSwitchGuardWindow,
		EdgeThreshold:       defaultEdgeThreshold,
		ReadyPollInterval:   defaultReadyPollInterval,
		ReadyPollAttempts:   defaultReadyPollAttempts,
		TimeUpdateThrottle:  defaultTimeUpdateThrottle,
		NetworkErrorCodeMin: defaultNetworkErrorCodeMin,
		NetworkErrorCodeMax: defaultNetworkErrorCodeMax,
		AutoPlay:            defaultAutoPlay,
	}
}

// DefaultEngineConfig returns the adaptive engine configuration used when nothing is overridden
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LocalPath:         defaultEngineLocalPath,
		CDNURL:            defaultEngineCDNURL,
		BufferingGoal:     defaultEngineBufferingGoal,
		RebufferingGoal:   defaultEngineRebufferingGoal,
		PresentationDelay: defaultEnginePresentationDelay,
		RequestTimeout:    defaultEngineRequestTimeout,
	}
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
