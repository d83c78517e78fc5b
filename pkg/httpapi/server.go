// Copyright 2024-2026 Aiku AI

// Package httpapi serves the liveness endpoint and the admin API.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/khanterbridge/pkg/config"
	"github.com/aiku/khanterbridge/pkg/connector"
	"github.com/aiku/khanterbridge/pkg/kvstore"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

// ModuleLister reports module registry state.
type ModuleLister interface {
	ListLoaded() []string
	ListAvailable() []string
}

// Server is the bot's HTTP server.
type Server struct {
	cfg     config.HTTPConfig
	echo    *echo.Echo
	bridges *connector.BridgeRegistry
	aliases *connector.AliasResolver
	cursor  *connector.CursorStore
	modules ModuleLister
	log     zerolog.Logger
}

// New creates the server. The admin API is only mounted when an admin
// token is configured. A ready marker left by a previous run is removed, so
// the liveness endpoint reports starting until MarkReady is called again.
func New(cfg config.HTTPConfig, store *kvstore.Store, modules ModuleLister, log zerolog.Logger) *Server {
	log = log.With().Str("component", "http").Logger()
	if err := ClearReady(cfg); err != nil {
		log.Warn().Err(err).Msg("Failed to clear stale ready marker")
	}
	s := &Server{
		cfg:     cfg,
		echo:    echo.New(),
		bridges: connector.NewBridgeRegistry(store, log),
		aliases: connector.NewAliasResolver(store, log),
		cursor:  connector.NewCursorStore(store, log),
		modules: modules,
		log:     log,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.StdLogger = stdlog.New(exzerolog.NewLogWriter(log).WithLevel(zerolog.WarnLevel), "", 0)
	e.Server.ReadTimeout = readTimeout
	e.Server.WriteTimeout = writeTimeout
	e.Server.IdleTimeout = idleTimeout
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.log.Debug()
			if v.Error != nil {
				evt = s.log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("HTTP request")
			return nil
		},
	}))

	e.GET("/", s.handleAlive)
	e.GET("/healthz", s.handleAlive)

	if cfg.AdminToken != "" {
		api := e.Group("/api", middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: s.validateToken,
			ErrorHandler: func(err error, _ echo.Context) error {
				return &echo.HTTPError{Code: http.StatusUnauthorized, Message: "Unauthorized", Internal: err}
			},
		}))
		api.GET("/bridges", s.listBridges)
		api.PUT("/bridges/:channel", s.putBridge)
		api.DELETE("/bridges/:channel", s.deleteBridge)
		api.GET("/aliases", s.listAliases)
		api.PUT("/aliases/:alias", s.putAlias)
		api.GET("/offset", s.getOffset)
		api.POST("/offset/reset", s.resetOffset)
		api.GET("/modules", s.listModules)
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on the configured listen address until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("listen", s.cfg.Listen).Bool("admin_api", s.cfg.AdminToken != "").Msg("Starting HTTP server")
	err := s.echo.Start(s.cfg.Listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to serve http: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) validateToken(key string, _ echo.Context) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.AdminToken)) == 1, nil
}

func (s *Server) handleAlive(c echo.Context) error {
	if s.cfg.ReadyMarker != "" {
		if _, err := os.Stat(s.cfg.ReadyMarker); err != nil {
			return c.String(http.StatusServiceUnavailable, "Bot starting\n")
		}
	}
	return c.String(http.StatusOK, "Bot alive\n")
}

// MarkReady creates the ready marker file, if one is configured.
func MarkReady(cfg config.HTTPConfig) error {
	if cfg.ReadyMarker == "" {
		return nil
	}
	if err := os.WriteFile(cfg.ReadyMarker, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write ready marker: %w", err)
	}
	return nil
}

// ClearReady removes the ready marker file. A missing marker is not an error.
func ClearReady(cfg config.HTTPConfig) error {
	if cfg.ReadyMarker == "" {
		return nil
	}
	if err := os.Remove(cfg.ReadyMarker); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove ready marker: %w", err)
	}
	return nil
}
