// Package server wires the host together: shared global, shared document,
// sandbox collaborators, app manager, and the gin orchestrator API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/SCWR/qiankun/internal/api/http"
	"github.com/SCWR/qiankun/internal/api/middleware"
	"github.com/SCWR/qiankun/internal/app"
	"github.com/SCWR/qiankun/internal/config"
	"github.com/SCWR/qiankun/internal/document"
	"github.com/SCWR/qiankun/internal/engine"
	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/logging"
	"github.com/SCWR/qiankun/internal/monitoring"
	"github.com/SCWR/qiankun/internal/sandbox"
	"github.com/SCWR/qiankun/internal/sandbox/noise"
)

// Server is the running host.
type Server struct {
	router *gin.Engine
	apps   *app.Manager
	log    *logging.Logger
	http   *http.Server
}

// New builds the host from configuration.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	shared := global.Platform()

	var root *document.Root
	var err error
	if cfg.Shell.IndexHTML != "" {
		root, err = document.LoadFile(cfg.Shell.IndexHTML)
		if err != nil {
			return nil, fmt.Errorf("index document: %w", err)
		}
	} else {
		root = document.NewRoot()
	}
	docProxy := sandbox.NewDocumentProxy(root, nil, log.Named("document"))

	metrics, registry := monitoring.New()

	manager := app.NewManager(shared, docProxy,
		app.WithNoiseSuppressor(noise.New(shared, log.Named("noise"))),
		app.WithMetrics(metrics),
		app.WithLogger(log.Named("apps")),
		app.WithEngineConfig(engine.Config{
			Timeout:       cfg.Sandbox.Timeout,
			EnableConsole: true,
		}),
		app.WithVerboseSandboxes(cfg.Sandbox.Verbose),
	)

	manifest, err := app.LoadManifest(cfg.Shell.Manifest)
	if err != nil {
		return nil, err
	}
	if err := manager.RegisterManifest(manifest); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(manager)
	router.GET("/health", handlers.Health)
	router.GET("/apps", handlers.ListApps)
	router.POST("/apps/:name/mount", handlers.MountApp)
	router.POST("/apps/:name/unmount", handlers.UnmountApp)
	router.GET("/apps/:name/debug", handlers.DebugApp)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &Server{
		router: router,
		apps:   manager,
		log:    log,
	}, nil
}

// Apps returns the app manager, for programmatic orchestration.
func (s *Server) Apps() *app.Manager { return s.apps }

// Router returns the gin engine, for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run serves the orchestrator API until the listener fails.
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("orchestrator API listening", zap.String("addr", addr))
	return s.http.ListenAndServe()
}

// Close unmounts every app and shuts the listener down.
func (s *Server) Close() error {
	s.apps.UnmountAll()
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
