package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/memorial-automator/client/internal/api"
	"github.com/memorial-automator/client/internal/clipboard"
	"github.com/memorial-automator/client/internal/config"
	"github.com/memorial-automator/client/internal/generator"
	"github.com/memorial-automator/client/internal/logging"
	"github.com/memorial-automator/client/internal/session"
	"github.com/memorial-automator/client/internal/storage"
	"github.com/memorial-automator/client/internal/web"
	"github.com/memorial-automator/client/internal/workflow"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(filepath.Dir(exePath), "MemorialClient.config")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.Advanced.LogLevel)

	if err := cfg.EnsureDirectories(); err != nil {
		level.Error(logger).Log("msg", "failed to create directories", "err", err)
		os.Exit(1)
	}

	msgs, err := config.LoadMessages(cfg.Advanced.MessagesFile)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load messages", "path", cfg.Advanced.MessagesFile, "err", err)
		os.Exit(1)
	}
	msgs = workflow.ResolveMessages(msgs, cfg.Upload.MaxFileSizeBytes)

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		level.Error(logger).Log("msg", "failed to initialize storage", "err", err)
		os.Exit(1)
	}

	gen := generator.NewClient(generator.Options{
		GenerateURL: cfg.GenerateURL(),
		HealthURL:   cfg.HealthURL(),
		Timeout:     cfg.RequestTimeout(),
		Logger:      log.With(logger, "component", "generator"),
	})

	controllerLogger := log.With(logger, "component", "controller")
	sessionMgr := session.NewManager(func(r workflow.Renderer) *workflow.Controller {
		return workflow.New(gen, workflow.Options{
			Clipboard:        clipboard.System{},
			Renderer:         r,
			Messages:         &msgs,
			MaxFileSize:      cfg.Upload.MaxFileSizeBytes,
			AllowedExtension: cfg.Upload.AllowedExtension,
			StepInterval:     cfg.StepInterval(),
			Logger:           controllerLogger,
		})
	}, cfg.Sessions.MaxSessions, log.With(logger, "component", "session"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(cfg.SessionTimeout())
			case <-ctx.Done():
				return
			}
		}
	}()

	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, log.With(logger, "component", "api"), cfg.Advanced.LogLevel == "debug")

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/ws") || path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 1 && origins[0] == "" {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Sessions: sessionMgr,
		Store:    fileStore,
		Backend:  gen,
		Messages: msgs,
		Version:  Version,
		Logger:   logger,
	}))

	// Register embedded page if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			level.Warn(logger).Log("msg", "failed to register static routes", "err", err)
			embeddedMode = false
		}
	}

	// The generation call can outlast these timeouts, but it runs in the
	// background. The view stream is hijacked, which clears the deadlines.
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Memorial Descritivo Client                      ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.Backend.BaseURL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("msg", "server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	level.Info(logger).Log("msg", "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Warn(logger).Log("msg", "shutdown", "err", err)
	}
	sessionMgr.CloseAll()
}
