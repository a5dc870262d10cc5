package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/api"
	"github.com/opt-statistics/backend/internal/config"
	"github.com/opt-statistics/backend/internal/faction"
	"github.com/opt-statistics/backend/internal/log"
	"github.com/opt-statistics/backend/internal/parser"
	"github.com/opt-statistics/backend/internal/session"
	"github.com/opt-statistics/backend/internal/storage"
	"github.com/opt-statistics/backend/internal/upload"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configFileName = "OPTStatistics.exe.config"

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(filepath.Dir(exePath), configFileName)
	if env := os.Getenv("OPT_CONFIG"); env != "" {
		configPath = env
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	closeLog := log.MustCreateLogger(cfg.Advanced.LogFile, log.Level(cfg.Advanced.LogLevel), Version)
	defer closeLog()

	if err := run(cfg, configPath); err != nil {
		slog.Error("Server stopped", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, configPath string) error {
	factions := faction.Default()
	if cfg.Factions.TablePath != "" {
		loaded, err := faction.Load(cfg.Factions.TablePath)
		if err != nil {
			return fmt.Errorf("loading faction table: %w", err)
		}
		factions = loaded
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	sessionMgr := session.NewManager(parser.NewRegistry(factions), fileStore, slog.Default(), session.Options{
		MaxSessions:     cfg.Processing.MaxSessions,
		DiagnosticLevel: log.ToSlogLevel(log.Level(cfg.Processing.DiagnosticLevel)),
	})
	uploadMgr := upload.NewManager(fileStore, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background cleanup of finished sessions and upload jobs
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions := sessionMgr.CleanupOldSessions(cfg.SessionMaxAge())
				jobs := uploadMgr.CleanupOldJobs(cfg.SessionMaxAge())
				if sessions+jobs > 0 {
					slog.Debug("Cleanup", slog.Int("sessions", sessions), slog.Int("jobs", jobs))
				}
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e, cfg, slog.Default())
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:             fileStore,
		SessionMgr:        sessionMgr,
		UploadJobs:        uploadMgr,
		Log:               slog.Default(),
		Version:           Version,
		AllowedExtensions: cfg.AllowedExtensions(),
		AllowFileDeletion: cfg.Security.AllowFileDeletion,
		StatusInterval:    time.Duration(cfg.Advanced.StatusPushIntervalMs) * time.Millisecond,
		WSMaxMessageSize:  int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
	}))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	slog.Info("OPT statistics server",
		slog.String("version", Version),
		slog.String("buildTime", BuildTime),
		slog.String("config", configPath),
		slog.String("listen", "http://"+cfg.GetServerAddr()),
		slog.String("dataDir", cfg.GetDataDir()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
