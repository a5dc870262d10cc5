// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/opt-statistics/backend/internal/config"
	"github.com/opt-statistics/backend/internal/session"
	"github.com/opt-statistics/backend/internal/storage"
	"github.com/opt-statistics/backend/internal/upload"
)

var (
	_ SessionManager = (*session.Manager)(nil)
	_ UploadJobs     = (*upload.Manager)(nil)
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	SessionMgr        SessionManager
	UploadJobs        UploadJobs
	Log               *slog.Logger
	Version           string
	AllowedExtensions []string
	AllowFileDeletion bool
	// StatusInterval is the push period of the SSE and WebSocket status streams.
	StatusInterval   time.Duration
	WSMaxMessageSize int64
	ChartAssetsHost  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Files   FileHandler
	Session SessionHandler
	Stream  StatusStreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.SessionMgr),
		Files:   NewFileHandler(deps.Store, deps.SessionMgr, deps.UploadJobs, deps.Log, deps.AllowedExtensions, deps.AllowFileDeletion),
		Session: NewSessionHandler(deps.Store, deps.SessionMgr, deps.Log, deps.StatusInterval, deps.ChartAssetsHost),
		Stream:  NewWebSocketHandler(deps.SessionMgr, deps.Log, deps.StatusInterval, deps.WSMaxMessageSize),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// File routes
	fileGroup := apiGroup.Group("/files")
	fileGroup.POST("/upload", handlers.Files.HandleUploadFile)
	fileGroup.POST("/upload/chunk", handlers.Files.HandleUploadChunk)
	fileGroup.POST("/upload/complete", handlers.Files.HandleCompleteUpload)
	fileGroup.GET("/upload/jobs/:jobId", handlers.Files.HandleGetUploadJob)
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Files.HandleDeleteFile)

	// Ingestion session routes
	apiGroup.POST("/ingest", handlers.Session.HandleStartIngest)
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.GET("", handlers.Session.HandleListSessions)
	sessionGroup.GET("/:id/status", handlers.Session.HandleSessionStatus)
	sessionGroup.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.GET("/:id/progress", handlers.Session.HandleProgressStream)
	sessionGroup.GET("/:id/result", handlers.Session.HandleResult)
	sessionGroup.GET("/:id/result/msgpack", handlers.Session.HandleResultMsgpack)
	sessionGroup.GET("/:id/diagnostics", handlers.Session.HandleDiagnostics)
	sessionGroup.GET("/:id/charts", handlers.Session.HandleCharts)
	sessionGroup.DELETE("/:id", handlers.Session.HandleDeleteSession)

	// WebSocket routes
	apiGroup.GET("/ws/sessions/:id", handlers.Stream.HandleStatusStream)
}

// isStreaming reports requests that hold the connection open.
func isStreaming(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/api/ws/") ||
		strings.HasSuffix(path, "/progress") ||
		c.Request().Header.Get("Accept") == "text/event-stream"
}

// SetupMiddleware configures the error handler and common middleware from cfg
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, log *slog.Logger) {
	e.HTTPErrorHandler = NewErrorHandler(log, strings.EqualFold(cfg.Advanced.LogLevel, "debug"))

	if cfg.Advanced.EnableRequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/status") || path == "/api/health"
			},
			LogMethod:  true,
			LogURI:     true,
			LogStatus:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				attrs := []slog.Attr{
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
				}
				if v.Error != nil {
					attrs = append(attrs, slog.String("error", v.Error.Error()))
				}
				log.LogAttrs(c.Request().Context(), slog.LevelInfo, "Request", attrs...)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	if cfg.Server.ReadTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
			Skipper: func(c echo.Context) bool {
				return isStreaming(c) || strings.Contains(c.Request().URL.Path, "/upload")
			},
			ErrorMessage: "Request timeout",
		}))
	}

	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.Processing.CompressionLevel,
			Skipper: isStreaming,
		}))
	}

	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 1 && origins[0] == "" {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
