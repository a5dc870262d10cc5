// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/upload"
)

// FileHandler handles raw log upload and file management
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleGetUploadJob(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// SessionHandler handles ingestion sessions and their results
type SessionHandler interface {
	HandleStartIngest(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleSessionStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleProgressStream(c echo.Context) error
	HandleResult(c echo.Context) error
	HandleResultMsgpack(c echo.Context) error
	HandleDiagnostics(c echo.Context) error
	HandleCharts(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// StatusStreamHandler pushes session status over a WebSocket
type StatusStreamHandler interface {
	HandleStatusStream(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileID, filePath string, kind models.LogKind) (*models.ParseSession, error)
	GetSession(id string) (*models.ParseSession, bool)
	ListSessions() []*models.ParseSession
	TouchSession(id string) bool
	GetResult(id string) (*models.IngestionResult, error)
	GetDiagnostics(id string) ([]models.ParseError, error)
	DeleteSession(id string) bool
}

// UploadJobs runs background assembly of chunked uploads
type UploadJobs interface {
	StartJob(uploadID, fileName string, totalChunks int, encoding string) (*upload.Job, error)
	GetJob(id string) (*upload.Job, bool)
}
