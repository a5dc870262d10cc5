// handlers_sessions.go - Ingestion session handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/parser"
	"github.com/opt-statistics/backend/internal/render"
	"github.com/opt-statistics/backend/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of msgpack encoded results
const MIMEApplicationMsgpack = "application/msgpack"

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	store          storage.Store
	sessionMgr     SessionManager
	log            *slog.Logger
	pollInterval   time.Duration
	streamTimeout  time.Duration
	chartAssetHost string
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(store storage.Store, sessionMgr SessionManager, log *slog.Logger, pollInterval time.Duration, chartAssetHost string) SessionHandler {
	if log == nil {
		log = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &SessionHandlerImpl{
		store:          store,
		sessionMgr:     sessionMgr,
		log:            log,
		pollInterval:   pollInterval,
		streamTimeout:  5 * time.Minute,
		chartAssetHost: chartAssetHost,
	}
}

// HandleStartIngest starts ingesting an uploaded file. The log kind is detected when omitted.
func (h *SessionHandlerImpl) HandleStartIngest(c echo.Context) error {
	var req startIngestRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.FileID == "" {
		return NewValidationError("fileId")
	}
	kind, ok := models.ParseLogKind(req.Kind)
	if !ok {
		return NewValidationError("kind")
	}

	if _, err := h.store.Get(req.FileID); err != nil {
		return NewNotFoundError("file", req.FileID)
	}
	path, err := h.store.GetFilePath(req.FileID)
	if err != nil {
		return NewInternalError("failed to get file path", err)
	}

	sess, err := h.sessionMgr.StartSession(req.FileID, path, kind)
	if err != nil {
		if errors.Is(err, parser.ErrNoParser) {
			return NewUnrecognizedLogError(req.FileID, err)
		}
		return NewInternalError("failed to start session", err)
	}

	h.log.Info("Ingestion started", slog.String("session", sess.ID), slog.String("file", req.FileID),
		slog.String("kind", string(sess.Kind)))

	return c.JSON(http.StatusAccepted, sess)
}

// HandleListSessions returns all retained sessions, newest first
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.ListSessions())
}

// HandleSessionStatus returns the current status of a session
func (h *SessionHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("id")

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleProgressStream streams session status via SSE until the session finishes
func (h *SessionHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("id")

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	h.sendSSEData(c, sess)
	if sessionFinished(sess) {
		return nil
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(h.streamTimeout)
	defer timeout.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)
			if sessionFinished(sess) {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleResult returns the ingestion result as JSON
func (h *SessionHandlerImpl) HandleResult(c echo.Context) error {
	result, err := h.sessionMgr.GetResult(c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// HandleResultMsgpack returns the ingestion result in MessagePack format, keyed like the JSON form.
func (h *SessionHandlerImpl) HandleResultMsgpack(c echo.Context) error {
	result, err := h.sessionMgr.GetResult(c.Param("id"))
	if err != nil {
		return err
	}

	data, err := encodeMsgpack(result)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
}

// HandleDiagnostics returns the lines a session skipped. The optional "level" query keeps
// diagnostics at or above that level; "limit" caps the returned entries.
func (h *SessionHandlerImpl) HandleDiagnostics(c echo.Context) error {
	id := c.Param("id")

	var minLevel *slog.Level
	if raw := c.QueryParam("level"); raw != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(raw)); err != nil {
			return NewValidationError("level")
		}
		minLevel = &lvl
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = n
	}

	entries, err := h.sessionMgr.GetDiagnostics(id)
	if err != nil {
		return err
	}

	filtered := filterDiagnostics(entries, minLevel)
	total := len(filtered)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	return c.JSON(http.StatusOK, diagnosticsResponse{
		SessionID:   id,
		Total:       total,
		Diagnostics: filtered,
	})
}

// HandleCharts renders the session result as an HTML chart page
func (h *SessionHandlerImpl) HandleCharts(c echo.Context) error {
	id := c.Param("id")

	result, err := h.sessionMgr.GetResult(id)
	if err != nil {
		return err
	}

	title := "OPT statistics"
	if sess, ok := h.sessionMgr.GetSession(id); ok {
		if info, err := h.store.Get(sess.FileID); err == nil {
			title = fmt.Sprintf("%s - %s", title, info.Name)
		}
	}

	var buf bytes.Buffer
	err = render.Page(&buf, result, render.Options{Title: title, AssetsHost: h.chartAssetHost})
	if errors.Is(err, render.ErrNothingToRender) {
		return NewNotFoundError("charts", id)
	}
	if err != nil {
		return NewInternalError("failed to render charts", err)
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// HandleDeleteSession drops a session and its result
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")

	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type startIngestRequest struct {
	FileID string `json:"fileId"`
	Kind   string `json:"kind"`
}

type diagnosticsResponse struct {
	SessionID   string              `json:"sessionId"`
	Total       int                 `json:"total"`
	Diagnostics []models.ParseError `json:"diagnostics"`
}

// Helper methods

func sessionFinished(s *models.ParseSession) bool {
	return s.Status == models.SessionStatusComplete || s.Status == models.SessionStatusError
}

func filterDiagnostics(entries []models.ParseError, minLevel *slog.Level) []models.ParseError {
	if minLevel == nil {
		return entries
	}

	out := make([]models.ParseError, 0, len(entries))
	for _, e := range entries {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(e.Level))); err != nil {
			continue
		}
		if lvl >= *minLevel {
			out = append(out, e)
		}
	}
	return out
}

func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *SessionHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.log.Warn("Failed to encode SSE payload", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *SessionHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}
