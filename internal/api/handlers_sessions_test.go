package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/session"
	"github.com/opt-statistics/backend/internal/storage"
	"github.com/opt-statistics/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// stubSessionManager serves canned sessions for states that are hard to reach with a live run.
type stubSessionManager struct {
	sessions    map[string]*models.ParseSession
	diagnostics []models.ParseError
}

func (m *stubSessionManager) StartSession(fileID, filePath string, kind models.LogKind) (*models.ParseSession, error) {
	return nil, fmt.Errorf("not supported")
}

func (m *stubSessionManager) GetSession(id string) (*models.ParseSession, bool) {
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *stubSessionManager) ListSessions() []*models.ParseSession {
	var out []*models.ParseSession
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *stubSessionManager) TouchSession(id string) bool {
	_, ok := m.sessions[id]
	return ok
}

func (m *stubSessionManager) GetResult(id string) (*models.IngestionResult, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	if sess.Status != models.SessionStatusComplete {
		return nil, fmt.Errorf("%w: %s", session.ErrNotComplete, id)
	}
	return &models.IngestionResult{Kind: models.LogKindMission}, nil
}

func (m *stubSessionManager) GetDiagnostics(id string) ([]models.ParseError, error) {
	if _, ok := m.sessions[id]; !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	return m.diagnostics, nil
}

func (m *stubSessionManager) DeleteSession(id string) bool {
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

func newStubServer(t *testing.T, mgr *stubSessionManager) *echo.Echo {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(log, false)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Store:      testutil.NewMockStorage(t.TempDir()),
		SessionMgr: mgr,
		Log:        log,
	}))
	return e
}

func TestSessionHandler_MissionFlow(t *testing.T) {
	s := newTestServer(t)
	s.store.AddFile("file-1", "server.rpt", []byte(missionLog))

	sess := s.ingest(t, "file-1", "")
	require.Equal(t, models.SessionStatusComplete, sess.Status, sess.Error)
	assert.Equal(t, models.LogKindMission, sess.Kind)
	assert.Equal(t, "mission", sess.ParserName)

	file, err := s.store.Get("file-1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusIngested, file.Status)
	assert.Equal(t, models.LogKindMission, file.Kind)

	t.Run("status", func(t *testing.T) {
		rec := s.get("/api/sessions/" + sess.ID + "/status")
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.ParseSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, models.SessionStatusComplete, got.Status)
		assert.Equal(t, 100.0, got.Progress)
	})

	t.Run("result", func(t *testing.T) {
		rec := s.get("/api/sessions/" + sess.ID + "/result")
		require.Equal(t, http.StatusOK, rec.Code)

		var result models.IngestionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, models.LogKindMission, result.Kind)
		require.Contains(t, result.PlayerStats, "Verondena")
		assert.Equal(t, int64(50000), result.PlayerStats["Verondena"].MoneySpent)
		assert.NotEmpty(t, result.DominationSeries)
		assert.NotEmpty(t, result.BudgetSeries)
	})

	t.Run("msgpack result uses json keys", func(t *testing.T) {
		rec := s.get("/api/sessions/" + sess.ID + "/result/msgpack")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))

		var decoded map[string]interface{}
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
		assert.Equal(t, "mission", decoded["kind"])
		assert.Contains(t, decoded, "playerStats")
		assert.Contains(t, decoded, "budgetSeries")
	})

	t.Run("diagnostics", func(t *testing.T) {
		rec := s.get("/api/sessions/" + sess.ID + "/diagnostics")
		require.Equal(t, http.StatusOK, rec.Code)
		var all diagnosticsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
		// the untagged first line and the unknown tag
		assert.Equal(t, 2, all.Total)

		rec = s.get("/api/sessions/" + sess.ID + "/diagnostics?level=warn")
		require.Equal(t, http.StatusOK, rec.Code)
		var warn diagnosticsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &warn))
		require.Equal(t, 1, warn.Total)
		assert.Equal(t, 3, warn.Diagnostics[0].Line)
		assert.Equal(t, "unclassifiable line", warn.Diagnostics[0].Reason)

		rec = s.get("/api/sessions/" + sess.ID + "/diagnostics?limit=1")
		var limited diagnosticsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &limited))
		assert.Equal(t, 2, limited.Total)
		assert.Len(t, limited.Diagnostics, 1)

		assert.Equal(t, http.StatusBadRequest, s.get("/api/sessions/"+sess.ID+"/diagnostics?level=loud").Code)
	})

	t.Run("charts", func(t *testing.T) {
		rec := s.get("/api/sessions/" + sess.ID + "/charts")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
		assert.Contains(t, rec.Body.String(), "OPT statistics - server.rpt")
		assert.Contains(t, rec.Body.String(), "Domination")
	})

	t.Run("progress stream of finished session", func(t *testing.T) {
		rec := s.get("/api/sessions/" + sess.ID + "/progress")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

		var events []string
		scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				events = append(events, data)
			}
		}
		require.Len(t, events, 1)
		assert.Contains(t, events[0], `"status":"complete"`)
	})

	t.Run("list and delete", func(t *testing.T) {
		rec := s.get("/api/sessions")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []models.ParseSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)

		rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, http.StatusNotFound, s.get("/api/sessions/"+sess.ID+"/status").Code)
		assert.Equal(t, http.StatusNotFound, s.get("/api/sessions/"+sess.ID+"/result").Code)
	})
}

func TestSessionHandler_PerformanceKind(t *testing.T) {
	s := newTestServer(t)
	s.store.AddFile("file-1", "fps.log", []byte(fpsLog))

	sess := s.ingest(t, "file-1", models.LogKindPerformance)
	require.Equal(t, models.SessionStatusComplete, sess.Status, sess.Error)
	assert.Equal(t, 2, sess.PlayerCount)

	rec := s.get("/api/sessions/" + sess.ID + "/result")
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.IngestionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"Gelir", "Pelle"}, result.PerformanceSeries.Names())
	assert.Len(t, result.PerformanceSummaryBars, 4)
}

func TestSessionHandler_StartIngestErrors(t *testing.T) {
	s := newTestServer(t)
	s.store.AddFile("notes", "notes.txt", []byte("hello\nworld\n"))

	tests := []struct {
		name       string
		request    startIngestRequest
		wantStatus int
		errCode    string
	}{
		{"missing file id", startIngestRequest{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown kind", startIngestRequest{FileID: "notes", Kind: "replay"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown file", startIngestRequest{FileID: "nope"}, http.StatusNotFound, "NOT_FOUND"},
		{"unrecognized content", startIngestRequest{FileID: "notes"}, http.StatusUnprocessableEntity, "UNRECOGNIZED_LOG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.postJSON("/api/ingest", tt.request)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errCode, decodeAPIError(t, rec).Code)
		})
	}

	assert.Empty(t, s.sessions.ListSessions())
}

func TestSessionHandler_NotComplete(t *testing.T) {
	e := newStubServer(t, &stubSessionManager{
		sessions: map[string]*models.ParseSession{
			"running": {ID: "running", Status: models.SessionStatusParsing},
		},
	})

	for _, path := range []string{"/result", "/result/msgpack", "/charts"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/running"+path, nil))
		assert.Equal(t, http.StatusConflict, rec.Code, path)
		assert.Equal(t, "NOT_COMPLETE", decodeAPIError(t, rec).Code, path)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing/result", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/running/keepalive", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/missing/keepalive", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_ChartsWithoutSeries(t *testing.T) {
	e := newStubServer(t, &stubSessionManager{
		sessions: map[string]*models.ParseSession{
			"empty": {ID: "empty", Status: models.SessionStatusComplete},
		},
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/empty/charts", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterDiagnostics(t *testing.T) {
	entries := []models.ParseError{
		{Line: 0, Level: "DEBUG"},
		{Line: 1, Level: "INFO"},
		{Line: 2, Level: "WARN"},
		{Line: 3, Level: "ERROR"},
	}

	assert.Equal(t, entries, filterDiagnostics(entries, nil))

	warn := slog.LevelWarn
	got := filterDiagnostics(entries, &warn)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Line)
	assert.Equal(t, 3, got[1].Line)
}
