// Package session runs ingestions in the background and keeps their results in memory.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opt-statistics/backend/internal/diag"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/parser"
	"github.com/opt-statistics/backend/internal/storage"
)

// DefaultMaxSessions limits retained sessions to prevent memory exhaustion
const DefaultMaxSessions = 10

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotComplete     = errors.New("session not complete")
)

// StatusSink receives the ingestion state of uploaded files.
type StatusSink interface {
	SetStatus(id string, status string, kind models.LogKind) error
}

// Options tune a Manager.
type Options struct {
	MaxSessions int
	// DiagnosticLevel is the lowest level kept in a session's diagnostics.
	DiagnosticLevel slog.Level
}

// Manager handles ingestion sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	registry *parser.Registry
	files    StatusSink
	log      *slog.Logger
	opts     Options
}

// SessionState holds the session metadata, its result and the recorded diagnostics.
type SessionState struct {
	Session      *models.ParseSession
	Result       *models.IngestionResult
	Diagnostics  *diag.Recorder
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a new session manager. files may be nil.
func NewManager(registry *parser.Registry, files StatusSink, log *slog.Logger, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		sessions: make(map[string]*SessionState),
		registry: registry,
		files:    files,
		log:      log,
		opts:     opts,
	}
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// StartSession begins ingesting filePath. An empty kind lets the registry sniff the file.
func (m *Manager) StartSession(fileID, filePath string, kind models.LogKind) (*models.ParseSession, error) {
	p, err := m.registry.Resolve(kind, filePath)
	if err != nil {
		return nil, fmt.Errorf("selecting parser: %w", err)
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()

	session := models.NewParseSession(sessionID, fileID)
	session.Status = models.SessionStatusParsing
	session.Kind = p.Kind()
	session.ParserName = p.Name()

	now := time.Now()
	state := &SessionState{
		Session:      session,
		Diagnostics:  diag.NewRecorder(m.opts.DiagnosticLevel),
		CreatedAt:    now,
		LastAccessed: now,
	}

	// The snapshot is taken before runParse starts writing to session.
	cp := *session

	m.mu.Lock()
	m.sessions[sessionID] = state
	m.mu.Unlock()

	m.setFileStatus(fileID, storage.StatusIngesting, "")

	go m.runParse(state, p, filePath)

	return &cp, nil
}

func (m *Manager) runParse(state *SessionState, p parser.Parser, filePath string) {
	sessionID := state.Session.ID
	log := m.log.With(slog.String("session", shortID(sessionID)), slog.String("parser", p.Name()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Ingestion panicked", slog.Any("panic", r))
			m.updateSessionError(state, fmt.Sprintf("ingestion panicked: %v", r))
		}
	}()

	start := time.Now()
	log.Info("Starting ingestion", slog.String("path", filePath))

	progressCb := func(lines int, bytesRead, totalBytes int64) {
		var progress float64
		if totalBytes > 0 {
			progress = float64(bytesRead) * 99.0 / float64(totalBytes)
		}
		if progress > 99 {
			progress = 99
		}

		m.mu.Lock()
		state.Session.Progress = progress
		state.Session.LineCount = lines
		m.mu.Unlock()
	}

	result, err := p.Parse(filePath, diag.Tee(log, state.Diagnostics), progressCb)
	if err != nil {
		log.Error("Ingestion failed", slog.String("error", err.Error()))
		m.updateSessionError(state, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	elapsed := time.Since(start).Milliseconds()
	seriesCount := len(result.ScoreSeries) + len(result.DominationSeries) + len(result.BudgetSeries) +
		len(result.PerformanceSeries)

	m.setFileStatus(state.Session.FileID, storage.StatusIngested, result.Kind)

	m.mu.Lock()
	state.Result = result
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.PlayerCount = len(result.PlayerStats)
	if result.Kind == models.LogKindPerformance {
		state.Session.PlayerCount = len(result.PerformanceSeries)
	}
	state.Session.SeriesCount = seriesCount
	state.Session.DiagnosticCount = state.Diagnostics.Len()
	state.Session.ProcessingTimeMs = elapsed
	m.mu.Unlock()

	log.Info("Ingestion complete",
		slog.Int64("elapsed_ms", elapsed),
		slog.Int("series", seriesCount),
		slog.Int("diagnostics", state.Diagnostics.Len()))
}

func (m *Manager) updateSessionError(state *SessionState, reason string) {
	m.setFileStatus(state.Session.FileID, storage.StatusError, "")

	m.mu.Lock()
	state.Session.Status = models.SessionStatusError
	state.Session.Error = reason
	state.Session.DiagnosticCount = state.Diagnostics.Len()
	m.mu.Unlock()
}

func (m *Manager) setFileStatus(fileID, status string, kind models.LogKind) {
	if m.files == nil || fileID == "" {
		return
	}
	if err := m.files.SetStatus(fileID, status, kind); err != nil {
		m.log.Warn("Failed to update file status", slog.String("file", fileID), slog.String("error", err.Error()))
	}
}

func finished(s *models.ParseSession) bool {
	return s.Status == models.SessionStatusComplete || s.Status == models.SessionStatusError
}

// cleanupOldSessionsIfNeeded removes the oldest finished sessions when at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.opts.MaxSessions {
		return
	}

	var candidates []*SessionState
	for _, state := range m.sessions {
		if finished(state.Session) {
			candidates = append(candidates, state)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	for i := 0; i < toFree && i < len(candidates); i++ {
		id := candidates[i].Session.ID
		delete(m.sessions, id)
		m.log.Debug("Evicted session", slog.String("session", shortID(id)))
	}
}

// CleanupOldSessions removes finished sessions not accessed within maxAge. Sessions accessed
// within SessionKeepAliveWindow are always kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if !finished(state.Session) {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			m.log.Debug("Cleaned up aged session", slog.String("session", shortID(id)),
				slog.Duration("idle", now.Sub(state.LastAccessed).Round(time.Second)))
		}
	}

	return removed
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(id string) (*models.ParseSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *state.Session
	return &cp, true
}

// ListSessions returns snapshots of all sessions, newest first.
func (m *Manager) ListSessions() []*models.ParseSession {
	m.mu.RLock()
	states := make([]*SessionState, 0, len(m.sessions))
	for _, state := range m.sessions {
		states = append(states, state)
	}
	m.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].CreatedAt.After(states[j].CreatedAt)
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.ParseSession, len(states))
	for i, state := range states {
		cp := *state.Session
		out[i] = &cp
	}
	return out
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetResult returns the result of a completed session. The result must not be modified.
func (m *Manager) GetResult(id string) (*models.IngestionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if state.Session.Status != models.SessionStatusComplete || state.Result == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotComplete, id, state.Session.Status)
	}

	state.LastAccessed = time.Now()
	return state.Result, nil
}

// GetDiagnostics returns the diagnostics recorded so far, including for running sessions.
func (m *Manager) GetDiagnostics(id string) ([]models.ParseError, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return state.Diagnostics.Entries(), nil
}

// DeleteSession drops a session and its result.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}
