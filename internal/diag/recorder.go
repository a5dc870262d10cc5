// Package diag records ingestion diagnostics emitted through log/slog so callers can
// inspect skipped lines and resolution failures after a run.
package diag

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opt-statistics/backend/internal/models"
	slogmulti "github.com/samber/slog-multi"
)

// Attribute keys used by ingestion diagnostics.
const (
	KeyLine   = "line"
	KeyText   = "text"
	KeyReason = "reason"
)

type store struct {
	mu      sync.Mutex
	entries []models.ParseError
	counts  map[slog.Level]int
}

// Recorder is a slog.Handler that keeps line diagnostics: records at or above its level that
// carry a KeyLine attribute. Run summaries and other records without a line are dropped.
type Recorder struct {
	level slog.Level
	attrs []slog.Attr
	st    *store
}

// NewRecorder returns a recorder keeping records at level and above.
func NewRecorder(level slog.Level) *Recorder {
	return &Recorder{
		level: level,
		st:    &store{counts: make(map[slog.Level]int)},
	}
}

func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	entry := models.ParseError{
		Line:   -1,
		Reason: rec.Message,
		Level:  rec.Level.String(),
	}

	hasLine := false
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case KeyLine:
			hasLine = true
			if a.Value.Kind() == slog.KindInt64 {
				entry.Line = int(a.Value.Int64())
			}
		case KeyText:
			entry.Content = a.Value.String()
		case KeyReason:
			entry.Reason = rec.Message + ": " + a.Value.String()
		}
		return true
	}

	for _, a := range r.attrs {
		apply(a)
	}
	rec.Attrs(apply)

	if !hasLine {
		return nil
	}

	r.st.mu.Lock()
	r.st.entries = append(r.st.entries, entry)
	r.st.counts[rec.Level]++
	r.st.mu.Unlock()

	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Recorder{level: r.level, attrs: merged, st: r.st}
}

// WithGroup is a no-op; diagnostics use flat attributes only.
func (r *Recorder) WithGroup(string) slog.Handler {
	return r
}

// Entries returns a copy of the recorded diagnostics in emission order.
func (r *Recorder) Entries() []models.ParseError {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := make([]models.ParseError, len(r.st.entries))
	copy(out, r.st.entries)
	return out
}

// Len returns the number of recorded diagnostics.
func (r *Recorder) Len() int {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return len(r.st.entries)
}

// CountAtLeast returns how many diagnostics were recorded at level or above.
func (r *Recorder) CountAtLeast(level slog.Level) int {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	n := 0
	for l, c := range r.st.counts {
		if l >= level {
			n += c
		}
	}
	return n
}

// Tee returns a logger writing to both parent's handler and the recorder.
// A nil parent records only.
func Tee(parent *slog.Logger, rec *Recorder) *slog.Logger {
	if parent == nil {
		return slog.New(rec)
	}
	return slog.New(slogmulti.Fanout(parent.Handler(), rec))
}
