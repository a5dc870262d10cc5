// Package upload assembles chunked uploads in the background, inflating gzip-compressed logs.
package upload

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opt-statistics/backend/internal/models"
)

// Status represents the upload processing status.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusAssembling    Status = "assembling"
	StatusDecompressing Status = "decompressing"
	StatusComplete      Status = "complete"
	StatusError         Status = "error"
)

// Supported chunk encodings.
const (
	EncodingIdentity = ""
	EncodingGzip     = "gzip"
)

var ErrUnknownEncoding = errors.New("unknown upload encoding")

// ValidEncoding reports whether enc names a supported chunk encoding.
func ValidEncoding(enc string) bool {
	return enc == EncodingIdentity || enc == "identity" || enc == EncodingGzip
}

// Job represents an async upload processing job.
type Job struct {
	ID          string           `json:"id"`
	UploadID    string           `json:"uploadId"`
	FileName    string           `json:"fileName"`
	TotalChunks int              `json:"totalChunks"`
	Encoding    string           `json:"encoding,omitempty"`
	Status      Status           `json:"status"`
	Progress    float64          `json:"progress"`
	Stage       string           `json:"stage"`
	FileInfo    *models.FileInfo `json:"fileInfo,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// Store defines the interface needed from storage layer.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
	CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error)
}

// Manager handles async upload processing.
type Manager struct {
	jobs  map[string]*Job
	mu    sync.RWMutex
	store Store
	log   *slog.Logger
}

// NewManager creates a new upload processing manager.
func NewManager(store Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		jobs:  make(map[string]*Job),
		store: store,
		log:   log,
	}
}

// StartJob begins async assembly of an upload and returns a snapshot of the new job.
func (m *Manager) StartJob(uploadID, fileName string, totalChunks int, encoding string) (*Job, error) {
	if !ValidEncoding(encoding) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
	if encoding == "identity" {
		encoding = EncodingIdentity
	}

	job := &Job{
		ID:          uuid.New().String(),
		UploadID:    uploadID,
		FileName:    fileName,
		TotalChunks: totalChunks,
		Encoding:    encoding,
		Status:      StatusProcessing,
		Stage:       "preparing",
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	cp := *job
	m.mu.Unlock()

	go m.processJob(job)

	return &cp, nil
}

// GetJob returns a snapshot of a job.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

func (m *Manager) processJob(job *Job) {
	log := m.log.With(slog.String("job", job.ID[:8]), slog.String("name", job.FileName))
	log.Debug("Upload job started", slog.Int("chunks", job.TotalChunks), slog.String("encoding", job.Encoding))

	m.updateJobStatus(job, StatusAssembling, "assembling chunks", 0)

	info, err := m.store.CompleteChunkedUpload(job.UploadID, job.FileName, job.TotalChunks)
	if err != nil {
		m.markJobError(job, log, fmt.Errorf("assembling chunks: %w", err))
		return
	}
	m.updateJobStatus(job, StatusAssembling, "assembling chunks", 100)

	if job.Encoding == EncodingGzip {
		m.updateJobStatus(job, StatusDecompressing, "decompressing file", 0)

		inflated, err := m.inflate(job, info)
		if err != nil {
			if errDelete := m.store.Delete(info.ID); errDelete != nil {
				log.Warn("Failed to remove compressed upload", slog.String("error", errDelete.Error()))
			}
			m.markJobError(job, log, fmt.Errorf("decompressing: %w", err))
			return
		}
		info = inflated
	}

	m.markJobComplete(job, info)
	log.Info("Upload job complete", slog.String("file", info.ID), slog.Int64("size", info.Size))
}

// inflate stores the decompressed form of the gzip blob compressed and removes the blob.
func (m *Manager) inflate(job *Job, compressed *models.FileInfo) (*models.FileInfo, error) {
	path, err := m.store.GetFilePath(compressed.ID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	counter := &progressReader{r: f, total: compressed.Size, report: func(p float64) {
		m.updateJobStatus(job, StatusDecompressing, "decompressing file", p)
	}}

	zr, err := gzip.NewReader(counter)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	info, err := m.store.Save(compressed.Name, zr)
	if err != nil {
		return nil, err
	}

	if err := m.store.Delete(compressed.ID); err != nil {
		m.log.Warn("Failed to remove compressed upload", slog.String("file", compressed.ID),
			slog.String("error", err.Error()))
	}

	return info, nil
}

// progressReader reports the share of total read so far, at most every 100ms.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   time.Time
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && time.Since(p.last) > 100*time.Millisecond {
		p.last = time.Now()
		p.report(min(float64(p.read)*100/float64(p.total), 99))
	}
	return n, err
}

// updateJobStatus updates job progress. Assembling covers 0-40%, decompressing 40-90%.
func (m *Manager) updateJobStatus(job *Job, status Status, stage string, stageProgress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage

	switch status {
	case StatusAssembling:
		job.Progress = stageProgress * 0.4
	case StatusDecompressing:
		job.Progress = 40 + stageProgress*0.5
	}
}

func (m *Manager) markJobComplete(job *Job, info *models.FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	job.Status = StatusComplete
	job.Stage = "done"
	job.Progress = 100
	job.FileInfo = info
	job.CompletedAt = &now
}

func (m *Manager) markJobError(job *Job, log *slog.Logger, err error) {
	m.mu.Lock()
	now := time.Now()
	job.Status = StatusError
	job.Error = err.Error()
	job.CompletedAt = &now
	m.mu.Unlock()

	log.Warn("Upload job failed", slog.String("error", err.Error()))
}

// CleanupOldJobs removes finished jobs completed more than maxAge ago.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
