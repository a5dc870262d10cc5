// handlers_files.go - Raw log upload and file management handlers
package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/storage"
	"github.com/opt-statistics/backend/internal/upload"
)

const (
	defaultRecentFiles = 20
	maxRecentFiles     = 200
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store       storage.Store
	sessionMgr  SessionManager
	uploadJobs  UploadJobs
	log         *slog.Logger
	allowedExts []string
	allowDelete bool
}

// NewFileHandler creates a new file handler. An empty allowedExts accepts any file name.
func NewFileHandler(store storage.Store, sessionMgr SessionManager, uploadJobs UploadJobs, log *slog.Logger, allowedExts []string, allowDelete bool) FileHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FileHandlerImpl{
		store:       store,
		sessionMgr:  sessionMgr,
		uploadJobs:  uploadJobs,
		log:         log,
		allowedExts: allowedExts,
		allowDelete: allowDelete,
	}
}

// HandleUploadFile accepts a multipart upload in the "file" field and saves it to storage
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if err := h.checkName(file.Filename); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	h.log.Info("File uploaded", slog.String("file", info.ID), slog.String("name", info.Name),
		slog.Int64("size", info.Size))

	return c.JSON(http.StatusCreated, info)
}

// HandleUploadChunk accepts one chunk of a chunked upload as multipart form data
func (h *FileHandlerImpl) HandleUploadChunk(c echo.Context) error {
	uploadID := c.FormValue("uploadId")
	if uploadID == "" {
		return NewValidationError("uploadId")
	}
	chunkIndex, err := strconv.Atoi(c.FormValue("chunkIndex"))
	if err != nil || chunkIndex < 0 {
		return NewValidationError("chunkIndex")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no chunk provided", err)
	}
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open chunk", err)
	}
	defer src.Close()

	if err := h.store.SaveChunk(uploadID, chunkIndex, src); err != nil {
		return NewBadRequestError("failed to save chunk", err)
	}

	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload starts assembling the chunks of an upload in the background.
// Chunks sent with encoding "gzip" are inflated after assembly.
func (h *FileHandlerImpl) HandleCompleteUpload(c echo.Context) error {
	var req completeUploadRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}
	if err := h.checkName(req.Name); err != nil {
		return err
	}

	job, err := h.uploadJobs.StartJob(req.UploadID, req.Name, req.TotalChunks, req.Encoding)
	if err != nil {
		return NewBadRequestError("failed to start upload job", err)
	}

	return c.JSON(http.StatusAccepted, job)
}

// HandleGetUploadJob returns the state of an upload job; its fileInfo is set once complete
func (h *FileHandlerImpl) HandleGetUploadJob(c echo.Context) error {
	id := c.Param("jobId")

	job, ok := h.uploadJobs.GetJob(id)
	if !ok {
		return NewNotFoundError("upload job", id)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleGetRecentFiles returns the most recently uploaded files
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := defaultRecentFiles
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = min(n, maxRecentFiles)
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes a file together with the sessions ingested from it
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	if !h.allowDelete {
		return NewForbiddenError("file deletion is disabled")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	if h.sessionMgr != nil {
		for _, sess := range h.sessionMgr.ListSessions() {
			if sess.FileID == id {
				h.sessionMgr.DeleteSession(sess.ID)
			}
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *FileHandlerImpl) checkName(name string) error {
	if name == "" {
		return NewValidationError("name")
	}
	if len(h.allowedExts) == 0 {
		return nil
	}
	if !slices.Contains(h.allowedExts, strings.ToLower(filepath.Ext(name))) {
		return NewUnsupportedTypeError(name)
	}
	return nil
}

// Request/Response types

type completeUploadRequest struct {
	UploadID    string `json:"uploadId"`
	Name        string `json:"name"`
	TotalChunks int    `json:"totalChunks"`
	Encoding    string `json:"encoding,omitempty"`
}

func (r *completeUploadRequest) validate() error {
	if r.UploadID == "" {
		return NewValidationError("uploadId")
	}
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.TotalChunks <= 0 {
		return NewBadRequestError("totalChunks must be positive", nil)
	}
	if !upload.ValidEncoding(r.Encoding) {
		return NewValidationError("encoding")
	}
	return nil
}
