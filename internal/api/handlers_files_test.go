package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/storage"
	"github.com/opt-statistics/backend/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHandler_HandleUploadFile(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		content    []byte
		wantStatus int
		errCode    string
	}{
		{
			name:       "mission log",
			fileName:   "server.rpt",
			content:    []byte(missionLog),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "extension is case insensitive",
			fileName:   "FPS.LOG",
			content:    []byte(fpsLog),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "rejected extension",
			fileName:   "payload.exe",
			content:    []byte("MZ"),
			wantStatus: http.StatusUnsupportedMediaType,
			errCode:    "UNSUPPORTED_FILE_TYPE",
		},
		{
			name:       "no file part",
			wantStatus: http.StatusBadRequest,
			errCode:    "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			body, contentType := multipartBody(t, nil, tt.fileName, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := s.do(req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decodeAPIError(t, rec).Code)
				assert.Zero(t, s.store.GetFileCount())
				return
			}

			var info models.FileInfo
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, tt.fileName, info.Name)
			assert.Equal(t, int64(len(tt.content)), info.Size)
			assert.Equal(t, storage.StatusUploaded, info.Status)

			data, err := s.store.GetFileData(info.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.content, data)
		})
	}
}

func TestFileHandler_ChunkedUpload(t *testing.T) {
	s := newTestServer(t)

	sendChunk := func(uploadID, index string, content []byte) int {
		body, contentType := multipartBody(t, map[string]string{"uploadId": uploadID, "chunkIndex": index}, "blob", content)
		req := httptest.NewRequest(http.MethodPost, "/api/files/upload/chunk", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		return s.do(req).Code
	}

	assert.Equal(t, http.StatusAccepted, sendChunk("upload-1", "1", []byte("chunk two")))
	assert.Equal(t, http.StatusAccepted, sendChunk("upload-1", "0", []byte("chunk one ")))
	assert.Equal(t, http.StatusBadRequest, sendChunk("upload-1", "-1", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, sendChunk("upload-1", "first", []byte("x")))

	job := s.completeUpload(t, completeUploadRequest{UploadID: "upload-1", Name: "combined.txt", TotalChunks: 2})
	require.Equal(t, upload.StatusComplete, job.Status, job.Error)
	require.NotNil(t, job.FileInfo)
	assert.Equal(t, "combined.txt", job.FileInfo.Name)
	assert.Equal(t, int64(19), job.FileInfo.Size)

	data, err := s.store.GetFileData(job.FileInfo.ID)
	require.NoError(t, err)
	assert.Equal(t, "chunk one chunk two", string(data))

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(missionLog))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		compressed := buf.Bytes()

		assert.Equal(t, http.StatusAccepted, sendChunk("upload-2", "0", compressed[:10]))
		assert.Equal(t, http.StatusAccepted, sendChunk("upload-2", "1", compressed[10:]))

		job := s.completeUpload(t, completeUploadRequest{UploadID: "upload-2", Name: "server.rpt", TotalChunks: 2, Encoding: "gzip"})
		require.Equal(t, upload.StatusComplete, job.Status, job.Error)

		data, err := s.store.GetFileData(job.FileInfo.ID)
		require.NoError(t, err)
		assert.Equal(t, missionLog, string(data))
	})

	t.Run("missing chunk", func(t *testing.T) {
		assert.Equal(t, http.StatusAccepted, sendChunk("upload-3", "0", []byte("a")))
		job := s.completeUpload(t, completeUploadRequest{UploadID: "upload-3", Name: "x.rpt", TotalChunks: 3})
		assert.Equal(t, upload.StatusError, job.Status)
		assert.Nil(t, job.FileInfo)
	})

	t.Run("validation", func(t *testing.T) {
		rec := s.postJSON("/api/files/upload/complete", completeUploadRequest{Name: "x.rpt", TotalChunks: 1})
		assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rec).Code)

		rec = s.postJSON("/api/files/upload/complete", completeUploadRequest{UploadID: "u", Name: "x.rpt"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.postJSON("/api/files/upload/complete", completeUploadRequest{UploadID: "u", Name: "x.rpt", TotalChunks: 1, Encoding: "zstd"})
		assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rec).Code)

		rec = s.postJSON("/api/files/upload/complete", completeUploadRequest{UploadID: "u", Name: "x.zip", TotalChunks: 1})
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.get("/api/files/upload/jobs/nope").Code)
	})
}

func TestFileHandler_HandleGetRecentFiles(t *testing.T) {
	s := newTestServer(t)
	for i, name := range []string{"a.rpt", "b.rpt", "c.rpt"} {
		s.store.AddFile(string(rune('a'+i)), name, []byte(name))
	}

	rec := s.get("/api/files/recent")
	require.Equal(t, http.StatusOK, rec.Code)
	var files []models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 3)

	rec = s.get("/api/files/recent?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 2)

	rec = s.get("/api/files/recent?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileHandler_GetAndDelete(t *testing.T) {
	s := newTestServer(t)
	s.store.AddFile("file-1", "server.rpt", []byte(missionLog))

	rec := s.get("/api/files/file-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"server.rpt"`)

	sess := s.ingest(t, "file-1", "")

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/files/file-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := s.sessions.GetSession(sess.ID)
	assert.False(t, ok, "sessions of a deleted file are dropped")

	rec = s.get("/api/files/file-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeAPIError(t, rec).Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/files/file-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileHandler_DeletionDisabled(t *testing.T) {
	s := newTestServer(t, withDeletionDisabled())
	s.store.AddFile("file-1", "server.rpt", []byte(missionLog))

	rec := s.do(httptest.NewRequest(http.MethodDelete, "/api/files/file-1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, s.store.GetFileCount())
}
