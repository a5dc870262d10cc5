package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return store
}

func TestNewLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, err := NewLocalStore(dir)
	require.NoError(t, err)

	stat, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestLocalStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)

	content := `22:33:54 "[OPT] (Budget) Log: 2:24:45 --- x"`
	info, err := store.Save("server.rpt", strings.NewReader(content))
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "server.rpt", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, StatusUploaded, info.Status)

	got, err := store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Name, got.Name)

	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetFilePath("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_List(t *testing.T) {
	store := createTestStore(t)

	for _, name := range []string{"a.rpt", "b.rpt", "c.rpt"} {
		_, err := store.Save(name, strings.NewReader(name))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.rpt", all[0].Name)
	assert.Equal(t, "a.rpt", all[2].Name)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("fps.log", strings.NewReader("x"))
	require.NoError(t, err)
	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)

	require.NoError(t, store.Delete(info.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, store.Delete(info.ID), ErrNotFound)
}

func TestLocalStore_SetStatus(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("fps.log", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.SetStatus(info.ID, StatusIngested, models.LogKindPerformance))
	got, err := store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIngested, got.Status)
	assert.Equal(t, models.LogKindPerformance, got.Kind)

	require.NoError(t, store.SetStatus(info.ID, StatusError, ""))
	got, err = store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LogKindPerformance, got.Kind)

	assert.ErrorIs(t, store.SetStatus("missing", StatusError, ""), ErrNotFound)
}

func TestLocalStore_ChunkedUpload(t *testing.T) {
	store := createTestStore(t)
	uploadID := uuid.New().String()

	require.NoError(t, store.SaveChunk(uploadID, 1, strings.NewReader("world")))
	require.NoError(t, store.SaveChunk(uploadID, 0, strings.NewReader("hello ")))

	info, err := store.CompleteChunkedUpload(uploadID, "server.rpt", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size)

	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = os.Stat(filepath.Join(store.uploadDir, "chunks", uploadID))
	assert.True(t, os.IsNotExist(err))

	t.Run("missing chunk", func(t *testing.T) {
		id := uuid.New().String()
		require.NoError(t, store.SaveChunk(id, 0, strings.NewReader("a")))
		_, err := store.CompleteChunkedUpload(id, "x.rpt", 2)
		assert.Error(t, err)
	})

	t.Run("invalid upload id", func(t *testing.T) {
		assert.Error(t, store.SaveChunk("../../etc", 0, strings.NewReader("a")))
	})
}
