package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opt-statistics/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRegistryFindParser(t *testing.T) {
	r := NewRegistry(nil)

	p, err := r.FindParser(writeTemp(t, "server.rpt", missionLog))
	require.NoError(t, err)
	assert.Equal(t, "mission", p.Name())
	assert.Equal(t, models.LogKindMission, p.Kind())

	p, err = r.FindParser(writeTemp(t, "fps.log", fpsLog))
	require.NoError(t, err)
	assert.Equal(t, "performance", p.Name())

	_, err = r.FindParser(writeTemp(t, "notes.txt", "hello\nworld\n"))
	assert.ErrorIs(t, err, ErrNoParser)

	_, err = r.FindParser(filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(nil)

	p, err := r.GetParserByName("Performance")
	require.NoError(t, err)
	assert.Equal(t, models.LogKindPerformance, p.Kind())

	_, err = r.GetParserByName("replay")
	assert.Error(t, err)

	p, err = r.ForKind(models.LogKindMission)
	require.NoError(t, err)
	assert.Equal(t, "mission", p.Name())

	_, err = r.ForKind("replay")
	assert.ErrorIs(t, err, ErrNoParser)

	p, err = r.Resolve(models.LogKindPerformance, "")
	require.NoError(t, err)
	assert.Equal(t, "performance", p.Name())
}

func TestParseFileMatchesText(t *testing.T) {
	p := NewMissionParser(nil)
	path := writeTemp(t, "server.rpt", missionLog)

	var calls, lines int
	fromFile, err := p.Parse(path, nil, func(processed int, _ int64, _ int64) {
		calls++
		lines = processed
	})
	require.NoError(t, err)

	assert.Equal(t, p.ParseText(missionLog, nil), fromFile)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 10, lines)

	_, err = p.Parse(filepath.Join(t.TempDir(), "missing.rpt"), nil, nil)
	assert.Error(t, err)
}
