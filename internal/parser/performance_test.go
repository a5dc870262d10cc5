package parser

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/opt-statistics/backend/internal/aggregate"
	"github.com/opt-statistics/backend/internal/diag"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fpsLog = strings.Join([]string{
	`02-03-2019 20:00:00 - Gelir;40.0;`,
	`02-03-2019 20:00:10 - Pelle;10.0;`,
	` 2:00:11 Client: Remote object 2:0 not found`,
	`02-03-2019 20:00:20 - Gelir;60.0;`,
	`02-03-2019 20:00:30 - Pelle;30.0;`,
	`02-03-2019 20:00:40 - Pelle;20.0;`,
}, "\n")

func TestPerformanceSeries(t *testing.T) {
	rec := diag.NewRecorder(slog.LevelDebug)
	result := NewPerformanceParser().ParseText(fpsLog, slog.New(rec))

	assert.Equal(t, models.LogKindPerformance, result.Kind)
	assert.Equal(t, []string{"Gelir", "Pelle"}, result.PerformanceSeries.Names())

	pelle := result.PerformanceSeries.Get("Pelle")
	require.Len(t, pelle.Points, 3)
	// elapsed time is relative to the first sample of the whole log
	assert.Equal(t, int64(10000), pelle.Points[0].GameTimeMs)
	assert.Equal(t, int64(40000), pelle.Points[2].GameTimeMs)
	assert.Equal(t, 20.0, *pelle.Points[2].Value)
	assert.Equal(t, `02-03-2019 20:00:40 - Pelle;20.0;`, pelle.Points[2].SourceLine)

	assert.True(t, pelle.Style.Hidden)
	assert.Equal(t, 0.25, pelle.Style.LineTension)
	assert.Equal(t, &models.RGBA{}, pelle.Style.BackgroundColor)

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, 2, rec.Entries()[0].Line)
}

func TestPerformanceSummaryBars(t *testing.T) {
	result := NewPerformanceParser().ParseText(fpsLog, nil)
	bars := result.PerformanceSummaryBars

	assert.Equal(t, []string{aggregate.BarMedian, aggregate.BarMin, aggregate.BarMean, aggregate.BarMax}, bars.Names())

	value := func(bar, player string) float64 {
		t.Helper()
		for _, p := range bars.Get(bar).Points {
			if p.Category == player {
				return *p.Value
			}
		}
		t.Fatalf("no %s bar for %s", bar, player)
		return 0
	}

	// [10 20 30] sorted, index ceil(3/2) = 2
	assert.Equal(t, 30.0, value(aggregate.BarMedian, "Pelle"))
	assert.Equal(t, 10.0, value(aggregate.BarMin, "Pelle"))
	assert.Equal(t, 20.0, value(aggregate.BarMean, "Pelle"))
	assert.Equal(t, 30.0, value(aggregate.BarMax, "Pelle"))

	assert.Equal(t, 60.0, value(aggregate.BarMedian, "Gelir"))
	assert.Equal(t, 50.0, value(aggregate.BarMean, "Gelir"))

	assert.True(t, bars.Get(aggregate.BarMin).Style.Hidden)
	assert.False(t, bars.Get(aggregate.BarMedian).Style.Hidden)
}

func TestPerformanceInvalidDate(t *testing.T) {
	rec := diag.NewRecorder(slog.LevelWarn)
	result := NewPerformanceParser().ParseText(`32-13-2019 20:00:00 - Gelir;40.0;`, slog.New(rec))

	assert.Empty(t, result.PerformanceSeries)
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, "WARN", rec.Entries()[0].Level)
}

func TestPerformanceIdempotent(t *testing.T) {
	p := NewPerformanceParser()
	assert.Equal(t, p.ParseText(fpsLog, nil), p.ParseText(fpsLog, nil))
}
