package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const missionLog = `20:10:00 "[OPT] (Fahne) Log: 0:10:00 --- CSAT Flagge erobert von Gelir" AAF 12 CSAT 40
22:33:54 "[OPT] (Budget) Log: 2:24:45 --- AAF alt: 1.495e+06 - neu: 1.445e+06 - Differenz: -50000. Verondena (ver)kaufte WY-55 Hellcat (Unarmed)"`

const fpsLog = `02-03-2019 20:00:00 - Gelir;40.0;
02-03-2019 20:00:10 - Pelle;10.0;
02-03-2019 20:00:20 - Gelir;60.0;`

func TestPageMission(t *testing.T) {
	result := parser.NewMissionParser(nil).ParseText(missionLog, nil)

	var buf bytes.Buffer
	require.NoError(t, Page(&buf, result, Options{Title: "Mission 42"}))

	html := buf.String()
	assert.Contains(t, html, "<title>Mission 42</title>")
	assert.Contains(t, html, "Score")
	assert.Contains(t, html, "Budget")
	assert.Contains(t, html, "Domination")
	assert.NotContains(t, html, "FPS summary")
}

func TestPagePerformance(t *testing.T) {
	result := parser.NewPerformanceParser().ParseText(fpsLog, nil)

	var buf bytes.Buffer
	require.NoError(t, Page(&buf, result, Options{AssetsHost: "/assets/"}))

	html := buf.String()
	assert.Contains(t, html, "Server FPS")
	assert.Contains(t, html, "FPS summary")
	assert.Contains(t, html, "Gelir")
	assert.True(t, strings.Contains(html, "/assets/"))
}

func TestPageEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Page(&buf, &models.IngestionResult{Kind: models.LogKindMission}, Options{})
	assert.ErrorIs(t, err, ErrNothingToRender)
	assert.Zero(t, buf.Len())
}

func TestHiddenSeries(t *testing.T) {
	list := models.SeriesList{
		{Name: "shown"},
		{Name: "hidden", Style: models.SeriesStyle{Hidden: true}},
	}
	assert.Equal(t, map[string]bool{"hidden": false}, hiddenSeries(list))
}

func TestColorPrefersBorder(t *testing.T) {
	border := models.RGBA{R: 1, G: 2, B: 3, A: 1}
	bg := models.RGBA{R: 9, G: 9, B: 9, A: 0.05}
	assert.Equal(t, border.CSS(), color(models.SeriesStyle{BorderColor: &border, BackgroundColor: &bg}))
	assert.Equal(t, bg.CSS(), color(models.SeriesStyle{BackgroundColor: &bg}))
	assert.Empty(t, color(models.SeriesStyle{}))
}
