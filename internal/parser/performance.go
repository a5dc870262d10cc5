package parser

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opt-statistics/backend/internal/aggregate"
	"github.com/opt-statistics/backend/internal/diag"
	"github.com/opt-statistics/backend/internal/models"
)

// 02-03-2019 20:00:12 - Gelir;47.0588;
var fpsRegex = regexp.MustCompile(`(?P<datetime>\d{2}-\d{2}-\d{4} \d{2}:\d{2}:\d{2}) - (?P<player>.+);(?P<fps>\d+\.\d+);`)

var (
	fpsDateTime = fpsRegex.SubexpIndex("datetime")
	fpsPlayer   = fpsRegex.SubexpIndex("player")
	fpsValue    = fpsRegex.SubexpIndex("fps")
)

const fpsTimeLayout = "02-01-2006 15:04:05"

// PerformanceParser ingests FPS sample logs into one hidden line series per player plus the
// median/min/mean/max summary bars.
type PerformanceParser struct{}

func NewPerformanceParser() *PerformanceParser {
	return &PerformanceParser{}
}

func (p *PerformanceParser) Name() string {
	return "performance"
}

func (p *PerformanceParser) Kind() models.LogKind {
	return models.LogKindPerformance
}

func (p *PerformanceParser) CanParse(filePath string) (bool, error) {
	return sniff(filePath, fpsRegex.MatchString)
}

func (p *PerformanceParser) Parse(filePath string, log *slog.Logger, onProgress ProgressCallback) (*models.IngestionResult, error) {
	return feedFile(newPerformanceRun(log), filePath, onProgress)
}

func (p *PerformanceParser) ParseText(text string, log *slog.Logger) *models.IngestionResult {
	return feedText(newPerformanceRun(log), text)
}

func performanceStyle() models.SeriesStyle {
	style := models.DefaultLineStyle()
	style.Hidden = true
	style.LineTension = 0.25
	style.BackgroundColor = &models.RGBA{}
	return style
}

type performanceRun struct {
	ctx *aggregate.Context
	log *slog.Logger

	// start is the first sample of the whole log; every player shares it.
	start time.Time

	lines   int
	samples int
	skipped int
}

func newPerformanceRun(log *slog.Logger) *performanceRun {
	return &performanceRun{
		ctx: aggregate.NewContext(),
		log: orDiscard(log),
	}
}

func (r *performanceRun) feed(idx int, text string) {
	r.lines++
	if strings.TrimSpace(text) == "" {
		return
	}

	m := fpsRegex.FindStringSubmatch(text)
	if m == nil {
		r.skipped++
		r.log.Debug("line skipped",
			slog.Int(diag.KeyLine, idx), slog.String(diag.KeyText, text),
			slog.String(diag.KeyReason, "no fps sample"))
		return
	}

	ts, err := time.Parse(fpsTimeLayout, m[fpsDateTime])
	if err != nil {
		r.skipped++
		r.log.Warn("invalid sample time",
			slog.Int(diag.KeyLine, idx), slog.String(diag.KeyText, text),
			slog.String(diag.KeyReason, err.Error()))
		return
	}

	fps, err := strconv.ParseFloat(m[fpsValue], 64)
	if err != nil {
		r.skipped++
		r.log.Warn("invalid fps value",
			slog.Int(diag.KeyLine, idx), slog.String(diag.KeyText, text),
			slog.String(diag.KeyReason, err.Error()))
		return
	}

	if r.start.IsZero() {
		r.start = ts
	}

	point := &models.SeriesPoint{
		GameTimeMs: ts.Sub(r.start).Milliseconds(),
		Value:      models.Float(fps),
		SourceLine: text,
	}
	r.ctx.Performance.AppendOrCreate(m[fpsPlayer], point, performanceStyle())
	r.samples++
}

func (r *performanceRun) finish() *models.IngestionResult {
	result := r.ctx.PerformanceResult()

	r.log.Info("performance log ingested",
		slog.Int("lines", r.lines),
		slog.Int("samples", r.samples),
		slog.Int("skipped", r.skipped),
		slog.Int("players", len(result.PerformanceSeries)))

	return result
}
