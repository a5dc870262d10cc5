package aggregate

import (
	"math"
	"sort"

	"github.com/opt-statistics/backend/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary bar series names, in registration order.
const (
	BarMedian = "median"
	BarMin    = "min"
	BarMean   = "mean"
	BarMax    = "max"
)

// Tableau 20 palette entries used for the summary bars.
var (
	tableauLightBlue   = models.RGBA{R: 0xA0, G: 0xCB, B: 0xE8, A: 1}
	tableauLightOrange = models.RGBA{R: 0xFF, G: 0xBE, B: 0x7D, A: 1}
	tableauLightGreen  = models.RGBA{R: 0x8C, G: 0xD1, B: 0x7D, A: 1}
	tableauLightTeal   = models.RGBA{R: 0x86, G: 0xBC, B: 0xB6, A: 1}
)

func barStyle(color models.RGBA, hidden bool) models.SeriesStyle {
	return models.SeriesStyle{
		Kind:            models.SeriesBar,
		Hidden:          hidden,
		BackgroundColor: &color,
		BorderColor:     &color,
	}
}

// FPSSummary holds the summary statistics of one player's FPS samples.
type FPSSummary struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// SummarizeValues computes min, max, mean and median of values. The median is the element at
// 0-based index ceil(n/2) of the sorted values, clamped to the last element; this is not the
// textbook median. ok is false for an empty input.
func SummarizeValues(values []float64) (sum FPSSummary, ok bool) {
	n := len(values)
	if n == 0 {
		return sum, false
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(float64(n) / 2))
	if idx > n-1 {
		idx = n - 1
	}

	return FPSSummary{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   stat.Mean(values, nil),
		Median: sorted[idx],
	}, true
}

// Summarize turns per-player FPS series into four bar series (median, min, mean, max), each
// holding one point per player in the order of the input. Series without numeric points are
// skipped.
func Summarize(series models.SeriesList) *Collection {
	bars := NewCollection()

	bars.AppendOrCreate(BarMedian, nil, barStyle(tableauLightBlue, false))
	bars.AppendOrCreate(BarMin, nil, barStyle(tableauLightGreen, true))
	bars.AppendOrCreate(BarMean, nil, barStyle(tableauLightOrange, false))
	bars.AppendOrCreate(BarMax, nil, barStyle(tableauLightTeal, true))

	for _, s := range series {
		values := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			if p.Value != nil {
				values = append(values, *p.Value)
			}
		}

		sum, ok := SummarizeValues(values)
		if !ok {
			continue
		}

		bars.AppendOrCreate(BarMedian, barPoint(s.Name, sum.Median), models.SeriesStyle{})
		bars.AppendOrCreate(BarMin, barPoint(s.Name, sum.Min), models.SeriesStyle{})
		bars.AppendOrCreate(BarMean, barPoint(s.Name, sum.Mean), models.SeriesStyle{})
		bars.AppendOrCreate(BarMax, barPoint(s.Name, sum.Max), models.SeriesStyle{})
	}

	return bars
}

func barPoint(player string, v float64) *models.SeriesPoint {
	return &models.SeriesPoint{Value: models.Float(v), Category: player}
}
