package models

import (
	"fmt"
	"strconv"
)

// RGBA is a display color. A is in [0,1].
type RGBA struct {
	R uint8   `json:"r" yaml:"r"`
	G uint8   `json:"g" yaml:"g"`
	B uint8   `json:"b" yaml:"b"`
	A float64 `json:"a" yaml:"a"`
}

// WithAlpha returns c with its alpha channel replaced.
func (c RGBA) WithAlpha(alpha float64) RGBA {
	c.A = alpha
	return c
}

// CSS renders the color as a CSS rgba() expression.
func (c RGBA) CSS() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// Hex renders the color as #rrggbb, dropping alpha.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// SeriesKind is the visualization a series feeds.
type SeriesKind string

const (
	SeriesLine          SeriesKind = "line"
	SeriesBar           SeriesKind = "bar"
	SeriesHorizontalBar SeriesKind = "horizontalBar"
	SeriesRangeBar      SeriesKind = "rangeBar"
)

// SeriesStyle enumerates the styling fields a renderer understands.
type SeriesStyle struct {
	Kind                 SeriesKind `json:"kind"`
	Stack                string     `json:"stack,omitempty"`
	Stepped              bool       `json:"stepped,omitempty"`
	Hidden               bool       `json:"hidden,omitempty"`
	BorderWidth          int        `json:"borderWidth,omitempty"`
	PointRadius          int        `json:"pointRadius"`
	LineTension          float64    `json:"lineTension,omitempty"`
	BackgroundColor      *RGBA      `json:"backgroundColor,omitempty"`
	BorderColor          *RGBA      `json:"borderColor,omitempty"`
	HoverBackgroundColor *RGBA      `json:"hoverBackgroundColor,omitempty"`
}

// DefaultLineStyle is the base style for game-time line series.
func DefaultLineStyle() SeriesStyle {
	return SeriesStyle{
		Kind:        SeriesLine,
		BorderWidth: 1,
		PointRadius: 0,
		LineTension: 0.22,
	}
}

// SeriesPoint is one data point. Value is nil for categorical points (domination bars),
// whose y coordinate is Category instead.
type SeriesPoint struct {
	GameTimeMs int64    `json:"t"`
	Value      *float64 `json:"y,omitempty"`
	Category   string   `json:"category,omitempty"`
	SourceLine string   `json:"line,omitempty"`
}

// Float returns a pointer to v, for SeriesPoint.Value.
func Float(v float64) *float64 {
	return &v
}

// Series is a named, chronologically ordered sequence of points.
type Series struct {
	Name   string        `json:"name"`
	Style  SeriesStyle   `json:"style"`
	Points []SeriesPoint `json:"points"`
}

// SeriesList is an ordered set of series with unique names.
type SeriesList []*Series

// Get returns the series called name, or nil.
func (l SeriesList) Get(name string) *Series {
	for _, s := range l {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Names returns the series names in order.
func (l SeriesList) Names() []string {
	names := make([]string, len(l))
	for i, s := range l {
		names[i] = s.Name
	}
	return names
}
