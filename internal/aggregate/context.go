package aggregate

import "github.com/opt-statistics/backend/internal/models"

// Context holds all mutable state of a single ingestion run.
type Context struct {
	Players     *Players
	Score       *Collection
	Domination  *Collection
	Budget      *Collection
	Performance *Collection

	timeRange *models.GameTimeRange
}

// NewContext returns an empty aggregation context.
func NewContext() *Context {
	return &Context{
		Players:     NewPlayers(),
		Score:       NewCollection(),
		Domination:  NewCollection(),
		Budget:      NewCollection(),
		Performance: NewCollection(),
	}
}

// ObserveGameTime widens the mission time range to include ms.
func (c *Context) ObserveGameTime(ms int64) {
	if c.timeRange == nil {
		c.timeRange = &models.GameTimeRange{StartMs: ms, EndMs: ms}
		return
	}
	if ms < c.timeRange.StartMs {
		c.timeRange.StartMs = ms
	}
	if ms > c.timeRange.EndMs {
		c.timeRange.EndMs = ms
	}
}

// MissionResult freezes the context into a mission IngestionResult.
func (c *Context) MissionResult() *models.IngestionResult {
	var tr *models.GameTimeRange
	if c.timeRange != nil {
		cp := *c.timeRange
		tr = &cp
	}

	return &models.IngestionResult{
		Kind:             models.LogKindMission,
		PlayerStats:      c.Players.Snapshot(),
		ScoreSeries:      c.Score.List(),
		DominationSeries: c.Domination.List(),
		BudgetSeries:     c.Budget.List(),
		GameTimeRange:    tr,
	}
}

// PerformanceResult freezes the context into a performance IngestionResult, computing the
// summary bars from the per-player FPS series.
func (c *Context) PerformanceResult() *models.IngestionResult {
	series := c.Performance.List()

	return &models.IngestionResult{
		Kind:                   models.LogKindPerformance,
		PerformanceSeries:      series,
		PerformanceSummaryBars: Summarize(series).List(),
	}
}
