package models

import "sort"

// GameTimeRange is the first and last game time seen in a mission log.
type GameTimeRange struct {
	StartMs int64 `json:"startMs"`
	EndMs   int64 `json:"endMs"`
}

// IngestionResult is the output of one ingestion run.
// Mission logs fill PlayerStats and the score, domination and budget series;
// performance logs fill the performance series and summary bars.
type IngestionResult struct {
	Kind LogKind `json:"kind"`

	PlayerStats      map[string]*PlayerStat `json:"playerStats,omitempty"`
	ScoreSeries      SeriesList             `json:"scoreSeries,omitempty"`
	DominationSeries SeriesList             `json:"dominationSeries,omitempty"`
	BudgetSeries     SeriesList             `json:"budgetSeries,omitempty"`
	GameTimeRange    *GameTimeRange         `json:"gameTimeRange,omitempty"`

	PerformanceSeries      SeriesList `json:"performanceSeries,omitempty"`
	PerformanceSummaryBars SeriesList `json:"performanceSummaryBars,omitempty"`
}

// SortedPlayers returns the player stats ordered by kills (desc), then name.
func (r *IngestionResult) SortedPlayers() []*PlayerStat {
	players := make([]*PlayerStat, 0, len(r.PlayerStats))
	for _, p := range r.PlayerStats {
		players = append(players, p)
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].Kills != players[j].Kills {
			return players[i].Kills > players[j].Kills
		}
		return players[i].Name < players[j].Name
	})

	return players
}
