package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/opt-statistics/backend/internal/aggregate"
	"github.com/opt-statistics/backend/internal/models"
)

func writeScoreboard(w io.Writer, result *models.IngestionResult) error {
	if r := result.GameTimeRange; r != nil {
		if _, err := fmt.Fprintf(w, "Game time %s - %s\n",
			time.Duration(r.StartMs)*time.Millisecond, time.Duration(r.EndMs)*time.Millisecond); err != nil {
			return err
		}
	}

	header := []any{"Player"}
	for _, c := range models.Counters {
		header = append(header, string(c))
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, player := range result.SortedPlayers() {
		row := []string{player.Name}
		for _, c := range models.Counters {
			row = append(row, strconv.FormatInt(player.Get(c), 10))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

func writeFPSSummary(w io.Writer, result *models.IngestionResult) error {
	bars := result.PerformanceSummaryBars
	columns := []string{aggregate.BarMedian, aggregate.BarMin, aggregate.BarMean, aggregate.BarMax}

	table := tablewriter.NewWriter(w)
	table.Header("Player", "Median", "Min", "Mean", "Max")

	median := bars.Get(aggregate.BarMedian)
	if median == nil {
		return table.Render()
	}

	for i, p := range median.Points {
		row := []string{p.Category}
		for _, name := range columns {
			row = append(row, barValue(bars.Get(name), i))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

func barValue(s *models.Series, i int) string {
	if s == nil || i >= len(s.Points) || s.Points[i].Value == nil {
		return "-"
	}
	return strconv.FormatFloat(*s.Points[i].Value, 'f', 1, 64)
}
