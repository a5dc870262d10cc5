package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/opt-statistics/backend/internal/aggregate"
	"github.com/opt-statistics/backend/internal/diag"
	"github.com/opt-statistics/backend/internal/faction"
	"github.com/opt-statistics/backend/internal/models"
)

const (
	dominationAlpha = 0.3
	fillAlpha       = 0.05
	hoverAlpha      = 0.55
)

// MissionParser ingests OPT mission logs: kills, revives, flag captures with score pairs and
// budget transactions.
type MissionParser struct {
	factions *faction.Resolver
}

func NewMissionParser(factions *faction.Resolver) *MissionParser {
	if factions == nil {
		factions = faction.Default()
	}
	return &MissionParser{factions: factions}
}

func (p *MissionParser) Name() string {
	return "mission"
}

func (p *MissionParser) Kind() models.LogKind {
	return models.LogKindMission
}

func (p *MissionParser) CanParse(filePath string) (bool, error) {
	return sniff(filePath, IsTagged)
}

func (p *MissionParser) Parse(filePath string, log *slog.Logger, onProgress ProgressCallback) (*models.IngestionResult, error) {
	return feedFile(p.newRun(log), filePath, onProgress)
}

func (p *MissionParser) ParseText(text string, log *slog.Logger) *models.IngestionResult {
	return feedText(p.newRun(log), text)
}

func (p *MissionParser) newRun(log *slog.Logger) *missionRun {
	return &missionRun{
		ctx:      aggregate.NewContext(),
		factions: p.factions,
		log:      orDiscard(log),
	}
}

type missionRun struct {
	ctx      *aggregate.Context
	factions *faction.Resolver
	log      *slog.Logger

	lines      int
	tagged     int
	skipped    int
	unresolved int
	facts      int
}

func (r *missionRun) feed(idx int, text string) {
	r.lines++
	if strings.TrimSpace(text) == "" {
		return
	}

	if !IsTagged(text) {
		r.skipped++
		r.log.Debug("line skipped",
			slog.Int(diag.KeyLine, idx), slog.String(diag.KeyText, text),
			slog.String(diag.KeyReason, "no "+TagLiteral+" tag"))
		return
	}
	r.tagged++

	lineLog := r.log.With(slog.Int(diag.KeyLine, idx), slog.String(diag.KeyText, text))

	cl := Classify(text)
	if cl.Type == models.EventUnknown {
		r.skipped++
		lineLog.Warn(ErrUnclassifiable.Error())
		return
	}

	if cl.HasGameTime {
		r.ctx.ObserveGameTime(cl.GameTimeMs)
	} else {
		lineLog.Info(ErrMissingGameTime.Error())
	}

	facts, err := Extract(cl, r.factions)
	if err != nil {
		r.unresolved++
		if len(facts) == 0 {
			lineLog.Warn("event skipped", slog.String(diag.KeyReason, err.Error()))
			return
		}
		lineLog.Warn("event partially resolved", slog.String(diag.KeyReason, err.Error()))
	}

	for _, fact := range facts {
		r.apply(cl, fact, lineLog)
	}
	r.facts += len(facts)
}

func (r *missionRun) apply(cl models.ClassifiedLine, fact models.Fact, log *slog.Logger) {
	players := r.ctx.Players

	switch f := fact.(type) {
	case models.KillFact:
		if f.Friendly() {
			players.Increment(f.Slayer, models.CounterFriendlyFires, 1)
		} else {
			players.Increment(f.Victim, models.CounterPassOuts, 1)
			players.Increment(f.Slayer, models.CounterKills, 1)
		}

	case models.ReviveFact:
		players.Increment(f.Medic, models.CounterRevives, 1)

	case models.CaptureFact:
		players.Increment(f.Player, models.CounterCaptures, 1)
		if f.FlagSide == "" {
			return
		}
		// Every flag event is its own bar, stacked per faction on the timeline.
		name := fmt.Sprintf("%s-%d", f.Faction, cl.GameTimeMs)
		point := &models.SeriesPoint{GameTimeMs: cl.GameTimeMs, Category: f.Faction, SourceLine: cl.Text}
		appendLazy(r.ctx.Domination, name, point, func() models.SeriesStyle {
			return r.dominationStyle(f, log)
		})

	case models.ScoreFact:
		point := &models.SeriesPoint{GameTimeMs: cl.GameTimeMs, Value: models.Float(f.Score), SourceLine: cl.Text}
		appendLazy(r.ctx.Score, f.Faction, point, func() models.SeriesStyle {
			return r.factionLineStyle(f.Faction, false, log)
		})

	case models.BudgetFact:
		if f.Faction != "" {
			point := &models.SeriesPoint{GameTimeMs: cl.GameTimeMs, Value: f.NewTotal, SourceLine: cl.Text}
			appendLazy(r.ctx.Budget, f.Faction, point, func() models.SeriesStyle {
				return r.factionLineStyle(f.Faction, true, log)
			})
		}
		players.Increment(f.Player, models.CounterMoneySpent, f.Spent())
	}
}

func (r *missionRun) dominationStyle(f models.CaptureFact, log *slog.Logger) models.SeriesStyle {
	side := faction.Sword
	if f.Action == models.ActionCaptured {
		side = faction.ARF
	}
	color := r.factions.Color(side, dominationAlpha, log)

	return models.SeriesStyle{
		Kind:                 models.SeriesHorizontalBar,
		Stack:                f.Faction,
		BackgroundColor:      &color,
		BorderColor:          &color,
		HoverBackgroundColor: &color,
	}
}

func (r *missionRun) factionLineStyle(factionName string, stepped bool, log *slog.Logger) models.SeriesStyle {
	border := r.factions.Color(factionName, 1, log)
	bg, hover := border, border
	if _, ok := r.factions.Lookup(factionName); ok {
		bg = border.WithAlpha(fillAlpha)
		hover = border.WithAlpha(hoverAlpha)
	}

	style := models.DefaultLineStyle()
	style.Stepped = stepped
	style.BackgroundColor = &bg
	style.HoverBackgroundColor = &hover
	style.BorderColor = &border

	return style
}

// appendLazy only builds the style when the series does not exist yet.
func appendLazy(c *aggregate.Collection, name string, point *models.SeriesPoint, style func() models.SeriesStyle) {
	if s, ok := c.Get(name); ok {
		c.AppendOrCreate(name, point, s.Style)
		return
	}
	c.AppendOrCreate(name, point, style())
}

func (r *missionRun) finish() *models.IngestionResult {
	result := r.ctx.MissionResult()

	r.log.Info("mission log ingested",
		slog.Int("lines", r.lines),
		slog.Int("tagged", r.tagged),
		slog.Int("skipped", r.skipped),
		slog.Int("unresolved", r.unresolved),
		slog.Int("facts", r.facts),
		slog.Int("players", len(result.PlayerStats)))

	return result
}
