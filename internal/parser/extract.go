package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/opt-statistics/backend/internal/faction"
	"github.com/opt-statistics/backend/internal/models"
)

var (
	// --- Einheit: Pelle (side: GUER) von: Frozen_byte (side: EAST) (magazine: 5.8 mm 30Rnd Mag)
	killRegex = regexp.MustCompile(`--- Einheit: (?P<victim>.+) \(side: (?P<victimSide>\w+)\) von: (?P<slayer>.+) \(side: (?P<slayerSide>\w+)\) \((?P<means>.+)\)`)
	// --- Joernrich (GUER) wurde von Gelir (GUER) wiederbelebt.
	reviveRegex = regexp.MustCompile(`--- (?P<patient>.+) \((?P<patientSide>\w+)\) wurde von (?P<medic>.+) \((?P<medicSide>\w+)\) wiederbelebt\.`)
	// CSAT Flagge erobert von Gelir"
	flagRegex  = regexp.MustCompile(`(?P<flagSide>\w+) Flagge (?P<action>gesichert|erobert) von (?P<player>.*)"`)
	scoreRegex = regexp.MustCompile(`(?P<side>\w+) (?P<score>\d+)`)
	// --- AAF alt: 1.495e+06 - neu: 1.445e+06 - Differenz: -50000. Verondena (ver)kaufte WY-55 Hellcat (Unarmed)
	budgetRegex = regexp.MustCompile(`--- (?P<side>\w+) alt: (?P<oldTotal>.+) - neu: (?P<newTotal>.+) - Differenz: (?P<delta>-?\d+)\. (?P<player>.+) \(ver\)kaufte`)
)

// Extractor turns the body of a classified line into facts.
type Extractor func(line models.ClassifiedLine, factions *faction.Resolver) ([]models.Fact, error)

var extractors = map[models.EventType]Extractor{
	models.EventKill:            ExtractKill,
	models.EventRevive:          ExtractRevive,
	models.EventCapture:         ExtractCapture,
	models.EventBudget:          ExtractBudget,
	models.EventMission:         extractNothing,
	models.EventScore:           extractNothing,
	models.EventTransport:       extractNothing,
	models.EventFactionOverview: extractNothing,
}

// Extract dispatches line to the extractor of its event type.
func Extract(line models.ClassifiedLine, factions *faction.Resolver) ([]models.Fact, error) {
	ext, ok := extractors[line.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %q", ErrUnclassifiable, line.Type)
	}
	return ext(line, factions)
}

func extractNothing(models.ClassifiedLine, *faction.Resolver) ([]models.Fact, error) {
	return nil, nil
}

// ExtractKill is the only extractor that reports a body mismatch.
func ExtractKill(line models.ClassifiedLine, _ *faction.Resolver) ([]models.Fact, error) {
	m := killRegex.FindStringSubmatch(line.Text)
	if m == nil {
		return nil, fmt.Errorf("%w: kill body did not match", ErrUnresolvableEvent)
	}

	fact := models.KillFact{
		Victim:     m[killRegex.SubexpIndex("victim")],
		VictimSide: m[killRegex.SubexpIndex("victimSide")],
		Slayer:     m[killRegex.SubexpIndex("slayer")],
		SlayerSide: m[killRegex.SubexpIndex("slayerSide")],
		Means:      m[killRegex.SubexpIndex("means")],
	}

	return []models.Fact{fact}, nil
}

func ExtractRevive(line models.ClassifiedLine, _ *faction.Resolver) ([]models.Fact, error) {
	m := reviveRegex.FindStringSubmatch(line.Text)
	if m == nil {
		return nil, nil
	}

	return []models.Fact{models.ReviveFact{
		Medic:       m[reviveRegex.SubexpIndex("medic")],
		MedicSide:   m[reviveRegex.SubexpIndex("medicSide")],
		Patient:     m[reviveRegex.SubexpIndex("patient")],
		PatientSide: m[reviveRegex.SubexpIndex("patientSide")],
	}}, nil
}

// ExtractCapture yields at most one CaptureFact followed by one ScoreFact per "<side> <score>"
// pair anywhere on the line.
func ExtractCapture(line models.ClassifiedLine, factions *faction.Resolver) ([]models.Fact, error) {
	var facts []models.Fact

	if m := flagRegex.FindStringSubmatch(line.Text); m != nil {
		flagSide := m[flagRegex.SubexpIndex("flagSide")]
		facts = append(facts, models.CaptureFact{
			Player:   m[flagRegex.SubexpIndex("player")],
			FlagSide: flagSide,
			Faction:  factions.Faction(flagSide),
			Action:   models.CaptureAction(m[flagRegex.SubexpIndex("action")]),
		})
	}

	for _, m := range scoreRegex.FindAllStringSubmatch(line.Text, -1) {
		score, err := strconv.ParseFloat(m[scoreRegex.SubexpIndex("score")], 64)
		if err != nil {
			continue
		}
		side := m[scoreRegex.SubexpIndex("side")]
		facts = append(facts, models.ScoreFact{
			Side:    side,
			Faction: factions.Faction(side),
			Score:   score,
		})
	}

	return facts, nil
}

// ExtractBudget returns the fact together with an ErrUnresolvableEvent when the delta does not
// fit an int64; the totals still chart, the delta counts as 0.
func ExtractBudget(line models.ClassifiedLine, factions *faction.Resolver) ([]models.Fact, error) {
	m := budgetRegex.FindStringSubmatch(line.Text)
	if m == nil {
		return nil, nil
	}

	fact := models.BudgetFact{
		Faction:  factions.Faction(m[budgetRegex.SubexpIndex("side")]),
		OldTotal: parseTotal(m[budgetRegex.SubexpIndex("oldTotal")]),
		NewTotal: parseTotal(m[budgetRegex.SubexpIndex("newTotal")]),
		Player:   m[budgetRegex.SubexpIndex("player")],
	}

	raw := m[budgetRegex.SubexpIndex("delta")]
	delta, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return []models.Fact{fact}, fmt.Errorf("%w: budget delta %s: %w", ErrUnresolvableEvent, raw, err)
	}
	fact.Delta = delta

	return []models.Fact{fact}, nil
}

// parseTotal accepts plain and exponent notation ("1.445e+06").
func parseTotal(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
