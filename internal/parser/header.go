package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/opt-statistics/backend/internal/models"
)

// TagLiteral marks every line written by the OPT mission scripts.
const TagLiteral = `"[OPT] (`

// headerRegex matches e.g.
//
//	2019/03/02, 22:33:54 "[OPT] (Budget) Log: 2:24:45 --- ...
var headerRegex = regexp.MustCompile(`(?:(?P<date>\d{4}/\d{2}/\d{2}), )?(?P<time>\d{2}:\d{2}:\d{2}) "\[OPT\] \((?P<type>Mission|Budget|Punkte|Fahne|Transport|Fraktionsübersicht|Abschuss|REVIVE)\) (?:Log: (?P<gametime>\d+:\d{2}:\d{2})? ---)?`)

var (
	headerDate     = headerRegex.SubexpIndex("date")
	headerTime     = headerRegex.SubexpIndex("time")
	headerType     = headerRegex.SubexpIndex("type")
	headerGameTime = headerRegex.SubexpIndex("gametime")
)

var eventTypes = map[string]models.EventType{
	"Abschuss":           models.EventKill,
	"REVIVE":             models.EventRevive,
	"Fahne":              models.EventCapture,
	"Budget":             models.EventBudget,
	"Mission":            models.EventMission,
	"Punkte":             models.EventScore,
	"Transport":          models.EventTransport,
	"Fraktionsübersicht": models.EventFactionOverview,
}

// IsTagged is the cheap pre-filter applied before Classify.
func IsTagged(line string) bool {
	return strings.Contains(line, TagLiteral)
}

// Classify extracts the header of a tagged line. Lines whose header does not match yield
// EventUnknown. A missing or malformed game time leaves HasGameTime false and GameTimeMs 0.
func Classify(line string) models.ClassifiedLine {
	m := headerRegex.FindStringSubmatch(line)
	if m == nil {
		return models.ClassifiedLine{Type: models.EventUnknown, Text: line}
	}

	cl := models.ClassifiedLine{
		Type:      eventTypes[m[headerType]],
		Date:      m[headerDate],
		WallClock: m[headerTime],
		Text:      line,
	}

	if gt := m[headerGameTime]; gt != "" {
		if ms, err := ParseGameTime(gt); err == nil {
			cl.GameTimeMs = ms
			cl.HasGameTime = true
		}
	}

	return cl
}

// ParseGameTime converts an elapsed mission time "H:MM:SS" into milliseconds.
// Hours are unbounded and not zero padded.
func ParseGameTime(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("game time %q: expected H:MM:SS", s)
	}

	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("game time %q: invalid hours", s)
	}

	minutes, err := parseSexagesimal(parts[1])
	if err != nil {
		return 0, fmt.Errorf("game time %q: invalid minutes", s)
	}

	seconds, err := parseSexagesimal(parts[2])
	if err != nil {
		return 0, fmt.Errorf("game time %q: invalid seconds", s)
	}

	return ((hours*60+minutes)*60 + seconds) * 1000, nil
}

func parseSexagesimal(s string) (int64, error) {
	if len(s) != 2 {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 59 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
