// Package models contains domain types for the OPT mission statistics backend.
package models

import "strings"

// LogKind identifies which of the two supported log formats a blob contains.
type LogKind string

const (
	LogKindMission     LogKind = "mission"
	LogKindPerformance LogKind = "performance"
)

// ParseLogKind maps a user supplied kind onto a LogKind. Empty input returns "" (auto-detect).
func ParseLogKind(s string) (LogKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "mission", "missionlog":
		return LogKindMission, true
	case "performance", "fps":
		return LogKindPerformance, true
	default:
		return "", false
	}
}

// EventType is the closed vocabulary of mission log event tags.
type EventType string

const (
	EventKill            EventType = "kill"
	EventRevive          EventType = "revive"
	EventCapture         EventType = "capture"
	EventBudget          EventType = "budget"
	EventMission         EventType = "mission"
	EventScore           EventType = "score"
	EventTransport       EventType = "transport"
	EventFactionOverview EventType = "factionOverview"
	EventUnknown         EventType = "unknown"
)

// RawLine is a single input line and its 0-based position in the blob.
type RawLine struct {
	Index int
	Text  string
}

// ClassifiedLine is the header information extracted from a tagged mission log line.
type ClassifiedLine struct {
	Type      EventType `json:"type"`
	Date      string    `json:"date,omitempty"`      // YYYY/MM/DD, optional
	WallClock string    `json:"wallClock,omitempty"` // HH:MM:SS
	// GameTimeMs is the elapsed mission time in milliseconds. It is 0 when HasGameTime is false.
	GameTimeMs  int64  `json:"gameTimeMs"`
	HasGameTime bool   `json:"hasGameTime"`
	Text        string `json:"text"`
}
