package models

// SessionStatus represents the status of an ingestion session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusParsing  SessionStatus = "parsing"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// ParseSession represents one ingestion run over an uploaded file.
type ParseSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId"`
	Kind             LogKind       `json:"kind,omitempty"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	LineCount        int           `json:"lineCount,omitempty"`
	PlayerCount      int           `json:"playerCount,omitempty"`
	SeriesCount      int           `json:"seriesCount,omitempty"`
	DiagnosticCount  int           `json:"diagnosticCount"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	ParserName       string        `json:"parserName,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// ParseError describes one line the ingestion skipped.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
	Level   string `json:"level"`
}

// NewParseSession creates a new ParseSession in pending status.
func NewParseSession(id, fileID string) *ParseSession {
	return &ParseSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
	}
}
