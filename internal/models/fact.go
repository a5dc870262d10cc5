package models

// Fact is a structured event extracted from one mission log line.
// The set of implementations is closed; see the *Fact types below.
type Fact interface {
	factKind() EventType
}

// KillFact is a unit kill. Sides are the raw side tokens as logged.
type KillFact struct {
	Victim     string
	VictimSide string
	Slayer     string
	SlayerSide string
	Means      string
}

func (KillFact) factKind() EventType { return EventKill }

// Friendly reports whether both parties were on the same raw side.
func (f KillFact) Friendly() bool {
	return f.VictimSide == f.SlayerSide
}

// ReviveFact is a medic reviving a patient.
type ReviveFact struct {
	Medic       string
	MedicSide   string
	Patient     string
	PatientSide string
}

func (ReviveFact) factKind() EventType { return EventRevive }

// CaptureAction is the verb of a flag event.
type CaptureAction string

const (
	ActionSecured  CaptureAction = "gesichert"
	ActionCaptured CaptureAction = "erobert"
)

// CaptureFact is a flag secured or captured by a player.
type CaptureFact struct {
	Player   string
	FlagSide string
	Faction  string
	Action   CaptureAction
}

func (CaptureFact) factKind() EventType { return EventCapture }

// ScoreFact is one "<side> <score>" pair found on a flag line.
type ScoreFact struct {
	Side    string
	Faction string
	Score   float64
}

func (ScoreFact) factKind() EventType { return EventScore }

// BudgetFact is a purchase (or sale) changing a faction's budget.
// OldTotal and NewTotal are nil when the logged value could not be parsed as a number.
type BudgetFact struct {
	Faction  string
	OldTotal *float64
	NewTotal *float64
	Delta    int64
	Player   string
}

func (BudgetFact) factKind() EventType { return EventBudget }

// Spent is the positive amount a player spent. The log records spending as a negative delta.
func (f BudgetFact) Spent() int64 {
	return -f.Delta
}
