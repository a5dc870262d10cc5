// Package aggregate folds extracted facts into per-player counters and named point series.
// Nothing in this package is safe for concurrent use: every ingestion run owns its own Context.
package aggregate

import "github.com/opt-statistics/backend/internal/models"

// Players accumulates per-player counters keyed by the case-sensitive player name.
type Players struct {
	byName map[string]*models.PlayerStat
	order  []string
}

func NewPlayers() *Players {
	return &Players{byName: make(map[string]*models.PlayerStat)}
}

// Ensure returns the record for name, creating a zeroed one on first reference.
func (p *Players) Ensure(name string) *models.PlayerStat {
	if stat, ok := p.byName[name]; ok {
		return stat
	}

	stat := models.NewPlayerStat(name)
	p.byName[name] = stat
	p.order = append(p.order, name)

	return stat
}

// Increment adds delta to counter of name. Empty names are ignored.
func (p *Players) Increment(name string, counter models.Counter, delta int64) {
	if name == "" {
		return
	}
	p.Ensure(name).Add(counter, delta)
}

// Get returns the record for name without creating it.
func (p *Players) Get(name string) (*models.PlayerStat, bool) {
	stat, ok := p.byName[name]
	return stat, ok
}

// Len returns the number of players seen.
func (p *Players) Len() int {
	return len(p.order)
}

// Names returns player names in first-seen order.
func (p *Players) Names() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Snapshot copies the records into a fresh map.
func (p *Players) Snapshot() map[string]*models.PlayerStat {
	out := make(map[string]*models.PlayerStat, len(p.byName))
	for name, stat := range p.byName {
		cp := *stat
		out[name] = &cp
	}
	return out
}
