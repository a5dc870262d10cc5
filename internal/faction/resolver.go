// Package faction maps raw in-game side tokens onto the two canonical factions used by the
// score and domination charts, and onto fixed display colors.
package faction

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/opt-statistics/backend/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	ARF   = "arf"
	Sword = "sword"
)

var ErrUnknownSide = errors.New("unknown side")

// Table is the YAML representation of a faction table.
//
//	factions:
//	  arf: [arf, csat]
//	  sword: [sword, aaf, guer]
//	colors:
//	  csat: {r: 255, g: 0, b: 0}
type Table struct {
	Factions map[string][]string    `yaml:"factions"`
	Colors   map[string]models.RGBA `yaml:"colors"`
}

// DefaultTable is the canonical table: CSAT plays on the ARF side, AAF/GUER on the SWORD side.
func DefaultTable() Table {
	return Table{
		Factions: map[string][]string{
			ARF:   {"arf", "csat"},
			Sword: {"sword", "aaf", "guer"},
		},
		Colors: map[string]models.RGBA{
			"csat": {R: 255, G: 0, B: 0},
			"nato": {R: 0, G: 0, B: 255},
			"aaf":  {R: 0, G: 255, B: 0},
			"guer": {R: 0, G: 255, B: 0},
			ARF:    {R: 9, G: 90, B: 172},
			Sword:  {R: 255, G: 95, B: 0},
		},
	}
}

// Resolver resolves side tokens case-insensitively. It is immutable after construction and
// safe for concurrent use.
type Resolver struct {
	sides  map[string]string
	colors map[string]models.RGBA
}

// New builds a resolver from table.
func New(table Table) (*Resolver, error) {
	r := &Resolver{
		sides:  make(map[string]string),
		colors: make(map[string]models.RGBA, len(table.Colors)),
	}

	for canonical, raws := range table.Factions {
		canonical = strings.ToLower(canonical)
		for _, raw := range raws {
			raw = strings.ToLower(raw)
			if prev, ok := r.sides[raw]; ok && prev != canonical {
				return nil, fmt.Errorf("side %q mapped to both %q and %q", raw, prev, canonical)
			}
			r.sides[raw] = canonical
		}
	}

	for side, color := range table.Colors {
		r.colors[strings.ToLower(side)] = color
	}

	return r, nil
}

// Default returns a resolver over DefaultTable.
func Default() *Resolver {
	r, err := New(DefaultTable())
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads a YAML table from path.
func Load(path string) (*Resolver, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader reads a YAML table from r. Sections missing from the file fall back to the
// default table.
func LoadFromReader(r io.Reader) (*Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing faction table: %w", err)
	}

	def := DefaultTable()
	if len(table.Factions) == 0 {
		table.Factions = def.Factions
	}
	if len(table.Colors) == 0 {
		table.Colors = def.Colors
	}

	return New(table)
}

// Faction returns the canonical faction of rawSide, or rawSide unchanged when unknown.
func (r *Resolver) Faction(rawSide string) string {
	if f, ok := r.sides[strings.ToLower(rawSide)]; ok {
		return f
	}
	return rawSide
}

// Known reports whether rawSide canonicalizes to a faction.
func (r *Resolver) Known(rawSide string) bool {
	_, ok := r.sides[strings.ToLower(rawSide)]
	return ok
}

// Lookup returns the opaque display color of a faction or raw side.
func (r *Resolver) Lookup(side string) (models.RGBA, bool) {
	c, ok := r.colors[strings.ToLower(side)]
	if !ok {
		return models.RGBA{}, false
	}
	return c.WithAlpha(1), true
}

// Color returns the display color of a faction or raw side with the given alpha.
// Unknown input resolves to opaque black and is logged to log (when non-nil) as a resolution
// failure.
func (r *Resolver) Color(side string, alpha float64, log *slog.Logger) models.RGBA {
	if c, ok := r.Lookup(side); ok {
		return c.WithAlpha(alpha)
	}

	if log != nil {
		log.Warn("unable to find color for side", slog.String("side", side), slog.Any("error", ErrUnknownSide))
	}

	return models.RGBA{A: 1}
}
