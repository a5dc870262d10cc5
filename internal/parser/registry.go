package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opt-statistics/backend/internal/faction"
	"github.com/opt-statistics/backend/internal/models"
)

// ErrNoParser is returned when no registered parser accepts a file or kind.
var ErrNoParser = errors.New("no suitable parser")

// Registry holds all available parsers and provides auto-detection.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns the mission and performance parsers. Mission logs are sniffed first.
func NewRegistry(factions *faction.Resolver) *Registry {
	return &Registry{
		parsers: []Parser{
			NewMissionParser(factions),
			NewPerformanceParser(),
		},
	}
}

// FindParser detects the correct parser for a file.
func (r *Registry) FindParser(filePath string) (Parser, error) {
	for _, p := range r.parsers {
		can, err := p.CanParse(filePath)
		if err != nil {
			return nil, fmt.Errorf("sniffing %s: %w", filePath, err)
		}
		if can {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w for file: %s", ErrNoParser, filePath)
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}

// ForKind returns the parser producing kind.
func (r *Registry) ForKind(kind models.LogKind) (Parser, error) {
	for _, p := range r.parsers {
		if p.Kind() == kind {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w for log kind: %s", ErrNoParser, kind)
}

// Resolve picks the parser for kind, or sniffs filePath when kind is empty.
func (r *Registry) Resolve(kind models.LogKind, filePath string) (Parser, error) {
	if kind == "" {
		return r.FindParser(filePath)
	}
	return r.ForKind(kind)
}
