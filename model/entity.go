package model

import (
	"strings"

	"github.com/google/uuid"
)

// Entity represents an extracted domain concept (program, criterion,
// property type, etc.) linked into the knowledge graph.
type Entity struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"` // canonical form
	Type       string     `json:"entity_type"`
	Aliases    []string   `json:"aliases,omitempty"`
	Confidence float64    `json:"confidence"` // [0,1]
	NavPath    string     `json:"nav_path,omitempty"`
	DecisionID *uuid.UUID `json:"decision_id,omitempty"` // optional decision-tree linkage
	MatrixID   *uuid.UUID `json:"matrix_id,omitempty"`   // optional matrix-coordinate linkage
	Metadata   Metadata   `json:"metadata,omitempty"`
	Package    string     `json:"package,omitempty"`
}

// Matches reports whether the given term matches the entity's canonical
// form or any alias, case-insensitively.
func (e *Entity) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if strings.ToLower(e.Name) == term {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.ToLower(alias) == term {
			return true
		}
	}
	return false
}
