package model

import (
	"strings"

	"github.com/google/uuid"
)

// DimensionKind distinguishes numeric range axes from categorical axes.
type DimensionKind string

const (
	DimensionNumeric     DimensionKind = "numeric"
	DimensionCategorical DimensionKind = "categorical"
)

// Dimension is one named axis of a classification matrix.
type Dimension struct {
	Name       string        `json:"name"`
	Kind       DimensionKind `json:"kind"`
	Min        float64       `json:"min,omitempty"`
	Max        float64       `json:"max,omitempty"`
	Categories []string      `json:"categories,omitempty"`
}

// MatrixType is one detected type label with its detection confidence.
type MatrixType struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// MatrixDocument is a classified tabular artifact with one or more detected
// type labels and a set of dimension definitions.
type MatrixDocument struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Summary     string       `json:"summary,omitempty"`
	Types       []MatrixType `json:"types"`
	PrimaryType string       `json:"primary_type"`
	Dimensions  []Dimension  `json:"dimensions"`
	Package     string       `json:"package,omitempty"`
}

// DimensionNames returns the lowercase names of all dimensions.
func (m *MatrixDocument) DimensionNames() []string {
	names := make([]string, 0, len(m.Dimensions))
	for _, d := range m.Dimensions {
		names = append(names, strings.ToLower(d.Name))
	}
	return names
}

// Coordinate constrains one dimension of a matrix cell, either to a numeric
// range (inclusive on both ends) or to a categorical value.
type Coordinate struct {
	Dimension string   `json:"dimension"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Category  string   `json:"category,omitempty"`
}

// ContainsNumeric reports whether v falls inside the coordinate's range.
func (c *Coordinate) ContainsNumeric(v float64) bool {
	if c.Min == nil && c.Max == nil {
		return false
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}

// ContainsCategory reports a case-insensitive categorical match.
func (c *Coordinate) ContainsCategory(v string) bool {
	return c.Category != "" && strings.EqualFold(c.Category, v)
}

// MatrixCell is one lookup cell of a matrix, owned by exactly one
// MatrixDocument, with optional references to navigation content for
// elaboration.
type MatrixCell struct {
	ID          uuid.UUID    `json:"id"`
	MatrixID    uuid.UUID    `json:"matrix_id"`
	Coordinates []Coordinate `json:"coordinates"`
	Value       string       `json:"value"`
	NodeRef     *uuid.UUID   `json:"node_ref,omitempty"`
	ChunkRef    *uuid.UUID   `json:"chunk_ref,omitempty"`
}

// Coordinate returns the cell's coordinate for the named dimension, or nil
// if the cell leaves that dimension unconstrained.
func (c *MatrixCell) Coordinate(dimension string) *Coordinate {
	for i := range c.Coordinates {
		if strings.EqualFold(c.Coordinates[i].Dimension, dimension) {
			return &c.Coordinates[i]
		}
	}
	return nil
}
