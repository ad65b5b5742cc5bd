package model

import (
	"github.com/google/uuid"
)

// NavigationNode is a structural unit of a source guideline document
// (chapter, section or subsection). Nodes are created during ingestion and
// are read-only to the retrieval engine.
type NavigationNode struct {
	ID       uuid.UUID  `json:"id"`
	Title    string     `json:"title"`
	Depth    int        `json:"depth"` // >= 1, 1 is a document root
	Position int        `json:"position"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Summary  string     `json:"summary,omitempty"`
	Package  string     `json:"package,omitempty"` // owning package scope
}

// HierarchicalChunk is a retrievable unit of content owned by exactly one
// NavigationNode. Embedding dimensionality is fixed system-wide.
type HierarchicalChunk struct {
	ID         uuid.UUID   `json:"id"`
	NodeID     uuid.UUID   `json:"node_id"`
	Content    string      `json:"content"`
	Embedding  []float32   `json:"embedding,omitempty"`
	TokenCount int         `json:"token_count"`
	NavPath    string      `json:"nav_path"` // e.g. "guide.eligibility.foreign_national"
	CrossRefs  []uuid.UUID `json:"cross_refs,omitempty"`
	Package    string      `json:"package,omitempty"`
}

// NodeKind labels the kind of a node appearing in a graph path.
type NodeKind string

const (
	NodeSection  NodeKind = "section"
	NodeChunk    NodeKind = "chunk"
	NodeEntity   NodeKind = "entity"
	NodeDecision NodeKind = "decision"
	NodeOutcome  NodeKind = "outcome"
	NodeMatrix   NodeKind = "matrix"
)

// RelationshipType is the type of a graph edge between knowledge graph nodes.
type RelationshipType string

const (
	RelHasChild   RelationshipType = "HAS_CHILD"
	RelHasChunk   RelationshipType = "HAS_CHUNK"
	RelMentions   RelationshipType = "MENTIONS"
	RelSameAs     RelationshipType = "SAME_AS"
	RelLeadsTo    RelationshipType = "LEADS_TO"
	RelHasOutcome RelationshipType = "HAS_OUTCOME"
	RelReferences RelationshipType = "REFERENCES"
	RelAppliesTo  RelationshipType = "APPLIES_TO"
)

// PathNode is one hop of a traversal path.
type PathNode struct {
	ID    uuid.UUID `json:"id"`
	Kind  NodeKind  `json:"kind"`
	Label string    `json:"label"`
}

// GraphPath is a full traversal path with its node and relationship
// sequences plus the relevance computed for it.
type GraphPath struct {
	Nodes         []PathNode         `json:"nodes"`
	Relationships []RelationshipType `json:"relationships"`
	Relevance     float64            `json:"relevance"`
}

// Hops returns the number of relationships in the path.
func (p *GraphPath) Hops() int {
	return len(p.Relationships)
}

// Contains reports whether the path passes through a node of the given kind.
func (p *GraphPath) Contains(kind NodeKind) bool {
	for _, n := range p.Nodes {
		if n.Kind == kind {
			return true
		}
	}
	return false
}
