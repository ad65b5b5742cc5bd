// Package store defines the Graph Store Adapter boundary: the query
// contracts the retrieval engine issues against the knowledge graph. The
// engine is strictly read-only at this boundary; all graph content is
// created by the ingestion pipeline.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/model"
)

// ErrUnavailable marks infrastructure failure of the backing store. It is
// distinct from a query finding no data: unavailability is fatal for the
// request while empty results only lower confidence.
var ErrUnavailable = errors.New("graph store unavailable")

// ErrNotFound is returned by point lookups that match nothing.
var ErrNotFound = errors.New("not found")

// ChunkHit is one nearest-neighbor vector search hit.
type ChunkHit struct {
	Chunk *model.HierarchicalChunk
	Score float64 // cosine similarity in [0,1]
}

// Direction restricts relationship traversal.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// TraversalSpec bounds a relationship traversal from a start node.
type TraversalSpec struct {
	Relationships []model.RelationshipType
	MaxDepth      int
	Direction     Direction
	EndKinds      []model.NodeKind // empty means any end node type
}

// AllowsRelationship reports whether the spec permits the relationship type.
func (s TraversalSpec) AllowsRelationship(rel model.RelationshipType) bool {
	if len(s.Relationships) == 0 {
		return true
	}
	for _, r := range s.Relationships {
		if r == rel {
			return true
		}
	}
	return false
}

// AllowsEnd reports whether a path may terminate at the given node kind.
func (s TraversalSpec) AllowsEnd(kind model.NodeKind) bool {
	if len(s.EndKinds) == 0 {
		return true
	}
	for _, k := range s.EndKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// GraphStore is the read-only query interface against the knowledge graph.
// Implementations must support concurrent queries without locking callers
// and should pool connections rather than opening one per call.
type GraphStore interface {
	// VectorSearch performs nearest-neighbor search over chunk embeddings.
	// scope optionally restricts results to one guideline package.
	VectorSearch(ctx context.Context, embedding []float32, topK int, scope string) ([]ChunkHit, error)

	// NavigationNode fetches a navigation node by id.
	NavigationNode(ctx context.Context, id uuid.UUID) (*model.NavigationNode, error)

	// SiblingChunks returns the other chunks owned by the same navigation
	// node as the given chunk.
	SiblingChunks(ctx context.Context, chunkID uuid.UUID) ([]*model.HierarchicalChunk, error)

	// FindEntities returns entities whose canonical form or aliases match
	// any of the given terms.
	FindEntities(ctx context.Context, terms []string, scope string) ([]*model.Entity, error)

	// Traverse performs bounded-depth relationship traversal from the start
	// node, returning full paths with their node/relationship sequences.
	Traverse(ctx context.Context, startID uuid.UUID, spec TraversalSpec) ([]*model.GraphPath, error)

	// DecisionTrees lists decision trees, optionally scoped to a package.
	DecisionTrees(ctx context.Context, scope string) ([]*model.DecisionTree, error)

	// TreeNodes fetches all nodes of a decision tree keyed by id.
	TreeNodes(ctx context.Context, treeID uuid.UUID) (map[uuid.UUID]*model.DecisionNode, error)

	// Matrices lists classification matrices, optionally scoped.
	Matrices(ctx context.Context, scope string) ([]*model.MatrixDocument, error)

	// MatrixCells fetches all cells of a matrix.
	MatrixCells(ctx context.Context, matrixID uuid.UUID) ([]*model.MatrixCell, error)

	// Chunk fetches a chunk by id, used for cell/entity elaboration.
	Chunk(ctx context.Context, id uuid.UUID) (*model.HierarchicalChunk, error)

	// Health checks connectivity to the backing store.
	Health(ctx context.Context) error

	// Close releases pooled connections.
	Close(ctx context.Context) error
}
