package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorSearchOrdersBySimilarity(t *testing.T) {
	m := NewMemory()
	near := &model.HierarchicalChunk{ID: uuid.New(), NodeID: uuid.New(), Content: "near", Embedding: []float32{1, 0, 0}}
	far := &model.HierarchicalChunk{ID: uuid.New(), NodeID: uuid.New(), Content: "far", Embedding: []float32{0, 1, 0}}
	mid := &model.HierarchicalChunk{ID: uuid.New(), NodeID: uuid.New(), Content: "mid", Embedding: []float32{1, 1, 0}}
	m.AddChunk(near)
	m.AddChunk(far)
	m.AddChunk(mid)

	hits, err := m.VectorSearch(context.Background(), []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Chunk.Content)
	assert.Equal(t, "mid", hits[1].Chunk.Content)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryVectorSearchScope(t *testing.T) {
	m := NewMemory()
	m.AddChunk(&model.HierarchicalChunk{ID: uuid.New(), NodeID: uuid.New(), Content: "nqm", Embedding: []float32{1, 0}, Package: "nqm"})
	m.AddChunk(&model.HierarchicalChunk{ID: uuid.New(), NodeID: uuid.New(), Content: "jumbo", Embedding: []float32{1, 0}, Package: "jumbo"})

	hits, err := m.VectorSearch(context.Background(), []float32{1, 0}, 10, "nqm")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "nqm", hits[0].Chunk.Content)
}

func TestMemorySiblingChunks(t *testing.T) {
	m := NewMemory()
	nodeID := uuid.New()
	a := &model.HierarchicalChunk{ID: uuid.New(), NodeID: nodeID, Content: "a"}
	b := &model.HierarchicalChunk{ID: uuid.New(), NodeID: nodeID, Content: "b"}
	other := &model.HierarchicalChunk{ID: uuid.New(), NodeID: uuid.New(), Content: "other"}
	m.AddChunk(a)
	m.AddChunk(b)
	m.AddChunk(other)

	siblings, err := m.SiblingChunks(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, b.ID, siblings[0].ID)

	_, err = m.SiblingChunks(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFindEntitiesByAlias(t *testing.T) {
	m := NewMemory()
	entity := &model.Entity{
		ID:       uuid.New(),
		Name:     "Non-QM Program",
		Aliases:  []string{"nqm", "non-qm"},
		Metadata: model.Metadata{"source": "guideline v4.2", "section": "B2"},
	}
	m.AddEntity(entity)
	m.AddEntity(&model.Entity{ID: uuid.New(), Name: "Jumbo Program"})

	found, err := m.FindEntities(context.Background(), []string{"NQM"}, "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, entity.ID, found[0].ID)
	assert.Equal(t, "guideline v4.2", found[0].Metadata["source"])
}

func TestMemoryTraverseRespectsDepthAndRelationships(t *testing.T) {
	m := NewMemory()
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b, c, d} {
		m.AddNode(&model.NavigationNode{ID: id, Title: id.String()[:8]})
	}
	m.AddEdge(a, b, model.RelHasChild)
	m.AddEdge(b, c, model.RelHasChild)
	m.AddEdge(c, d, model.RelHasChild)
	m.AddEdge(a, d, model.RelReferences)

	paths, err := m.Traverse(context.Background(), a, TraversalSpec{
		Relationships: []model.RelationshipType{model.RelHasChild},
		MaxDepth:      2,
		Direction:     DirectionOutgoing,
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, 1, paths[0].Hops())
	assert.Equal(t, 2, paths[1].Hops())
	for _, p := range paths {
		for _, rel := range p.Relationships {
			assert.Equal(t, model.RelHasChild, rel)
		}
	}
}

func TestMemoryTraverseDirectionIncoming(t *testing.T) {
	m := NewMemory()
	parent, child := uuid.New(), uuid.New()
	m.AddNode(&model.NavigationNode{ID: parent, Title: "parent"})
	m.AddNode(&model.NavigationNode{ID: child, Title: "child"})
	m.AddEdge(parent, child, model.RelHasChild)

	paths, err := m.Traverse(context.Background(), child, TraversalSpec{
		Relationships: []model.RelationshipType{model.RelHasChild},
		MaxDepth:      1,
		Direction:     DirectionIncoming,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, parent, paths[0].Nodes[1].ID)
}

func TestMemoryTraverseEndKinds(t *testing.T) {
	m := NewMemory()
	section := &model.NavigationNode{ID: uuid.New(), Title: "section"}
	m.AddNode(section)
	chunk := &model.HierarchicalChunk{ID: uuid.New(), NodeID: section.ID, Content: "content"}
	m.AddChunk(chunk)

	paths, err := m.Traverse(context.Background(), section.ID, TraversalSpec{
		MaxDepth:  2,
		Direction: DirectionOutgoing,
		EndKinds:  []model.NodeKind{model.NodeChunk},
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, model.NodeChunk, paths[0].Nodes[1].Kind)
}

func TestMemoryTraverseUnknownStart(t *testing.T) {
	m := NewMemory()
	_, err := m.Traverse(context.Background(), uuid.New(), TraversalSpec{MaxDepth: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBarrierFailure(t *testing.T) {
	m := NewMemory()
	m.FailWith = ErrUnavailable

	_, err := m.VectorSearch(context.Background(), []float32{1}, 1, "")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.DecisionTrees(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, m.Health(context.Background()), ErrUnavailable)
}

func TestMemoryBarrierLatencyHonorsContext(t *testing.T) {
	m := NewMemory()
	m.Latency = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Matrices(ctx, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
