package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/ai"
	"github.com/guidestone/guidestone/model"
)

// Edge is one typed relationship between two graph nodes, used to seed the
// in-memory store.
type Edge struct {
	From uuid.UUID
	To   uuid.UUID
	Rel  model.RelationshipType
}

// Memory is an in-memory GraphStore for tests and examples. It supports
// latency and failure injection so timeout and unavailability behavior can
// be exercised without infrastructure.
type Memory struct {
	mu sync.RWMutex

	nodes      map[uuid.UUID]*model.NavigationNode
	chunks     map[uuid.UUID]*model.HierarchicalChunk
	entities   map[uuid.UUID]*model.Entity
	trees      map[uuid.UUID]*model.DecisionTree
	treeNodes  map[uuid.UUID]map[uuid.UUID]*model.DecisionNode
	matrices   map[uuid.UUID]*model.MatrixDocument
	cells      map[uuid.UUID][]*model.MatrixCell
	edges      []Edge
	kinds      map[uuid.UUID]model.NodeKind
	labels     map[uuid.UUID]string

	// Latency is added to every call; FailWith, when set, is returned by
	// every call. Both are for tests.
	Latency  time.Duration
	FailWith error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes:     make(map[uuid.UUID]*model.NavigationNode),
		chunks:    make(map[uuid.UUID]*model.HierarchicalChunk),
		entities:  make(map[uuid.UUID]*model.Entity),
		trees:     make(map[uuid.UUID]*model.DecisionTree),
		treeNodes: make(map[uuid.UUID]map[uuid.UUID]*model.DecisionNode),
		matrices:  make(map[uuid.UUID]*model.MatrixDocument),
		cells:     make(map[uuid.UUID][]*model.MatrixCell),
		kinds:     make(map[uuid.UUID]model.NodeKind),
		labels:    make(map[uuid.UUID]string),
	}
}

// AddNode seeds a navigation node.
func (m *Memory) AddNode(n *model.NavigationNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = n
	m.kinds[n.ID] = model.NodeSection
	m.labels[n.ID] = n.Title
	if n.ParentID != nil {
		m.edges = append(m.edges, Edge{From: *n.ParentID, To: n.ID, Rel: model.RelHasChild})
	}
}

// AddChunk seeds a chunk and its ownership edge.
func (m *Memory) AddChunk(c *model.HierarchicalChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[c.ID] = c
	m.kinds[c.ID] = model.NodeChunk
	m.labels[c.ID] = c.NavPath
	m.edges = append(m.edges, Edge{From: c.NodeID, To: c.ID, Rel: model.RelHasChunk})
	for _, ref := range c.CrossRefs {
		m.edges = append(m.edges, Edge{From: c.ID, To: ref, Rel: model.RelReferences})
	}
}

// AddEntity seeds an entity.
func (m *Memory) AddEntity(e *model.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
	m.kinds[e.ID] = model.NodeEntity
	m.labels[e.ID] = e.Name
}

// AddTree seeds a decision tree with its nodes.
func (m *Memory) AddTree(t *model.DecisionTree, nodes []*model.DecisionNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[t.ID] = t
	byID := make(map[uuid.UUID]*model.DecisionNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Type == model.DecisionLeaf {
			m.kinds[n.ID] = model.NodeOutcome
		} else {
			m.kinds[n.ID] = model.NodeDecision
		}
		m.labels[n.ID] = n.Label
		for _, succ := range []*uuid.UUID{n.TrueID, n.FalseID, n.ExceptionID} {
			if succ != nil {
				m.edges = append(m.edges, Edge{From: n.ID, To: *succ, Rel: model.RelLeadsTo})
			}
		}
	}
	m.treeNodes[t.ID] = byID
	m.kinds[t.ID] = model.NodeDecision
	m.labels[t.ID] = t.Name
}

// AddMatrix seeds a matrix with its cells.
func (m *Memory) AddMatrix(doc *model.MatrixDocument, cells []*model.MatrixCell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matrices[doc.ID] = doc
	m.cells[doc.ID] = cells
	m.kinds[doc.ID] = model.NodeMatrix
	m.labels[doc.ID] = doc.Name
}

// AddEdge seeds an arbitrary relationship.
func (m *Memory) AddEdge(from, to uuid.UUID, rel model.RelationshipType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, Edge{From: from, To: to, Rel: rel})
}

func (m *Memory) barrier(ctx context.Context) error {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.FailWith
}

// VectorSearch ranks chunks by cosine similarity against the embedding.
func (m *Memory) VectorSearch(ctx context.Context, embedding []float32, topK int, scope string) ([]ChunkHit, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]ChunkHit, 0, len(m.chunks))
	for _, c := range m.chunks {
		if scope != "" && c.Package != "" && !strings.EqualFold(c.Package, scope) {
			continue
		}
		score := ai.CosineSimilarity(embedding, c.Embedding)
		hits = append(hits, ChunkHit{Chunk: c, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID.String() < hits[j].Chunk.ID.String()
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// NavigationNode fetches a node by id.
func (m *Memory) NavigationNode(ctx context.Context, id uuid.UUID) (*model.NavigationNode, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// SiblingChunks returns the other chunks under the same navigation node.
func (m *Memory) SiblingChunks(ctx context.Context, chunkID uuid.UUID) ([]*model.HierarchicalChunk, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[chunkID]
	if !ok {
		return nil, ErrNotFound
	}
	var siblings []*model.HierarchicalChunk
	for _, other := range m.chunks {
		if other.ID != chunkID && other.NodeID == c.NodeID {
			siblings = append(siblings, other)
		}
	}
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].ID.String() < siblings[j].ID.String() })
	return siblings, nil
}

// FindEntities matches entities by canonical form or alias.
func (m *Memory) FindEntities(ctx context.Context, terms []string, scope string) ([]*model.Entity, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Entity
	for _, e := range m.entities {
		if scope != "" && e.Package != "" && !strings.EqualFold(e.Package, scope) {
			continue
		}
		for _, term := range terms {
			if e.Matches(term) {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Traverse performs breadth-first traversal collecting full paths.
func (m *Memory) Traverse(ctx context.Context, startID uuid.UUID, spec TraversalSpec) ([]*model.GraphPath, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.kinds[startID]; !ok {
		return nil, ErrNotFound
	}

	type item struct {
		id   uuid.UUID
		path model.GraphPath
	}

	visited := map[uuid.UUID]bool{startID: true}
	queue := []item{{
		id:   startID,
		path: model.GraphPath{Nodes: []model.PathNode{m.pathNode(startID)}},
	}}

	var results []*model.GraphPath
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.path.Hops() >= spec.MaxDepth {
			continue
		}

		for _, edge := range m.edges {
			var targetID uuid.UUID
			switch {
			case edge.From == current.id && (spec.Direction == DirectionOutgoing || spec.Direction == DirectionBoth || spec.Direction == ""):
				targetID = edge.To
			case edge.To == current.id && (spec.Direction == DirectionIncoming || spec.Direction == DirectionBoth):
				targetID = edge.From
			default:
				continue
			}

			if !spec.AllowsRelationship(edge.Rel) || visited[targetID] {
				continue
			}
			visited[targetID] = true

			next := model.GraphPath{
				Nodes:         append(append([]model.PathNode{}, current.path.Nodes...), m.pathNode(targetID)),
				Relationships: append(append([]model.RelationshipType{}, current.path.Relationships...), edge.Rel),
			}

			if spec.AllowsEnd(m.kinds[targetID]) {
				collected := next
				results = append(results, &collected)
			}
			queue = append(queue, item{id: targetID, path: next})
		}
	}

	return results, nil
}

func (m *Memory) pathNode(id uuid.UUID) model.PathNode {
	return model.PathNode{ID: id, Kind: m.kinds[id], Label: m.labels[id]}
}

// DecisionTrees lists seeded trees.
func (m *Memory) DecisionTrees(ctx context.Context, scope string) ([]*model.DecisionTree, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.DecisionTree
	for _, t := range m.trees {
		if scope != "" && t.Package != "" && !strings.EqualFold(t.Package, scope) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// TreeNodes fetches all nodes of a tree.
func (m *Memory) TreeNodes(ctx context.Context, treeID uuid.UUID) (map[uuid.UUID]*model.DecisionNode, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes, ok := m.treeNodes[treeID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[uuid.UUID]*model.DecisionNode, len(nodes))
	for id, n := range nodes {
		out[id] = n
	}
	return out, nil
}

// Matrices lists seeded matrices.
func (m *Memory) Matrices(ctx context.Context, scope string) ([]*model.MatrixDocument, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.MatrixDocument
	for _, doc := range m.matrices {
		if scope != "" && doc.Package != "" && !strings.EqualFold(doc.Package, scope) {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// MatrixCells fetches the cells of a matrix.
func (m *Memory) MatrixCells(ctx context.Context, matrixID uuid.UUID) ([]*model.MatrixCell, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cells, ok := m.cells[matrixID]
	if !ok {
		return nil, ErrNotFound
	}
	return cells, nil
}

// Chunk fetches a chunk by id.
func (m *Memory) Chunk(ctx context.Context, id uuid.UUID) (*model.HierarchicalChunk, error) {
	if err := m.barrier(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Health reports the injected failure, if any.
func (m *Memory) Health(ctx context.Context) error {
	return m.FailWith
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close(ctx context.Context) error {
	return nil
}
