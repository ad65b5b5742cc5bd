package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

//go:embed schema.sql
var schemaSQL string

// PostgresConfig contains connection options for the Postgres-backed store.
type PostgresConfig struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	SSLMode  string

	MaxOpenConnections int
	ConnectTimeout     time.Duration
}

// DefaultPostgresConfig returns a config with sensible defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:               "localhost",
		Port:               "5432",
		SSLMode:            "disable",
		MaxOpenConnections: 25,
		ConnectTimeout:     30 * time.Second,
	}
}

// Validate checks the configuration.
func (c PostgresConfig) Validate() error {
	if c.Host == "" || c.Port == "" {
		return helper.NewError("postgres config validation", fmt.Errorf("host and port cannot be empty"))
	}
	if c.Name == "" {
		return helper.NewError("postgres config validation", fmt.Errorf("database name cannot be empty"))
	}
	if c.Username == "" {
		return helper.NewError("postgres config validation", fmt.Errorf("username cannot be empty"))
	}
	return nil
}

// Postgres implements GraphStore over Postgres with pgvector. The graph lives
// in relational tables with an explicit edge table; traversal runs as a
// breadth first search over graph_edges.
type Postgres struct {
	config PostgresConfig
	db     *sql.DB
}

// NewPostgres opens the connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, config PostgresConfig) (*Postgres, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Name, config.SSLMode,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Postgres{config: config, db: db}, nil
}

// Setup creates the schema if it does not exist. Ingestion pipelines call
// this once; the retrieval engine itself never writes.
func (s *Postgres) Setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return helper.NewError("execute schema sql", err)
	}
	return nil
}

// VectorSearch ranks chunks by cosine similarity using the pgvector
// distance operator.
func (s *Postgres) VectorSearch(ctx context.Context, embedding []float32, topK int, scope string) ([]ChunkHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_id, content, token_count, nav_path, package,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE embedding IS NOT NULL
		  AND ($2 = '' OR package = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(embedding), scope, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		chunk := &model.HierarchicalChunk{}
		var nodeID uuid.NullUUID
		var score float64
		err := rows.Scan(&chunk.ID, &nodeID, &chunk.Content, &chunk.TokenCount, &chunk.NavPath, &chunk.Package, &score)
		if err != nil {
			return nil, helper.NewError("scan chunk", err)
		}
		chunk.NodeID = nodeID.UUID
		hits = append(hits, ChunkHit{Chunk: chunk, Score: score})
	}
	return hits, rows.Err()
}

// NavigationNode fetches a section node by id.
func (s *Postgres) NavigationNode(ctx context.Context, id uuid.UUID) (*model.NavigationNode, error) {
	node := &model.NavigationNode{}
	var parentID uuid.NullUUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, depth, position, parent_id, summary, package
		FROM nav_nodes WHERE id = $1`,
		id,
	).Scan(&node.ID, &node.Title, &node.Depth, &node.Position, &parentID, &node.Summary, &node.Package)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if parentID.Valid {
		node.ParentID = &parentID.UUID
	}
	return node, nil
}

// SiblingChunks returns the other chunks under the same section.
func (s *Postgres) SiblingChunks(ctx context.Context, chunkID uuid.UUID) ([]*model.HierarchicalChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sib.id, sib.node_id, sib.content, sib.token_count, sib.nav_path, sib.package
		FROM chunks c
		JOIN chunks sib ON sib.node_id = c.node_id AND sib.id <> c.id
		WHERE c.id = $1
		ORDER BY sib.id`,
		chunkID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// FindEntities matches entities by canonical form or alias.
func (s *Postgres) FindEntities(ctx context.Context, terms []string, scope string) ([]*model.Entity, error) {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, entity_type, aliases, confidence, nav_path, decision_id, matrix_id, package, metadata
		FROM entities
		WHERE (LOWER(name) = ANY($1)
		       OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE LOWER(a) = ANY($1)))
		  AND ($2 = '' OR package = $2)
		ORDER BY id`,
		pq.Array(lowered), scope,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		e := &model.Entity{}
		var decisionID, matrixID uuid.NullUUID
		err := rows.Scan(&e.ID, &e.Name, &e.Type, pq.Array(&e.Aliases), &e.Confidence, &e.NavPath, &decisionID, &matrixID, &e.Package, &e.Metadata)
		if err != nil {
			return nil, helper.NewError("scan entity", err)
		}
		if decisionID.Valid {
			e.DecisionID = &decisionID.UUID
		}
		if matrixID.Valid {
			e.MatrixID = &matrixID.UUID
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Traverse runs a breadth first search over graph_edges, loading adjacency
// one frontier node at a time.
func (s *Postgres) Traverse(ctx context.Context, startID uuid.UUID, spec TraversalSpec) ([]*model.GraphPath, error) {
	depth := spec.MaxDepth
	if depth <= 0 {
		depth = 1
	}

	start, err := s.graphNode(ctx, startID)
	if err != nil {
		return nil, err
	}

	type step struct {
		nodes []model.PathNode
		rels  []model.RelationshipType
	}
	queue := []step{{nodes: []model.PathNode{*start}}}
	visited := map[uuid.UUID]bool{startID: true}
	kinds := map[uuid.UUID]*model.PathNode{startID: start}

	var paths []*model.GraphPath
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if len(current.rels) >= depth {
			continue
		}

		tail := current.nodes[len(current.nodes)-1]
		neighbors, err := s.neighbors(ctx, tail.ID, spec.Direction)
		if err != nil {
			return nil, err
		}

		for _, n := range neighbors {
			if !spec.AllowsRelationship(n.rel) || visited[n.id] {
				continue
			}
			visited[n.id] = true

			node, ok := kinds[n.id]
			if !ok {
				node, err = s.graphNode(ctx, n.id)
				if err == ErrNotFound {
					continue
				}
				if err != nil {
					return nil, err
				}
				kinds[n.id] = node
			}

			next := step{
				nodes: append(append([]model.PathNode{}, current.nodes...), *node),
				rels:  append(append([]model.RelationshipType{}, current.rels...), n.rel),
			}
			if spec.AllowsEnd(node.Kind) {
				paths = append(paths, &model.GraphPath{Nodes: next.nodes, Relationships: next.rels})
			}
			queue = append(queue, next)
		}
	}
	return paths, nil
}

type pgNeighbor struct {
	id  uuid.UUID
	rel model.RelationshipType
}

func (s *Postgres) neighbors(ctx context.Context, id uuid.UUID, dir Direction) ([]pgNeighbor, error) {
	var query string
	switch dir {
	case DirectionIncoming:
		query = `SELECT from_id, relationship FROM graph_edges WHERE to_id = $1 ORDER BY from_id`
	case DirectionBoth:
		query = `SELECT to_id, relationship FROM graph_edges WHERE from_id = $1
		         UNION SELECT from_id, relationship FROM graph_edges WHERE to_id = $1
		         ORDER BY 1`
	default:
		query = `SELECT to_id, relationship FROM graph_edges WHERE from_id = $1 ORDER BY to_id`
	}

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var neighbors []pgNeighbor
	for rows.Next() {
		var n pgNeighbor
		if err := rows.Scan(&n.id, &n.rel); err != nil {
			return nil, helper.NewError("scan edge", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

func (s *Postgres) graphNode(ctx context.Context, id uuid.UUID) (*model.PathNode, error) {
	node := &model.PathNode{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, label FROM graph_nodes WHERE id = $1`,
		id,
	).Scan(&node.ID, &node.Kind, &node.Label)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return node, nil
}

// DecisionTrees lists decision trees.
func (s *Postgres) DecisionTrees(ctx context.Context, scope string) ([]*model.DecisionTree, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, summary, root_id, node_count, leaf_count, complete, package
		FROM decision_trees
		WHERE $1 = '' OR package = $1
		ORDER BY id`,
		scope,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var trees []*model.DecisionTree
	for rows.Next() {
		t := &model.DecisionTree{}
		err := rows.Scan(&t.ID, &t.Name, &t.Summary, &t.RootID, &t.NodeCount, &t.LeafCount, &t.Complete, &t.Package)
		if err != nil {
			return nil, helper.NewError("scan decision tree", err)
		}
		trees = append(trees, t)
	}
	return trees, rows.Err()
}

// TreeNodes fetches all nodes of a decision tree.
func (s *Postgres) TreeNodes(ctx context.Context, treeID uuid.UUID) (map[uuid.UUID]*model.DecisionNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_type, label, condition, true_id, false_id, exception_id, outcome
		FROM decision_nodes
		WHERE tree_id = $1`,
		treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	nodes := map[uuid.UUID]*model.DecisionNode{}
	for rows.Next() {
		node := &model.DecisionNode{TreeID: treeID}
		var condition, outcome []byte
		var trueID, falseID, exceptionID uuid.NullUUID
		err := rows.Scan(&node.ID, &node.Type, &node.Label, &condition, &trueID, &falseID, &exceptionID, &outcome)
		if err != nil {
			return nil, helper.NewError("scan decision node", err)
		}
		if len(condition) > 0 {
			var cond model.Condition
			if err := json.Unmarshal(condition, &cond); err == nil {
				node.Condition = &cond
			}
		}
		if len(outcome) > 0 {
			var out model.DecisionOutcome
			if err := json.Unmarshal(outcome, &out); err == nil {
				node.Outcome = &out
			}
		}
		if trueID.Valid {
			node.TrueID = &trueID.UUID
		}
		if falseID.Valid {
			node.FalseID = &falseID.UUID
		}
		if exceptionID.Valid {
			node.ExceptionID = &exceptionID.UUID
		}
		nodes[node.ID] = node
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNotFound
	}
	return nodes, nil
}

// Matrices lists classification matrices.
func (s *Postgres) Matrices(ctx context.Context, scope string) ([]*model.MatrixDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, summary, types, primary_type, dimensions, package
		FROM matrices
		WHERE $1 = '' OR package = $1
		ORDER BY id`,
		scope,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var matrices []*model.MatrixDocument
	for rows.Next() {
		doc := &model.MatrixDocument{}
		var types, dimensions []byte
		err := rows.Scan(&doc.ID, &doc.Name, &doc.Summary, &types, &doc.PrimaryType, &dimensions, &doc.Package)
		if err != nil {
			return nil, helper.NewError("scan matrix", err)
		}
		_ = json.Unmarshal(types, &doc.Types)
		_ = json.Unmarshal(dimensions, &doc.Dimensions)
		matrices = append(matrices, doc)
	}
	return matrices, rows.Err()
}

// MatrixCells fetches the cells of a matrix.
func (s *Postgres) MatrixCells(ctx context.Context, matrixID uuid.UUID) ([]*model.MatrixCell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, coordinates, value, node_ref, chunk_ref
		FROM matrix_cells
		WHERE matrix_id = $1
		ORDER BY id`,
		matrixID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var cells []*model.MatrixCell
	for rows.Next() {
		cell := &model.MatrixCell{MatrixID: matrixID}
		var coordinates []byte
		var nodeRef, chunkRef uuid.NullUUID
		err := rows.Scan(&cell.ID, &coordinates, &cell.Value, &nodeRef, &chunkRef)
		if err != nil {
			return nil, helper.NewError("scan matrix cell", err)
		}
		_ = json.Unmarshal(coordinates, &cell.Coordinates)
		if nodeRef.Valid {
			cell.NodeRef = &nodeRef.UUID
		}
		if chunkRef.Valid {
			cell.ChunkRef = &chunkRef.UUID
		}
		cells = append(cells, cell)
	}
	return cells, rows.Err()
}

// Chunk fetches a chunk by id.
func (s *Postgres) Chunk(ctx context.Context, id uuid.UUID) (*model.HierarchicalChunk, error) {
	chunk := &model.HierarchicalChunk{}
	var nodeID uuid.NullUUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, node_id, content, token_count, nav_path, package
		FROM chunks WHERE id = $1`,
		id,
	).Scan(&chunk.ID, &nodeID, &chunk.Content, &chunk.TokenCount, &chunk.NavPath, &chunk.Package)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	chunk.NodeID = nodeID.UUID
	return chunk, nil
}

// Health pings the database.
func (s *Postgres) Health(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Postgres) Close(ctx context.Context) error {
	return s.db.Close()
}

func scanChunks(rows *sql.Rows) ([]*model.HierarchicalChunk, error) {
	var chunks []*model.HierarchicalChunk
	for rows.Next() {
		chunk := &model.HierarchicalChunk{}
		var nodeID uuid.NullUUID
		err := rows.Scan(&chunk.ID, &nodeID, &chunk.Content, &chunk.TokenCount, &chunk.NavPath, &chunk.Package)
		if err != nil {
			return nil, helper.NewError("scan chunk", err)
		}
		chunk.NodeID = nodeID.UUID
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
