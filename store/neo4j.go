package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jConfig contains connection options for the Neo4j-backed store.
type Neo4jConfig struct {
	// URI is the bolt/neo4j connection URI, e.g. "bolt://localhost:7687".
	URI      string
	Username string
	Password string
	Database string

	MaxConnectionPoolSize int
	ConnectionTimeout     time.Duration

	// VectorIndex is the name of the vector index over chunk embeddings.
	VectorIndex string
}

// DefaultNeo4jConfig returns a config with sensible defaults.
func DefaultNeo4jConfig() Neo4jConfig {
	return Neo4jConfig{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		Password:              "password",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
		VectorIndex:           "chunk_embedding",
	}
}

// Validate checks the configuration.
func (c Neo4jConfig) Validate() error {
	if c.URI == "" {
		return helper.NewError("neo4j config validation", fmt.Errorf("URI cannot be empty"))
	}
	if c.Username == "" {
		return helper.NewError("neo4j config validation", fmt.Errorf("username cannot be empty"))
	}
	if c.VectorIndex == "" {
		return helper.NewError("neo4j config validation", fmt.Errorf("vector index name cannot be empty"))
	}
	return nil
}

// Neo4j implements GraphStore against a Neo4j knowledge graph. Sessions are
// taken from the driver's pool per call and all queries run in read
// transactions; the engine never writes.
type Neo4j struct {
	config Neo4jConfig
	driver neo4j.DriverWithContext
}

// NewNeo4j creates and connects the Neo4j store.
func NewNeo4j(ctx context.Context, config Neo4jConfig) (*Neo4j, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	auth := neo4j.BasicAuth(config.Username, config.Password, "")
	driver, err := neo4j.NewDriverWithContext(config.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = config.MaxConnectionPoolSize
		c.ConnectionAcquisitionTimeout = config.ConnectionTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Neo4j{config: config, driver: driver}, nil
}

// read runs a Cypher query in a pooled read transaction.
func (s *Neo4j) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.config.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result.([]*neo4j.Record), nil
}

// VectorSearch queries the vector index over chunk embeddings.
func (s *Neo4j) VectorSearch(ctx context.Context, embedding []float32, topK int, scope string) ([]ChunkHit, error) {
	vec := make([]float64, len(embedding))
	for i, v := range embedding {
		vec[i] = float64(v)
	}

	records, err := s.read(ctx, `
		CALL db.index.vector.queryNodes($index, $k, $embedding)
		YIELD node, score
		WHERE $scope = '' OR coalesce(node.package, '') = $scope
		RETURN node.id AS id, node.node_id AS node_id, node.content AS content,
		       node.token_count AS token_count, node.nav_path AS nav_path,
		       coalesce(node.package, '') AS package, score
		ORDER BY score DESC`,
		map[string]any{
			"index":     s.config.VectorIndex,
			"k":         topK,
			"embedding": vec,
			"scope":     scope,
		})
	if err != nil {
		return nil, err
	}

	hits := make([]ChunkHit, 0, len(records))
	for _, rec := range records {
		chunk := &model.HierarchicalChunk{
			ID:         recUUID(rec, "id"),
			NodeID:     recUUID(rec, "node_id"),
			Content:    recString(rec, "content"),
			TokenCount: int(recFloat(rec, "token_count")),
			NavPath:    recString(rec, "nav_path"),
			Package:    recString(rec, "package"),
		}
		hits = append(hits, ChunkHit{Chunk: chunk, Score: recFloat(rec, "score")})
	}
	return hits, nil
}

// NavigationNode fetches a section node by id.
func (s *Neo4j) NavigationNode(ctx context.Context, id uuid.UUID) (*model.NavigationNode, error) {
	records, err := s.read(ctx, `
		MATCH (n:Section {id: $id})
		OPTIONAL MATCH (p:Section)-[:HAS_CHILD]->(n)
		RETURN n.id AS id, n.title AS title, n.depth AS depth, n.position AS position,
		       n.summary AS summary, coalesce(n.package, '') AS package, p.id AS parent_id`,
		map[string]any{"id": id.String()})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	rec := records[0]
	node := &model.NavigationNode{
		ID:       recUUID(rec, "id"),
		Title:    recString(rec, "title"),
		Depth:    int(recFloat(rec, "depth")),
		Position: int(recFloat(rec, "position")),
		Summary:  recString(rec, "summary"),
		Package:  recString(rec, "package"),
	}
	if parent := recString(rec, "parent_id"); parent != "" {
		if pid, err := uuid.Parse(parent); err == nil {
			node.ParentID = &pid
		}
	}
	return node, nil
}

// SiblingChunks returns the other chunks under the same section.
func (s *Neo4j) SiblingChunks(ctx context.Context, chunkID uuid.UUID) ([]*model.HierarchicalChunk, error) {
	records, err := s.read(ctx, `
		MATCH (c:Chunk {id: $id})<-[:HAS_CHUNK]-(:Section)-[:HAS_CHUNK]->(sib:Chunk)
		WHERE sib.id <> $id
		RETURN sib.id AS id, sib.node_id AS node_id, sib.content AS content,
		       sib.token_count AS token_count, sib.nav_path AS nav_path,
		       coalesce(sib.package, '') AS package`,
		map[string]any{"id": chunkID.String()})
	if err != nil {
		return nil, err
	}

	chunks := make([]*model.HierarchicalChunk, 0, len(records))
	for _, rec := range records {
		chunks = append(chunks, chunkFromRecord(rec))
	}
	return chunks, nil
}

// FindEntities matches entities by canonical form or alias.
func (s *Neo4j) FindEntities(ctx context.Context, terms []string, scope string) ([]*model.Entity, error) {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	records, err := s.read(ctx, `
		MATCH (e:Entity)
		WHERE (toLower(e.name) IN $terms
		       OR any(a IN coalesce(e.aliases, []) WHERE toLower(a) IN $terms))
		  AND ($scope = '' OR coalesce(e.package, '') = $scope)
		RETURN e.id AS id, e.name AS name, e.entity_type AS entity_type,
		       coalesce(e.aliases, []) AS aliases, e.confidence AS confidence,
		       coalesce(e.nav_path, '') AS nav_path, e.decision_id AS decision_id,
		       e.matrix_id AS matrix_id, coalesce(e.package, '') AS package,
		       coalesce(e.metadata, '{}') AS metadata`,
		map[string]any{"terms": lowered, "scope": scope})
	if err != nil {
		return nil, err
	}

	entities := make([]*model.Entity, 0, len(records))
	for _, rec := range records {
		e := &model.Entity{
			ID:         recUUID(rec, "id"),
			Name:       recString(rec, "name"),
			Type:       recString(rec, "entity_type"),
			Aliases:    recStrings(rec, "aliases"),
			Confidence: recFloat(rec, "confidence"),
			NavPath:    recString(rec, "nav_path"),
			Package:    recString(rec, "package"),
		}
		if id := recString(rec, "decision_id"); id != "" {
			if did, err := uuid.Parse(id); err == nil {
				e.DecisionID = &did
			}
		}
		if id := recString(rec, "matrix_id"); id != "" {
			if mid, err := uuid.Parse(id); err == nil {
				e.MatrixID = &mid
			}
		}
		// Metadata is stored as a JSON string property on the node.
		if raw := recString(rec, "metadata"); raw != "" {
			if err := e.Metadata.Unmarshal([]byte(raw)); err != nil {
				e.Metadata = model.Metadata{}
			}
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Traverse performs bounded variable-length traversal returning full paths.
// Relationship types come from the closed RelationshipType set, so they are
// interpolated rather than parameterized (Cypher cannot parameterize them).
func (s *Neo4j) Traverse(ctx context.Context, startID uuid.UUID, spec TraversalSpec) ([]*model.GraphPath, error) {
	depth := spec.MaxDepth
	if depth <= 0 {
		depth = 1
	}

	relTypes := make([]string, 0, len(spec.Relationships))
	for _, r := range spec.Relationships {
		relTypes = append(relTypes, string(r))
	}
	relFilter := ""
	if len(relTypes) > 0 {
		relFilter = ":" + strings.Join(relTypes, "|")
	}

	var pattern string
	switch spec.Direction {
	case DirectionIncoming:
		pattern = fmt.Sprintf("(start {id: $id})<-[%s*1..%d]-(end)", relFilter, depth)
	case DirectionBoth:
		pattern = fmt.Sprintf("(start {id: $id})-[%s*1..%d]-(end)", relFilter, depth)
	default:
		pattern = fmt.Sprintf("(start {id: $id})-[%s*1..%d]->(end)", relFilter, depth)
	}

	endLabels := make([]string, 0, len(spec.EndKinds))
	for _, k := range spec.EndKinds {
		endLabels = append(endLabels, kindLabel(k))
	}

	records, err := s.read(ctx, fmt.Sprintf(`
		MATCH p = %s
		WHERE size($endLabels) = 0
		   OR size([l IN labels(end) WHERE l IN $endLabels]) > 0
		RETURN [n IN nodes(p) | {id: n.id, label: coalesce(n.title, n.name, n.label, n.nav_path, ''), kinds: labels(n)}] AS nodes,
		       [r IN relationships(p) | type(r)] AS rels`, pattern),
		map[string]any{"id": startID.String(), "endLabels": endLabels})
	if err != nil {
		return nil, err
	}

	paths := make([]*model.GraphPath, 0, len(records))
	for _, rec := range records {
		path := &model.GraphPath{}
		if nodes, ok := rec.Get("nodes"); ok {
			for _, raw := range nodes.([]any) {
				props := raw.(map[string]any)
				pn := model.PathNode{Label: asString(props["label"])}
				if id, err := uuid.Parse(asString(props["id"])); err == nil {
					pn.ID = id
				}
				if kinds, ok := props["kinds"].([]any); ok && len(kinds) > 0 {
					pn.Kind = labelKind(asString(kinds[0]))
				}
				path.Nodes = append(path.Nodes, pn)
			}
		}
		if rels, ok := rec.Get("rels"); ok {
			for _, raw := range rels.([]any) {
				path.Relationships = append(path.Relationships, model.RelationshipType(asString(raw)))
			}
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// DecisionTrees lists decision trees.
func (s *Neo4j) DecisionTrees(ctx context.Context, scope string) ([]*model.DecisionTree, error) {
	records, err := s.read(ctx, `
		MATCH (t:DecisionTree)
		WHERE $scope = '' OR coalesce(t.package, '') = $scope
		RETURN t.id AS id, t.name AS name, coalesce(t.summary, '') AS summary,
		       t.root_id AS root_id, t.node_count AS node_count,
		       t.leaf_count AS leaf_count, t.complete AS complete,
		       coalesce(t.package, '') AS package`,
		map[string]any{"scope": scope})
	if err != nil {
		return nil, err
	}

	trees := make([]*model.DecisionTree, 0, len(records))
	for _, rec := range records {
		complete, _ := recAny(rec, "complete").(bool)
		trees = append(trees, &model.DecisionTree{
			ID:        recUUID(rec, "id"),
			Name:      recString(rec, "name"),
			Summary:   recString(rec, "summary"),
			RootID:    recUUID(rec, "root_id"),
			NodeCount: int(recFloat(rec, "node_count")),
			LeafCount: int(recFloat(rec, "leaf_count")),
			Complete:  complete,
			Package:   recString(rec, "package"),
		})
	}
	return trees, nil
}

// TreeNodes fetches all nodes of a decision tree. Conditions and outcomes
// are stored as JSON properties.
func (s *Neo4j) TreeNodes(ctx context.Context, treeID uuid.UUID) (map[uuid.UUID]*model.DecisionNode, error) {
	records, err := s.read(ctx, `
		MATCH (n)
		WHERE n.tree_id = $id AND (n:Decision OR n:Outcome)
		RETURN n.id AS id, n.type AS type, coalesce(n.label, '') AS label,
		       n.condition AS condition, n.true_id AS true_id,
		       n.false_id AS false_id, n.exception_id AS exception_id,
		       n.outcome AS outcome`,
		map[string]any{"id": treeID.String()})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	nodes := make(map[uuid.UUID]*model.DecisionNode, len(records))
	for _, rec := range records {
		node := &model.DecisionNode{
			ID:     recUUID(rec, "id"),
			TreeID: treeID,
			Type:   model.DecisionNodeType(recString(rec, "type")),
			Label:  recString(rec, "label"),
		}
		if raw := recString(rec, "condition"); raw != "" {
			var cond model.Condition
			if err := json.Unmarshal([]byte(raw), &cond); err == nil {
				node.Condition = &cond
			}
		}
		if raw := recString(rec, "outcome"); raw != "" {
			var outcome model.DecisionOutcome
			if err := json.Unmarshal([]byte(raw), &outcome); err == nil {
				node.Outcome = &outcome
			}
		}
		node.TrueID = recUUIDPtr(rec, "true_id")
		node.FalseID = recUUIDPtr(rec, "false_id")
		node.ExceptionID = recUUIDPtr(rec, "exception_id")
		nodes[node.ID] = node
	}
	return nodes, nil
}

// Matrices lists classification matrices.
func (s *Neo4j) Matrices(ctx context.Context, scope string) ([]*model.MatrixDocument, error) {
	records, err := s.read(ctx, `
		MATCH (m:Matrix)
		WHERE $scope = '' OR coalesce(m.package, '') = $scope
		RETURN m.id AS id, m.name AS name, coalesce(m.summary, '') AS summary,
		       m.primary_type AS primary_type, m.types AS types,
		       m.dimensions AS dimensions, coalesce(m.package, '') AS package`,
		map[string]any{"scope": scope})
	if err != nil {
		return nil, err
	}

	matrices := make([]*model.MatrixDocument, 0, len(records))
	for _, rec := range records {
		doc := &model.MatrixDocument{
			ID:          recUUID(rec, "id"),
			Name:        recString(rec, "name"),
			Summary:     recString(rec, "summary"),
			PrimaryType: recString(rec, "primary_type"),
			Package:     recString(rec, "package"),
		}
		if raw := recString(rec, "types"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &doc.Types)
		}
		if raw := recString(rec, "dimensions"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &doc.Dimensions)
		}
		matrices = append(matrices, doc)
	}
	return matrices, nil
}

// MatrixCells fetches the cells of a matrix.
func (s *Neo4j) MatrixCells(ctx context.Context, matrixID uuid.UUID) ([]*model.MatrixCell, error) {
	records, err := s.read(ctx, `
		MATCH (m:Matrix {id: $id})-[:HAS_CELL]->(c:Cell)
		RETURN c.id AS id, c.coordinates AS coordinates, c.value AS value,
		       c.node_ref AS node_ref, c.chunk_ref AS chunk_ref`,
		map[string]any{"id": matrixID.String()})
	if err != nil {
		return nil, err
	}

	cells := make([]*model.MatrixCell, 0, len(records))
	for _, rec := range records {
		cell := &model.MatrixCell{
			ID:       recUUID(rec, "id"),
			MatrixID: matrixID,
			Value:    recString(rec, "value"),
		}
		if raw := recString(rec, "coordinates"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &cell.Coordinates)
		}
		cell.NodeRef = recUUIDPtr(rec, "node_ref")
		cell.ChunkRef = recUUIDPtr(rec, "chunk_ref")
		cells = append(cells, cell)
	}
	return cells, nil
}

// Chunk fetches a chunk by id.
func (s *Neo4j) Chunk(ctx context.Context, id uuid.UUID) (*model.HierarchicalChunk, error) {
	records, err := s.read(ctx, `
		MATCH (c:Chunk {id: $id})
		RETURN c.id AS id, c.node_id AS node_id, c.content AS content,
		       c.token_count AS token_count, c.nav_path AS nav_path,
		       coalesce(c.package, '') AS package`,
		map[string]any{"id": id.String()})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return chunkFromRecord(records[0]), nil
}

// Health verifies connectivity.
func (s *Neo4j) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.driver.VerifyConnectivity(healthCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the driver's connection pool.
func (s *Neo4j) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func kindLabel(k model.NodeKind) string {
	switch k {
	case model.NodeSection:
		return "Section"
	case model.NodeChunk:
		return "Chunk"
	case model.NodeEntity:
		return "Entity"
	case model.NodeDecision:
		return "Decision"
	case model.NodeOutcome:
		return "Outcome"
	case model.NodeMatrix:
		return "Matrix"
	}
	return string(k)
}

func labelKind(label string) model.NodeKind {
	switch label {
	case "Section":
		return model.NodeSection
	case "Chunk":
		return model.NodeChunk
	case "Entity":
		return model.NodeEntity
	case "Decision":
		return model.NodeDecision
	case "Outcome":
		return model.NodeOutcome
	case "Matrix":
		return model.NodeMatrix
	}
	return model.NodeKind(strings.ToLower(label))
}

func chunkFromRecord(rec *neo4j.Record) *model.HierarchicalChunk {
	return &model.HierarchicalChunk{
		ID:         recUUID(rec, "id"),
		NodeID:     recUUID(rec, "node_id"),
		Content:    recString(rec, "content"),
		TokenCount: int(recFloat(rec, "token_count")),
		NavPath:    recString(rec, "nav_path"),
		Package:    recString(rec, "package"),
	}
}

func recAny(rec *neo4j.Record, key string) any {
	v, _ := rec.Get(key)
	return v
}

func recString(rec *neo4j.Record, key string) string {
	return asString(recAny(rec, key))
}

func recFloat(rec *neo4j.Record, key string) float64 {
	switch v := recAny(rec, key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func recUUID(rec *neo4j.Record, key string) uuid.UUID {
	id, err := uuid.Parse(recString(rec, key))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func recUUIDPtr(rec *neo4j.Record, key string) *uuid.UUID {
	s := recString(rec, key)
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func recStrings(rec *neo4j.Record, key string) []string {
	raw, ok := recAny(rec, key).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, asString(v))
	}
	return out
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
