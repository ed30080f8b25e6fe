package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph views served by GetGraph.
const (
	GraphStructure = "structure"
	GraphRelations = "relations"
)

type GraphReader struct {
	client *Neo4jClient
}

func NewGraphReader(client *Neo4jClient) *GraphReader {
	return &GraphReader{client: client}
}

type FileNode struct {
	ID       string      `json:"id"`
	Path     string      `json:"path"`
	Language string      `json:"language"`
	Entities []EntityRef `json:"entities"`
}

type EntityRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type GraphNode struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GetFileTree returns the repository's files in path order, each with the
// entities it declares in line order.
func (r *GraphReader) GetFileTree(ctx context.Context, repoID string) ([]FileNode, error) {
	files, err := readAll(ctx, r.client, `
		MATCH (r:Repository {id: $repoId})-[:CONTAINS]->(f:File)
		OPTIONAL MATCH (f)-[:DECLARES]->(e:Entity)
		WITH f, e
		ORDER BY e.startLine
		WITH f, collect({
			id: e.id,
			name: e.name,
			type: e.type,
			startLine: e.startLine,
			endLine: e.endLine
		}) AS entities
		RETURN f.id AS id, f.path AS path, f.language AS language, entities
		ORDER BY f.path
	`, map[string]any{"repoId": repoID}, recordToFileNode)
	if err != nil {
		return nil, fmt.Errorf("failed to read file tree: %w", err)
	}
	return files, nil
}

func recordToFileNode(rec *neo4j.Record) FileNode {
	file := FileNode{
		ID:       stringValue(rec, "id"),
		Path:     stringValue(rec, "path"),
		Language: stringValue(rec, "language"),
		Entities: []EntityRef{},
	}
	raw, _ := rec.Get("entities")
	list, _ := raw.([]any)
	for _, item := range list {
		m, _ := item.(map[string]any)
		// OPTIONAL MATCH yields one all-null entry for empty files
		if m == nil || m["id"] == nil {
			continue
		}
		file.Entities = append(file.Entities, EntityRef{
			ID:        asString(m["id"]),
			Name:      asString(m["name"]),
			Type:      asString(m["type"]),
			StartLine: asInt(m["startLine"]),
			EndLine:   asInt(m["endLine"]),
		})
	}
	return file
}

// GetGraph returns graph data for visualization. The structure view links
// files to the entities they declare; the relations view links entities by
// their typed relations.
func (r *GraphReader) GetGraph(ctx context.Context, repoID, graphType string) (*GraphData, error) {
	var query string
	switch graphType {
	case GraphRelations:
		query = `
			MATCH (a:Entity {repoId: $repoId})-[x]->(b:Entity {repoId: $repoId})
			RETURN a AS from, b AS to, type(x) AS rel
		`
	case GraphStructure, "":
		query = `
			MATCH (r:Repository {id: $repoId})-[:CONTAINS]->(f:File)
			OPTIONAL MATCH (f)-[:DECLARES]->(e:Entity)
			RETURN f AS from, e AS to, 'DECLARES' AS rel
		`
	default:
		return nil, fmt.Errorf("unknown graph type %q", graphType)
	}

	result, err := r.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]any{"repoId": repoID})
		if err != nil {
			return nil, err
		}

		acc := newGraphAccumulator()
		for records.Next(ctx) {
			rec := records.Record()
			from := acc.node(rec, "from")
			to := acc.node(rec, "to")
			if from != "" && to != "" {
				acc.edge(from, to, stringValue(rec, "rel"))
			}
		}
		if err := records.Err(); err != nil {
			return nil, err
		}
		return acc.data(), nil
	})

	if err != nil {
		return nil, err
	}
	return result.(*GraphData), nil
}

type graphAccumulator struct {
	nodes map[string]GraphNode
	edges map[string]GraphEdge
}

func newGraphAccumulator() *graphAccumulator {
	return &graphAccumulator{
		nodes: make(map[string]GraphNode),
		edges: make(map[string]GraphEdge),
	}
}

// node records the node under key and returns its id, or "" when the
// column is null.
func (a *graphAccumulator) node(rec *neo4j.Record, key string) string {
	raw, _ := rec.Get(key)
	n, ok := raw.(neo4j.Node)
	if !ok {
		return ""
	}
	a.add(n.Labels, n.GetProperties())
	return asString(n.GetProperties()["id"])
}

func (a *graphAccumulator) add(labels []string, props map[string]any) {
	id := asString(props["id"])
	if id == "" {
		return
	}
	if _, exists := a.nodes[id]; exists {
		return
	}
	node := GraphNode{ID: id, Props: map[string]any{}}
	if slices.Contains(labels, "File") {
		node.Type = "File"
		node.Label = asString(props["path"])
		node.Props["language"] = props["language"]
	} else {
		node.Type = asString(props["type"])
		node.Label = asString(props["name"])
		node.Props["filePath"] = props["filePath"]
		node.Props["startLine"] = props["startLine"]
		node.Props["tier"] = props["tier"]
	}
	a.nodes[id] = node
}

func (a *graphAccumulator) edge(from, to, rel string) {
	id := fmt.Sprintf("%s->%s:%s", from, to, rel)
	if _, exists := a.edges[id]; !exists {
		a.edges[id] = GraphEdge{ID: id, Source: from, Target: to, Type: rel}
	}
}

// data returns nodes and edges sorted by id.
func (a *graphAccumulator) data() *GraphData {
	g := &GraphData{
		Nodes: make([]GraphNode, 0, len(a.nodes)),
		Edges: make([]GraphEdge, 0, len(a.edges)),
	}
	for _, n := range a.nodes {
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range a.edges {
		g.Edges = append(g.Edges, e)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	sort.Slice(g.Edges, func(i, j int) bool { return g.Edges[i].ID < g.Edges[j].ID })
	return g
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	return asString(v)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case neo4j.LocalDateTime:
		return t.Time()
	}
	return time.Time{}
}
