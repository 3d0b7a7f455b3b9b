package adapters

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/praetorian-inc/ocigraph/pkg/graph"
)

// QueryHandler answers a read query against the in-memory graph.
type QueryHandler func(db *MemoryDatabase, params map[string]any) ([]graph.Record, error)

// MemoryNode is a node held by MemoryDatabase.
type MemoryNode struct {
	Labels     []string
	Properties map[string]any
}

// MemoryRelationship is an edge held by MemoryDatabase, addressed by node keys.
type MemoryRelationship struct {
	Type       string
	Start      string
	End        string
	Properties map[string]any
}

// MemoryDatabase is a graph.GraphDatabase with MERGE semantics kept in process.
// It backs dry runs and tests. Reads are served by registered QueryHandlers;
// unknown queries return no records.
type MemoryDatabase struct {
	mu          sync.Mutex
	clock       int64
	nodes       map[string]*MemoryNode
	rels        map[string]*MemoryRelationship
	handlers    map[string]QueryHandler
	constraints []graph.Constraint
	queries     []string
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		nodes:    make(map[string]*MemoryNode),
		rels:     make(map[string]*MemoryRelationship),
		handlers: make(map[string]QueryHandler),
	}
}

// Handle registers a handler for an exact query text.
func (db *MemoryDatabase) Handle(query string, h QueryHandler) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.handlers[strings.TrimSpace(query)] = h
}

func (db *MemoryDatabase) VerifyConnectivity(context.Context) error { return nil }

func (db *MemoryDatabase) Close() error { return nil }

func (db *MemoryDatabase) EnsureConstraints(_ context.Context, constraints []graph.Constraint) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.constraints = append(db.constraints, constraints...)
	return nil
}

func (db *MemoryDatabase) CreateNodes(ctx context.Context, nodes []*graph.Node) (*graph.BatchResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := &graph.BatchResult{}
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := validateNode(node); err != nil {
			return result, err
		}
		_, created, set := db.merge(node)
		if created {
			result.NodesCreated++
		}
		result.NodesUpdated += set
	}
	return result, nil
}

func (db *MemoryDatabase) CreateRelationships(ctx context.Context, rels []*graph.Relationship) (*graph.BatchResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := &graph.BatchResult{}
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if rel.StartNode == nil || rel.EndNode == nil {
			return result, fmt.Errorf("relationship %s must have start and end nodes", rel.Type)
		}
		if err := validateNode(rel.StartNode); err != nil {
			return result, fmt.Errorf("relationship %s start: %w", rel.Type, err)
		}
		if err := validateNode(rel.EndNode); err != nil {
			return result, fmt.Errorf("relationship %s end: %w", rel.Type, err)
		}

		start, created, _ := db.merge(rel.StartNode)
		if created {
			result.NodesCreated++
		}
		end, created, _ := db.merge(rel.EndNode)
		if created {
			result.NodesCreated++
		}

		key := rel.Type + "|" + start + "|" + end
		r, ok := db.rels[key]
		if !ok {
			db.clock++
			r = &MemoryRelationship{Type: rel.Type, Start: start, End: end, Properties: map[string]any{"firstseen": db.clock}}
			db.rels[key] = r
			result.RelationshipsCreated++
		}
		maps.Copy(r.Properties, rel.Properties)
		result.RelationshipsUpdated += len(rel.Properties)
	}
	return result, nil
}

func (db *MemoryDatabase) Query(_ context.Context, query string, params map[string]any) (*graph.QueryResult, error) {
	db.mu.Lock()
	db.queries = append(db.queries, query)
	h, ok := db.handlers[strings.TrimSpace(query)]
	db.mu.Unlock()

	if !ok {
		return &graph.QueryResult{Records: []graph.Record{}}, nil
	}
	records, err := h(db, params)
	if err != nil {
		return nil, err
	}
	return &graph.QueryResult{Records: records}, nil
}

// merge must be called with mu held.
func (db *MemoryDatabase) merge(node *graph.Node) (key string, created bool, set int) {
	key = nodeKey(node.Labels, node.GetIdentity())
	n, ok := db.nodes[key]
	if !ok {
		db.clock++
		n = &MemoryNode{Labels: append([]string(nil), node.Labels...), Properties: map[string]any{"firstseen": db.clock}}
		maps.Copy(n.Properties, node.OnCreate)
		set += len(node.OnCreate)
		db.nodes[key] = n
		created = true
	}
	maps.Copy(n.Properties, node.Properties)
	set += len(node.Properties)
	return key, created, set
}

// Node returns a copy of the node with the given label and identity property.
func (db *MemoryDatabase) Node(label, property string, value any) (MemoryNode, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	n, ok := db.nodes[nodeKey([]string{label}, map[string]any{property: value})]
	if !ok {
		return MemoryNode{}, false
	}
	return MemoryNode{Labels: n.Labels, Properties: maps.Clone(n.Properties)}, true
}

// Nodes returns copies of every node carrying label, ordered by key.
func (db *MemoryDatabase) Nodes(label string) []MemoryNode {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]MemoryNode, 0)
	for _, key := range sortedKeys(db.nodes) {
		n := db.nodes[key]
		for _, l := range n.Labels {
			if l == label {
				out = append(out, MemoryNode{Labels: n.Labels, Properties: maps.Clone(n.Properties)})
				break
			}
		}
	}
	return out
}

// Relationships returns copies of every edge of the given type, ordered by key.
func (db *MemoryDatabase) Relationships(relType string) []MemoryRelationship {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]MemoryRelationship, 0)
	for _, key := range sortedKeys(db.rels) {
		r := db.rels[key]
		if r.Type == relType {
			out = append(out, MemoryRelationship{Type: r.Type, Start: r.Start, End: r.End, Properties: maps.Clone(r.Properties)})
		}
	}
	return out
}

// Constraints returns the constraints requested so far.
func (db *MemoryDatabase) Constraints() []graph.Constraint {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]graph.Constraint(nil), db.constraints...)
}

// Queries returns every read query text received, in order.
func (db *MemoryDatabase) Queries() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.queries...)
}

// NodeKey is the address MemoryRelationship uses for its endpoints.
func NodeKey(label, property string, value any) string {
	return nodeKey([]string{label}, map[string]any{property: value})
}

func nodeKey(labels []string, identity map[string]any) string {
	props := make([]string, 0, len(identity))
	for k, v := range identity {
		props = append(props, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(props)
	return strings.Join(labels, ":") + "{" + strings.Join(props, ",") + "}"
}
