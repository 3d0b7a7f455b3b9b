package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Node represents a graph node with built-in identity management
type Node struct {
	// Labels for the node
	Labels []string

	// Properties of the node, written on every merge
	Properties map[string]any

	// OnCreate properties are only written when the merge creates the node
	OnCreate map[string]any

	// UniqueKey specifies which properties form the unique identity of this node
	// Multiple property names mean a composite key
	UniqueKey []string
}

// GetIdentity returns the identity map for this node based on its UniqueKey
func (n *Node) GetIdentity() map[string]any {
	if len(n.UniqueKey) == 0 {
		return nil
	}

	identity := make(map[string]any)
	for _, key := range n.UniqueKey {
		if val, exists := n.Properties[key]; exists {
			identity[key] = val
		}
	}
	return identity
}

// Equals checks if two nodes have the same identity
func (n *Node) Equals(other *Node) bool {
	if n == nil || other == nil {
		return false
	}

	nid := n.GetIdentity()
	oid := other.GetIdentity()

	if len(nid) != len(oid) {
		return false
	}

	for k, v := range nid {
		if ov, exists := oid[k]; !exists || v != ov {
			return false
		}
	}
	return true
}

// Relationship represents a graph relationship
type Relationship struct {
	// Type of relationship
	Type string

	// Properties of the relationship
	Properties map[string]any

	// Start and end nodes - these must have UniqueKey defined
	StartNode *Node
	EndNode   *Node
}

// Constraint is a uniqueness constraint on one property of a label.
type Constraint struct {
	Label    string
	Property string
}

func (c Constraint) Name() string {
	return fmt.Sprintf("unique_%s_%s", strings.ToLower(c.Label), c.Property)
}

// BatchResult contains results from a bulk operation
type BatchResult struct {
	// Number of nodes created
	NodesCreated int
	// Number of properties set on nodes
	NodesUpdated int
	// Number of relationships created
	RelationshipsCreated int
	// Number of properties set on relationships
	RelationshipsUpdated int
}

// Add folds other into b.
func (b *BatchResult) Add(other *BatchResult) {
	if other == nil {
		return
	}
	b.NodesCreated += other.NodesCreated
	b.NodesUpdated += other.NodesUpdated
	b.RelationshipsCreated += other.RelationshipsCreated
	b.RelationshipsUpdated += other.RelationshipsUpdated
}

func (b *BatchResult) String() string {
	return fmt.Sprintf("nodes created=%d updated=%d, relationships created=%d updated=%d",
		b.NodesCreated, b.NodesUpdated, b.RelationshipsCreated, b.RelationshipsUpdated)
}

// QueryResult represents the result of a graph query
type QueryResult struct {
	Records []Record
}

type Record map[string]any

// String formats a record as a string based on its content type.
// Paths are formatted as "(ocid1)-[TYPE]->(ocid2)<-[TYPE]-(ocid3) ...",
// records carrying an ocid print the ocid and name, anything else prints as a map.
func (r Record) String() string {
	if len(r) == 0 {
		return "Empty record"
	}

	switch {
	case r["path"] != nil:
		path, ok := r["path"].(dbtype.Path)
		if !ok {
			return "Invalid path format"
		}
		return formatPath(path)

	case r["ocid"] != nil:
		if name, ok := r["name"]; ok && name != nil {
			return fmt.Sprintf("%v (%v)", r["ocid"], name)
		}
		return fmt.Sprintf("%v", r["ocid"])

	default:
		return fmt.Sprintf("%v", map[string]any(r))
	}
}

func formatPath(path dbtype.Path) string {
	nodes := path.Nodes
	rels := path.Relationships

	if len(nodes) == 0 {
		return "Path with no nodes"
	}

	var formatted strings.Builder
	formatted.WriteString("(" + nodeRef(nodes[0]))

	for i, rel := range rels {
		directionFormat := ")-[%v]->("
		if i < len(nodes)-1 && rel.EndElementId == nodes[i].ElementId && rel.StartElementId == nodes[i+1].ElementId {
			directionFormat = ")<-[%v]-("
		}
		formatted.WriteString(fmt.Sprintf(directionFormat, rel.Type))
		if i+1 < len(nodes) {
			formatted.WriteString(nodeRef(nodes[i+1]))
		}
	}
	formatted.WriteString(")")

	return formatted.String()
}

func nodeRef(n dbtype.Node) string {
	for _, key := range []string{"ocid", "key", "name"} {
		if v, ok := n.Props[key]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return "unknown"
}

// GraphDatabase defines the core interface for graph operations
type GraphDatabase interface {
	// Bulk node operations - will update existing nodes if they match on UniqueKey
	CreateNodes(ctx context.Context, nodes []*Node) (*BatchResult, error)

	// Bulk relationship operations - will create/update nodes as needed based on UniqueKey
	CreateRelationships(ctx context.Context, rels []*Relationship) (*BatchResult, error)

	// Query operations
	Query(ctx context.Context, query string, params map[string]any) (*QueryResult, error)

	// Lifecycle
	Close() error

	// Verify connectivity to the database
	VerifyConnectivity(ctx context.Context) error
}

// SchemaManager is implemented by databases that can enforce uniqueness constraints.
type SchemaManager interface {
	EnsureConstraints(ctx context.Context, constraints []Constraint) error
}

// Config holds database configuration
type Config struct {
	URI      string            `json:"uri"`
	Username string            `json:"username"`
	Password string            `json:"password"`
	Options  map[string]string `json:"options"`
}
