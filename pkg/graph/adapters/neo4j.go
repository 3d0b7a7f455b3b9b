package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jConfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/praetorian-inc/ocigraph/pkg/graph"
)

const (
	// DefaultBatchSize is the default number of nodes/relationships to process in a single transaction
	DefaultBatchSize = 1000
)

type Neo4jDatabase struct {
	driver    neo4j.DriverWithContext
	batchSize int
}

func NewNeo4jDatabase(config *graph.Config) (*Neo4jDatabase, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI,
		neo4j.BasicAuth(config.Username, config.Password, ""),
		func(c *neo4jConfig.Config) {
			if v, ok := config.Options["maxConnectionPoolSize"]; ok {
				if maxPoolSize, err := strconv.Atoi(v); err == nil {
					c.MaxConnectionPoolSize = maxPoolSize
				}
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	return &Neo4jDatabase{driver: driver, batchSize: BatchSize(config)}, nil
}

// BatchSize reads the "batchSize" option, falling back to DefaultBatchSize.
func BatchSize(config *graph.Config) int {
	if size, ok := config.Options["batchSize"]; ok {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			return n
		}
	}
	return DefaultBatchSize
}

func (db *Neo4jDatabase) VerifyConnectivity(ctx context.Context) error {
	err := db.driver.VerifyConnectivity(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify connectivity: %w", err)
	}

	return nil
}

// EnsureConstraints creates one uniqueness constraint per label/property pair.
func (db *Neo4jDatabase) EnsureConstraints(ctx context.Context, constraints []graph.Constraint) error {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, c := range constraints {
		query := buildConstraintQuery(c)
		slog.Debug("ensuring constraint", "name", c.Name())
		res, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("failed to create constraint %s: %w", c.Name(), err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create constraint %s: %w", c.Name(), err)
		}
	}
	return nil
}

// CreateNodes merges nodes grouped by label set and unique key, one transaction
// per batch. The first failing batch aborts the call; earlier batches stay committed.
func (db *Neo4jDatabase) CreateNodes(ctx context.Context, nodes []*graph.Node) (*graph.BatchResult, error) {
	if len(nodes) == 0 {
		return &graph.BatchResult{}, nil
	}

	for _, node := range nodes {
		if err := validateNode(node); err != nil {
			return nil, err
		}
	}

	groups := make(map[string][]*graph.Node)
	for _, node := range nodes {
		key := getNodeGroupKey(node.Labels, node.UniqueKey)
		groups[key] = append(groups[key], node)
	}

	result := &graph.BatchResult{}

	for _, groupKey := range sortedKeys(groups) {
		groupedNodes := groups[groupKey]
		labels := groupedNodes[0].Labels
		uniqueKeys := groupedNodes[0].UniqueKey

		for i := 0; i < len(groupedNodes); i += db.batchSize {
			end := min(i+db.batchSize, len(groupedNodes))
			batch := groupedNodes[i:end]

			session := db.driver.NewSession(ctx, neo4j.SessionConfig{})
			batchResult, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				return db.processBatch(ctx, tx, batch, labels, uniqueKeys)
			})
			session.Close(ctx)

			if err != nil {
				return result, fmt.Errorf("node batch %s [%d:%d]: %w", groupKey, i, end, err)
			}

			if br, ok := batchResult.(*graph.BatchResult); ok {
				result.Add(br)
			}
		}
	}

	return result, nil
}

func (db *Neo4jDatabase) CreateRelationships(ctx context.Context, rels []*graph.Relationship) (*graph.BatchResult, error) {
	if len(rels) == 0 {
		return &graph.BatchResult{}, nil
	}

	result := &graph.BatchResult{}

	groups := make(map[string][]*graph.Relationship)
	for _, rel := range rels {
		if rel.StartNode == nil || rel.EndNode == nil {
			return nil, fmt.Errorf("relationship %s must have start and end nodes", rel.Type)
		}
		if err := validateNode(rel.StartNode); err != nil {
			return nil, fmt.Errorf("relationship %s start: %w", rel.Type, err)
		}
		if err := validateNode(rel.EndNode); err != nil {
			return nil, fmt.Errorf("relationship %s end: %w", rel.Type, err)
		}
		key := fmt.Sprintf("%s||%s||%s",
			rel.Type,
			getNodeGroupKey(rel.StartNode.Labels, rel.StartNode.UniqueKey),
			getNodeGroupKey(rel.EndNode.Labels, rel.EndNode.UniqueKey))
		groups[key] = append(groups[key], rel)
	}

	for _, groupKey := range sortedKeys(groups) {
		groupedRels := groups[groupKey]
		exemplar := groupedRels[0]
		query := buildRelationshipMergeQuery(exemplar.Type, exemplar.StartNode, exemplar.EndNode)

		for i := 0; i < len(groupedRels); i += db.batchSize {
			end := min(i+db.batchSize, len(groupedRels))
			batch := groupedRels[i:end]

			session := db.driver.NewSession(ctx, neo4j.SessionConfig{})
			batchResult, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				slog.Debug("query", "cypher", query, "batch", len(batch))

				res, err := tx.Run(ctx, query, map[string]any{
					"rels": relationshipListToParams(batch),
				})
				if err != nil {
					return nil, fmt.Errorf("failed to merge relationships: %w", err)
				}

				summary, err := res.Consume(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to get query stats: %w", err)
				}

				return &graph.BatchResult{
					NodesCreated:         summary.Counters().NodesCreated(),
					RelationshipsCreated: summary.Counters().RelationshipsCreated(),
					RelationshipsUpdated: summary.Counters().PropertiesSet(),
				}, nil
			})
			session.Close(ctx)

			if err != nil {
				return result, fmt.Errorf("relationship batch %s [%d:%d]: %w", groupKey, i, end, err)
			}

			if br, ok := batchResult.(*graph.BatchResult); ok {
				result.Add(br)
			}
		}
	}

	return result, nil
}

func (db *Neo4jDatabase) Query(ctx context.Context, query string, params map[string]any) (*graph.QueryResult, error) {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	records := make([]graph.Record, 0)
	for result.Next(ctx) {
		record := result.Record()
		recordMap := make(graph.Record)
		for i, key := range record.Keys {
			recordMap[key] = record.Values[i]
		}
		records = append(records, recordMap)
	}

	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("error during query iteration: %w", err)
	}

	return &graph.QueryResult{
		Records: records,
	}, nil
}

func (db *Neo4jDatabase) Close() error {
	if db.driver != nil {
		return db.driver.Close(context.Background())
	}
	return nil
}

func validateNode(node *graph.Node) error {
	if len(node.UniqueKey) == 0 {
		return fmt.Errorf("node must have at least one unique key property")
	}
	if len(node.Labels) == 0 {
		return fmt.Errorf("node must have at least one label")
	}
	for _, key := range node.UniqueKey {
		if v, ok := node.Properties[key]; !ok || v == nil || v == "" {
			return fmt.Errorf("node %s is missing unique key property %q", strings.Join(node.Labels, ":"), key)
		}
	}
	return nil
}

// Convert to using a string key that encodes the same information
func getNodeGroupKey(labels []string, uniqueKey []string) string {
	return fmt.Sprintf("%s||%s",
		strings.Join(labels, ":"),
		strings.Join(uniqueKey, ":"))
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteLabels(labels []string) string {
	quoted := make([]string, len(labels))
	for i, label := range labels {
		quoted[i] = "`" + label + "`"
	}
	return strings.Join(quoted, ":")
}

func buildConstraintQuery(c graph.Constraint) string {
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:`%s`) REQUIRE n.`%s` IS UNIQUE",
		c.Name(), c.Label, c.Property)
}

func buildBatchMergeQuery(labels []string, uniqueKey []string) string {
	return fmt.Sprintf(`
        UNWIND $nodes AS node
        MERGE (n:%s {%s})
        ON CREATE SET n.firstseen = timestamp(), n += node.onCreate
        SET n += node.properties
    `, quoteLabels(labels), buildPropsString(uniqueKey, "node"))
}

func nodeListToParams(nodes []*graph.Node) []map[string]any {
	params := make([]map[string]any, len(nodes))

	for i, node := range nodes {
		onCreate := node.OnCreate
		if onCreate == nil {
			onCreate = map[string]any{}
		}
		nodeMap := map[string]any{
			"properties": node.Properties,
			"onCreate":   onCreate,
		}
		// unique keys at top level for MERGE
		for _, key := range node.UniqueKey {
			nodeMap[key] = node.Properties[key]
		}
		params[i] = nodeMap
	}

	return params
}

func relationshipListToParams(rels []*graph.Relationship) []map[string]any {
	params := make([]map[string]any, len(rels))
	for i, rel := range rels {
		props := rel.Properties
		if props == nil {
			props = map[string]any{}
		}
		params[i] = map[string]any{
			"startProperties": rel.StartNode.Properties,
			"endProperties":   rel.EndNode.Properties,
			"properties":      props,
		}
	}
	return params
}

// processBatch handles a single batch of nodes with the same structure
func (db *Neo4jDatabase) processBatch(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	nodes []*graph.Node,
	labels []string,
	uniqueKey []string,
) (*graph.BatchResult, error) {
	result := &graph.BatchResult{}

	query := buildBatchMergeQuery(labels, uniqueKey)
	slog.Debug("query", "cypher", query, "batch", len(nodes))

	res, err := tx.Run(ctx, query, map[string]any{
		"nodes": nodeListToParams(nodes),
	})
	if err != nil {
		return result, fmt.Errorf("failed to merge nodes: %w", err)
	}

	summary, err := res.Consume(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to get query stats: %w", err)
	}

	result.NodesCreated = summary.Counters().NodesCreated()
	result.NodesUpdated = summary.Counters().PropertiesSet()

	return result, nil
}

// buildRelationshipMergeQuery merges both endpoints by label and unique key
// before merging the edge, so an edge never waits on its endpoints' own sync.
func buildRelationshipMergeQuery(relType string, startNode, endNode *graph.Node) string {
	return fmt.Sprintf(`
        UNWIND $rels AS rel
        MERGE (start:%s {%s})
        ON CREATE SET start.firstseen = timestamp()
        SET start += rel.startProperties

        MERGE (end:%s {%s})
        ON CREATE SET end.firstseen = timestamp()
        SET end += rel.endProperties

        MERGE (start)-[r:`+"`%s`"+`]->(end)
        ON CREATE SET r.firstseen = timestamp()
        SET r += rel.properties
        RETURN count(r) AS total
    `,
		quoteLabels(startNode.Labels),
		buildPropsString(startNode.UniqueKey, "rel.startProperties"),
		quoteLabels(endNode.Labels),
		buildPropsString(endNode.UniqueKey, "rel.endProperties"),
		relType)
}

func buildPropsString(uniqueKey []string, prefix string) string {
	parts := make([]string, len(uniqueKey))
	for i, key := range uniqueKey {
		parts[i] = fmt.Sprintf("%s: %s.%s", key, prefix, key)
	}
	return strings.Join(parts, ", ")
}
