package queries

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/praetorian-inc/ocigraph/pkg/graph"
	"gopkg.in/yaml.v3"
)

//go:embed all:read/oci
var ociReadFS embed.FS

//go:embed all:analysis/oci
var ociAnalysisFS embed.FS

// LoadedQueries will store all parsed queries, keyed by their unique ID.
var LoadedQueries map[string]Query

func init() {
	LoadedQueries = make(map[string]Query)
	var loadErrors []string

	sources := []struct {
		fs        embed.FS
		queryType string
		base      string
	}{
		{ociReadFS, "read", "read/oci"},
		{ociAnalysisFS, "analysis", "analysis/oci"},
	}

	for _, src := range sources {
		loaded, err := loadQueriesFromFS(src.fs, "oci", src.queryType, src.base)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("error loading OCI %s queries: %v", src.queryType, err))
		}
		for id, q := range loaded {
			LoadedQueries[id] = q
		}
	}

	if len(loadErrors) > 0 {
		slog.Error("Failed to load some queries", "errors", strings.Join(loadErrors, "; "))
	}
}

func loadQueriesFromFS(targetFS fs.FS, platform, queryType, embedBasePath string) (map[string]Query, error) {
	queries := make(map[string]Query)
	err := fs.WalkDir(targetFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".yaml") {
			return nil
		}

		relPath := strings.TrimPrefix(path, embedBasePath+"/")
		dir, fileNameWithExt := filepath.Split(relPath)
		category := strings.Trim(filepath.ToSlash(dir), "/")
		queryName := strings.TrimSuffix(fileNameWithExt, filepath.Ext(fileNameWithExt))

		queryID := fmt.Sprintf("%s/%s", platform, queryType)
		if category != "" {
			queryID = fmt.Sprintf("%s/%s", queryID, category)
		}
		queryID = fmt.Sprintf("%s/%s", queryID, queryName)

		fileContentBytes, err := fs.ReadFile(targetFS, path)
		if err != nil {
			slog.Error("Failed to read YAML query file", "path", path, "error", err)
			return nil
		}

		var loadedQuery Query
		if unmarshalErr := yaml.Unmarshal(fileContentBytes, &loadedQuery); unmarshalErr != nil {
			slog.Warn("Failed to parse YAML query file, skipping.", "path", path, "error", unmarshalErr)
			return nil
		}

		loadedQuery.ID = queryID
		loadedQuery.Platform = platform
		loadedQuery.Type = queryType
		loadedQuery.Category = category
		loadedQuery.FileName = fileNameWithExt

		if loadedQuery.Name == "" {
			loadedQuery.Name = titleCase(queryName)
		}

		if strings.TrimSpace(loadedQuery.Cypher) == "" {
			slog.Warn("Query file has no cypher content, skipping.", "path", path, "id", queryID)
			return nil
		}

		queries[queryID] = loadedQuery
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", embedBasePath, err)
	}
	return queries, nil
}

func titleCase(s string) string {
	parts := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	if len(parts) == 0 {
		return "Untitled Query"
	}
	return strings.Join(parts, " ")
}

// Get returns the query with the given ID.
func Get(id string) (Query, error) {
	q, ok := LoadedQueries[id]
	if !ok {
		return Query{}, fmt.Errorf("query with ID '%s' not found", id)
	}
	return q, nil
}

// GetPlatformQueries returns the queries matching the platform and type,
// optionally restricted to categories, sorted by Order then ID.
func GetPlatformQueries(platform, qType string, categories ...string) []Query {
	var result []Query
	for _, query := range LoadedQueries {
		if query.Platform != platform || (qType != "" && query.Type != qType) {
			continue
		}
		if len(categories) == 0 {
			result = append(result, query)
			continue
		}
		for _, cat := range categories {
			if query.Category == cat {
				result = append(result, query)
				break
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})

	if len(result) == 0 {
		slog.Debug("No queries found for", "platform", platform, "type", qType, "categories", categories)
	}
	return result
}

// RunPlatformQuery runs a catalogued query, e.g. "oci/read/tenancy/policies".
func RunPlatformQuery(ctx context.Context, db graph.GraphDatabase, queryID string, params map[string]any) (*graph.QueryResult, error) {
	query, err := Get(queryID)
	if err != nil {
		return nil, err
	}

	slog.Debug("Running platform query", "id", query.ID, "name", query.Name)

	if params == nil {
		params = make(map[string]any)
	}

	res, err := db.Query(ctx, query.Cypher, params)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", query.ID, err)
	}
	return res, nil
}
