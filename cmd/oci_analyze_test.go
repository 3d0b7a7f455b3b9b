package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/ocigraph/pkg/graph"
	"github.com/praetorian-inc/ocigraph/pkg/graph/queries"
)

func TestFindingsTable(t *testing.T) {
	q := queries.Query{QueryMetadata: queries.QueryMetadata{Name: "Public Buckets", Severity: "High"}}
	table := findingsTable(q, []graph.Record{
		{"ocid": "b1", "name": "Reports", "public_access_type": "ObjectRead"},
		{"ocid": "b2", "name": nil},
	})

	assert.Equal(t, "Public Buckets (High)", table.TableHeading)
	assert.Equal(t, []string{"name", "ocid", "public_access_type"}, table.Headers)
	assert.Equal(t, [][]string{{"Reports", "b1", "ObjectRead"}, {"", "b2", ""}}, table.Rows)
}

func TestAnalysisTenancy(t *testing.T) {
	scoped := queries.Query{Cypher: "MATCH (:OCITenancy {ocid: $tenancy_id})-[:RESOURCE]->(r) RETURN r"}
	global := queries.Query{Cypher: "MATCH (b:OCIBucket) RETURN b"}
	profile := func() (string, error) { return "ocid1.tenancy.oc1..profile", nil }
	noProfile := func() (string, error) { return "", errors.New("no config file") }

	tenancy, err := analysisTenancy([]queries.Query{global, scoped}, "ocid1.tenancy.oc1..flag", noProfile)
	require.NoError(t, err)
	assert.Equal(t, "ocid1.tenancy.oc1..flag", tenancy)

	tenancy, err = analysisTenancy([]queries.Query{global, scoped}, "", profile)
	require.NoError(t, err)
	assert.Equal(t, "ocid1.tenancy.oc1..profile", tenancy)

	tenancy, err = analysisTenancy([]queries.Query{global}, "", noProfile)
	require.NoError(t, err)
	assert.Empty(t, tenancy)

	_, err = analysisTenancy([]queries.Query{scoped}, "", noProfile)
	assert.ErrorContains(t, err, "--tenancy")

	_, err = analysisTenancy([]queries.Query{scoped}, "", func() (string, error) { return "", nil })
	assert.Error(t, err)
}

func TestEmbeddedAnalysisQueriesScopedByTenancy(t *testing.T) {
	found := queries.GetPlatformQueries("oci", "analysis", "tags")
	require.NotEmpty(t, found)
	assert.True(t, usesTenancy(found[0]))
}
