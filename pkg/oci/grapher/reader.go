package ocigrapher

import (
	"context"
	"fmt"

	"github.com/praetorian-inc/ocigraph/pkg/graph"
	"github.com/praetorian-inc/ocigraph/pkg/graph/queries"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// GraphReader reads nodes the identity sync has already written for a tenancy.
type GraphReader struct {
	db graph.GraphDatabase
}

func NewGraphReader(db graph.GraphDatabase) *GraphReader {
	return &GraphReader{db: db}
}

func (r *GraphReader) run(ctx context.Context, queryID, tenancyID string) ([]graph.Record, error) {
	res, err := queries.RunPlatformQuery(ctx, r.db, queryID, map[string]any{"tenancy_id": tenancyID})
	if err != nil {
		return nil, fmt.Errorf("read %s for tenancy %s: %w", queryID, tenancyID, err)
	}
	return res.Records, nil
}

func (r *GraphReader) Compartments(ctx context.Context, tenancyID string) ([]ocitypes.Compartment, error) {
	records, err := r.run(ctx, queries.TenancyCompartments, tenancyID)
	if err != nil {
		return nil, err
	}
	out := make([]ocitypes.Compartment, 0, len(records))
	for _, rec := range records {
		c := ocitypes.Compartment{
			OCID:          str(rec["ocid"]),
			Name:          str(rec["name"]),
			CompartmentID: str(rec["compartmentid"]),
		}
		if c.OCID != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *GraphReader) Policies(ctx context.Context, tenancyID string) ([]ocitypes.Policy, error) {
	records, err := r.run(ctx, queries.TenancyPolicies, tenancyID)
	if err != nil {
		return nil, err
	}
	out := make([]ocitypes.Policy, 0, len(records))
	for _, rec := range records {
		p := ocitypes.Policy{
			OCID:          str(rec["ocid"]),
			Name:          str(rec["name"]),
			CompartmentID: str(rec["compartmentid"]),
			Statements:    strs(rec["statements"]),
		}
		if p.OCID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// Regions returns the subscribed regions known to the graph.
func (r *GraphReader) Regions(ctx context.Context, tenancyID string) ([]ocitypes.Region, error) {
	records, err := r.run(ctx, queries.TenancyRegions, tenancyID)
	if err != nil {
		return nil, err
	}
	out := make([]ocitypes.Region, 0, len(records))
	for _, rec := range records {
		reg := ocitypes.Region{Name: str(rec["name"]), Key: str(rec["key"])}
		if reg.Name != "" && reg.Key != "" {
			out = append(out, reg)
		}
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	}
	return nil
}
