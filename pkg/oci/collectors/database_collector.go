package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/database"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// DatabaseAPI is the part of database.DatabaseClient the collector uses.
type DatabaseAPI interface {
	ListAutonomousDatabases(ctx context.Context, request database.ListAutonomousDatabasesRequest) (database.ListAutonomousDatabasesResponse, error)
}

type DatabaseCollector struct {
	base
	client DatabaseAPI
}

func NewDatabaseCollector(client DatabaseAPI, opts ...Option) *DatabaseCollector {
	return &DatabaseCollector{base: newBase(opts), client: client}
}

func (c *DatabaseCollector) ListAutonomousDatabases(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "database.ListAutonomousDatabases", func(ctx context.Context, page *string) ([]database.AutonomousDatabaseSummary, *string, error) {
		resp, err := c.client.ListAutonomousDatabases(ctx, database.ListAutonomousDatabasesRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}
