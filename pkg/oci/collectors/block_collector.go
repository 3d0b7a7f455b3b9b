package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// BlockstorageAPI is the part of core.BlockstorageClient the collector uses.
type BlockstorageAPI interface {
	ListVolumeGroups(ctx context.Context, request core.ListVolumeGroupsRequest) (core.ListVolumeGroupsResponse, error)
}

type BlockCollector struct {
	base
	client BlockstorageAPI
}

func NewBlockCollector(client BlockstorageAPI, opts ...Option) *BlockCollector {
	return &BlockCollector{base: newBase(opts), client: client}
}

func (c *BlockCollector) ListVolumeGroups(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "block.ListVolumeGroups", func(ctx context.Context, page *string) ([]core.VolumeGroup, *string, error) {
		resp, err := c.client.ListVolumeGroups(ctx, core.ListVolumeGroupsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}
