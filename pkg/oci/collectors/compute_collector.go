package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// ComputeAPI is the part of core.ComputeClient the collector uses.
type ComputeAPI interface {
	ListInstances(ctx context.Context, request core.ListInstancesRequest) (core.ListInstancesResponse, error)
	ListVolumeAttachments(ctx context.Context, request core.ListVolumeAttachmentsRequest) (core.ListVolumeAttachmentsResponse, error)
	ListVnicAttachments(ctx context.Context, request core.ListVnicAttachmentsRequest) (core.ListVnicAttachmentsResponse, error)
	ListComputeClusters(ctx context.Context, request core.ListComputeClustersRequest) (core.ListComputeClustersResponse, error)
}

type ComputeCollector struct {
	base
	client ComputeAPI
}

func NewComputeCollector(client ComputeAPI, opts ...Option) *ComputeCollector {
	return &ComputeCollector{base: newBase(opts), client: client}
}

func (c *ComputeCollector) ListInstances(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "compute.ListInstances", func(ctx context.Context, page *string) ([]core.Instance, *string, error) {
		resp, err := c.client.ListInstances(ctx, core.ListInstancesRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

// ListVolumeAttachments returns every attachment kind (iscsi, paravirtualized,
// emulated); the kind is kept in "attachment-type".
func (c *ComputeCollector) ListVolumeAttachments(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "compute.ListVolumeAttachments", func(ctx context.Context, page *string) ([]core.VolumeAttachment, *string, error) {
		resp, err := c.client.ListVolumeAttachments(ctx, core.ListVolumeAttachmentsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

func (c *ComputeCollector) ListVnicAttachments(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "compute.ListVnicAttachments", func(ctx context.Context, page *string) ([]core.VnicAttachment, *string, error) {
		resp, err := c.client.ListVnicAttachments(ctx, core.ListVnicAttachmentsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

func (c *ComputeCollector) ListComputeClusters(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "compute.ListComputeClusters", func(ctx context.Context, page *string) ([]core.ComputeClusterSummary, *string, error) {
		resp, err := c.client.ListComputeClusters(ctx, core.ListComputeClustersRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}
