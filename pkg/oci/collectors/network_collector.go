package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// NetworkAPI is the part of core.VirtualNetworkClient the collector uses.
type NetworkAPI interface {
	ListVcns(ctx context.Context, request core.ListVcnsRequest) (core.ListVcnsResponse, error)
	ListSubnets(ctx context.Context, request core.ListSubnetsRequest) (core.ListSubnetsResponse, error)
	ListInternetGateways(ctx context.Context, request core.ListInternetGatewaysRequest) (core.ListInternetGatewaysResponse, error)
	ListSecurityLists(ctx context.Context, request core.ListSecurityListsRequest) (core.ListSecurityListsResponse, error)
	ListNetworkSecurityGroups(ctx context.Context, request core.ListNetworkSecurityGroupsRequest) (core.ListNetworkSecurityGroupsResponse, error)
}

type NetworkCollector struct {
	base
	client NetworkAPI
}

func NewNetworkCollector(client NetworkAPI, opts ...Option) *NetworkCollector {
	return &NetworkCollector{base: newBase(opts), client: client}
}

func (c *NetworkCollector) ListVcns(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "network.ListVcns", func(ctx context.Context, page *string) ([]core.Vcn, *string, error) {
		resp, err := c.client.ListVcns(ctx, core.ListVcnsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

func (c *NetworkCollector) ListSubnets(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "network.ListSubnets", func(ctx context.Context, page *string) ([]core.Subnet, *string, error) {
		resp, err := c.client.ListSubnets(ctx, core.ListSubnetsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

func (c *NetworkCollector) ListInternetGateways(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "network.ListInternetGateways", func(ctx context.Context, page *string) ([]core.InternetGateway, *string, error) {
		resp, err := c.client.ListInternetGateways(ctx, core.ListInternetGatewaysRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

func (c *NetworkCollector) ListSecurityLists(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "network.ListSecurityLists", func(ctx context.Context, page *string) ([]core.SecurityList, *string, error) {
		resp, err := c.client.ListSecurityLists(ctx, core.ListSecurityListsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}

func (c *NetworkCollector) ListNetworkSecurityGroups(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "network.ListNetworkSecurityGroups", func(ctx context.Context, page *string) ([]core.NetworkSecurityGroup, *string, error) {
		resp, err := c.client.ListNetworkSecurityGroups(ctx, core.ListNetworkSecurityGroupsRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}
