package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/apigateway"
	"github.com/oracle/oci-go-sdk/v65/common"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// GatewayAPI is the part of apigateway.GatewayClient the collector uses.
type GatewayAPI interface {
	ListGateways(ctx context.Context, request apigateway.ListGatewaysRequest) (apigateway.ListGatewaysResponse, error)
}

type GatewayCollector struct {
	base
	client GatewayAPI
}

func NewGatewayCollector(client GatewayAPI, opts ...Option) *GatewayCollector {
	return &GatewayCollector{base: newBase(opts), client: client}
}

func (c *GatewayCollector) ListGateways(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "apigateway.ListGateways", func(ctx context.Context, page *string) ([]apigateway.GatewaySummary, *string, error) {
		resp, err := c.client.ListGateways(ctx, apigateway.ListGatewaysRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}
