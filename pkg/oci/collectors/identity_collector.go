package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/identity"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// IdentityAPI is the part of identity.IdentityClient the collector uses.
type IdentityAPI interface {
	ListRegionSubscriptions(ctx context.Context, request identity.ListRegionSubscriptionsRequest) (identity.ListRegionSubscriptionsResponse, error)
}

// IdentityCollector reads region subscriptions when the graph has none yet.
type IdentityCollector struct {
	base
	client IdentityAPI
}

func NewIdentityCollector(client IdentityAPI, opts ...Option) *IdentityCollector {
	return &IdentityCollector{base: newBase(opts), client: client}
}

func (c *IdentityCollector) ListRegionSubscriptions(ctx context.Context, tenancyID string) ([]ocitypes.Region, error) {
	resp, err := call(ctx, c.base, "identity.ListRegionSubscriptions", func(ctx context.Context) (identity.ListRegionSubscriptionsResponse, error) {
		return c.client.ListRegionSubscriptions(ctx, identity.ListRegionSubscriptionsRequest{TenancyId: common.String(tenancyID)})
	})
	if err != nil {
		return nil, err
	}

	regions := make([]ocitypes.Region, 0, len(resp.Items))
	for _, sub := range resp.Items {
		regions = append(regions, ocitypes.Region{Name: deref(sub.RegionName), Key: deref(sub.RegionKey)})
	}
	return regions, nil
}
