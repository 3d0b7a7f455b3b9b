package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/loadbalancer"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// LoadBalancerAPI is the part of loadbalancer.LoadBalancerClient the collector uses.
type LoadBalancerAPI interface {
	ListLoadBalancers(ctx context.Context, request loadbalancer.ListLoadBalancersRequest) (loadbalancer.ListLoadBalancersResponse, error)
}

type LoadBalancerCollector struct {
	base
	client LoadBalancerAPI
}

func NewLoadBalancerCollector(client LoadBalancerAPI, opts ...Option) *LoadBalancerCollector {
	return &LoadBalancerCollector{base: newBase(opts), client: client}
}

func (c *LoadBalancerCollector) ListLoadBalancers(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	items, err := listAll(ctx, c.base, "loadbalancer.ListLoadBalancers", func(ctx context.Context, page *string) ([]loadbalancer.LoadBalancer, *string, error) {
		resp, err := c.client.ListLoadBalancers(ctx, loadbalancer.ListLoadBalancersRequest{CompartmentId: common.String(compartmentID), Page: page})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}
	return records(c.base, items)
}
