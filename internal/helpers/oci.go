package helpers

import (
	"fmt"
	"log/slog"

	"github.com/oracle/oci-go-sdk/v65/apigateway"
	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/common/auth"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/database"
	"github.com/oracle/oci-go-sdk/v65/identity"
	"github.com/oracle/oci-go-sdk/v65/loadbalancer"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	ocicollectors "github.com/praetorian-inc/ocigraph/pkg/oci/collectors"
)

const (
	OCIAuthAPIKey            = "api-key"
	OCIAuthInstancePrincipal = "instance-principal"
)

// OCIAuthOptions selects how the SDK authenticates.
type OCIAuthOptions struct {
	Method     string // api-key (default) or instance-principal
	ConfigFile string // empty means ~/.oci/config
	Profile    string // empty means DEFAULT
}

// GetOCIConfigProvider returns the SDK configuration provider for opts.
func GetOCIConfigProvider(opts OCIAuthOptions) (common.ConfigurationProvider, error) {
	switch opts.Method {
	case "", OCIAuthAPIKey:
		if opts.ConfigFile == "" && opts.Profile == "" {
			return common.DefaultConfigProvider(), nil
		}
		profile := opts.Profile
		if profile == "" {
			profile = "DEFAULT"
		}
		slog.Debug("using OCI config profile", "file", opts.ConfigFile, "profile", profile)
		return common.CustomProfileConfigProvider(opts.ConfigFile, profile), nil
	case OCIAuthInstancePrincipal:
		p, err := auth.InstancePrincipalConfigurationProvider()
		if err != nil {
			return nil, fmt.Errorf("instance principal auth: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown OCI auth method %q (want %s or %s)", opts.Method, OCIAuthAPIKey, OCIAuthInstancePrincipal)
}

// GetOCITenancy returns the tenancy OCID the provider authenticates against.
func GetOCITenancy(provider common.ConfigurationProvider) (string, error) {
	tenancy, err := provider.TenancyOCID()
	if err != nil {
		return "", fmt.Errorf("read tenancy from OCI config: %w", err)
	}
	return tenancy, nil
}

// OCIClientFactory builds region-bound collector sets from one provider.
type OCIClientFactory struct {
	provider common.ConfigurationProvider
	opts     []ocicollectors.Option
}

func NewOCIClientFactory(provider common.ConfigurationProvider, opts ...ocicollectors.Option) *OCIClientFactory {
	return &OCIClientFactory{provider: provider, opts: opts}
}

// Identity returns a collector for the provider's home region.
func (f *OCIClientFactory) Identity() (*ocicollectors.IdentityCollector, error) {
	client, err := identity.NewIdentityClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create identity client: %w", err)
	}
	return ocicollectors.NewIdentityCollector(client, f.opts...), nil
}

// ForRegion returns every service collector bound to region.
func (f *OCIClientFactory) ForRegion(region string) (*ocicollectors.Set, error) {
	compute, err := core.NewComputeClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create compute client: %w", err)
	}
	compute.SetRegion(region)

	network, err := core.NewVirtualNetworkClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create virtual network client: %w", err)
	}
	network.SetRegion(region)

	block, err := core.NewBlockstorageClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create blockstorage client: %w", err)
	}
	block.SetRegion(region)

	storage, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	storage.SetRegion(region)

	db, err := database.NewDatabaseClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create database client: %w", err)
	}
	db.SetRegion(region)

	gateway, err := apigateway.NewGatewayClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create api gateway client: %w", err)
	}
	gateway.SetRegion(region)

	lb, err := loadbalancer.NewLoadBalancerClientWithConfigurationProvider(f.provider)
	if err != nil {
		return nil, fmt.Errorf("create load balancer client: %w", err)
	}
	lb.SetRegion(region)

	return &ocicollectors.Set{
		Region:        region,
		Compute:       ocicollectors.NewComputeCollector(compute, f.opts...),
		Network:       ocicollectors.NewNetworkCollector(network, f.opts...),
		Block:         ocicollectors.NewBlockCollector(block, f.opts...),
		ObjectStorage: ocicollectors.NewObjectStorageCollector(storage, f.opts...),
		Database:      ocicollectors.NewDatabaseCollector(db, f.opts...),
		Gateway:       ocicollectors.NewGatewayCollector(gateway, f.opts...),
		LoadBalancer:  ocicollectors.NewLoadBalancerCollector(lb, f.opts...),
	}, nil
}
