package ingest

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/praetorian-inc/ocigraph/internal/jq"
	ocicollectors "github.com/praetorian-inc/ocigraph/pkg/oci/collectors"
	ocigrapher "github.com/praetorian-inc/ocigraph/pkg/oci/grapher"
	"github.com/praetorian-inc/ocigraph/pkg/oci/xref"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// Env is what a stage sees while it runs.
type Env struct {
	TenancyID string
	// Region is empty for tenancy stages.
	Region     string
	UpdateTag  int64
	Scopes     []string
	Regions    ocitypes.RegionTable
	Collectors *ocicollectors.Set
	Index      *Index
	Loader     *ocigrapher.Loader
	Reader     *ocigrapher.GraphReader
	Resolver   *xref.Resolver
	Filter     *jq.Filter
	Metrics    *Metrics
}

type lister func(ctx context.Context, compartmentID string) ([]ocitypes.Record, error)

// indexer records what later link stages need from a batch.
type indexer func(env *Env, records []ocitypes.Record)

func resourceStage(name string, kind ocigrapher.Kind, list func(*ocicollectors.Set) lister, index indexer) Stage {
	return Stage{
		Name:     name,
		Scope:    ScopeRegional,
		Resource: kind.Name,
		Run: func(ctx context.Context, env *Env) (int, error) {
			total := 0
			for _, compartment := range env.Scopes {
				records, err := list(env.Collectors)(ctx, compartment)
				if err != nil {
					return total, fmt.Errorf("failed to list %s in %s: %w", kind.Name, compartment, err)
				}
				records, err = filter(env.Filter, records)
				if err != nil {
					return total, err
				}
				if index != nil {
					index(env, records)
				}
				if _, err := env.Loader.Load(ctx, kind, records, env.TenancyID, env.UpdateTag); err != nil {
					return total, fmt.Errorf("failed to load %s from %s: %w", kind.Name, compartment, err)
				}
				env.Metrics.RecordsSynced.WithLabelValues(kind.Name, env.Region).Add(float64(len(records)))
				total += len(records)
			}
			return total, nil
		},
	}
}

func filter(f *jq.Filter, records []ocitypes.Record) ([]ocitypes.Record, error) {
	if f == nil {
		return records, nil
	}
	kept := make([]ocitypes.Record, 0, len(records))
	for _, r := range records {
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, r)
		}
	}
	if dropped := len(records) - len(kept); dropped > 0 {
		slog.Debug("filtered records", "filter", f.String(), "dropped", dropped)
	}
	return kept, nil
}

// pairs indexes (record[from], record[to]) under set.
func pairs(set, from, to string) indexer {
	return func(env *Env, records []ocitypes.Record) {
		out := make([]ocitypes.Pair, 0, len(records))
		for _, r := range records {
			out = append(out, ocitypes.Pair{From: r.String(from), To: r.String(to)})
		}
		env.Index.AddPairs(env.Region, set, out...)
	}
}

func indexBuckets(env *Env, records []ocitypes.Record) {
	for _, r := range records {
		env.Index.AddBuckets(ocitypes.Named{OCID: r.String(ocitypes.KeyID), Name: r.String(ocitypes.KeyName)})
	}
}

func linkStage(name string, scope Scope, spec ocigrapher.LinkSpec, links func(ctx context.Context, env *Env) (iter.Seq[ocitypes.Link], error), requires ...string) Stage {
	return Stage{
		Name:     name,
		Scope:    scope,
		Requires: requires,
		Run: func(ctx context.Context, env *Env) (int, error) {
			seq, err := links(ctx, env)
			if err != nil {
				return 0, err
			}
			n, err := env.Loader.LoadLinks(ctx, spec, seq, env.UpdateTag)
			if err != nil {
				return n, err
			}
			env.Metrics.LinksWritten.WithLabelValues(spec.Type).Add(float64(n))
			return n, nil
		},
	}
}

func pairLinks(set string, reversed bool) func(context.Context, *Env) (iter.Seq[ocitypes.Link], error) {
	return func(_ context.Context, env *Env) (iter.Seq[ocitypes.Link], error) {
		p := env.Index.Pairs(env.Region, set)
		if reversed {
			return xref.ReversedPairLinks(p), nil
		}
		return xref.PairLinks(p), nil
	}
}

func policyBucketLinks(ctx context.Context, env *Env) (iter.Seq[ocitypes.Link], error) {
	policies, err := env.Reader.Policies(ctx, env.TenancyID)
	if err != nil {
		return nil, err
	}
	return env.Resolver.PolicyBucketLinks(policies, env.Index.Buckets()), nil
}

func bucketRegionLinks(_ context.Context, env *Env) (iter.Seq[ocitypes.Link], error) {
	return env.Resolver.RegionLinks(env.Index.BucketIDs(), env.Regions), nil
}

const (
	StageInstances                = "compute/instances"
	StageVolumeAttachments        = "compute/volume-attachments"
	StageVnicAttachments          = "compute/vnic-attachments"
	StageComputeClusters          = "compute/clusters"
	StageVCNs                     = "network/vcns"
	StageSubnets                  = "network/subnets"
	StageInternetGateways         = "network/internet-gateways"
	StageSecurityLists            = "network/security-lists"
	StageNetworkSecurityGroups    = "network/network-security-groups"
	StageVolumeGroups             = "block/volume-groups"
	StageBuckets                  = "objectstorage/buckets"
	StageAutonomousDatabases      = "database/autonomous-databases"
	StageGateways                 = "apigateway/gateways"
	StageLoadBalancers            = "loadbalancer/load-balancers"
	StageSubnetVCN                = "network/subnet-vcn"
	StageSecurityGroupVCN         = "network/nsg-vcn"
	StageInstanceSubnet           = "compute/instance-subnet"
	StageVolumeAttachmentInstance = "compute/volume-attachment-instance"
	StagePolicyBucket             = "objectstorage/policy-bucket"
	StageBucketRegion             = "objectstorage/bucket-region"
)

// DefaultStages is every stage the sync knows, in declaration order.
func DefaultStages() []Stage {
	return []Stage{
		resourceStage(StageInstances, ocigrapher.Instance,
			func(s *ocicollectors.Set) lister { return s.Compute.ListInstances }, nil),
		resourceStage(StageVolumeAttachments, ocigrapher.VolumeAttachment,
			func(s *ocicollectors.Set) lister { return s.Compute.ListVolumeAttachments },
			pairs(PairVolumeAttachmentInstance, ocitypes.KeyID, "instance-id")),
		resourceStage(StageVnicAttachments, ocigrapher.VnicAttachment,
			func(s *ocicollectors.Set) lister { return s.Compute.ListVnicAttachments },
			pairs(PairInstanceSubnet, "instance-id", "subnet-id")),
		resourceStage(StageComputeClusters, ocigrapher.ComputeCluster,
			func(s *ocicollectors.Set) lister { return s.Compute.ListComputeClusters }, nil),
		resourceStage(StageVCNs, ocigrapher.VCN,
			func(s *ocicollectors.Set) lister { return s.Network.ListVcns }, nil),
		resourceStage(StageSubnets, ocigrapher.Subnet,
			func(s *ocicollectors.Set) lister { return s.Network.ListSubnets },
			pairs(PairSubnetVCN, ocitypes.KeyID, "vcn-id")),
		resourceStage(StageInternetGateways, ocigrapher.InternetGateway,
			func(s *ocicollectors.Set) lister { return s.Network.ListInternetGateways }, nil),
		resourceStage(StageSecurityLists, ocigrapher.SecurityList,
			func(s *ocicollectors.Set) lister { return s.Network.ListSecurityLists }, nil),
		resourceStage(StageNetworkSecurityGroups, ocigrapher.NetworkSecurityGroup,
			func(s *ocicollectors.Set) lister { return s.Network.ListNetworkSecurityGroups },
			pairs(PairSecurityGroupVCN, ocitypes.KeyID, "vcn-id")),
		resourceStage(StageVolumeGroups, ocigrapher.VolumeGroup,
			func(s *ocicollectors.Set) lister { return s.Block.ListVolumeGroups }, nil),
		resourceStage(StageBuckets, ocigrapher.Bucket,
			func(s *ocicollectors.Set) lister { return s.ObjectStorage.ListBuckets }, indexBuckets),
		resourceStage(StageAutonomousDatabases, ocigrapher.AutonomousDatabase,
			func(s *ocicollectors.Set) lister { return s.Database.ListAutonomousDatabases }, nil),
		resourceStage(StageGateways, ocigrapher.Gateway,
			func(s *ocicollectors.Set) lister { return s.Gateway.ListGateways }, nil),
		resourceStage(StageLoadBalancers, ocigrapher.LoadBalancer,
			func(s *ocicollectors.Set) lister { return s.LoadBalancer.ListLoadBalancers }, nil),

		linkStage(StageSubnetVCN, ScopeRegional, ocigrapher.SubnetVCN,
			pairLinks(PairSubnetVCN, false), StageSubnets, StageVCNs),
		// groups carry the vcn id; the edge points from the vcn
		linkStage(StageSecurityGroupVCN, ScopeRegional, ocigrapher.VCNSecurityGroup,
			pairLinks(PairSecurityGroupVCN, true), StageNetworkSecurityGroups, StageVCNs),
		linkStage(StageInstanceSubnet, ScopeRegional, ocigrapher.InstanceSubnet,
			pairLinks(PairInstanceSubnet, false), StageVnicAttachments, StageInstances, StageSubnets),
		linkStage(StageVolumeAttachmentInstance, ScopeRegional, ocigrapher.VolumeAttachmentInstance,
			pairLinks(PairVolumeAttachmentInstance, false), StageVolumeAttachments, StageInstances),

		linkStage(StagePolicyBucket, ScopeTenancy, ocigrapher.PolicyBucket, policyBucketLinks, StageBuckets),
		linkStage(StageBucketRegion, ScopeTenancy, ocigrapher.BucketRegion, bucketRegionLinks, StageBuckets),
	}
}

// DefaultPipeline orders DefaultStages.
func DefaultPipeline() *Pipeline {
	p, err := NewPipeline(DefaultStages()...)
	if err != nil {
		panic(err)
	}
	return p
}
