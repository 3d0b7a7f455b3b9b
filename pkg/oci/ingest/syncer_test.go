package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/ocigraph/pkg/graph"
	"github.com/praetorian-inc/ocigraph/pkg/graph/adapters"
	"github.com/praetorian-inc/ocigraph/pkg/graph/queries"
	ocicollectors "github.com/praetorian-inc/ocigraph/pkg/oci/collectors"
	ocigrapher "github.com/praetorian-inc/ocigraph/pkg/oci/grapher"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

const (
	tenancyID   = "ocid1.tenancy.oc1..t"
	compartment = "ocid1.compartment.oc1..prod"
	phoenix     = "us-phoenix-1"
	ashburn     = "us-ashburn-1"
)

type fakeNetwork struct {
	ocicollectors.NetworkAPI
	region  string
	subnets map[string][]core.Subnet
	vcns    map[string][]core.Vcn
	nsgs    map[string][]core.NetworkSecurityGroup
	err     error
}

func (f *fakeNetwork) ListVcns(_ context.Context, req core.ListVcnsRequest) (core.ListVcnsResponse, error) {
	return core.ListVcnsResponse{Items: f.vcns[*req.CompartmentId]}, nil
}

func (f *fakeNetwork) ListSubnets(_ context.Context, req core.ListSubnetsRequest) (core.ListSubnetsResponse, error) {
	if f.err != nil {
		return core.ListSubnetsResponse{}, f.err
	}
	return core.ListSubnetsResponse{Items: f.subnets[*req.CompartmentId]}, nil
}

func (f *fakeNetwork) ListInternetGateways(context.Context, core.ListInternetGatewaysRequest) (core.ListInternetGatewaysResponse, error) {
	return core.ListInternetGatewaysResponse{}, nil
}

func (f *fakeNetwork) ListSecurityLists(context.Context, core.ListSecurityListsRequest) (core.ListSecurityListsResponse, error) {
	return core.ListSecurityListsResponse{}, nil
}

func (f *fakeNetwork) ListNetworkSecurityGroups(_ context.Context, req core.ListNetworkSecurityGroupsRequest) (core.ListNetworkSecurityGroupsResponse, error) {
	return core.ListNetworkSecurityGroupsResponse{Items: f.nsgs[*req.CompartmentId]}, nil
}

type fakeObjectStorage struct {
	buckets map[string][]objectstorage.Bucket
}

func (f *fakeObjectStorage) GetNamespace(context.Context, objectstorage.GetNamespaceRequest) (objectstorage.GetNamespaceResponse, error) {
	return objectstorage.GetNamespaceResponse{Value: common.String("ns")}, nil
}

func (f *fakeObjectStorage) ListBuckets(_ context.Context, req objectstorage.ListBucketsRequest) (objectstorage.ListBucketsResponse, error) {
	resp := objectstorage.ListBucketsResponse{}
	for _, b := range f.buckets[*req.CompartmentId] {
		resp.Items = append(resp.Items, objectstorage.BucketSummary{Name: b.Name, CompartmentId: b.CompartmentId, Namespace: b.Namespace})
	}
	return resp, nil
}

func (f *fakeObjectStorage) GetBucket(_ context.Context, req objectstorage.GetBucketRequest) (objectstorage.GetBucketResponse, error) {
	for _, list := range f.buckets {
		for _, b := range list {
			if *b.Name == *req.BucketName {
				return objectstorage.GetBucketResponse{Bucket: b}, nil
			}
		}
	}
	return objectstorage.GetBucketResponse{}, fmt.Errorf("no bucket %s", *req.BucketName)
}

// fakeCloud serves per-region fakes; only network and object storage are wired.
type fakeCloud struct {
	network map[string]*fakeNetwork
	storage map[string]*fakeObjectStorage
	calls   []string
}

func (c *fakeCloud) ForRegion(region string) (*ocicollectors.Set, error) {
	c.calls = append(c.calls, region)
	network, ok := c.network[region]
	if !ok {
		network = &fakeNetwork{}
	}
	storage, ok := c.storage[region]
	if !ok {
		storage = &fakeObjectStorage{}
	}
	return &ocicollectors.Set{
		Region:        region,
		Network:       ocicollectors.NewNetworkCollector(network),
		ObjectStorage: ocicollectors.NewObjectStorageCollector(storage),
	}, nil
}

type fakeRegions []ocitypes.Region

func (f fakeRegions) ListRegionSubscriptions(context.Context, string) ([]ocitypes.Region, error) {
	return f, nil
}

func subnet(id, vcn, name string) core.Subnet {
	return core.Subnet{
		Id:            common.String(id),
		CompartmentId: common.String(tenancyID),
		VcnId:         common.String(vcn),
		DisplayName:   common.String(name),
		CidrBlock:     common.String("10.0.0.0/24"),
		TimeCreated:   &common.SDKTime{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
}

func vcn(id string) core.Vcn {
	return core.Vcn{Id: common.String(id), CompartmentId: common.String(tenancyID), DisplayName: common.String("vcn")}
}

func bucket(id, name, comp string) objectstorage.Bucket {
	return objectstorage.Bucket{
		Id:            common.String(id),
		Name:          common.String(name),
		CompartmentId: common.String(comp),
		Namespace:     common.String("ns"),
		DefinedTags:   map[string]map[string]interface{}{"Finance": {"CostCenter": "42"}},
	}
}

func newCloud() *fakeCloud {
	return &fakeCloud{
		network: map[string]*fakeNetwork{
			phoenix: {
				vcns:    map[string][]core.Vcn{tenancyID: {vcn("ocid1.vcn.oc1.us-phoenix-1.v1")}},
				subnets: map[string][]core.Subnet{tenancyID: {subnet("ocid1.subnet.oc1.us-phoenix-1.s1", "ocid1.vcn.oc1.us-phoenix-1.v1", "public")}},
				nsgs: map[string][]core.NetworkSecurityGroup{tenancyID: {{
					Id:            common.String("ocid1.networksecuritygroup.oc1.us-phoenix-1.g1"),
					CompartmentId: common.String(tenancyID),
					VcnId:         common.String("ocid1.vcn.oc1.us-phoenix-1.v1"),
					DisplayName:   common.String("web"),
				}}},
			},
			ashburn: {
				vcns:    map[string][]core.Vcn{tenancyID: {vcn("ocid1.vcn.oc1.us-ashburn-1.v2")}},
				subnets: map[string][]core.Subnet{tenancyID: {subnet("ocid1.subnet.oc1.us-ashburn-1.s2", "ocid1.vcn.oc1.us-ashburn-1.v2", "private")}},
			},
		},
		storage: map[string]*fakeObjectStorage{
			phoenix: {buckets: map[string][]objectstorage.Bucket{
				tenancyID: {
					bucket("ocid1.bucket.oc1.us-phoenix-1.reports", "Reports", tenancyID),
					bucket("ocid1.bucket.oc1.us-phoenix-1.logs", "Logs", tenancyID),
				},
			}},
		},
	}
}

func handle(t *testing.T, db *adapters.MemoryDatabase, id string, records []graph.Record) {
	t.Helper()
	q, err := queries.Get(id)
	require.NoError(t, err)
	db.Handle(q.Cypher, func(_ *adapters.MemoryDatabase, params map[string]any) ([]graph.Record, error) {
		assert.Equal(t, tenancyID, params["tenancy_id"])
		return records, nil
	})
}

func newGraph(t *testing.T) *adapters.MemoryDatabase {
	t.Helper()
	db := adapters.NewMemoryDatabase()
	handle(t, db, queries.TenancyRegions, []graph.Record{
		{"name": phoenix, "key": "PHX"},
		{"name": ashburn, "key": "IAD"},
	})
	handle(t, db, queries.TenancyPolicies, []graph.Record{{
		"ocid":          "ocid1.policy.oc1..p1",
		"name":          "reports-readers",
		"compartmentid": tenancyID,
		"statements": []any{
			"Allow group Auditors to read objects in tenancy where target.bucket.name='reports'",
			"Allow group Auditors to inspect buckets in tenancy",
		},
	}})
	return db
}

var networkAndStorage = []string{"network", "objectstorage"}

func result(t *testing.T, s *Summary, stage, region string) StageResult {
	t.Helper()
	for _, r := range s.Results {
		if r.Stage == stage && r.Region == region {
			return r
		}
	}
	t.Fatalf("no result for %s in %q", stage, region)
	return StageResult{}
}

func TestRunWritesResourcesAndLinks(t *testing.T) {
	ctx := context.Background()
	db := newGraph(t)
	cloud := newCloud()
	s := NewSyncer(db, cloud)

	summary, err := s.Run(ctx, Config{TenancyID: tenancyID, Resources: networkAndStorage, UpdateTag: 100})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{phoenix, ashburn}, summary.Regions)
	assert.Equal(t, []string{phoenix, ashburn}, cloud.calls)
	assert.Len(t, db.Constraints(), len(ocigrapher.Kinds)+1)

	assert.Len(t, db.Nodes(ocigrapher.Subnet.Label), 2)
	assert.Len(t, db.Nodes(ocigrapher.VCN.Label), 2)
	assert.Len(t, db.Nodes(ocigrapher.Bucket.Label), 2)

	members := db.Relationships(ocigrapher.SubnetVCN.Type)
	require.Len(t, members, 2)
	assert.Equal(t, adapters.NodeKey("OCISubnet", "ocid", "ocid1.subnet.oc1.us-ashburn-1.s2"), members[0].Start)
	assert.Equal(t, adapters.NodeKey("OCIVCN", "ocid", "ocid1.vcn.oc1.us-ashburn-1.v2"), members[0].End)

	groups := db.Relationships(ocigrapher.VCNSecurityGroup.Type)
	require.Len(t, groups, 1)
	assert.Equal(t, adapters.NodeKey("OCIVCN", "ocid", "ocid1.vcn.oc1.us-phoenix-1.v1"), groups[0].Start)

	// the policy names "reports"; only the Reports bucket is linked
	refs := db.Relationships(ocigrapher.PolicyBucket.Type)
	require.Len(t, refs, 1)
	assert.Equal(t, adapters.NodeKey("OCIPolicy", "ocid", "ocid1.policy.oc1..p1"), refs[0].Start)
	assert.Equal(t, adapters.NodeKey("OCIBucket", "ocid", "ocid1.bucket.oc1.us-phoenix-1.reports"), refs[0].End)

	located := db.Relationships(ocigrapher.BucketRegion.Type)
	require.Len(t, located, 2)
	for _, rel := range located {
		assert.Equal(t, adapters.NodeKey("OCIRegion", "key", "PHX"), rel.End)
		assert.Equal(t, int64(100), rel.Properties["lastupdated"])
	}

	assert.Equal(t, StatusOK, result(t, summary, StagePolicyBucket, "").Status)
	assert.Equal(t, 1, result(t, summary, StagePolicyBucket, "").Count)
	assert.Equal(t, StatusDisabled, result(t, summary, StageInstances, phoenix).Status)
	assert.Equal(t, StatusSkipped, result(t, summary, StageInstanceSubnet, phoenix).Status)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newGraph(t)
	s := NewSyncer(db, newCloud())

	_, err := s.Run(ctx, Config{TenancyID: tenancyID, Resources: networkAndStorage, UpdateTag: 100})
	require.NoError(t, err)
	first, ok := db.Node("OCISubnet", "ocid", "ocid1.subnet.oc1.us-phoenix-1.s1")
	require.True(t, ok)

	summary, err := s.Run(ctx, Config{TenancyID: tenancyID, Resources: networkAndStorage, UpdateTag: 200})
	require.NoError(t, err)
	second, ok := db.Node("OCISubnet", "ocid", "ocid1.subnet.oc1.us-phoenix-1.s1")
	require.True(t, ok)

	assert.Len(t, db.Nodes(ocigrapher.Subnet.Label), 2)
	assert.Len(t, db.Relationships(ocigrapher.SubnetVCN.Type), 2)
	assert.Len(t, db.Relationships(ocigrapher.PolicyBucket.Type), 1)

	assert.Equal(t, int64(100), first.Properties["lastupdated"])
	assert.Equal(t, int64(200), second.Properties["lastupdated"])
	delete(first.Properties, "lastupdated")
	delete(second.Properties, "lastupdated")
	assert.Equal(t, first.Properties, second.Properties)

	// each run starts with an empty index
	assert.Equal(t, 1, result(t, summary, StageSubnetVCN, phoenix).Count)
	assert.Equal(t, 1, result(t, summary, StageSubnetVCN, ashburn).Count)
	assert.Equal(t, 1, result(t, summary, StagePolicyBucket, "").Count)
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	db := newGraph(t)
	cloud := newCloud()
	cloud.network[phoenix].err = errors.New("connection reset")

	summary, err := NewSyncer(db, cloud).Run(context.Background(), Config{TenancyID: tenancyID, Resources: networkAndStorage})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage network/subnets in us-phoenix-1")
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, []string{phoenix}, cloud.calls)
	last := summary.Results[len(summary.Results)-1]
	assert.Equal(t, StageSubnets, last.Stage)
	assert.Equal(t, StatusFailed, last.Status)
	assert.Empty(t, db.Nodes(ocigrapher.Bucket.Label))
}

func TestRunContinueOnError(t *testing.T) {
	db := newGraph(t)
	cloud := newCloud()
	cloud.network[phoenix].err = errors.New("connection reset")
	s := NewSyncer(db, cloud)

	summary, err := s.Run(context.Background(), Config{TenancyID: tenancyID, Resources: networkAndStorage, ContinueOnError: true})
	require.Error(t, err)

	assert.Equal(t, StatusFailed, result(t, summary, StageSubnets, phoenix).Status)
	assert.Equal(t, StatusSkipped, result(t, summary, StageSubnetVCN, phoenix).Status)
	assert.Equal(t, StatusOK, result(t, summary, StageSubnetVCN, ashburn).Status)
	assert.Equal(t, StatusOK, result(t, summary, StageBuckets, phoenix).Status)
	assert.Equal(t, StatusOK, result(t, summary, StageBucketRegion, "").Status)
	assert.Equal(t, 1, summary.Count(StatusFailed))
	assert.Len(t, db.Nodes(ocigrapher.Bucket.Label), 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().StageFailures.WithLabelValues(StageSubnets)))
}

func TestRunMetrics(t *testing.T) {
	s := NewSyncer(newGraph(t), newCloud())
	_, err := s.Run(context.Background(), Config{TenancyID: tenancyID, Resources: networkAndStorage})
	require.NoError(t, err)

	m := s.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsSynced.WithLabelValues("bucket", phoenix)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsSynced.WithLabelValues("subnet", ashburn)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinksWritten.WithLabelValues("MEMBER_OF_VCN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinksWritten.WithLabelValues("OCI_BUCKET_POLICY_REFERENCE")))

	path := filepath.Join(t.TempDir(), "ocigraph.prom")
	require.NoError(t, m.WriteToTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ocigraph_links_written_total{type="LOCATED_IN"} 2`)
}

func TestRunFilter(t *testing.T) {
	db := newGraph(t)
	_, err := NewSyncer(db, newCloud()).Run(context.Background(), Config{
		TenancyID: tenancyID,
		Resources: []string{"objectstorage"},
		Filter:    `.name != "Logs"`,
	})
	require.NoError(t, err)

	buckets := db.Nodes(ocigrapher.Bucket.Label)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Reports", buckets[0].Properties["name"])
	assert.Len(t, db.Relationships(ocigrapher.BucketRegion.Type), 1)
}

func TestRunRegionsAndCompartments(t *testing.T) {
	db := adapters.NewMemoryDatabase()
	handle(t, db, queries.TenancyCompartments, []graph.Record{
		{"ocid": compartment, "name": "prod", "compartmentid": tenancyID},
	})
	cloud := newCloud()
	cloud.storage[ashburn] = &fakeObjectStorage{buckets: map[string][]objectstorage.Bucket{
		compartment: {bucket("ocid1.bucket.oc1.us-ashburn-1.archive", "Archive", compartment)},
	}}

	s := NewSyncer(db, cloud, WithIdentity(fakeRegions{{Name: phoenix, Key: "PHX"}, {Name: ashburn, Key: "IAD"}}))
	summary, err := s.Run(context.Background(), Config{
		TenancyID:       tenancyID,
		Regions:         []string{ashburn},
		Resources:       []string{"bucket"},
		AllCompartments: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{ashburn}, summary.Regions)
	assert.Equal(t, 1, result(t, summary, StageBuckets, ashburn).Count)
	located := db.Relationships(ocigrapher.BucketRegion.Type)
	require.Len(t, located, 1)
	assert.Equal(t, adapters.NodeKey("OCIRegion", "key", "IAD"), located[0].End)
}

func TestRunConfigErrors(t *testing.T) {
	s := NewSyncer(newGraph(t), newCloud())
	ctx := context.Background()

	_, err := s.Run(ctx, Config{})
	assert.ErrorContains(t, err, "tenancy id is required")

	_, err = s.Run(ctx, Config{TenancyID: tenancyID, Resources: []string{"dns"}})
	assert.ErrorContains(t, err, `unknown resource "dns"`)

	_, err = s.Run(ctx, Config{TenancyID: tenancyID, Regions: []string{"eu-frankfurt-1"}})
	assert.ErrorContains(t, err, "eu-frankfurt-1 is not subscribed")

	_, err = s.Run(ctx, Config{TenancyID: tenancyID, Filter: ".[broken"})
	assert.ErrorContains(t, err, "invalid record filter")
}

func TestRunDefaultUpdateTag(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	s := NewSyncer(newGraph(t), newCloud(), WithClock(func() time.Time { return now }))
	summary, err := s.Run(context.Background(), Config{TenancyID: tenancyID, Resources: []string{"objectstorage"}})
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), summary.UpdateTag)
}
