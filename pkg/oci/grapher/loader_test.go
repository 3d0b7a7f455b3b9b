package ocigrapher

import (
	"context"
	"slices"
	"testing"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/loadbalancer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/ocigraph/pkg/graph/adapters"
	ocicollectors "github.com/praetorian-inc/ocigraph/pkg/oci/collectors"
	ocierrors "github.com/praetorian-inc/ocigraph/pkg/oci/errors"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

const tenancyID = "ocid1.tenancy.oc1..t"

func subnetRecord(id string) ocitypes.Record {
	return ocitypes.Record{
		"id":                         id,
		"compartment-id":             "ocid1.compartment.oc1..c",
		"display-name":               "public",
		"time-created":               "2024-01-02T03:04:05Z",
		"cidr-block":                 "10.0.0.0/24",
		"vcn-id":                     "ocid1.vcn.oc1.phx.v",
		"prohibit-public-ip-on-vnic": false,
		"security-list-ids":          []any{"sl1", "sl2"},
		"defined-tags": map[string]any{
			"Oracle-Tags": map[string]any{"CreatedBy": "someone"},
			"Finance":     map[string]any{"CostCenter": "42"},
			"Ops":         map[string]any{"CostCenter": "42"},
		},
		"dhcp-options": map[string]any{"nested": true},
	}
}

func TestLoadSubnets(t *testing.T) {
	ctx := context.Background()
	db := adapters.NewMemoryDatabase()
	l := NewLoader(db)

	_, err := l.Load(ctx, Subnet, []ocitypes.Record{subnetRecord("ocid1.subnet.oc1.phx.s")}, tenancyID, 100)
	require.NoError(t, err)

	n, ok := db.Node("OCISubnet", "ocid", "ocid1.subnet.oc1.phx.s")
	require.True(t, ok)
	assert.Equal(t, "public", n.Properties["displayname"])
	assert.Equal(t, "10.0.0.0/24", n.Properties["cidr_block"])
	assert.Equal(t, false, n.Properties["prohibit_public_ip_on_vnic"])
	assert.Equal(t, []any{"sl1", "sl2"}, n.Properties["security_list_ids"])
	assert.Equal(t, "ocid1.compartment.oc1..c", n.Properties["compartmentid"])
	assert.Equal(t, "2024-01-02T03:04:05Z", n.Properties["createdate"])
	assert.Equal(t, int64(100), n.Properties["lastupdated"])
	assert.Equal(t, []string{"Finance:CostCenter:42", "Ops:CostCenter:42"}, n.Properties["tags"])
	assert.NotContains(t, n.Properties, "dhcp_options")

	resource := db.Relationships(RelResource)
	require.Len(t, resource, 1)
	assert.Equal(t, adapters.NodeKey(LabelTenancy, "ocid", tenancyID), resource[0].Start)

	tags := db.Nodes(LabelTag)
	require.Len(t, tags, 2, "equal key/value in different namespaces are distinct tags")
	assert.Len(t, db.Relationships(RelTagged), 2)
	tag, ok := db.Node(LabelTag, "ocid", "Finance:CostCenter:42")
	require.True(t, ok)
	assert.Equal(t, "Finance", tag.Properties["namespace"])
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := adapters.NewMemoryDatabase()
	l := NewLoader(db)
	records := []ocitypes.Record{subnetRecord("s1"), subnetRecord("s2")}

	_, err := l.Load(ctx, Subnet, records, tenancyID, 1)
	require.NoError(t, err)
	first := db.Nodes("OCISubnet")

	changed := subnetRecord("s1")
	changed["time-created"] = "2030-01-01T00:00:00Z"
	_, err = l.Load(ctx, Subnet, []ocitypes.Record{changed, subnetRecord("s2")}, tenancyID, 2)
	require.NoError(t, err)
	second := db.Nodes("OCISubnet")

	require.Len(t, second, 2)
	for i := range second {
		assert.Equal(t, int64(2), second[i].Properties["lastupdated"])
		delete(first[i].Properties, "lastupdated")
		delete(second[i].Properties, "lastupdated")
		assert.Equal(t, first[i].Properties, second[i].Properties, "only lastupdated changes")
	}
	assert.Len(t, db.Relationships(RelResource), 2)
	assert.Len(t, db.Nodes(LabelTag), 2)
}

func TestLoadRejectsMalformedRecordsBeforeWriting(t *testing.T) {
	db := adapters.NewMemoryDatabase()
	bad := subnetRecord("s2")
	delete(bad, "compartment-id")

	_, err := NewLoader(db).Load(context.Background(), Subnet, []ocitypes.Record{subnetRecord("s1"), bad}, tenancyID, 1)
	require.Error(t, err)
	assert.Equal(t, ocierrors.CategoryMalformed, ocierrors.Classify(err))
	assert.Empty(t, db.Nodes("OCISubnet"))
}

// Every kind gets its own real load path.
func TestLoadEveryKind(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(kind.Name, func(t *testing.T) {
			db := adapters.NewMemoryDatabase()
			rec := ocitypes.Record{
				"id":              "ocid1." + kind.Name + ".oc1.phx.x",
				"compartment-id":  "c",
				kind.NameKey:      "named",
				"lifecycle-state": "AVAILABLE",
			}

			_, err := NewLoader(db).Load(context.Background(), kind, []ocitypes.Record{rec}, tenancyID, 7)
			require.NoError(t, err)

			n, ok := db.Node(kind.Label, "ocid", rec["id"])
			require.True(t, ok)
			assert.Equal(t, "named", n.Properties[PropertyName(kind.NameKey)])
			if slices.Contains(kind.Properties, "lifecycle-state") {
				assert.Equal(t, "AVAILABLE", n.Properties["lifecycle_state"])
			}
			assert.Len(t, db.Relationships(RelResource), 1)
		})
	}
}

func TestLoadBalancerIPAddresses(t *testing.T) {
	db := adapters.NewMemoryDatabase()
	recs, err := ocicollectors.WireNormalizer.Normalize([]loadbalancer.LoadBalancer{{
		Id:            common.String("lb"),
		CompartmentId: common.String("c"),
		DisplayName:   common.String("edge"),
		IpAddresses: []loadbalancer.IpAddress{
			{IpAddress: common.String("203.0.113.7"), IsPublic: common.Bool(true)},
			{IpAddress: common.String("10.0.0.9"), IsPublic: common.Bool(false)},
		},
	}})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = NewLoader(db).Load(context.Background(), LoadBalancer, recs, tenancyID, 1)
	require.NoError(t, err)

	n, ok := db.Node("OCILoadBalancer", "ocid", "lb")
	require.True(t, ok)
	assert.Equal(t, "edge", n.Properties[PropertyName(ocitypes.KeyDisplayName)])
	assert.Equal(t, []string{"203.0.113.7", "10.0.0.9"}, n.Properties["ip_addresses"])
	assert.Equal(t, []string{"203.0.113.7"}, n.Properties["public_ip_addresses"])
}

func TestLoadLinks(t *testing.T) {
	db := adapters.NewMemoryDatabase()
	links := slices.Values([]ocitypes.Link{{From: "b1", To: "PHX"}, {From: "b1", To: "PHX"}})

	n, err := NewLoader(db).LoadLinks(context.Background(), BucketRegion, links, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rels := db.Relationships("LOCATED_IN")
	require.Len(t, rels, 1, "duplicate links merge into one edge")
	assert.Equal(t, adapters.NodeKey("OCIRegion", "key", "PHX"), rels[0].End)
	assert.Equal(t, int64(5), rels[0].Properties["lastupdated"])

	n, err = NewLoader(db).LoadLinks(context.Background(), SubnetVCN, slices.Values([]ocitypes.Link{}), 5)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPropertyName(t *testing.T) {
	assert.Equal(t, "displayname", PropertyName("display-name"))
	assert.Equal(t, "compartmentid", PropertyName("compartment-id"))
	assert.Equal(t, "ipv6_cidr_blocks", PropertyName("ipv6-cidr-blocks"))
	assert.Equal(t, "name", PropertyName("name"))
}

func TestConstraintsCoverEveryKind(t *testing.T) {
	c := Constraints()
	assert.Len(t, c, len(Kinds)+1)
	for _, con := range c {
		assert.Equal(t, "ocid", con.Property)
	}
}
