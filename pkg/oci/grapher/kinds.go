// Package ocigrapher turns normalized OCI records into graph nodes and edges.
package ocigrapher

import (
	"github.com/stoewer/go-strcase"

	"github.com/praetorian-inc/ocigraph/pkg/oci/normalize"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

const (
	LabelTenancy = "OCITenancy"
	LabelRegion  = "OCIRegion"
	LabelPolicy  = "OCIPolicy"
	LabelTag     = "OCITag"

	RelResource = "RESOURCE"
	RelTagged   = "TAGGED"
)

// Kind describes how one OCI resource type is projected into the graph.
type Kind struct {
	// Name is the stable identifier used in stage names and metrics, e.g. "subnet".
	Name  string
	Label string
	// NameKey is the wire key holding the human readable name.
	NameKey string
	// Properties are wire keys copied onto the node on every write. The graph
	// property is the snake_case form of the key.
	Properties []string
	// Derived adds properties that need more than a key lookup.
	Derived func(ocitypes.Record) map[string]any
}

// PropertyName maps a wire key to the graph property it is stored under.
func PropertyName(key string) string {
	switch key {
	case ocitypes.KeyDisplayName:
		return "displayname"
	case ocitypes.KeyCompartmentID:
		return "compartmentid"
	}
	return strcase.SnakeCase(key)
}

var (
	Instance = Kind{
		Name:    "instance",
		Label:   "OCIInstance",
		NameKey: ocitypes.KeyDisplayName,
		Properties: []string{
			"availability-domain", "fault-domain", "lifecycle-state", "region", "shape", "image-id", "launch-mode",
		},
	}

	VolumeAttachment = Kind{
		Name:    "volume-attachment",
		Label:   "OCIVolumeAttachment",
		NameKey: ocitypes.KeyDisplayName,
		Properties: []string{
			"attachment-type", "availability-domain", "instance-id", "volume-id", "lifecycle-state", "is-read-only", "is-shareable", "device",
		},
	}

	VnicAttachment = Kind{
		Name:       "vnic-attachment",
		Label:      "OCIVnicAttachment",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"availability-domain", "instance-id", "subnet-id", "vnic-id", "lifecycle-state", "nic-index", "vlan-tag"},
	}

	ComputeCluster = Kind{
		Name:       "compute-cluster",
		Label:      "OCIComputeCluster",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"availability-domain", "lifecycle-state"},
	}

	VCN = Kind{
		Name:    "vcn",
		Label:   "OCIVCN",
		NameKey: ocitypes.KeyDisplayName,
		Properties: []string{
			"cidr-block", "cidr-blocks", "default-dhcp-options-id", "default-route-table-id", "default-security-list-id",
			"dns-label", "lifecycle-state", "time-created", "vcn-domain-name",
		},
	}

	Subnet = Kind{
		Name:    "subnet",
		Label:   "OCISubnet",
		NameKey: ocitypes.KeyDisplayName,
		Properties: []string{
			"cidr-block", "lifecycle-state", "prohibit-internet-ingress", "prohibit-public-ip-on-vnic", "route-table-id",
			"subnet-domain-name", "virtual-router-ip", "virtual-router-mac", "dhcp-options-id", "dns-label", "vcn-id",
			"security-list-ids", "ipv6-cidr-block", "ipv6-cidr-blocks", "ipv6-virtual-router-ip",
		},
	}

	InternetGateway = Kind{
		Name:       "internet-gateway",
		Label:      "OCIInternetGateway",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"is-enabled", "lifecycle-state", "vcn-id", "route-table-id"},
	}

	SecurityList = Kind{
		Name:       "security-list",
		Label:      "OCISecurityList",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"lifecycle-state", "vcn-id"},
		Derived: func(r ocitypes.Record) map[string]any {
			return map[string]any{
				"ingress_rule_count": len(list(r["ingress-security-rules"])),
				"egress_rule_count":  len(list(r["egress-security-rules"])),
			}
		},
	}

	NetworkSecurityGroup = Kind{
		Name:       "network-security-group",
		Label:      "OCINetworkSecurityGroup",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"lifecycle-state", "vcn-id"},
	}

	VolumeGroup = Kind{
		Name:       "volume-group",
		Label:      "OCIVolumeGroup",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"availability-domain", "lifecycle-state", "volume-ids", "is-hydrated"},
	}

	Bucket = Kind{
		Name:    "bucket",
		Label:   "OCIBucket",
		NameKey: ocitypes.KeyName,
		Properties: []string{
			"namespace", "etag", "created-by", "public-access-type", "storage-tier", "object-events-enabled",
			"versioning", "kms-key-id", "replication-enabled", "is-read-only", "auto-tiering",
		},
	}

	AutonomousDatabase = Kind{
		Name:    "autonomous-database",
		Label:   "OCIDatabase",
		NameKey: ocitypes.KeyDisplayName,
		Properties: []string{
			"db-name", "db-version", "db-workload", "lifecycle-state", "is-free-tier", "is-dedicated",
			"private-endpoint-ip", "subnet-id", "nsg-ids", "whitelisted-ips",
		},
	}

	Gateway = Kind{
		Name:    "gateway",
		Label:   "OCIGateway",
		NameKey: ocitypes.KeyDisplayName,
		Properties: []string{
			"lifecycle-state", "endpoint-type", "hostname", "lifecycle-details", "network-security-group-ids",
			"subnet-id", "time-created", "time-updated",
		},
	}

	LoadBalancer = Kind{
		Name:       "load-balancer",
		Label:      "OCILoadBalancer",
		NameKey:    ocitypes.KeyDisplayName,
		Properties: []string{"lifecycle-state", "shape-name", "is-private", "subnet-ids", "network-security-group-ids"},
		Derived: func(r ocitypes.Record) map[string]any {
			var addrs, public []string
			for _, raw := range list(r["ip-addresses"]) {
				elem, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				ip := wireKeys(elem)
				addr, _ := ip["ip-address"].(string)
				if addr == "" {
					continue
				}
				addrs = append(addrs, addr)
				if isPublic, _ := ip["is-public"].(bool); isPublic {
					public = append(public, addr)
				}
			}
			return map[string]any{"ip_addresses": nonNil(addrs), "public_ip_addresses": nonNil(public)}
		},
	}
)

// Kinds lists every resource kind the sync writes.
var Kinds = []Kind{
	Instance, VolumeAttachment, VnicAttachment, ComputeCluster,
	VCN, Subnet, InternetGateway, SecurityList, NetworkSecurityGroup,
	VolumeGroup, Bucket, AutonomousDatabase, Gateway, LoadBalancer,
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// wireKeys rekeys one level of a mapping nested in a list. The normalizer
// leaves those untouched, so they still carry the SDK's camelCase names.
func wireKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[normalize.WireKey(k)] = v
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
