package ingest

import (
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// Pair sets collected by resource stages for the link stages that follow.
const (
	PairSubnetVCN                = "subnet-vcn"
	PairSecurityGroupVCN         = "nsg-vcn"
	PairInstanceSubnet           = "instance-subnet"
	PairVolumeAttachmentInstance = "volume-attachment-instance"
)

// Index holds what one run has seen so far. Pairs are kept per region so a
// regional link stage only joins resources from its own region.
type Index struct {
	pairs   map[string]map[string][]ocitypes.Pair
	buckets []ocitypes.Named
}

func NewIndex() *Index {
	return &Index{pairs: make(map[string]map[string][]ocitypes.Pair)}
}

func (x *Index) AddPairs(region, set string, pairs ...ocitypes.Pair) {
	sets, ok := x.pairs[region]
	if !ok {
		sets = make(map[string][]ocitypes.Pair)
		x.pairs[region] = sets
	}
	sets[set] = append(sets[set], pairs...)
}

func (x *Index) Pairs(region, set string) []ocitypes.Pair {
	return x.pairs[region][set]
}

func (x *Index) AddBuckets(buckets ...ocitypes.Named) {
	x.buckets = append(x.buckets, buckets...)
}

// Buckets returns every bucket seen in any region.
func (x *Index) Buckets() []ocitypes.Named {
	return x.buckets
}

// BucketIDs returns the OCID of every bucket seen in any region.
func (x *Index) BucketIDs() []string {
	ids := make([]string, 0, len(x.buckets))
	for _, b := range x.buckets {
		ids = append(ids, b.OCID)
	}
	return ids
}
