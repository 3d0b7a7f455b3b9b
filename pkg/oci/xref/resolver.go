// Package xref derives edges between resources that only reference each other
// through free text: policy statements naming buckets, and OCIDs embedding
// region names. Results are lazy sequences and are not de-duplicated; the graph
// MERGE makes repeated links harmless.
package xref

import (
	"iter"
	"log/slog"
	"strings"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

type Resolver struct {
	policyGrammar Grammar
	regionGrammar Grammar
}

type Option func(*Resolver)

func WithPolicyGrammar(g Grammar) Option {
	return func(r *Resolver) { r.policyGrammar = g }
}

func WithRegionGrammar(g Grammar) Option {
	return func(r *Resolver) { r.regionGrammar = g }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		policyGrammar: PolicyBucketName,
		regionGrammar: OCIDRegion,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PolicyBucketLinks yields (policy, bucket) for every statement whose bucket
// token equals a bucket name, compared case-insensitively. Each statement is
// matched once; a policy with several statements can link several buckets.
func (r *Resolver) PolicyBucketLinks(policies []ocitypes.Policy, buckets []ocitypes.Named) iter.Seq[ocitypes.Link] {
	return func(yield func(ocitypes.Link) bool) {
		for _, policy := range policies {
			for _, statement := range policy.Statements {
				name, ok := r.policyGrammar.Match(statement)
				if !ok {
					continue
				}
				for _, bucket := range buckets {
					if !strings.EqualFold(bucket.Name, name) {
						continue
					}
					if !yield(ocitypes.Link{From: policy.OCID, To: bucket.OCID}) {
						return
					}
				}
			}
		}
	}
}

// RegionCode returns the region name embedded in an OCID.
func (r *Resolver) RegionCode(ocid string) (string, bool) {
	return r.regionGrammar.Match(ocid)
}

// RegionLinks yields (resource, region key) for every OCID that embeds a region
// known to the tenancy. OCIDs without a region, or with a region the tenancy
// is not subscribed to, are skipped.
func (r *Resolver) RegionLinks(ocids []string, regions ocitypes.RegionTable) iter.Seq[ocitypes.Link] {
	return func(yield func(ocitypes.Link) bool) {
		for _, ocid := range ocids {
			code, ok := r.RegionCode(ocid)
			if !ok {
				continue
			}
			key, ok := regions[code]
			if !ok {
				slog.Debug("region not subscribed, skipping", "ocid", ocid, "region", code)
				continue
			}
			if !yield(ocitypes.Link{From: ocid, To: key}) {
				return
			}
		}
	}
}

// PairLinks adapts pairs collected during a sync pass into links.
func PairLinks(pairs []ocitypes.Pair) iter.Seq[ocitypes.Link] {
	return func(yield func(ocitypes.Link) bool) {
		for _, p := range pairs {
			if p.From == "" || p.To == "" {
				continue
			}
			if !yield(ocitypes.Link{From: p.From, To: p.To}) {
				return
			}
		}
	}
}

// ReversedPairLinks is PairLinks with each edge pointing the other way.
func ReversedPairLinks(pairs []ocitypes.Pair) iter.Seq[ocitypes.Link] {
	return func(yield func(ocitypes.Link) bool) {
		for l := range PairLinks(pairs) {
			if !yield(ocitypes.Link{From: l.To, To: l.From}) {
				return
			}
		}
	}
}
