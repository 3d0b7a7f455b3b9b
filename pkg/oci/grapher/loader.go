package ocigrapher

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	u "github.com/mpvl/unique"

	"github.com/praetorian-inc/ocigraph/pkg/graph"
	ocierrors "github.com/praetorian-inc/ocigraph/pkg/oci/errors"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// Endpoint addresses one side of a link by label and unique key property.
type Endpoint struct {
	Label string
	Key   string
}

// LinkSpec describes the edge a cross-reference pass produces.
type LinkSpec struct {
	Type string
	From Endpoint
	To   Endpoint
}

var (
	SubnetVCN = LinkSpec{
		Type: "MEMBER_OF_VCN",
		From: Endpoint{Subnet.Label, "ocid"},
		To:   Endpoint{VCN.Label, "ocid"},
	}
	// VCNSecurityGroup points from the VCN at the group, matching existing graphs.
	VCNSecurityGroup = LinkSpec{
		Type: "MEMBER_OF_NETWORK_SECURITY_GROUP",
		From: Endpoint{VCN.Label, "ocid"},
		To:   Endpoint{NetworkSecurityGroup.Label, "ocid"},
	}
	PolicyBucket = LinkSpec{
		Type: "OCI_BUCKET_POLICY_REFERENCE",
		From: Endpoint{LabelPolicy, "ocid"},
		To:   Endpoint{Bucket.Label, "ocid"},
	}
	BucketRegion = LinkSpec{
		Type: "LOCATED_IN",
		From: Endpoint{Bucket.Label, "ocid"},
		To:   Endpoint{LabelRegion, "key"},
	}
	InstanceSubnet = LinkSpec{
		Type: "ATTACHED_TO_SUBNET",
		From: Endpoint{Instance.Label, "ocid"},
		To:   Endpoint{Subnet.Label, "ocid"},
	}
	VolumeAttachmentInstance = LinkSpec{
		Type: "ATTACHED_TO_INSTANCE",
		From: Endpoint{VolumeAttachment.Label, "ocid"},
		To:   Endpoint{Instance.Label, "ocid"},
	}
)

// Loader writes records and links through a graph.GraphDatabase. Every write
// carries the update tag it is given in "lastupdated".
type Loader struct {
	db graph.GraphDatabase
}

func NewLoader(db graph.GraphDatabase) *Loader {
	return &Loader{db: db}
}

// Constraints returns the uniqueness constraints for every label the loader owns.
func Constraints() []graph.Constraint {
	out := make([]graph.Constraint, 0, len(Kinds)+1)
	for _, k := range Kinds {
		out = append(out, graph.Constraint{Label: k.Label, Property: "ocid"})
	}
	return append(out, graph.Constraint{Label: LabelTag, Property: "ocid"})
}

// Load upserts one node per record, a RESOURCE edge from the tenancy, and one
// TAGGED edge per defined tag. Records are validated before anything is written.
func (l *Loader) Load(ctx context.Context, kind Kind, records []ocitypes.Record, tenancyID string, updateTag int64) (*graph.BatchResult, error) {
	result := &graph.BatchResult{}
	if len(records) == 0 {
		return result, nil
	}

	tenancy := &graph.Node{
		Labels:     []string{LabelTenancy},
		UniqueKey:  []string{"ocid"},
		Properties: map[string]any{"ocid": tenancyID},
	}

	nodes := make([]*graph.Node, 0, len(records))
	rels := make([]*graph.Relationship, 0, len(records))
	tagNodes := make(map[string]*graph.Node)

	for _, r := range records {
		node, tags, err := l.node(kind, r, updateTag)
		if err != nil {
			return result, err
		}
		nodes = append(nodes, node)
		rels = append(rels, &graph.Relationship{
			Type:       RelResource,
			StartNode:  tenancy,
			EndNode:    ref(node),
			Properties: map[string]any{"lastupdated": updateTag},
		})

		for _, tag := range tags {
			tagNode, ok := tagNodes[tag.ID()]
			if !ok {
				tagNode = tagToNode(tag, updateTag)
				tagNodes[tag.ID()] = tagNode
			}
			rels = append(rels, &graph.Relationship{
				Type:       RelTagged,
				StartNode:  ref(node),
				EndNode:    ref(tagNode),
				Properties: map[string]any{"lastupdated": updateTag},
			})
		}
	}

	res, err := l.db.CreateNodes(ctx, nodes)
	result.Add(res)
	if err != nil {
		return result, ocierrors.GraphWrite(fmt.Sprintf("merge %s nodes", kind.Label), err)
	}

	if len(tagNodes) > 0 {
		tags := make([]*graph.Node, 0, len(tagNodes))
		for _, n := range tagNodes {
			tags = append(tags, n)
		}
		res, err = l.db.CreateNodes(ctx, tags)
		result.Add(res)
		if err != nil {
			return result, ocierrors.GraphWrite("merge OCITag nodes", err)
		}
	}

	res, err = l.db.CreateRelationships(ctx, rels)
	result.Add(res)
	if err != nil {
		return result, ocierrors.GraphWrite(fmt.Sprintf("merge %s relationships", kind.Label), err)
	}

	slog.Debug("loaded", "kind", kind.Name, "nodes", len(nodes), "tags", len(tagNodes), "relationships", len(rels))
	return result, nil
}

func (l *Loader) node(kind Kind, r ocitypes.Record, updateTag int64) (*graph.Node, []ocitypes.Tag, error) {
	id, err := r.ID()
	if err != nil {
		return nil, nil, err
	}
	compartmentID, err := r.CompartmentID()
	if err != nil {
		return nil, nil, err
	}

	props := map[string]any{
		"ocid":          id,
		"compartmentid": compartmentID,
		"lastupdated":   updateTag,
	}
	if name := r.String(kind.NameKey); name != "" {
		props[PropertyName(kind.NameKey)] = name
	}
	for _, key := range kind.Properties {
		if v, ok := r.Scalar(key); ok {
			props[PropertyName(key)] = v
		}
	}
	if kind.Derived != nil {
		for k, v := range kind.Derived(r) {
			props[k] = v
		}
	}

	tags := ocitypes.DefinedTags(r.Map(ocitypes.KeyDefinedTags))
	tagIDs := make([]string, 0, len(tags))
	for _, t := range tags {
		tagIDs = append(tagIDs, t.ID())
	}
	u.Strings(&tagIDs)
	props["tags"] = tagIDs

	onCreate := map[string]any{}
	if created := r.String(ocitypes.KeyTimeCreated); created != "" {
		onCreate["createdate"] = created
	}

	return &graph.Node{
		Labels:     []string{kind.Label},
		UniqueKey:  []string{"ocid"},
		Properties: props,
		OnCreate:   onCreate,
	}, tags, nil
}

func tagToNode(tag ocitypes.Tag, updateTag int64) *graph.Node {
	return &graph.Node{
		Labels:    []string{LabelTag},
		UniqueKey: []string{"ocid"},
		Properties: map[string]any{
			"ocid":        tag.ID(),
			"name":        tag.ID(),
			"lastupdated": updateTag,
		},
		OnCreate: map[string]any{
			"namespace": tag.Namespace,
			"key":       tag.Key,
			"value":     tag.Value,
		},
	}
}

// ref is an endpoint reference carrying only the identity of n, so merging
// an edge never overwrites the node's other properties.
func ref(n *graph.Node) *graph.Node {
	return &graph.Node{
		Labels:     n.Labels,
		UniqueKey:  n.UniqueKey,
		Properties: n.GetIdentity(),
	}
}

// LoadLinks consumes links once and merges one edge per link. Endpoints that
// do not exist yet are created with only their key set.
func (l *Loader) LoadLinks(ctx context.Context, spec LinkSpec, links iter.Seq[ocitypes.Link], updateTag int64) (int, error) {
	rels := make([]*graph.Relationship, 0)
	for link := range links {
		rels = append(rels, &graph.Relationship{
			Type: spec.Type,
			StartNode: &graph.Node{
				Labels:     []string{spec.From.Label},
				UniqueKey:  []string{spec.From.Key},
				Properties: map[string]any{spec.From.Key: link.From},
			},
			EndNode: &graph.Node{
				Labels:     []string{spec.To.Label},
				UniqueKey:  []string{spec.To.Key},
				Properties: map[string]any{spec.To.Key: link.To},
			},
			Properties: map[string]any{"lastupdated": updateTag},
		})
	}
	if len(rels) == 0 {
		return 0, nil
	}

	if _, err := l.db.CreateRelationships(ctx, rels); err != nil {
		return 0, ocierrors.GraphWrite(fmt.Sprintf("merge %s links", spec.Type), err)
	}
	slog.Debug("linked", "type", spec.Type, "links", len(rels))
	return len(rels), nil
}
