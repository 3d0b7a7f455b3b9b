package ocitypes

import "fmt"

// OracleTagsNamespace holds the provider-managed CreatedBy/CreatedOn tags.
const OracleTagsNamespace = "Oracle-Tags"

// Tag is one defined tag attached to a resource.
type Tag struct {
	Namespace string
	Key       string
	Value     string
}

// ID is the tag node identity. The namespace is part of it so equal key/value
// pairs in different namespaces stay distinct nodes.
func (t Tag) ID() string {
	return t.Namespace + ":" + t.Key + ":" + t.Value
}

// DefinedTags flattens a "defined-tags" mapping into tags, skipping Oracle-Tags.
func DefinedTags(defined map[string]any) []Tag {
	tags := make([]Tag, 0)
	for namespace, raw := range defined {
		if namespace == OracleTagsNamespace {
			continue
		}
		kv, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for key, value := range kv {
			tags = append(tags, Tag{Namespace: namespace, Key: key, Value: fmt.Sprint(value)})
		}
	}
	return tags
}

// Region is a subscribed region as published by the identity sync.
type Region struct {
	Name string // e.g. us-phoenix-1
	Key  string // e.g. PHX
}

// RegionTable maps region names to region keys for one tenancy.
type RegionTable map[string]string

func NewRegionTable(regions []Region) RegionTable {
	t := make(RegionTable, len(regions))
	for _, r := range regions {
		t[r.Name] = r.Key
	}
	return t
}

// Policy is an IAM policy node read back from the graph.
type Policy struct {
	OCID          string
	Name          string
	CompartmentID string
	Statements    []string
}

// Compartment is a compartment node read back from the graph.
type Compartment struct {
	OCID          string
	Name          string
	CompartmentID string
}

// Named is the minimum a cross-reference target needs: identity and name.
type Named struct {
	OCID string
	Name string
}

// Pair is a (resource, related resource) couple collected during a sync pass.
type Pair struct {
	From string
	To   string
}

// Link is one edge produced by a cross-reference pass.
type Link struct {
	From string
	To   string
}
