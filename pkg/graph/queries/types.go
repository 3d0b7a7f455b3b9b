package queries

// QueryMetadata remains useful for grouping metadata within the Query struct.
type QueryMetadata struct {
	Name             string   `yaml:"name"`             // User-friendly name of the query
	Description      string   `yaml:"description"`      // Detailed description of what the query does
	ImpactedServices []string `yaml:"impactedServices"` // List of cloud services the query relates to
	Severity         string   `yaml:"severity"`         // e.g., Critical, High, Medium, Low, Informational
	Order            int      `yaml:"order"`            // Execution order - lower numbers run first (default 0)
}

// Query represents a single loaded query.
type Query struct {
	// Fields loaded from YAML
	QueryMetadata `yaml:",inline"`
	Cypher        string `yaml:"cypher"`

	// Fields populated programmatically, not from YAML
	ID       string // Unique identifier, e.g., "oci/read/tenancy/policies"
	Platform string // e.g., "oci"
	Type     string // e.g., "read", "analysis"
	Category string // e.g., "tenancy", "objectstorage"
	FileName string // Original filename, e.g., "policies.yaml"
}

// Read query identifiers used by the sync.
const (
	TenancyCompartments = "oci/read/tenancy/compartments"
	TenancyPolicies     = "oci/read/tenancy/policies"
	TenancyRegions      = "oci/read/tenancy/regions"
)
