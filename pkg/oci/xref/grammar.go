package xref

import (
	"fmt"
	"regexp"
)

// Grammar is a named, versioned text pattern whose first capture group is the
// token a cross-reference pass joins on. Changing a pattern means adding a
// new version, so existing graphs can be reasoned about.
type Grammar struct {
	Name    string
	Version string
	Pattern *regexp.Regexp
}

// Match returns the first capture group of the leftmost match in s.
func (g Grammar) Match(s string) (string, bool) {
	m := g.Pattern.FindStringSubmatch(s)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

func (g Grammar) String() string {
	return fmt.Sprintf("%s/%s", g.Name, g.Version)
}

var (
	// PolicyBucketName extracts the bucket name from an IAM policy condition
	// such as "allow group x to read objects in tenancy where target.bucket.name='reports'".
	PolicyBucketName = Grammar{
		Name:    "policy-bucket-name",
		Version: "v1",
		Pattern: regexp.MustCompile(`target\.bucket\.name='([^']+)'`),
	}

	// OCIDRegion extracts the region name embedded in a commercial-realm OCID,
	// e.g. ocid1.bucket.oc1.us-phoenix-1.aaaa.
	OCIDRegion = Grammar{
		Name:    "ocid-region",
		Version: "v1",
		Pattern: regexp.MustCompile(`\.oc1\.([a-zA-Z0-9\-]+)\.`),
	}
)
