package kubeopenapi

import "fmt"

// UnknownBehavior configures how fields a structural schema does not declare
// are treated.
type UnknownBehavior int

const (
	// UnknownPrune accepts undeclared fields; the API server would drop them.
	UnknownPrune UnknownBehavior = iota
	// UnknownStrict rejects undeclared fields of objects that declare properties.
	UnknownStrict
	// UnknownPreserve accepts undeclared fields everywhere, like
	// x-kubernetes-preserve-unknown-fields on the root.
	UnknownPreserve
)

// Profile selects a compatibility profile.
type Profile string

const (
	// ProfileStructuralV1 reports constructs a structural schema forbids.
	ProfileStructuralV1 Profile = "structural-v1"
	ProfileLoose        Profile = "loose"
)

// Options controls import behavior for Kubernetes OpenAPI v3 schemas.
type Options struct {
	Profile Profile
	Unknown UnknownBehavior
	// Version selects a CRD version by name; empty picks the storage version.
	Version string
	// EnableEmbeddedChecks requires apiVersion, kind and metadata on values
	// marked x-kubernetes-embedded-resource.
	EnableEmbeddedChecks bool
	// StrictYAML rejects duplicate keys when reading YAML bundles.
	StrictYAML bool
}

// Diag carries non-fatal warnings produced during import.
type Diag interface {
	HasWarnings() bool
	Warnings() []string
}

type simpleDiag struct{ ws []string }

func (d *simpleDiag) HasWarnings() bool        { return len(d.ws) > 0 }
func (d *simpleDiag) Warnings() []string       { return append([]string(nil), d.ws...) }
func (d *simpleDiag) warnf(f string, a ...any) { d.ws = append(d.ws, fmt.Sprintf(f, a...)) }
