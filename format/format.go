// Package format holds the pluggable "format" keyword predicates.
//
// Formats are grouped into three domains (string, numeric, date/time). Each
// entry maps a name to a compile function rather than to a predicate, because
// a format may depend on sibling keywords of the same schema fragment such as
// formatMinimum or formatStrict. Data whose kind does not belong to the
// entry's domain is always accepted, and so is nil.
package format

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/pattern"
)

// Domain selects the registry a format belongs to.
type Domain int

const (
	String Domain = iota
	Numeric
	DateTime
)

func (d Domain) String() string {
	switch d {
	case String:
		return "string"
	case Numeric:
		return "numeric"
	case DateTime:
		return "datetime"
	default:
		return fmt.Sprintf("Domain(%d)", int(d))
	}
}

var (
	// ErrFormatMismatch reports an entry built for a fragment whose "format"
	// value names a different format. It is a configuration error.
	ErrFormatMismatch = errors.New("format: fragment does not declare this format")
	// ErrInvalidFragment reports an unusable sibling keyword value, such as a
	// bound that does not parse in the format's domain.
	ErrInvalidFragment = errors.New("format: invalid fragment")
)

// Context is what the schema compiler exposes to format compile functions.
type Context interface {
	Draft() *draft.Descriptor
	// Pattern compiles a raw pattern string or a pattern literal.
	Pattern(v any) (*regexp.Regexp, error)
}

// Failure describes a rejected value. Keyword is "format" or the bound
// keyword that failed; Value is that keyword's schema value.
type Failure struct {
	Keyword string
	Value   any
	Message string
}

// Predicate checks one value; nil means accepted.
type Predicate func(v any) *Failure

// CompileFunc builds a predicate from the schema fragment declaring the format.
type CompileFunc func(ctx Context, fragment map[string]any) (Predicate, error)

// Entry is one named format.
type Entry struct {
	Name    string
	Domain  Domain
	Compile CompileFunc
}

// Build verifies that fragment declares e.Name and compiles the predicate.
func (e Entry) Build(ctx Context, fragment map[string]any) (Predicate, error) {
	if name, _ := fragment["format"].(string); name != e.Name {
		return nil, fmt.Errorf("%w: entry %q, fragment %v", ErrFormatMismatch, e.Name, fragment["format"])
	}
	return e.Compile(ctx, fragment)
}

// Registry maps names to entries within one domain. Register overwrites.
type Registry struct {
	domain  Domain
	entries map[string]Entry
}

// NewRegistry returns an empty registry for domain d.
func NewRegistry(d Domain) *Registry {
	return &Registry{domain: d, entries: map[string]Entry{}}
}

// Domain reports the domain the registry serves.
func (r *Registry) Domain() Domain { return r.domain }

// Register binds name to fn, replacing any earlier registration.
func (r *Registry) Register(name string, fn CompileFunc) {
	r.entries[name] = Entry{Name: name, Domain: r.domain, Compile: fn}
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) clone() *Registry {
	c := NewRegistry(r.domain)
	for k, v := range r.entries {
		c.entries[k] = v
	}
	return c
}

var builtin = map[Domain]*Registry{
	String:   NewRegistry(String),
	Numeric:  NewRegistry(Numeric),
	DateTime: NewRegistry(DateTime),
}

// Builtin returns a copy of the built-in registry for d.
func Builtin(d Domain) *Registry {
	r, ok := builtin[d]
	if !ok {
		return NewRegistry(d)
	}
	return r.clone()
}

// Set is the union consulted by the compiler: custom registrations first
// (latest wins), then the built-in date/time, numeric and string registries.
// It is safe for concurrent use.
type Set struct {
	mu     sync.RWMutex
	custom []Entry
}

// NewSet returns a set backed by the built-in registries.
func NewSet() *Set { return &Set{} }

// Register adds a custom entry. A later registration for the same name shadows
// earlier ones and the built-ins.
func (s *Set) Register(d Domain, name string, fn CompileFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = append(s.custom, Entry{Name: name, Domain: d, Compile: fn})
}

func (s *Set) Lookup(name string) (Entry, bool) {
	s.mu.RLock()
	for i := len(s.custom) - 1; i >= 0; i-- {
		if s.custom[i].Name == name {
			e := s.custom[i]
			s.mu.RUnlock()
			return e, true
		}
	}
	s.mu.RUnlock()
	for _, d := range []Domain{DateTime, Numeric, String} {
		if e, ok := builtin[d].Lookup(name); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Clone copies the custom registrations into an independent set.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Set{custom: append([]Entry(nil), s.custom...)}
}

func compilePattern(ctx Context, v any) (*regexp.Regexp, error) {
	if ctx != nil {
		return ctx.Pattern(v)
	}
	return pattern.Compile(v)
}

func mismatch(name string) *Failure {
	return &Failure{Keyword: "format", Value: name, Message: fmt.Sprintf("must be a valid %s", name)}
}
