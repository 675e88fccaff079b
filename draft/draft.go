// Package draft is the registry of supported schema dialects. Each draft is
// described by an immutable Descriptor carrying its canonical URI, its
// meta-schema documents and the keyword semantics the compiler must apply.
package draft

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ID is the numeric identifier of a draft.
type ID int

const (
	Draft6    ID = 6
	Draft7    ID = 7
	Draft2019 ID = 2019
	Draft2020 ID = 2020
)

// ErrUnknownDraft is wrapped by every lookup failure.
var ErrUnknownDraft = errors.New("unknown draft")

// Vocabulary lists the keyword semantics that differ between drafts.
type Vocabulary struct {
	// Definitions is the keyword holding reusable subschemas.
	Definitions string
	// ItemsArray allows "items" to be an array of schemas (tuple form).
	ItemsArray bool
	// PrefixItems enables "prefixItems"; "items" then applies after the prefix.
	PrefixItems bool
	// Dependencies enables the combined "dependencies" keyword.
	Dependencies bool
	// DependentKeywords enables "dependentRequired" and "dependentSchemas".
	DependentKeywords bool
	Conditionals      bool
	// Contains enables "minContains" and "maxContains".
	Contains    bool
	Unevaluated bool
	// RefSiblings applies keywords next to "$ref"; older drafts ignore them.
	RefSiblings  bool
	RecursiveRef bool
	DynamicRef   bool
	Anchors      bool
}

// Descriptor describes one draft. Documents[0] is the root meta-schema.
// Descriptors and their documents must be treated as read-only.
type Descriptor struct {
	ID        ID
	Name      string
	URI       string
	Documents []map[string]any
	Vocab     Vocabulary
}

func (d *Descriptor) String() string { return d.Name }

// Schema returns the root meta-schema document.
func (d *Descriptor) Schema() map[string]any { return d.Documents[0] }

//go:embed metaschemas
var metaFS embed.FS

var (
	descriptors = map[ID]*Descriptor{}
	byName      = map[string]*Descriptor{}
)

func init() {
	defs := []struct {
		d     *Descriptor
		files []string
		names []string
	}{
		{
			d: &Descriptor{ID: Draft6, Name: "draft-06", URI: "http://json-schema.org/draft-06/schema#",
				Vocab: Vocabulary{Definitions: "definitions", ItemsArray: true, Dependencies: true}},
			files: []string{"draft-06.json"},
			names: []string{"6", "06", "draft6", "draft-6", "draft06", "draft-06"},
		},
		{
			d: &Descriptor{ID: Draft7, Name: "draft-07", URI: "http://json-schema.org/draft-07/schema#",
				Vocab: Vocabulary{Definitions: "definitions", ItemsArray: true, Dependencies: true, Conditionals: true}},
			files: []string{"draft-07.json"},
			names: []string{"7", "07", "draft7", "draft-7", "draft07", "draft-07"},
		},
		{
			d: &Descriptor{ID: Draft2019, Name: "2019-09", URI: "https://json-schema.org/draft/2019-09/schema",
				Vocab: Vocabulary{Definitions: "$defs", ItemsArray: true, DependentKeywords: true, Conditionals: true,
					Contains: true, Unevaluated: true, RefSiblings: true, RecursiveRef: true, Anchors: true}},
			files: []string{
				"2019-09/schema.json",
				"2019-09/meta/core.json",
				"2019-09/meta/applicator.json",
				"2019-09/meta/validation.json",
				"2019-09/meta/meta-data.json",
				"2019-09/meta/format.json",
				"2019-09/meta/content.json",
			},
			names: []string{"2019", "2019-09", "draft2019", "draft-2019", "draft2019-09", "draft-2019-09"},
		},
		{
			d: &Descriptor{ID: Draft2020, Name: "2020-12", URI: "https://json-schema.org/draft/2020-12/schema",
				Vocab: Vocabulary{Definitions: "$defs", PrefixItems: true, DependentKeywords: true, Conditionals: true,
					Contains: true, Unevaluated: true, RefSiblings: true, DynamicRef: true, Anchors: true}},
			files: []string{
				"2020-12/schema.json",
				"2020-12/meta/core.json",
				"2020-12/meta/applicator.json",
				"2020-12/meta/unevaluated.json",
				"2020-12/meta/validation.json",
				"2020-12/meta/meta-data.json",
				"2020-12/meta/format-annotation.json",
				"2020-12/meta/content.json",
			},
			names: []string{"2020", "2020-12", "draft2020", "draft-2020", "draft2020-12", "draft-2020-12"},
		},
	}
	for _, def := range defs {
		for _, f := range def.files {
			raw, err := metaFS.ReadFile("metaschemas/" + f)
			if err != nil {
				panic(fmt.Sprintf("draft: embedded meta-schema %s: %v", f, err))
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				panic(fmt.Sprintf("draft: decode meta-schema %s: %v", f, err))
			}
			def.d.Documents = append(def.d.Documents, doc)
		}
		descriptors[def.d.ID] = def.d
		for _, n := range def.names {
			byName[n] = def.d
		}
	}
}

// ResolveID returns the descriptor for a numeric draft id.
func ResolveID(id int) (*Descriptor, error) {
	if d, ok := descriptors[ID(id)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: id %d", ErrUnknownDraft, id)
}

// ResolveName returns the descriptor for one of the accepted alias spellings
// ("7", "draft7", "draft-07", "2020-12", ...). Matching ignores case and
// surrounding whitespace.
func ResolveName(s string) (*Descriptor, error) {
	if d, ok := byName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: name %q", ErrUnknownDraft, s)
}

// ResolveURI returns the descriptor whose canonical URI equals s, ignoring case.
func ResolveURI(s string) (*Descriptor, error) {
	for _, d := range All() {
		if strings.EqualFold(d.URI, s) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: uri %q", ErrUnknownDraft, s)
}

// Resolve treats s as a URI when it contains "://" and as an alias otherwise.
func Resolve(s string) (*Descriptor, error) {
	if strings.Contains(s, "://") {
		return ResolveURI(s)
	}
	return ResolveName(s)
}

// All returns every descriptor ordered by id.
func All() []*Descriptor {
	out := make([]*Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup finds a meta-schema document by its "$id" across all drafts. A
// trailing empty fragment is ignored on both sides.
func Lookup(uri string) (map[string]any, *Descriptor, bool) {
	want := strings.TrimSuffix(uri, "#")
	for _, d := range All() {
		for _, doc := range d.Documents {
			id, _ := doc["$id"].(string)
			if strings.TrimSuffix(id, "#") == want {
				return doc, d, true
			}
		}
	}
	return nil, nil, false
}
