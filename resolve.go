package jsonskema

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonpointer"

	"github.com/reoring/jsonskema/draft"
)

const (
	memBase = "mem://jsonskema/"
	// base URI of documents compiled without an "$id"
	memRoot = "mem://jsonskema/root.json"
)

// resource is a schema document or a subschema that declares its own "$id".
type resource struct {
	uri   string
	doc   any
	draft *draft.Descriptor
	// "$dynamicAnchor" name -> canonical location
	dynamicAnchors  map[string]string
	recursiveAnchor bool
}

// schemaInfo is one indexed subschema, addressed canonically as
// res.uri + "#" + ptr.
type schemaInfo struct {
	value any
	res   *resource
	ptr   string
}

func (s *schemaInfo) loc() string { return s.res.uri + "#" + s.ptr }

// index maps every addressing form of every subschema (a JSON pointer from
// each enclosing resource, plus anchors) to its canonical location.
type index struct {
	resources map[string]*resource
	schemas   map[string]*schemaInfo
	aliases   map[string]string
}

func newIndex() *index {
	return &index{
		resources: map[string]*resource{},
		schemas:   map[string]*schemaInfo{},
		aliases:   map[string]string{},
	}
}

// span is a position inside one enclosing resource.
type span struct{ uri, ptr string }

// add indexes doc as a resource retrievable under uri.
func (ix *index) add(doc any, uri string, d *draft.Descriptor) error {
	if _, ok := ix.resources[uri]; ok {
		return nil
	}
	ix.resources[uri] = &resource{uri: uri, doc: doc, draft: d, dynamicAnchors: map[string]string{}}
	return ix.walk(doc, []span{{uri: uri}}, d, true)
}

var (
	singleSchemaKeywords = []string{
		"additionalItems", "unevaluatedItems", "contains", "additionalProperties",
		"unevaluatedProperties", "propertyNames", "not", "if", "then", "else", "contentSchema",
	}
	arraySchemaKeywords = []string{"allOf", "anyOf", "oneOf", "prefixItems"}
	mapSchemaKeywords   = []string{
		"properties", "patternProperties", "$defs", "definitions", "dependentSchemas", "dependencies",
	}
)

func (ix *index) walk(v any, spans []span, d *draft.Descriptor, docRoot bool) error {
	m, isObj := v.(map[string]any)
	if isObj {
		if raw, ok := m["$schema"]; ok && (docRoot || declaresID(m)) {
			s, _ := raw.(string)
			nd, err := draftForURI(s)
			if err != nil {
				return &CompileError{Keyword: "$schema", SchemaPath: spanLoc(spans), Err: err}
			}
			d = nd
			if docRoot {
				ix.resources[spans[0].uri].draft = d
			}
		}
	}
	var fragAnchor string
	if isObj {
		if id, ok := baseID(m, d); ok {
			cur := spans[len(spans)-1]
			abs, err := resolveURI(cur.uri, id)
			if err != nil {
				return &CompileError{Keyword: "$id", SchemaPath: spanLoc(spans), Err: err}
			}
			uri, frag := splitFragment(abs)
			if uri != cur.uri || cur.ptr != "" {
				spans = append(spans, span{uri: uri})
				if _, exists := ix.resources[uri]; !exists {
					ix.resources[uri] = &resource{uri: uri, doc: v, draft: d, dynamicAnchors: map[string]string{}}
				}
			}
			if !d.Vocab.Anchors && frag != "" && !strings.HasPrefix(frag, "/") {
				fragAnchor = frag
			}
		} else if id, ok := m["$id"].(string); ok && !d.Vocab.Anchors && strings.HasPrefix(id, "#") && len(id) > 1 && !refHidesSiblings(m, d) {
			// draft 6/7 plain-name fragment
			fragAnchor = id[1:]
		}
	}

	last := spans[len(spans)-1]
	res := ix.resources[last.uri]
	canon := last.uri + "#" + last.ptr
	if _, ok := ix.schemas[canon]; !ok {
		ix.schemas[canon] = &schemaInfo{value: v, res: res, ptr: last.ptr}
	}
	for _, s := range spans {
		ix.aliases[s.uri+"#"+s.ptr] = canon
	}
	if !isObj {
		return nil
	}

	if fragAnchor != "" {
		ix.aliases[last.uri+"#"+fragAnchor] = canon
	}
	if d.Vocab.Anchors {
		if a, ok := m["$anchor"].(string); ok {
			ix.aliases[last.uri+"#"+a] = canon
		}
	}
	if d.Vocab.DynamicRef {
		if a, ok := m["$dynamicAnchor"].(string); ok {
			ix.aliases[last.uri+"#"+a] = canon
			res.dynamicAnchors[a] = canon
		}
	}
	if d.Vocab.RecursiveRef && last.ptr == "" {
		if b, _ := m["$recursiveAnchor"].(bool); b {
			res.recursiveAnchor = true
		}
	}

	child := func(val any, toks ...string) error {
		next := make([]span, len(spans))
		for i, s := range spans {
			p := s.ptr
			for _, t := range toks {
				p += "/" + escapeToken(t)
			}
			next[i] = span{uri: s.uri, ptr: p}
		}
		return ix.walk(val, next, d, false)
	}
	for _, kw := range singleSchemaKeywords {
		if val, ok := m[kw]; ok {
			if err := child(val, kw); err != nil {
				return err
			}
		}
	}
	if val, ok := m["items"]; ok {
		if arr, isArr := val.([]any); isArr {
			for i, x := range arr {
				if err := child(x, "items", strconv.Itoa(i)); err != nil {
					return err
				}
			}
		} else if err := child(val, "items"); err != nil {
			return err
		}
	}
	for _, kw := range arraySchemaKeywords {
		arr, _ := m[kw].([]any)
		for i, x := range arr {
			if err := child(x, kw, strconv.Itoa(i)); err != nil {
				return err
			}
		}
	}
	for _, kw := range mapSchemaKeywords {
		mm, _ := m[kw].(map[string]any)
		for _, k := range sortedKeys(mm) {
			switch mm[k].(type) {
			case map[string]any, bool:
				if err := child(mm[k], kw, k); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// baseID returns an "$id" that may change the base URI. Fragment-only ids are
// anchors, not resources. In drafts before 2019-09 an "$id" next to "$ref" is
// ignored.
func baseID(m map[string]any, d *draft.Descriptor) (string, bool) {
	id, ok := m["$id"].(string)
	if !ok || refHidesSiblings(m, d) {
		return "", false
	}
	if base, _ := splitFragment(id); base == "" {
		return "", false
	}
	return id, true
}

func declaresID(m map[string]any) bool {
	id, ok := m["$id"].(string)
	if !ok {
		return false
	}
	base, _ := splitFragment(id)
	return base != ""
}

func refHidesSiblings(m map[string]any, d *draft.Descriptor) bool {
	if d.Vocab.RefSiblings {
		return false
	}
	_, ok := m["$ref"]
	return ok
}

func spanLoc(spans []span) string {
	s := spans[len(spans)-1]
	return s.uri + "#" + s.ptr
}

// resolveURI resolves ref against base (RFC 3986).
func resolveURI(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolvedRef, ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base %q: %v", ErrUnresolvedRef, base, err)
	}
	return b.ResolveReference(r).String(), nil
}

func splitFragment(s string) (string, string) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// draftForURI resolves a "$schema" value, tolerating a missing or extra
// empty fragment.
func draftForURI(s string) (*draft.Descriptor, error) {
	d, err := draft.ResolveURI(s)
	if err == nil {
		return d, nil
	}
	if alt, e := draft.ResolveURI(s + "#"); e == nil {
		return alt, nil
	}
	if alt, e := draft.ResolveURI(strings.TrimSuffix(s, "#")); e == nil {
		return alt, nil
	}
	return nil, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// load makes the resource uri available to this compilation: first from the
// documents already indexed, then from registered documents, then from the
// draft meta-schemas.
func (cc *compileCtx) load(uri string) error {
	if _, ok := cc.ix.resources[uri]; ok {
		return nil
	}
	if doc, root, ok := cc.c.registered(uri); ok {
		d, err := cc.c.documentDraft(doc)
		if err != nil {
			return &CompileError{Keyword: "$schema", SchemaPath: root, Err: err}
		}
		if err := cc.ix.add(doc, root, d); err != nil {
			return err
		}
		if _, ok := cc.ix.resources[uri]; ok {
			return nil
		}
	}
	if doc, d, ok := draft.Lookup(uri); ok {
		return cc.ix.add(doc, uri, d)
	}
	return fmt.Errorf("%w: no document for %q", ErrUnresolvedRef, uri)
}

// resolve maps an absolute reference to the canonical location of its target.
// Pointers into places the index did not visit (unknown keywords) are
// evaluated against the resource document and indexed on demand.
func (cc *compileCtx) resolve(abs string) (string, error) {
	uri, frag := splitFragment(abs)
	if err := cc.load(uri); err != nil {
		return "", err
	}
	if f, err := url.PathUnescape(frag); err == nil {
		frag = f
	}
	key := uri + "#" + frag
	if canon, ok := cc.ix.aliases[key]; ok {
		return canon, nil
	}
	if frag != "" && frag[0] != '/' {
		return "", fmt.Errorf("%w: anchor %q not found in %s", ErrUnresolvedRef, frag, uri)
	}
	res := cc.ix.resources[uri]
	p, err := gojsonpointer.NewJsonPointer(frag)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolvedRef, abs, err)
	}
	val, _, err := p.Get(res.doc)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolvedRef, abs, err)
	}
	if err := cc.ix.walk(val, []span{{uri: uri, ptr: frag}}, res.draft, false); err != nil {
		return "", err
	}
	cc.c.cfg.logger.Debug("resolved pointer outside indexed schemas", "ref", abs)
	return cc.ix.aliases[key], nil
}
