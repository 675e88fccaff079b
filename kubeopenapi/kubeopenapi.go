package kubeopenapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/format"
)

// Import translates a Kubernetes structural schema into a 2020-12 JSON Schema
// document. schema may be the openAPIV3Schema itself or a whole
// CustomResourceDefinition, either decoded or as raw JSON/YAML bytes.
//
// OpenAPI constructs are rewritten: nullable becomes a "null" type member,
// x-kubernetes-int-or-string becomes an anyOf of integer and string, and list
// types become uniqueItems. Formats unknown to jsonskema are dropped with a
// warning.
func Import(schema any, opts Options) (map[string]any, Diag, error) {
	t, d, err := translate(schema, opts, format.NewSet())
	if err != nil {
		return nil, d, err
	}
	return t.doc, d, nil
}

// translation is the translated document plus the constraints JSON Schema
// cannot express.
type translation struct {
	doc   map[string]any
	lists []listMapRule
}

func translate(schema any, opts Options, formats *format.Set) (*translation, *simpleDiag, error) {
	d := &simpleDiag{}
	if opts.Profile == "" {
		opts.Profile = ProfileStructuralV1
	}
	if schema == nil {
		return nil, d, errors.New("kubeopenapi: nil schema")
	}
	var root map[string]any
	switch t := schema.(type) {
	case []byte:
		v, err := jsonskema.DecodeYAML(t)
		if err != nil {
			return nil, d, fmt.Errorf("kubeopenapi: invalid document: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, d, fmt.Errorf("kubeopenapi: document root is %T, not an object", v)
		}
		root = m
	case map[string]any:
		root = t
	default:
		return nil, d, fmt.Errorf("kubeopenapi: unsupported input %T", schema)
	}

	// Accept direct schema (openAPIV3Schema) or unwrap CRD root (spec.versions[].schema.openAPIV3Schema)
	if spec, ok := root["openAPIV3Schema"].(map[string]any); ok {
		root = spec
	} else if unwrapped := unwrapCRDSchema(root, opts.Version, d); unwrapped != nil {
		root = unwrapped
	} else if k, _ := root["kind"].(string); k == "CustomResourceDefinition" {
		return nil, d, errors.New("kubeopenapi: CRD has no openAPIV3Schema")
	}

	warnNonObjectRoot(root, d)
	tr := &translator{opts: opts, d: d, formats: formats}
	preserve := opts.Unknown == UnknownPreserve
	doc := tr.node(root, nil, "", preserve)
	if d2020, err := draft.ResolveID(int(draft.Draft2020)); err == nil {
		doc["$schema"] = d2020.URI
	}
	return &translation{doc: doc, lists: tr.lists}, d, nil
}

// unwrapCRDSchema extracts openAPIV3Schema from a Kubernetes CRD document.
// A named version wins; otherwise the storage version, then the first served
// version, then any version. Legacy spec.validation is the last resort.
func unwrapCRDSchema(root map[string]any, version string, d *simpleDiag) map[string]any {
	spec, ok := root["spec"].(map[string]any)
	if !ok {
		return nil
	}
	vers, _ := spec["versions"].([]any)
	var storage, served, first map[string]any
	for _, v := range vers {
		vm, _ := v.(map[string]any)
		sch, _ := vm["schema"].(map[string]any)
		oas, _ := sch["openAPIV3Schema"].(map[string]any)
		if oas == nil {
			continue
		}
		if version != "" {
			if name, _ := vm["name"].(string); name == version {
				return oas
			}
			continue
		}
		if first == nil {
			first = oas
		}
		if s, _ := vm["storage"].(bool); s && storage == nil {
			storage = oas
		}
		isServed := true
		if sv, ok := vm["served"].(bool); ok {
			isServed = sv
		}
		if isServed && served == nil {
			served = oas
		}
	}
	if version != "" {
		d.warnf("version %q not found in CRD", version)
		return nil
	}
	for _, c := range []map[string]any{storage, served, first} {
		if c != nil {
			return c
		}
	}
	// legacy: spec.validation.openAPIV3Schema
	if val, ok := spec["validation"].(map[string]any); ok {
		if oas, ok := val["openAPIV3Schema"].(map[string]any); ok {
			return oas
		}
	}
	return nil
}

// warnNonObjectRoot warns when the root declares a non-object type.
func warnNonObjectRoot(doc map[string]any, d *simpleDiag) {
	if t, _ := doc["type"].(string); t != "object" && t != "" {
		d.warnf("root declares type %q; Kubernetes objects are always objects", t)
	}
}

type translator struct {
	opts    Options
	d       *simpleDiag
	formats *format.Set
	lists   []listMapRule
	// >0 while translating definitions
	detached int
}

// node translates one schema object. path holds instance segments from the
// root ("*" stands for every element or map value); sptr is the pointer of
// the translated node in the output document.
func (tr *translator) node(in map[string]any, path []string, sptr string, preserve bool) map[string]any {
	out := make(map[string]any, len(in))
	at := "/" + strings.Join(path, "/")
	if b, _ := in["x-kubernetes-preserve-unknown-fields"].(bool); b {
		preserve = true
	}
	for _, k := range sortedKeys(in) {
		v := in[k]
		switch k {
		case "properties", "patternProperties", "$defs", "definitions":
			m, ok := v.(map[string]any)
			if !ok {
				tr.d.warnf("%s at %s is not an object; dropped", k, at)
				continue
			}
			sub := make(map[string]any, len(m))
			if k == "$defs" || k == "definitions" {
				// reached only through $ref, so instance paths are unknown
				tr.detached++
			}
			for _, name := range sortedKeys(m) {
				raw := m[name]
				child, ok := raw.(map[string]any)
				if !ok {
					sub[name] = raw
					continue
				}
				var cpath []string
				switch k {
				case "properties":
					cpath = appendPath(path, name)
				case "patternProperties":
					cpath = appendPath(path, "*")
				}
				sub[name] = tr.node(child, cpath, sptr+"/"+k+"/"+escape(name), false)
			}
			if k == "$defs" || k == "definitions" {
				tr.detached--
			}
			out[k] = sub
		case "items", "additionalProperties", "not":
			switch t := v.(type) {
			case map[string]any:
				cpath := path
				if k != "not" {
					cpath = appendPath(path, "*")
				}
				out[k] = tr.node(t, cpath, sptr+"/"+k, false)
			case []any:
				// tuple form is not structural; keep the first schema for every item
				tr.d.warnf("%s at %s is an array; only the first schema is kept", k, at)
				if len(t) > 0 {
					if m, ok := t[0].(map[string]any); ok {
						out[k] = tr.node(m, appendPath(path, "*"), sptr+"/"+k, false)
					}
				}
			default:
				out[k] = v
			}
		case "allOf", "anyOf", "oneOf":
			arr, ok := v.([]any)
			if !ok {
				tr.d.warnf("%s at %s is not an array; dropped", k, at)
				continue
			}
			sub := make([]any, len(arr))
			for i, raw := range arr {
				if m, ok := raw.(map[string]any); ok {
					sub[i] = tr.node(m, path, fmt.Sprintf("%s/%s/%d", sptr, k, i), preserve)
				} else {
					sub[i] = raw
				}
			}
			out[k] = sub
		case "format":
			name, _ := v.(string)
			if _, ok := tr.formats.Lookup(name); !ok {
				tr.d.warnf("format %q at %s is not supported; ignored", name, at)
				continue
			}
			out[k] = v
		case "$ref":
			if tr.opts.Profile == ProfileStructuralV1 {
				tr.d.warnf("$ref at %s is not allowed in structural schemas", at)
			}
			out[k] = v
		case "x-kubernetes-validations":
			tr.d.warnf("x-kubernetes-validations at %s are CEL rules and are not evaluated", at)
			out[k] = v
		default:
			out[k] = v
		}
	}

	nullable, _ := in["nullable"].(bool)
	delete(out, "nullable")
	if nullable {
		addNull(out)
	}
	if b, _ := in["x-kubernetes-int-or-string"].(bool); b {
		intOrString(out)
	}
	tr.checkType(in, at)
	if tr.opts.EnableEmbeddedChecks {
		applyEmbeddedResource(in, out)
	}
	tr.applyListType(in, out, path, sptr)

	if _, declared := in["properties"]; declared && !preserve && tr.opts.Unknown == UnknownStrict {
		if _, ok := out["additionalProperties"]; !ok {
			out["additionalProperties"] = false
		}
	}
	return out
}

// checkType reports nodes a structural schema would reject for lacking a type.
func (tr *translator) checkType(in map[string]any, at string) {
	if tr.opts.Profile != ProfileStructuralV1 {
		return
	}
	if _, ok := in["type"]; ok {
		return
	}
	for _, k := range []string{"x-kubernetes-int-or-string", "x-kubernetes-preserve-unknown-fields", "$ref", "allOf", "anyOf", "oneOf", "not"} {
		if _, ok := in[k]; ok {
			return
		}
	}
	tr.d.warnf("schema at %s has no type", at)
}

// addNull adds "null" to the declared type and enum so that nullable values
// pass. Without a type every value, null included, is already accepted.
func addNull(out map[string]any) {
	switch t := out["type"].(type) {
	case string:
		if t != "null" {
			out["type"] = []any{t, "null"}
		}
	case []any:
		for _, x := range t {
			if x == "null" {
				return
			}
		}
		out["type"] = append(append([]any(nil), t...), "null")
	}
	if enum, ok := out["enum"].([]any); ok {
		out["enum"] = append(append([]any(nil), enum...), nil)
	}
}

// intOrString accepts integers and strings. An existing anyOf, as Kubernetes
// itself generates for IntOrString, is kept and the union is added via allOf.
func intOrString(out map[string]any) {
	union := []any{
		map[string]any{"type": "integer"},
		map[string]any{"type": "string"},
	}
	if _, ok := out["anyOf"]; !ok {
		out["anyOf"] = union
		return
	}
	all, _ := out["allOf"].([]any)
	out["allOf"] = append(append([]any(nil), all...), map[string]any{"anyOf": union})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escape(s string) string { return pointerEscaper.Replace(s) }
