package kubeopenapi

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/i18n"
)

// CodeDuplicateItem reports two list-map entries with equal keys.
const CodeDuplicateItem = "duplicate_item"

// listMapRule is an x-kubernetes-list-type=map constraint. JSON Schema has no
// keyword for uniqueness by a subset of fields, so it is checked after the
// compiled schema.
type listMapRule struct {
	path       []string // instance segments; "*" matches every element or value
	keys       []string
	schemaPath string // pointer of the list schema in the translated document
}

// applyListType maps x-kubernetes-list-type onto the translated node.
func (tr *translator) applyListType(in, out map[string]any, path []string, sptr string) {
	raw, ok := in["x-kubernetes-list-type"]
	if !ok {
		return
	}
	lt, _ := raw.(string)
	at := "/" + strings.Join(path, "/")
	switch lt {
	case "atomic":
	case "set":
		out["uniqueItems"] = true
	case "map":
		keys := listMapKeys(in["x-kubernetes-list-map-keys"])
		if len(keys) == 0 {
			tr.d.warnf("list-type map at %s has no x-kubernetes-list-map-keys", at)
			return
		}
		if tr.detached > 0 {
			tr.d.warnf("list-type map at %s inside definitions is not enforced", at)
			return
		}
		tr.lists = append(tr.lists, listMapRule{path: path, keys: keys, schemaPath: sptr})
	default:
		tr.d.warnf("unknown x-kubernetes-list-type %q at %s", lt, at)
	}
}

func listMapKeys(v any) []string {
	arr, _ := v.([]any)
	keys := make([]string, 0, len(arr))
	for _, k := range arr {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys
}

// check reports list entries that are missing a key or repeat the keys of an
// earlier entry.
func (r listMapRule) check(inst any, loc string) jsonskema.Issues {
	var iss jsonskema.Issues
	r.walk(inst, 0, "", func(ptr string, list []any) {
		seen := make(map[string]int, len(list))
		for i, el := range list {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			at := ptr + "/" + strconv.Itoa(i)
			comp, missing := r.compositeKey(m)
			for _, k := range missing {
				params := map[string]any{"property": k}
				iss = jsonskema.AppendIssues(iss, r.issue(loc, at+"/"+escape(k), jsonskema.CodeRequired, params))
			}
			if missing != nil {
				continue
			}
			if j, dup := seen[comp]; dup {
				params := map[string]any{"first": ptr + "/" + strconv.Itoa(j), "keys": r.keys}
				iss = jsonskema.AppendIssues(iss, r.issue(loc, at, CodeDuplicateItem, params))
				continue
			}
			seen[comp] = i
		}
	})
	return iss
}

// walk visits every list the rule's path reaches inside inst.
func (r listMapRule) walk(v any, depth int, ptr string, visit func(string, []any)) {
	if depth == len(r.path) {
		if list, ok := v.([]any); ok {
			visit(ptr, list)
		}
		return
	}
	seg := r.path[depth]
	switch t := v.(type) {
	case map[string]any:
		if seg != "*" {
			if child, ok := t[seg]; ok {
				r.walk(child, depth+1, ptr+"/"+escape(seg), visit)
			}
			return
		}
		for _, k := range sortedKeys(t) {
			r.walk(t[k], depth+1, ptr+"/"+escape(k), visit)
		}
	case []any:
		if seg != "*" {
			return
		}
		for i, el := range t {
			r.walk(el, depth+1, ptr+"/"+strconv.Itoa(i), visit)
		}
	}
}

// compositeKey renders the key values of m. Values are JSON encoded so that 1
// and "1" stay distinct.
func (r listMapRule) compositeKey(m map[string]any) (string, []string) {
	var missing []string
	vals := make([]any, 0, len(r.keys))
	for _, k := range r.keys {
		v, exists := m[k]
		if !exists {
			missing = append(missing, k)
			continue
		}
		vals = append(vals, v)
	}
	if missing != nil {
		return "", missing
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return fmt.Sprint(vals), nil
	}
	return string(b), nil
}

func (r listMapRule) issue(loc, ptr, code string, params map[string]any) jsonskema.Issue {
	if ptr == "" {
		ptr = "/"
	}
	data := make(map[string]string, len(params))
	for k, v := range params {
		data[k] = fmt.Sprint(v)
	}
	return jsonskema.Issue{
		Keyword:    "x-kubernetes-list-map-keys",
		Value:      r.keys,
		Path:       ptr,
		SchemaPath: loc + "#" + r.schemaPath + "/x-kubernetes-list-map-keys",
		Code:       code,
		Message:    i18n.T(code, data),
		Params:     params,
	}
}
