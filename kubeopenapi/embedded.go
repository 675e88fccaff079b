package kubeopenapi

// embeddedFields are the fields every x-kubernetes-embedded-resource value
// must carry.
var embeddedFields = []struct {
	name string
	typ  string
}{
	{"apiVersion", "string"},
	{"kind", "string"},
	{"metadata", "object"},
}

// applyEmbeddedResource requires apiVersion, kind and metadata on a node marked
// x-kubernetes-embedded-resource. Declared properties are kept and get the
// expected type added through allOf.
func applyEmbeddedResource(in, out map[string]any) {
	if b, _ := in["x-kubernetes-embedded-resource"].(bool); !b {
		return
	}
	props, _ := out["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	req, _ := out["required"].([]any)
	req = append([]any(nil), req...)
	for _, f := range embeddedFields {
		typed := map[string]any{"type": f.typ}
		switch p := props[f.name].(type) {
		case nil:
			props[f.name] = typed
		case map[string]any:
			if p["type"] != f.typ {
				all, _ := p["allOf"].([]any)
				p["allOf"] = append(append([]any(nil), all...), typed)
			}
		}
		if !containsString(req, f.name) {
			req = append(req, f.name)
		}
	}
	out["properties"] = props
	out["required"] = req
}

func containsString(list []any, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
