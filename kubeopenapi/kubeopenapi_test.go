package kubeopenapi_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/format"
	"github.com/reoring/jsonskema/kubeopenapi"
)

func mustCompile(t *testing.T, schema map[string]any, opts kubeopenapi.Options) (*kubeopenapi.Validator, kubeopenapi.Diag) {
	t.Helper()
	v, d, err := kubeopenapi.Compile(schema, opts, nil)
	if err != nil {
		t.Fatalf("compile err: %v", err)
	}
	return v, d
}

func hasWarning(d kubeopenapi.Diag, sub string) bool {
	for _, w := range d.Warnings() {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}

func TestImport_Nullable_And_IntOrString(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"owner": map[string]any{"type": "string", "nullable": true, "enum": []any{"a", "b"}},
			"port":  map[string]any{"x-kubernetes-int-or-string": true},
		},
	}
	doc, _, err := kubeopenapi.Import(schema, kubeopenapi.Options{})
	if err != nil {
		t.Fatalf("import err: %v", err)
	}
	if doc["$schema"] != "https://json-schema.org/draft/2020-12/schema" {
		t.Fatalf("unexpected $schema %v", doc["$schema"])
	}
	owner := doc["properties"].(map[string]any)["owner"].(map[string]any)
	if _, ok := owner["nullable"]; ok {
		t.Fatalf("nullable must be rewritten: %#v", owner)
	}

	v, _ := mustCompile(t, schema, kubeopenapi.Options{})
	for _, ok := range []string{`{"owner":null}`, `{"owner":"a"}`, `{"port":8080}`, `{"port":"http"}`} {
		inst, _ := jsonskema.DecodeJSON([]byte(ok))
		if iss := v.Evaluate(inst); iss != nil {
			t.Fatalf("%s should pass: %v", ok, iss)
		}
	}
	inst, _ := jsonskema.DecodeJSON([]byte(`{"port":true}`))
	iss := v.Evaluate(inst)
	if len(iss) == 0 || iss[0].Code != jsonskema.CodeNoMatch || iss[0].Path != "/port" {
		t.Fatalf("expected no_match at /port, got %v", iss)
	}
}

func TestImport_ListType_Set_Duplicate_Detected(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":                   "array",
				"items":                  map[string]any{"type": "string"},
				"x-kubernetes-list-type": "set",
			},
		},
	}
	v, _ := mustCompile(t, schema, kubeopenapi.Options{})
	iss := v.Evaluate(map[string]any{"tags": []any{"a", "a"}})
	if len(iss) != 1 || iss[0].Code != jsonskema.CodeUniqueness || iss[0].Path != "/tags" {
		t.Fatalf("expected uniqueness at /tags, got %v", iss)
	}
}

func TestImport_ListType_Map_Duplicate_ByKeys(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selectors": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"name": map[string]any{"type": "string"}, "ns": map[string]any{"type": "string"}},
				},
				"x-kubernetes-list-type":     "map",
				"x-kubernetes-list-map-keys": []any{"name", "ns"},
			},
		},
	}
	v, _ := mustCompile(t, schema, kubeopenapi.Options{})

	ok, _ := jsonskema.DecodeJSON([]byte(`{"selectors":[{"name":"a","ns":"n1"},{"name":"a","ns":"n2"}]}`))
	if iss := v.Evaluate(ok); iss != nil {
		t.Fatalf("distinct keys should pass: %v", iss)
	}

	dup, _ := jsonskema.DecodeJSON([]byte(`{"selectors":[{"name":"a","ns":"n1"},{"name":"b","ns":"n1"},{"name":"a","ns":"n1"}]}`))
	iss := v.Evaluate(dup)
	if len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", iss)
	}
	if iss[0].Code != kubeopenapi.CodeDuplicateItem || iss[0].Path != "/selectors/2" {
		t.Fatalf("unexpected issue %+v", iss[0])
	}
	if iss[0].Params["first"] != "/selectors/0" {
		t.Fatalf("expected first=/selectors/0, got %v", iss[0].Params["first"])
	}
	if !strings.HasSuffix(iss[0].SchemaPath, "#/properties/selectors/x-kubernetes-list-map-keys") {
		t.Fatalf("unexpected schema path %q", iss[0].SchemaPath)
	}

	missing, _ := jsonskema.DecodeJSON([]byte(`{"selectors":[{"name":"a"}]}`))
	iss = v.Evaluate(missing)
	if len(iss) != 1 || iss[0].Code != jsonskema.CodeRequired || iss[0].Path != "/selectors/0/ns" {
		t.Fatalf("expected required at /selectors/0/ns, got %v", iss)
	}
}

func TestImport_ListType_Map_KeyTypesDistinct(t *testing.T) {
	schema := map[string]any{
		"type":                       "array",
		"x-kubernetes-list-type":     "map",
		"x-kubernetes-list-map-keys": []any{"id"},
	}
	v, _ := mustCompile(t, schema, kubeopenapi.Options{Profile: kubeopenapi.ProfileLoose})
	if iss := v.Evaluate([]any{map[string]any{"id": 1.0}, map[string]any{"id": "1"}}); iss != nil {
		t.Fatalf("1 and \"1\" are distinct keys: %v", iss)
	}
}

func TestImport_UnknownFormat_Dropped(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string", "format": "k8s-short-name"},
		},
	}
	v, d := mustCompile(t, schema, kubeopenapi.Options{})
	if !hasWarning(d, `format "k8s-short-name" at /a`) {
		t.Fatalf("expected format warning, got %v", d.Warnings())
	}
	if iss := v.Evaluate(map[string]any{"a": "anything"}); iss != nil {
		t.Fatalf("dropped format must not assert: %v", iss)
	}

	// a format registered on the compiler is kept
	c := jsonskema.New()
	c.RegisterFormat(format.String, "k8s-short-name", func(_ format.Context, _ map[string]any) (format.Predicate, error) {
		return func(v any) *format.Failure {
			if s, _ := v.(string); len(s) > 3 {
				return &format.Failure{}
			}
			return nil
		}, nil
	})
	v2, d2, err := kubeopenapi.Compile(schema, kubeopenapi.Options{}, c)
	if err != nil {
		t.Fatalf("compile err: %v", err)
	}
	if d2.HasWarnings() {
		t.Fatalf("unexpected warnings %v", d2.Warnings())
	}
	iss := v2.Evaluate(map[string]any{"a": "anything"})
	if len(iss) != 1 || iss[0].Code != jsonskema.CodeInvalidFormat {
		t.Fatalf("expected invalid_format, got %v", iss)
	}
}

func TestImport_UnknownStrict_And_Preserve(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string"},
			"free": map[string]any{
				"type":                                 "object",
				"x-kubernetes-preserve-unknown-fields": true,
				"properties":                           map[string]any{"x": map[string]any{"type": "integer"}},
			},
		},
	}
	inst := map[string]any{"a": "x", "b": 1.0, "free": map[string]any{"y": true}}

	v, _ := mustCompile(t, schema, kubeopenapi.Options{})
	if iss := v.Evaluate(inst); iss != nil {
		t.Fatalf("prune accepts unknown fields: %v", iss)
	}

	v, _ = mustCompile(t, schema, kubeopenapi.Options{Unknown: kubeopenapi.UnknownStrict})
	iss := v.Evaluate(inst)
	if len(iss) != 1 || iss[0].Code != jsonskema.CodeUnknownKey || iss[0].Path != "/b" {
		t.Fatalf("expected unknown_key at /b only, got %v", iss)
	}
}

func TestImport_EmbeddedResource(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":                                 "object",
				"x-kubernetes-embedded-resource":       true,
				"x-kubernetes-preserve-unknown-fields": true,
			},
		},
	}
	v, _ := mustCompile(t, schema, kubeopenapi.Options{EnableEmbeddedChecks: true})
	iss := v.Evaluate(map[string]any{"template": map[string]any{"apiVersion": "v1", "kind": 5.0}})
	if len(iss) == 0 {
		t.Fatalf("expected issues")
	}
	got := map[string]string{}
	for _, it := range iss {
		got[it.Path] = it.Code
	}
	if got["/template/metadata"] != jsonskema.CodeRequired {
		t.Fatalf("expected required metadata, got %v", iss)
	}

	ok := map[string]any{"template": map[string]any{"apiVersion": "v1", "kind": "Pod", "metadata": map[string]any{}}}
	if iss := v.Evaluate(ok); iss != nil {
		t.Fatalf("complete embedded resource should pass: %v", iss)
	}

	// checks are opt-in
	v, _ = mustCompile(t, schema, kubeopenapi.Options{})
	if iss := v.Evaluate(map[string]any{"template": map[string]any{}}); iss != nil {
		t.Fatalf("embedded checks are disabled by default: %v", iss)
	}
}

func TestImport_StructuralWarnings(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"untyped": map[string]any{"description": "no type"},
			"ref":     map[string]any{"$ref": "#/$defs/x"},
			"list":    map[string]any{"type": "array", "x-kubernetes-list-type": "bag"},
		},
		"$defs": map[string]any{"x": map[string]any{"type": "string"}},
	}
	_, d, err := kubeopenapi.Import(schema, kubeopenapi.Options{})
	if err != nil {
		t.Fatalf("import err: %v", err)
	}
	for _, w := range []string{"schema at /untyped has no type", "$ref at /ref", `unknown x-kubernetes-list-type "bag"`} {
		if !hasWarning(d, w) {
			t.Fatalf("missing warning %q in %v", w, d.Warnings())
		}
	}

	_, d, _ = kubeopenapi.Import(schema, kubeopenapi.Options{Profile: kubeopenapi.ProfileLoose})
	if hasWarning(d, "has no type") || hasWarning(d, "$ref") {
		t.Fatalf("loose profile should not report structural issues: %v", d.Warnings())
	}
}

func TestImport_Errors(t *testing.T) {
	if _, _, err := kubeopenapi.Import(nil, kubeopenapi.Options{}); err == nil {
		t.Fatalf("nil schema must fail")
	}
	if _, _, err := kubeopenapi.Import(42, kubeopenapi.Options{}); err == nil {
		t.Fatalf("unsupported input must fail")
	}
	if _, _, err := kubeopenapi.Import([]byte("- a\n- b\n"), kubeopenapi.Options{}); err == nil {
		t.Fatalf("array root must fail")
	}
	crd := map[string]any{"kind": "CustomResourceDefinition", "spec": map[string]any{}}
	if _, _, err := kubeopenapi.Import(crd, kubeopenapi.Options{}); err == nil {
		t.Fatalf("CRD without schema must fail")
	}
}

func TestCompileCRD_FromBundle(t *testing.T) {
	b, err := os.ReadFile("testdata/bundle.yaml")
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	v, _, err := kubeopenapi.CompileCRD(b, "Widget", kubeopenapi.Options{EnableEmbeddedChecks: true}, nil)
	if err != nil {
		t.Fatalf("compile err: %v", err)
	}
	good, _ := jsonskema.DecodeYAML([]byte(`
apiVersion: example.com/v1
kind: Widget
metadata: {name: w}
spec:
  replicas: 2
  port: http
  owner: null
  tags: [a, b]
  ports:
    - {containerPort: 80, protocol: TCP}
    - {containerPort: 80, protocol: UDP}
  template: {apiVersion: v1, kind: Pod, metadata: {}}
`))
	if iss := v.Evaluate(good); iss != nil {
		t.Fatalf("good widget should pass: %v", iss)
	}

	bad, _ := jsonskema.DecodeYAML([]byte(`
spec:
  replicas: -1
  ports:
    - {containerPort: 80, protocol: TCP}
    - {containerPort: 80, protocol: TCP}
`))
	iss := v.Evaluate(bad)
	want := map[string]string{"/spec/replicas": jsonskema.CodeTooSmall, "/spec/ports/1": kubeopenapi.CodeDuplicateItem}
	for path, code := range want {
		found := false
		for _, it := range iss {
			if it.Path == path && it.Code == code {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s at %s, got %v", code, path, iss)
		}
	}

	// the storage version wins; v1alpha1 has no replicas requirement
	old, _, err := kubeopenapi.CompileCRD(b, "Widget", kubeopenapi.Options{Version: "v1alpha1"}, nil)
	if err != nil {
		t.Fatalf("compile v1alpha1: %v", err)
	}
	if iss := old.Evaluate(map[string]any{"spec": map[string]any{"size": "xl"}}); iss != nil {
		t.Fatalf("v1alpha1 should accept: %v", iss)
	}
}

func TestCompileCRD_NestedListMap(t *testing.T) {
	b, err := os.ReadFile("testdata/bundle.yaml")
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	v, d, err := kubeopenapi.CompileCRD(b, "Gadget", kubeopenapi.Options{}, nil)
	if err != nil {
		t.Fatalf("compile err: %v", err)
	}
	if !hasWarning(d, "x-kubernetes-validations at /spec/groups/*/rules/*") {
		t.Fatalf("expected CEL warning, got %v", d.Warnings())
	}
	inst, _ := jsonskema.DecodeJSON([]byte(`{"spec":{"groups":[
		{"name":"a","rules":[{"alert":"x"},{"alert":"y"}]},
		{"name":"b","rules":[{"alert":"x"},{"alert":"x"}]}
	]}}`))
	iss := v.Evaluate(inst)
	if len(iss) != 1 || iss[0].Path != "/spec/groups/1/rules/1" || iss[0].Params["first"] != "/spec/groups/1/rules/0" {
		t.Fatalf("expected duplicate at /spec/groups/1/rules/1, got %v", iss)
	}
	if err := v.Check(inst); err == nil {
		t.Fatalf("Check must fail")
	} else if _, ok := jsonskema.AsIssues(err); !ok {
		t.Fatalf("Check must return Issues, got %T", err)
	}
	if v.Schema().Evaluate(inst) != nil {
		t.Fatalf("list-map checks are not part of the compiled schema")
	}
}

func TestImportYAML_ByKindAndName(t *testing.T) {
	b, err := os.ReadFile("testdata/bundle.yaml")
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	doc, _, err := kubeopenapi.ImportYAMLForCRDName(b, "gadgets.example.com", kubeopenapi.Options{})
	if err != nil {
		t.Fatalf("import by name: %v", err)
	}
	if _, ok := doc["properties"].(map[string]any)["spec"]; !ok {
		t.Fatalf("unexpected document %#v", doc)
	}
	if _, _, err := kubeopenapi.ImportYAMLForCRDKind(b, "Missing", kubeopenapi.Options{}); !errors.Is(err, kubeopenapi.ErrCRDNotFound) {
		t.Fatalf("expected ErrCRDNotFound, got %v", err)
	}
	if _, _, err := kubeopenapi.ImportYAMLForCRDName(b, "widgets.example.com", kubeopenapi.Options{StrictYAML: true}); err != nil {
		t.Fatalf("strict import: %v", err)
	}
}
