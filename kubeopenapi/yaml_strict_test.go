package kubeopenapi

import (
	"bytes"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
)

func TestStrictYAMLReader_DuplicateKey_Root(t *testing.T) {
	y := []byte("kind: A\nkind: B\n")
	r := NewStrictYAMLReader(bytes.NewReader(y))
	_, err := r.Next()
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
	var de *DuplicateKeyError
	if !errors.As(err, &de) {
		t.Fatalf("expected DuplicateKeyError, got %T %v", err, err)
	}
	if de.Key != "kind" || de.Path != "/" {
		t.Fatalf("expected kind at /, got %q at %q", de.Key, de.Path)
	}
	if de.FirstLine != 1 || de.Line != 2 {
		t.Fatalf("unexpected lines first=%d dup=%d", de.FirstLine, de.Line)
	}
}

func TestStrictYAMLReader_DuplicateKey_Nested(t *testing.T) {
	y := []byte("spec:\n  items:\n    - name: a\n      name: b\n")
	r := NewStrictYAMLReader(bytes.NewReader(y))
	_, err := r.Next()
	var de *DuplicateKeyError
	if !errors.As(err, &de) {
		t.Fatalf("expected DuplicateKeyError, got %T %v", err, err)
	}
	if de.Key != "name" || de.Path != "/spec/items/0" {
		t.Fatalf("expected name at /spec/items/0, got %q at %q", de.Key, de.Path)
	}
}

func TestStrictYAMLReader_ReadAll_MultiDoc(t *testing.T) {
	y := []byte("kind: A\n---\nkind: B\n")
	r := NewStrictYAMLReader(bytes.NewReader(y))
	docs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
}

func TestStrictYAMLReader_Scalars(t *testing.T) {
	y := []byte("i: 42\nbig: 123456789012345678901234567890\nf: 1.5\nb: true\nn: ~\ns: \"7\"\nref: &x {a: 1}\nalias: *x\n")
	v, err := NewStrictYAMLReader(bytes.NewReader(y)).Next()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	m := v.(map[string]any)
	if m["i"] != int64(42) || m["f"] != 1.5 || m["b"] != true || m["n"] != nil || m["s"] != "7" {
		t.Fatalf("unexpected scalars %#v", m)
	}
	if b, ok := m["big"].(json.Number); !ok || b != "123456789012345678901234567890" {
		t.Fatalf("expected exact json.Number, got %#v", m["big"])
	}
	if a, ok := m["alias"].(map[string]any); !ok || a["a"] != int64(1) {
		t.Fatalf("alias not resolved: %#v", m["alias"])
	}
}

func TestFindCRD_StrictRejectsDuplicates(t *testing.T) {
	y := []byte("kind: CustomResourceDefinition\nmetadata:\n  name: a\n  name: b\n")
	if _, err := findCRD(y, true, byName("a")); err == nil {
		t.Fatalf("strict mode must reject duplicate keys")
	}
	var de *DuplicateKeyError
	_, err := findCRD(y, true, byName("a"))
	if !errors.As(err, &de) {
		t.Fatalf("expected DuplicateKeyError, got %T", err)
	}
}
