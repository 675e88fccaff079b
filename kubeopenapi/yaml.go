package kubeopenapi

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/reoring/jsonskema"
)

// ErrCRDNotFound is returned when a YAML bundle holds no matching
// CustomResourceDefinition.
var ErrCRDNotFound = errors.New("kubeopenapi: CRD not found in YAML bundle")

// ImportYAMLForCRDKind scans a multi-document YAML (e.g., CRD bundle) and imports
// the first CustomResourceDefinition whose spec.names.kind is kind.
func ImportYAMLForCRDKind(data []byte, kind string, opts Options) (map[string]any, Diag, error) {
	crd, err := findCRD(data, opts.StrictYAML, byKind(kind))
	if err != nil {
		return nil, &simpleDiag{}, err
	}
	return Import(crd, opts)
}

// ImportYAMLForCRDName is like ImportYAMLForCRDKind but matches metadata.name.
func ImportYAMLForCRDName(data []byte, name string, opts Options) (map[string]any, Diag, error) {
	crd, err := findCRD(data, opts.StrictYAML, byName(name))
	if err != nil {
		return nil, &simpleDiag{}, err
	}
	return Import(crd, opts)
}

func byKind(kind string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		spec, _ := m["spec"].(map[string]any)
		names, _ := spec["names"].(map[string]any)
		k, _ := names["kind"].(string)
		return k == kind
	}
}

func byName(name string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		meta, _ := m["metadata"].(map[string]any)
		n, _ := meta["name"].(string)
		return n == name
	}
}

// findCRD returns the first CustomResourceDefinition document accepted by match.
func findCRD(data []byte, strict bool, match func(map[string]any) bool) (map[string]any, error) {
	var (
		docs []any
		err  error
	)
	if strict {
		docs, err = NewStrictYAMLReader(bytes.NewReader(data)).ReadAll()
	} else {
		docs, err = jsonskema.DecodeYAMLAll(data)
	}
	if err != nil {
		return nil, fmt.Errorf("kubeopenapi: %w", err)
	}
	for _, d := range docs {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if k, _ := m["kind"].(string); k != "CustomResourceDefinition" {
			continue
		}
		if match(m) {
			return m, nil
		}
	}
	return nil, ErrCRDNotFound
}
