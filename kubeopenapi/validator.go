package kubeopenapi

import (
	"github.com/reoring/jsonskema"
)

// Validator checks custom resources against an imported schema. It adds the
// list-map key checks of x-kubernetes-list-type=map to the compiled schema.
type Validator struct {
	v     *jsonskema.Validator
	lists []listMapRule
}

// Compile imports schema like Import and compiles the result with c. A nil c
// uses a fresh jsonskema.New(); formats registered on c are honored by the
// import.
func Compile(schema any, opts Options, c *jsonskema.Compiler) (*Validator, Diag, error) {
	if c == nil {
		c = jsonskema.New()
	}
	t, d, err := translate(schema, opts, c.Formats())
	if err != nil {
		return nil, d, err
	}
	v, err := c.Compile(t.doc)
	if err != nil {
		return nil, d, err
	}
	return &Validator{v: v, lists: t.lists}, d, nil
}

// CompileCRD compiles the CustomResourceDefinition of the given kind found in
// a YAML bundle.
func CompileCRD(data []byte, kind string, opts Options, c *jsonskema.Compiler) (*Validator, Diag, error) {
	crd, err := findCRD(data, opts.StrictYAML, byKind(kind))
	if err != nil {
		return nil, &simpleDiag{}, err
	}
	return Compile(crd, opts, c)
}

// Evaluate returns the schema issues followed by the list-map issues; nil
// means valid.
func (v *Validator) Evaluate(inst any) jsonskema.Issues {
	iss := v.v.Evaluate(inst)
	for _, r := range v.lists {
		if more := r.check(inst, v.v.Location()); len(more) > 0 {
			iss = jsonskema.AppendIssues(iss, more...)
		}
	}
	return iss
}

// Check is Evaluate returning an error.
func (v *Validator) Check(inst any) error {
	if iss := v.Evaluate(inst); len(iss) > 0 {
		return iss
	}
	return nil
}

// Schema returns the compiled JSON Schema validator without the list-map checks.
func (v *Validator) Schema() *jsonskema.Validator { return v.v }
