package jsonskema

import (
	"fmt"

	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/i18n"
)

// program is the immutable result of one compilation, shared by every
// Validator cloned from it.
type program struct {
	nodes     []*node
	root      int
	allErrors bool
	maxDepth  int
	// collect evaluated properties/items; only needed for unevaluated*
	annotate bool
	// track the dynamic scope; only needed for $dynamicRef and $recursiveRef
	dynamic bool
	draft   *draft.Descriptor
	loc     string
}

// outcome is what evaluating a schema against one instance location yields:
// the issues plus the annotations unevaluated* keywords consume.
type outcome struct {
	issues   Issues
	props    map[string]struct{}
	items    map[int]struct{}
	allItems bool
}

func (o *outcome) ok() bool { return len(o.issues) == 0 }

// merge takes issues and annotations of an in-place applicator.
func (o *outcome) merge(r outcome) {
	o.issues = append(o.issues, r.issues...)
	o.annotations(r)
}

func (o *outcome) annotations(r outcome) {
	for k := range r.props {
		o.markProp(k)
	}
	for i := range r.items {
		o.markItem(i)
	}
	if r.allItems {
		o.allItems = true
	}
}

func (o *outcome) markProp(k string) {
	if o.props == nil {
		o.props = map[string]struct{}{}
	}
	o.props[k] = struct{}{}
}

func (o *outcome) markItem(i int) {
	if o.items == nil {
		o.items = map[int]struct{}{}
	}
	o.items[i] = struct{}{}
}

// evaluator carries per-call state; it is never shared between goroutines.
type evaluator struct {
	p     *program
	depth int
	// URIs of the schema resources entered, outermost first
	scope []string
}

func (e *evaluator) eval(idx int, inst any, path *pathRef) outcome {
	n := e.p.nodes[idx]
	if n.always {
		return outcome{}
	}
	if n.never {
		return n.site.fail(path, CodeFalseSchema, nil)
	}
	if e.depth >= e.p.maxDepth {
		s := site{keyword: "$ref", value: n.loc, schemaPath: n.loc}
		return s.fail(path, CodeMaxDepth, map[string]any{"limit": e.p.maxDepth})
	}
	e.depth++
	entered := e.p.dynamic && (len(e.scope) == 0 || e.scope[len(e.scope)-1] != n.res)
	if entered {
		e.scope = append(e.scope, n.res)
	}
	var out outcome
	for i := range n.checks {
		r := n.checks[i].run(e, inst, path, &out)
		out.merge(r)
		if e.stop(&out) {
			break
		}
	}
	if entered {
		e.scope = e.scope[:len(e.scope)-1]
	}
	e.depth--
	return out
}

// target picks the node of the outermost resource in scope that declares
// the anchor, falling back to the statically resolved one.
func (e *evaluator) target(dr *dynamicRef) int {
	for _, uri := range e.scope {
		if idx, ok := dr.cands[uri]; ok {
			return idx
		}
	}
	return dr.static
}

// stop reports whether an AND group should short-circuit.
func (e *evaluator) stop(o *outcome) bool { return !e.p.allErrors && !o.ok() }

func (e *evaluator) markProp(o *outcome, k string) {
	if e.p.annotate {
		o.markProp(k)
	}
}

func (e *evaluator) markItem(o *outcome, i int) {
	if e.p.annotate {
		o.markItem(i)
	}
}

func (s *site) issue(path *pathRef, code string, params map[string]any) Issue {
	return Issue{
		Keyword:    s.keyword,
		Value:      s.value,
		Path:       path.Pointer(),
		SchemaPath: s.schemaPath,
		Code:       code,
		Message:    message(code, params),
		Params:     params,
	}
}

func (s *site) fail(path *pathRef, code string, params map[string]any) outcome {
	return outcome{issues: Issues{s.issue(path, code, params)}}
}

func message(code string, params map[string]any) string {
	var data map[string]string
	if len(params) > 0 {
		data = make(map[string]string, len(params))
		for k, v := range params {
			data[k] = fmt.Sprint(v)
		}
	}
	return i18n.T(code, data)
}
