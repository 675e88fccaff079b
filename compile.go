package jsonskema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/internal/value"
	"github.com/reoring/jsonskema/pattern"
)

// runFunc evaluates one compiled keyword. acc holds what earlier keywords of
// the same schema object produced; unevaluated* read their annotations.
type runFunc func(e *evaluator, inst any, path *pathRef, acc *outcome) outcome

// site identifies a keyword occurrence for issue reporting.
type site struct {
	keyword    string
	value      any
	schemaPath string
}

type check struct {
	site *site
	run  runFunc
}

// node is one compiled schema object or boolean schema in the arena.
type node struct {
	loc string
	// URI of the enclosing schema resource; entering it extends the dynamic scope
	res    string
	always bool
	never  bool
	site   *site
	checks []check
}

// compileCtx is owned by a single compilation.
type compileCtx struct {
	c        *Compiler
	draft    *draft.Descriptor
	ix       *index
	nodes    []*node
	byLoc    map[string]int
	regexps  map[string]*regexp.Regexp
	annotate bool
	dynamic  []*dynamicRef
}

// dynamicRef is a "$dynamicRef" or "$recursiveRef" whose target depends on
// the resources entered during evaluation. cands maps every resource that
// declares the anchor to the node it names.
type dynamicRef struct {
	name      string
	recursive bool
	static    int
	cands     map[string]int
}

func newCompileCtx(c *Compiler, d *draft.Descriptor) *compileCtx {
	return &compileCtx{
		c:       c,
		draft:   d,
		ix:      newIndex(),
		byLoc:   map[string]int{},
		regexps: map[string]*regexp.Regexp{},
	}
}

func (cc *compileCtx) compileDocument(doc any, uri string) (*Validator, error) {
	if err := cc.ix.add(doc, uri, cc.draft); err != nil {
		return nil, err
	}
	return cc.finish(uri + "#")
}

func (cc *compileCtx) compileRef(uri string) (*Validator, error) {
	canon, err := cc.resolve(uri)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CompileError{Keyword: "$ref", SchemaPath: uri, Err: err}
	}
	return cc.finish(canon)
}

func (cc *compileCtx) finish(key string) (*Validator, error) {
	start := time.Now()
	canon, ok := cc.ix.aliases[key]
	if !ok {
		return nil, &CompileError{SchemaPath: key, Err: fmt.Errorf("%w: %s", ErrUnresolvedRef, key)}
	}
	info := cc.ix.schemas[canon]
	idx, err := cc.compile(canon)
	if err != nil {
		return nil, err
	}
	if err := cc.bindDynamic(); err != nil {
		return nil, err
	}
	p := &program{
		nodes:     cc.nodes,
		root:      idx,
		allErrors: cc.c.cfg.allErrors,
		maxDepth:  cc.c.cfg.maxDepth,
		annotate:  cc.annotate,
		dynamic:   len(cc.dynamic) > 0,
		draft:     info.res.draft,
		loc:       canon,
	}
	cc.c.cfg.logger.Debug("compiled schema",
		"loc", canon, "draft", info.res.draft.Name, "nodes", len(cc.nodes), "elapsed", time.Since(start))
	return newValidator(p), nil
}

// compile returns the arena index for canon, compiling it on first use.
// Targets already in progress are linked by index, so cycles terminate.
func (cc *compileCtx) compile(canon string) (int, error) {
	if i, ok := cc.byLoc[canon]; ok {
		return i, nil
	}
	info, ok := cc.ix.schemas[canon]
	if !ok {
		return 0, &CompileError{SchemaPath: canon, Err: fmt.Errorf("%w: %s", ErrUnresolvedRef, canon)}
	}
	n := &node{loc: canon, res: info.res.uri}
	i := len(cc.nodes)
	cc.nodes = append(cc.nodes, n)
	cc.byLoc[canon] = i

	switch s := info.value.(type) {
	case bool:
		if s {
			n.always = true
		} else {
			n.never = true
			n.site = &site{keyword: "false", value: false, schemaPath: canon}
		}
		return i, nil
	case map[string]any:
		b := &builder{cc: cc, info: info, m: s, d: info.res.draft, n: n}
		if err := b.build(); err != nil {
			return 0, err
		}
		return i, nil
	default:
		return 0, &CompileError{SchemaPath: canon,
			Err: fmt.Errorf("%w: schema must be an object or a boolean, got %T", ErrInvalidKeyword, info.value)}
	}
}

// bindDynamic fills the candidates of every dynamic reference once the
// reachable resources are known. Compiling a candidate may index further
// resources or add references, so it repeats until nothing changes.
func (cc *compileCtx) bindDynamic() error {
	for changed := true; changed; {
		changed = false
		uris := sortedKeys(cc.ix.resources)
		for i := 0; i < len(cc.dynamic); i++ {
			dr := cc.dynamic[i]
			for _, uri := range uris {
				if _, done := dr.cands[uri]; done {
					continue
				}
				res := cc.ix.resources[uri]
				var canon string
				if dr.recursive {
					if !res.recursiveAnchor {
						continue
					}
					canon = cc.ix.aliases[uri+"#"]
				} else {
					c, ok := res.dynamicAnchors[dr.name]
					if !ok {
						continue
					}
					canon = c
				}
				idx, err := cc.compile(canon)
				if err != nil {
					return err
				}
				dr.cands[uri] = idx
				changed = true
			}
		}
	}
	return nil
}

func (cc *compileCtx) pattern(v any) (*regexp.Regexp, error) {
	s, isStr := v.(string)
	if isStr {
		if re, ok := cc.regexps[s]; ok {
			return re, nil
		}
	}
	re, err := pattern.Compile(v)
	if err != nil {
		return nil, err
	}
	if isStr {
		cc.regexps[s] = re
	}
	return re, nil
}

// builder compiles the keywords of one schema object. It also serves as the
// format.Context handed to format compilers.
type builder struct {
	cc   *compileCtx
	info *schemaInfo
	m    map[string]any
	d    *draft.Descriptor
	n    *node
}

func (b *builder) Draft() *draft.Descriptor { return b.d }

// Pattern may be called by format predicates at validation time, so it must
// not touch the compilation's cache.
func (b *builder) Pattern(v any) (*regexp.Regexp, error) { return pattern.Compile(v) }

func (b *builder) build() error {
	if refHidesSiblings(b.m, b.d) {
		return b.compileRefs()
	}
	for _, step := range []func() error{
		b.compileRefs,
		b.compileType,
		b.compileEnum,
		b.compileConst,
		b.compileNumeric,
		b.compileString,
		b.compileFormat,
		b.compileArray,
		b.compileObject,
		b.compileLogic,
		b.compileUnevaluated,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) site(kw string) *site {
	return &site{keyword: kw, value: b.m[kw], schemaPath: b.n.loc + "/" + escapeToken(kw)}
}

func (b *builder) add(s *site, run runFunc) {
	b.n.checks = append(b.n.checks, check{site: s, run: run})
}

func (b *builder) fail(kw string, err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return err
	}
	return &CompileError{Keyword: kw, SchemaPath: b.n.loc, Err: err}
}

func (b *builder) invalid(kw, format string, args ...any) error {
	return b.fail(kw, fmt.Errorf("%w: %s", ErrInvalidKeyword, fmt.Sprintf(format, args...)))
}

// sub compiles the subschema found under toks relative to this schema object.
func (b *builder) sub(toks ...string) (int, error) {
	key := b.info.loc()
	for _, t := range toks {
		key += "/" + escapeToken(t)
	}
	canon, ok := b.cc.ix.aliases[key]
	if !ok {
		return 0, b.invalid(toks[0], "no subschema at %s", key)
	}
	return b.cc.compile(canon)
}

// subs compiles an array of subschemas under kw.
func (b *builder) subs(kw string) ([]int, bool, error) {
	raw, ok := b.m[kw]
	if !ok {
		return nil, false, nil
	}
	arr, isArr := raw.([]any)
	if !isArr {
		return nil, false, b.invalid(kw, "must be an array of schemas, got %T", raw)
	}
	idxs := make([]int, len(arr))
	for i := range arr {
		idx, err := b.sub(kw, strconv.Itoa(i))
		if err != nil {
			return nil, false, err
		}
		idxs[i] = idx
	}
	return idxs, true, nil
}

// count reads a non-negative integer keyword.
func (b *builder) count(kw string) (int, bool, error) {
	raw, ok := b.m[kw]
	if !ok {
		return 0, false, nil
	}
	r, isNum := value.Rat(raw)
	if !isNum || !r.IsInt() || r.Sign() < 0 || !r.Num().IsInt64() || r.Num().Int64() > int64(maxInt) {
		return 0, false, b.invalid(kw, "must be a non-negative integer, got %v", raw)
	}
	return int(r.Num().Int64()), true, nil
}

// strings reads an array of strings keyword value.
func (b *builder) strings(kw string, raw any) ([]string, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, b.invalid(kw, "must be an array of strings, got %T", raw)
	}
	out := make([]string, len(arr))
	for i, x := range arr {
		s, isStr := x.(string)
		if !isStr {
			return nil, b.invalid(kw, "element %d must be a string, got %T", i, x)
		}
		out[i] = s
	}
	return out, nil
}

const maxInt = int(^uint(0) >> 1)
