package jsonskema

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/format"
)

// DefaultMaxDepth bounds nested schema evaluation at validation time.
const DefaultMaxDepth = 512

// Option configures a Compiler.
type Option func(*config)

type config struct {
	draft          draft.ID
	formats        *format.Set
	allErrors      bool
	maxDepth       int
	validateSchema bool
	logger         *slog.Logger
}

// WithDraft selects the draft used for documents without "$schema".
// The default is 2020-12.
func WithDraft(id draft.ID) Option { return func(c *config) { c.draft = id } }

// WithFormats shares a format set between compilers. RegisterFormat on any of
// them mutates the shared set.
func WithFormats(s *format.Set) Option { return func(c *config) { c.formats = s } }

// WithAllErrors collects every failing keyword instead of stopping at the
// first failure of each schema object.
func WithAllErrors(b bool) Option { return func(c *config) { c.allErrors = b } }

// WithMaxDepth bounds schema nesting during evaluation; runaway recursion is
// reported as a max_depth issue.
func WithMaxDepth(n int) Option { return func(c *config) { c.maxDepth = n } }

// WithValidateSchema validates each document against its draft's meta-schema
// before compiling it.
func WithValidateSchema(b bool) Option { return func(c *config) { c.validateSchema = b } }

// WithLogger routes debug logs about reference resolution and compilation.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// Compiler turns schema documents into Validators. Registries held by the
// Compiler are guarded, so one Compiler may compile from many goroutines.
type Compiler struct {
	cfg config

	mu sync.RWMutex
	// registered documents keyed by absolute URI without fragment
	docs map[string]any
	// nested "$id" URIs of registered documents -> registering URI
	nested map[string]string

	metaMu sync.Mutex
	meta   map[draft.ID]*Validator
}

// New returns a Compiler configured by opts.
func New(opts ...Option) *Compiler {
	cfg := config{draft: draft.Draft2020, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.formats == nil {
		cfg.formats = format.NewSet()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = DefaultMaxDepth
	}
	return &Compiler{
		cfg:    cfg,
		docs:   map[string]any{},
		nested: map[string]string{},
		meta:   map[draft.ID]*Validator{},
	}
}

// RegisterFormat adds a format predicate; the last registration for a name wins.
func (c *Compiler) RegisterFormat(d format.Domain, name string, fn format.CompileFunc) {
	c.cfg.formats.Register(d, name, fn)
}

// Formats returns the format set consulted by this compiler.
func (c *Compiler) Formats() *format.Set { return c.cfg.formats }

// RegisterSchema makes doc resolvable under id in later compilations. Relative
// ids resolve against mem://jsonskema/. Nested "$id"s inside doc become
// resolvable as well. Registering the same id again replaces the document.
func (c *Compiler) RegisterSchema(doc any, id string) error {
	uri, err := resolveURI(memBase, id)
	if err != nil {
		return &CompileError{Keyword: "$id", SchemaPath: id, Err: err}
	}
	uri, _ = splitFragment(uri)
	doc = normalizeDoc(doc)
	d, err := c.documentDraft(doc)
	if err != nil {
		return &CompileError{Keyword: "$schema", SchemaPath: uri, Err: err}
	}
	ix := newIndex()
	if err := ix.add(doc, uri, d); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[uri] = doc
	for res := range ix.resources {
		if res != uri {
			c.nested[res] = uri
		}
	}
	c.cfg.logger.Debug("registered schema", "id", uri, "resources", len(ix.resources))
	return nil
}

// registered returns the registered document that defines uri, if any.
func (c *Compiler) registered(uri string) (doc any, root string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.docs[uri]; ok {
		return d, uri, true
	}
	if r, ok := c.nested[uri]; ok {
		return c.docs[r], r, true
	}
	return nil, "", false
}

// Compile compiles a schema document. The document must not be mutated while
// the returned Validator is in use.
func (c *Compiler) Compile(doc any) (*Validator, error) {
	doc = normalizeDoc(doc)
	d, err := c.documentDraft(doc)
	if err != nil {
		return nil, &CompileError{Keyword: "$schema", SchemaPath: memRoot, Err: err}
	}
	if c.cfg.validateSchema {
		if err := c.checkMeta(doc, d); err != nil {
			return nil, err
		}
	}
	cc := newCompileCtx(c, d)
	return cc.compileDocument(doc, memRoot)
}

// CompileID compiles a previously registered document (or a resource nested in
// one) by its id. A fragment selects a subschema.
func (c *Compiler) CompileID(id string) (*Validator, error) {
	uri, err := resolveURI(memBase, id)
	if err != nil {
		return nil, &CompileError{Keyword: "$ref", SchemaPath: id, Err: err}
	}
	cc := newCompileCtx(c, nil)
	return cc.compileRef(uri)
}

// CompileAll compiles independent documents concurrently. Keys are caller
// chosen names; the first error aborts the batch.
func (c *Compiler) CompileAll(docs map[string]any) (map[string]*Validator, error) {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(map[string]*Validator, len(docs))
	)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for name, doc := range docs {
		g.Go(func() error {
			v, err := c.Compile(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			mu.Lock()
			out[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// documentDraft picks the draft from "$schema" or falls back to the default.
func (c *Compiler) documentDraft(doc any) (*draft.Descriptor, error) {
	if m, ok := doc.(map[string]any); ok {
		if raw, ok := m["$schema"]; ok {
			s, isStr := raw.(string)
			if !isStr {
				return nil, fmt.Errorf("%w: $schema must be a string", ErrInvalidKeyword)
			}
			return draftForURI(s)
		}
	}
	return draft.ResolveID(int(c.cfg.draft))
}

// checkMeta validates doc against the meta-schema of d.
func (c *Compiler) checkMeta(doc any, d *draft.Descriptor) error {
	mv, err := c.MetaValidator(d.ID)
	if err != nil {
		return err
	}
	if iss := mv.Evaluate(doc); len(iss) > 0 {
		return &CompileError{Keyword: "$schema", SchemaPath: memRoot, Err: iss}
	}
	return nil
}

// MetaValidator returns the cached validator for a draft's meta-schema.
func (c *Compiler) MetaValidator(id draft.ID) (*Validator, error) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	if v, ok := c.meta[id]; ok {
		return v, nil
	}
	d, err := draft.ResolveID(int(id))
	if err != nil {
		return nil, err
	}
	cc := newCompileCtx(c, d)
	v, err := cc.compileRef(d.URI)
	if err != nil {
		return nil, err
	}
	c.meta[id] = v
	return v, nil
}

// Compile compiles doc with a fresh Compiler configured by opts.
func Compile(doc any, opts ...Option) (*Validator, error) {
	return New(opts...).Compile(doc)
}

// MustCompile is like Compile but panics on error.
func MustCompile(doc any, opts ...Option) *Validator {
	v, err := Compile(doc, opts...)
	if err != nil {
		panic(err)
	}
	return v
}
