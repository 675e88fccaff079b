package jsonskema

import (
	"fmt"
	"strings"

	"github.com/reoring/jsonskema/internal/value"
)

func refRun(idx int) runFunc {
	return func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		return e.eval(idx, inst, path)
	}
}

func (b *builder) compileRefs() error {
	if raw, ok := b.m["$ref"]; ok {
		canon, err := b.resolveRef("$ref", raw)
		if err != nil {
			return err
		}
		idx, err := b.cc.compile(canon)
		if err != nil {
			return err
		}
		b.add(b.site("$ref"), refRun(idx))
	}
	if raw, ok := b.m["$recursiveRef"]; ok && b.d.Vocab.RecursiveRef {
		canon, err := b.resolveRef("$recursiveRef", raw)
		if err != nil {
			return err
		}
		target := b.cc.ix.schemas[canon]
		idx, err := b.cc.compile(canon)
		if err != nil {
			return err
		}
		run := refRun(idx)
		if target.ptr == "" && target.res.recursiveAnchor {
			run = b.dynamicRun(&dynamicRef{recursive: true, static: idx})
		}
		b.add(b.site("$recursiveRef"), run)
	}
	if raw, ok := b.m["$dynamicRef"]; ok && b.d.Vocab.DynamicRef {
		canon, err := b.resolveRef("$dynamicRef", raw)
		if err != nil {
			return err
		}
		_, name := splitFragment(raw.(string))
		target := b.cc.ix.schemas[canon]
		idx, err := b.cc.compile(canon)
		if err != nil {
			return err
		}
		run := refRun(idx)
		// only a fragment naming a "$dynamicAnchor" is resolved dynamically
		if name != "" && target.res.dynamicAnchors[name] == canon {
			run = b.dynamicRun(&dynamicRef{name: name, static: idx})
		}
		b.add(b.site("$dynamicRef"), run)
	}
	return nil
}

func (b *builder) dynamicRun(dr *dynamicRef) runFunc {
	dr.cands = map[string]int{}
	b.cc.dynamic = append(b.cc.dynamic, dr)
	return func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		return e.eval(e.target(dr), inst, path)
	}
}

// resolveRef resolves a reference keyword against the base URI of the
// enclosing resource.
func (b *builder) resolveRef(kw string, raw any) (string, error) {
	ref, ok := raw.(string)
	if !ok {
		return "", b.invalid(kw, "must be a string, got %T", raw)
	}
	abs, err := resolveURI(b.info.res.uri, ref)
	if err != nil {
		return "", b.fail(kw, err)
	}
	canon, err := b.cc.resolve(abs)
	if err != nil {
		return "", b.fail(kw, err)
	}
	b.cc.c.cfg.logger.Debug("resolved reference", "keyword", kw, "ref", ref, "target", canon)
	return canon, nil
}

var typeNames = map[string]bool{
	"null": true, "boolean": true, "object": true, "array": true,
	"number": true, "integer": true, "string": true, "bigint": true,
}

func typeMatches(name string, v any) bool {
	k := value.KindOf(v)
	switch name {
	case "integer":
		return k == value.Number && value.IsInteger(v)
	default:
		return k.String() == name
	}
}

func (b *builder) compileType() error {
	raw, ok := b.m["type"]
	if !ok {
		return nil
	}
	var names []string
	switch t := raw.(type) {
	case string:
		names = []string{t}
	case []any:
		var err error
		if names, err = b.strings("type", t); err != nil {
			return err
		}
	default:
		return b.invalid("type", "must be a string or an array of strings, got %T", raw)
	}
	for _, n := range names {
		if !typeNames[n] {
			return b.invalid("type", "unknown type %q", n)
		}
	}
	expected := strings.Join(names, " or ")
	s := b.site("type")
	b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		for _, n := range names {
			if typeMatches(n, inst) {
				return outcome{}
			}
		}
		return s.fail(path, CodeInvalidType, map[string]any{"expected": expected, "got": value.KindOf(inst).String()})
	})
	return nil
}

func (b *builder) compileEnum() error {
	raw, ok := b.m["enum"]
	if !ok {
		return nil
	}
	allowed, isArr := raw.([]any)
	if !isArr {
		return b.invalid("enum", "must be an array, got %T", raw)
	}
	s := b.site("enum")
	b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		for _, a := range allowed {
			if value.Equal(a, inst) {
				return outcome{}
			}
		}
		return s.fail(path, CodeInvalidEnum, map[string]any{"allowed": allowed})
	})
	return nil
}

func (b *builder) compileConst() error {
	want, ok := b.m["const"]
	if !ok {
		return nil
	}
	s := b.site("const")
	b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		if value.Equal(want, inst) {
			return outcome{}
		}
		return s.fail(path, CodeInvalidConst, map[string]any{"expected": want})
	})
	return nil
}

func formatCode(keyword string) string {
	switch keyword {
	case "formatMinimum", "formatExclusiveMinimum":
		return CodeTooSmall
	case "formatMaximum", "formatExclusiveMaximum":
		return CodeTooBig
	default:
		return CodeInvalidFormat
	}
}

func (b *builder) compileFormat() error {
	raw, ok := b.m["format"]
	if !ok {
		return nil
	}
	name, isStr := raw.(string)
	if !isStr {
		return b.invalid("format", "must be a string, got %T", raw)
	}
	entry, found := b.cc.c.cfg.formats.Lookup(name)
	if !found {
		return b.fail("format", fmt.Errorf("%w: %q", ErrUnknownFormat, name))
	}
	pred, err := entry.Build(b, b.m)
	if err != nil {
		return b.fail("format", fmt.Errorf("%w: %w", ErrInvalidKeyword, err))
	}
	s := b.site("format")
	loc := b.n.loc
	b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		f := pred(inst)
		if f == nil {
			return outcome{}
		}
		fs := s
		params := map[string]any{"format": name}
		if f.Keyword != "" && f.Keyword != "format" {
			fs = &site{keyword: f.Keyword, value: f.Value, schemaPath: loc + "/" + f.Keyword}
			params["limit"] = f.Value
		}
		iss := fs.issue(path, formatCode(f.Keyword), params)
		if f.Message != "" {
			iss.Message = f.Message
		}
		return outcome{issues: Issues{iss}}
	})
	return nil
}
