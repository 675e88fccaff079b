package jsonskema

import (
	"regexp"
)

func (b *builder) compileObject() error {
	if n, ok, err := b.count("maxProperties"); err != nil {
		return err
	} else if ok {
		s := b.site("maxProperties")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			obj, isObj := inst.(map[string]any)
			if !isObj || len(obj) <= n {
				return outcome{}
			}
			return s.fail(path, CodeTooManyProperties, map[string]any{"limit": n, "got": len(obj)})
		})
	}
	if n, ok, err := b.count("minProperties"); err != nil {
		return err
	} else if ok {
		s := b.site("minProperties")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			obj, isObj := inst.(map[string]any)
			if !isObj || len(obj) >= n {
				return outcome{}
			}
			return s.fail(path, CodeTooFewProperties, map[string]any{"limit": n, "got": len(obj)})
		})
	}
	if raw, ok := b.m["required"]; ok {
		names, err := b.strings("required", raw)
		if err != nil {
			return err
		}
		s := b.site("required")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			obj, isObj := inst.(map[string]any)
			if !isObj {
				return outcome{}
			}
			var out outcome
			for _, name := range names {
				if _, present := obj[name]; !present {
					out.issues = append(out.issues, s.issue(path.Field(name), CodeRequired, map[string]any{"property": name}))
				}
			}
			return out
		})
	}
	for _, step := range []func() error{
		b.compileProperties,
		b.compileDependencies,
		b.compilePropertyNames,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) schemaMap(kw string) (map[string]any, bool, error) {
	raw, ok := b.m[kw]
	if !ok {
		return nil, false, nil
	}
	mm, isMap := raw.(map[string]any)
	if !isMap {
		return nil, false, b.invalid(kw, "must be an object, got %T", raw)
	}
	return mm, true, nil
}

func (b *builder) compileProperties() error {
	props, hasProps, err := b.schemaMap("properties")
	if err != nil {
		return err
	}
	names := sortedKeys(props)
	if hasProps {
		idxs := make([]int, len(names))
		for i, name := range names {
			if idxs[i], err = b.sub("properties", name); err != nil {
				return err
			}
		}
		b.add(b.site("properties"), func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			obj, ok := inst.(map[string]any)
			if !ok {
				return outcome{}
			}
			var out outcome
			for i, name := range names {
				val, present := obj[name]
				if !present {
					continue
				}
				r := e.eval(idxs[i], val, path.Field(name))
				out.issues = append(out.issues, r.issues...)
				e.markProp(&out, name)
				if e.stop(&out) {
					break
				}
			}
			return out
		})
	}

	patProps, hasPats, err := b.schemaMap("patternProperties")
	if err != nil {
		return err
	}
	sources := sortedKeys(patProps)
	regexps := make([]*regexp.Regexp, len(sources))
	for i, src := range sources {
		if regexps[i], err = b.cc.pattern(src); err != nil {
			return b.invalid("patternProperties", "%v", err)
		}
	}
	if hasPats {
		idxs := make([]int, len(sources))
		for i, src := range sources {
			if idxs[i], err = b.sub("patternProperties", src); err != nil {
				return err
			}
		}
		b.add(b.site("patternProperties"), func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			obj, ok := inst.(map[string]any)
			if !ok {
				return outcome{}
			}
			var out outcome
			for _, k := range sortedKeys(obj) {
				for i, re := range regexps {
					if !re.MatchString(k) {
						continue
					}
					r := e.eval(idxs[i], obj[k], path.Field(k))
					out.issues = append(out.issues, r.issues...)
					e.markProp(&out, k)
					if e.stop(&out) {
						return out
					}
				}
			}
			return out
		})
	}

	raw, ok := b.m["additionalProperties"]
	if !ok {
		return nil
	}
	idx, err := b.sub("additionalProperties")
	if err != nil {
		return err
	}
	forbidden := raw == false
	s := b.site("additionalProperties")
	b.add(s, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		obj, ok := inst.(map[string]any)
		if !ok {
			return outcome{}
		}
		var out outcome
	keys:
		for _, k := range sortedKeys(obj) {
			if _, known := props[k]; known {
				continue
			}
			for _, re := range regexps {
				if re.MatchString(k) {
					continue keys
				}
			}
			if forbidden {
				out.issues = append(out.issues, s.issue(path.Field(k), CodeUnknownKey, map[string]any{"property": k}))
			} else {
				r := e.eval(idx, obj[k], path.Field(k))
				out.issues = append(out.issues, r.issues...)
			}
			e.markProp(&out, k)
			if e.stop(&out) {
				break
			}
		}
		return out
	})
	return nil
}

// dependency is one entry of dependencies, dependentRequired or
// dependentSchemas; either required names or a schema apply.
type dependency struct {
	on       string
	required []string
	schema   int
	site     *site
}

func (b *builder) compileDependencies() error {
	var deps []dependency
	collect := func(kw string, allowNames, allowSchema bool) error {
		mm, ok, err := b.schemaMap(kw)
		if err != nil || !ok {
			return err
		}
		s := b.site(kw)
		for _, k := range sortedKeys(mm) {
			switch v := mm[k].(type) {
			case []any:
				if !allowNames {
					return b.invalid(kw, "%q must be a schema", k)
				}
				names, err := b.strings(kw, v)
				if err != nil {
					return err
				}
				deps = append(deps, dependency{on: k, required: names, schema: -1, site: s})
			case map[string]any, bool:
				if !allowSchema {
					return b.invalid(kw, "%q must be an array of strings", k)
				}
				idx, err := b.sub(kw, k)
				if err != nil {
					return err
				}
				deps = append(deps, dependency{on: k, schema: idx, site: s})
			default:
				return b.invalid(kw, "%q has unsupported value %T", k, v)
			}
		}
		return nil
	}
	if b.d.Vocab.Dependencies {
		if err := collect("dependencies", true, true); err != nil {
			return err
		}
	}
	if b.d.Vocab.DependentKeywords {
		if err := collect("dependentRequired", true, false); err != nil {
			return err
		}
		if err := collect("dependentSchemas", false, true); err != nil {
			return err
		}
	}
	if len(deps) == 0 {
		return nil
	}
	b.add(deps[0].site, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		obj, ok := inst.(map[string]any)
		if !ok {
			return outcome{}
		}
		var out outcome
		for _, d := range deps {
			if _, present := obj[d.on]; !present {
				continue
			}
			if d.schema >= 0 {
				out.merge(e.eval(d.schema, inst, path))
			}
			for _, name := range d.required {
				if _, present := obj[name]; !present {
					out.issues = append(out.issues, d.site.issue(path.Field(name), CodeRequired,
						map[string]any{"property": name, "dependent": d.on}))
				}
			}
			if e.stop(&out) {
				break
			}
		}
		return out
	})
	return nil
}

func (b *builder) compilePropertyNames() error {
	if _, ok := b.m["propertyNames"]; !ok {
		return nil
	}
	idx, err := b.sub("propertyNames")
	if err != nil {
		return err
	}
	s := b.site("propertyNames")
	b.add(s, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		obj, ok := inst.(map[string]any)
		if !ok {
			return outcome{}
		}
		var out outcome
		for _, k := range sortedKeys(obj) {
			p := path.Field(k)
			if r := e.eval(idx, k, p); !r.ok() {
				out.issues = append(out.issues, s.issue(p, CodePropertyName, map[string]any{"property": k}))
				if e.stop(&out) {
					break
				}
			}
		}
		return out
	})
	return nil
}
