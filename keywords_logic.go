package jsonskema

func (b *builder) compileLogic() error {
	if idxs, ok, err := b.subs("allOf"); err != nil {
		return err
	} else if ok {
		b.add(b.site("allOf"), func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			var out outcome
			for _, idx := range idxs {
				out.merge(e.eval(idx, inst, path))
				if e.stop(&out) {
					break
				}
			}
			return out
		})
	}
	if idxs, ok, err := b.subs("anyOf"); err != nil {
		return err
	} else if ok {
		s := b.site("anyOf")
		b.add(s, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			var (
				out     outcome
				branch  Issues
				matched bool
			)
			for _, idx := range idxs {
				r := e.eval(idx, inst, path)
				if !r.ok() {
					branch = append(branch, r.issues...)
					continue
				}
				matched = true
				out.annotations(r)
				if !e.p.annotate {
					break
				}
			}
			if matched {
				return out
			}
			return outcome{issues: append(Issues{s.issue(path, CodeNoMatch, nil)}, branch...)}
		})
	}
	if idxs, ok, err := b.subs("oneOf"); err != nil {
		return err
	} else if ok {
		s := b.site("oneOf")
		b.add(s, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			var (
				only    outcome
				branch  Issues
				matches []int
			)
			for i, idx := range idxs {
				r := e.eval(idx, inst, path)
				if !r.ok() {
					branch = append(branch, r.issues...)
					continue
				}
				matches = append(matches, i)
				only = r
				if len(matches) > 1 && !e.p.allErrors {
					break
				}
			}
			switch len(matches) {
			case 1:
				var out outcome
				out.annotations(only)
				return out
			case 0:
				return outcome{issues: append(Issues{s.issue(path, CodeNoMatch, nil)}, branch...)}
			default:
				return s.fail(path, CodeUnionAmbiguous, map[string]any{"count": len(matches), "matched": matches})
			}
		})
	}
	if _, ok := b.m["not"]; ok {
		idx, err := b.sub("not")
		if err != nil {
			return err
		}
		s := b.site("not")
		b.add(s, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			if r := e.eval(idx, inst, path); r.ok() {
				return s.fail(path, CodeNot, nil)
			}
			return outcome{}
		})
	}
	if b.d.Vocab.Conditionals {
		return b.compileConditional()
	}
	return nil
}

func (b *builder) compileConditional() error {
	if _, ok := b.m["if"]; !ok {
		return nil
	}
	ifIdx, err := b.sub("if")
	if err != nil {
		return err
	}
	branch := func(kw string) (int, error) {
		if _, ok := b.m[kw]; !ok {
			return -1, nil
		}
		return b.sub(kw)
	}
	thenIdx, err := branch("then")
	if err != nil {
		return err
	}
	elseIdx, err := branch("else")
	if err != nil {
		return err
	}
	// a lone "if" never fails but may still annotate for unevaluated*
	b.add(b.site("if"), func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		var out outcome
		r := e.eval(ifIdx, inst, path)
		if r.ok() {
			out.annotations(r)
			if thenIdx >= 0 {
				out.merge(e.eval(thenIdx, inst, path))
			}
		} else if elseIdx >= 0 {
			out.merge(e.eval(elseIdx, inst, path))
		}
		return out
	})
	return nil
}

func (b *builder) compileUnevaluated() error {
	if !b.d.Vocab.Unevaluated {
		return nil
	}
	if raw, ok := b.m["unevaluatedItems"]; ok {
		idx, err := b.sub("unevaluatedItems")
		if err != nil {
			return err
		}
		b.cc.annotate = true
		forbidden := raw == false
		s := b.site("unevaluatedItems")
		b.add(s, func(e *evaluator, inst any, path *pathRef, acc *outcome) outcome {
			arr, ok := inst.([]any)
			if !ok || acc.allItems {
				return outcome{}
			}
			var out outcome
			for i := range arr {
				if _, seen := acc.items[i]; seen {
					continue
				}
				if forbidden {
					out.issues = append(out.issues, s.issue(path.Index(i), CodeUnevaluated, map[string]any{"what": "item", "property": i}))
				} else {
					r := e.eval(idx, arr[i], path.Index(i))
					out.issues = append(out.issues, r.issues...)
				}
				if e.stop(&out) {
					break
				}
			}
			out.allItems = true
			return out
		})
	}
	if raw, ok := b.m["unevaluatedProperties"]; ok {
		idx, err := b.sub("unevaluatedProperties")
		if err != nil {
			return err
		}
		b.cc.annotate = true
		forbidden := raw == false
		s := b.site("unevaluatedProperties")
		b.add(s, func(e *evaluator, inst any, path *pathRef, acc *outcome) outcome {
			obj, ok := inst.(map[string]any)
			if !ok {
				return outcome{}
			}
			var out outcome
			for _, k := range sortedKeys(obj) {
				if _, seen := acc.props[k]; seen {
					continue
				}
				if forbidden {
					out.issues = append(out.issues, s.issue(path.Field(k), CodeUnevaluated, map[string]any{"what": "property", "property": k}))
				} else {
					r := e.eval(idx, obj[k], path.Field(k))
					out.issues = append(out.issues, r.issues...)
				}
				out.markProp(k)
				if e.stop(&out) {
					break
				}
			}
			return out
		})
	}
	return nil
}
