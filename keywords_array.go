package jsonskema

import (
	"strconv"

	"github.com/reoring/jsonskema/draft"
	"github.com/reoring/jsonskema/internal/value"
)

func (b *builder) compileArray() error {
	if n, ok, err := b.count("maxItems"); err != nil {
		return err
	} else if ok {
		s := b.site("maxItems")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			arr, isArr := inst.([]any)
			if !isArr || len(arr) <= n {
				return outcome{}
			}
			return s.fail(path, CodeTooManyItems, map[string]any{"limit": n, "got": len(arr)})
		})
	}
	if n, ok, err := b.count("minItems"); err != nil {
		return err
	} else if ok {
		s := b.site("minItems")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			arr, isArr := inst.([]any)
			if !isArr || len(arr) >= n {
				return outcome{}
			}
			return s.fail(path, CodeTooFewItems, map[string]any{"limit": n, "got": len(arr)})
		})
	}
	if raw, ok := b.m["uniqueItems"]; ok {
		unique, isBool := raw.(bool)
		if !isBool {
			return b.invalid("uniqueItems", "must be a boolean, got %T", raw)
		}
		if unique {
			s := b.site("uniqueItems")
			b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
				arr, isArr := inst.([]any)
				if !isArr {
					return outcome{}
				}
				for i := 0; i < len(arr); i++ {
					for j := i + 1; j < len(arr); j++ {
						if value.Equal(arr[i], arr[j]) {
							return s.fail(path, CodeUniqueness, map[string]any{"first": i, "second": j})
						}
					}
				}
				return outcome{}
			})
		}
	}
	if err := b.compileItems(); err != nil {
		return err
	}
	return b.compileContains()
}

// tupleRun applies idxs positionally.
func tupleRun(idxs []int) runFunc {
	return func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		arr, ok := inst.([]any)
		if !ok {
			return outcome{}
		}
		var out outcome
		for i := 0; i < len(arr) && i < len(idxs); i++ {
			r := e.eval(idxs[i], arr[i], path.Index(i))
			out.issues = append(out.issues, r.issues...)
			e.markItem(&out, i)
			if e.stop(&out) {
				break
			}
		}
		return out
	}
}

// restRun applies idx to every item from index from on.
func restRun(idx, from int) runFunc {
	return func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		arr, ok := inst.([]any)
		if !ok || len(arr) <= from {
			return outcome{}
		}
		var out outcome
		for i := from; i < len(arr); i++ {
			r := e.eval(idx, arr[i], path.Index(i))
			out.issues = append(out.issues, r.issues...)
			if e.stop(&out) {
				break
			}
		}
		out.allItems = e.p.annotate
		return out
	}
}

func (b *builder) compileItems() error {
	from := 0
	if b.d.Vocab.PrefixItems {
		idxs, ok, err := b.subs("prefixItems")
		if err != nil {
			return err
		}
		if ok {
			b.add(b.site("prefixItems"), tupleRun(idxs))
			from = len(idxs)
		}
	}
	raw, ok := b.m["items"]
	if !ok {
		return nil
	}
	if _, isArr := raw.([]any); !isArr {
		idx, err := b.sub("items")
		if err != nil {
			return err
		}
		b.add(b.site("items"), restRun(idx, from))
		return nil
	}
	if !b.d.Vocab.ItemsArray {
		return b.invalid("items", "must be a schema in %s; use prefixItems for tuples", b.d.Name)
	}
	idxs, _, err := b.subs("items")
	if err != nil {
		return err
	}
	b.add(b.site("items"), tupleRun(idxs))
	if _, ok := b.m["additionalItems"]; ok {
		idx, err := b.sub("additionalItems")
		if err != nil {
			return err
		}
		b.add(b.site("additionalItems"), restRun(idx, len(idxs)))
	}
	return nil
}

func (b *builder) compileContains() error {
	if _, ok := b.m["contains"]; !ok {
		return nil
	}
	idx, err := b.sub("contains")
	if err != nil {
		return err
	}
	minC, maxC := 1, -1
	minSite, maxSite := b.site("contains"), b.site("contains")
	if b.d.Vocab.Contains {
		if n, ok, err := b.count("minContains"); err != nil {
			return err
		} else if ok {
			minC, minSite = n, b.site("minContains")
		}
		if n, ok, err := b.count("maxContains"); err != nil {
			return err
		} else if ok {
			maxC, maxSite = n, b.site("maxContains")
		}
	}
	// contains only yields annotations from 2020-12 on
	marks := b.d.ID >= draft.Draft2020
	bounds := func(count int) map[string]any {
		hi := "unbounded"
		if maxC >= 0 {
			hi = strconv.Itoa(maxC)
		}
		return map[string]any{"min": minC, "max": hi, "count": count}
	}
	b.add(minSite, func(e *evaluator, inst any, path *pathRef, _ *outcome) outcome {
		arr, ok := inst.([]any)
		if !ok {
			return outcome{}
		}
		var out outcome
		count := 0
		for i, item := range arr {
			r := e.eval(idx, item, path.Index(i))
			if !r.ok() {
				continue
			}
			count++
			if marks {
				e.markItem(&out, i)
			}
			if maxC < 0 && count >= minC && !e.p.annotate {
				break
			}
		}
		switch {
		case count < minC:
			return minSite.fail(path, CodeContains, bounds(count))
		case maxC >= 0 && count > maxC:
			return maxSite.fail(path, CodeContains, bounds(count))
		}
		return out
	})
	return nil
}
