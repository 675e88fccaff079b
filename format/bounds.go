package format

import "fmt"

const (
	kwMin     = "formatMinimum"
	kwMax     = "formatMaximum"
	kwExclMin = "formatExclusiveMinimum"
	kwExclMax = "formatExclusiveMaximum"
)

type bound[T any] struct {
	keyword   string
	raw       any
	v         T
	exclusive bool
}

// pickBound reads one side. The exclusive keyword wins when both are present.
func pickBound[T any](fragment map[string]any, exclKey, inclKey string, parse func(any) (T, bool)) (*bound[T], error) {
	key, exclusive := exclKey, true
	raw, ok := fragment[exclKey]
	if !ok {
		key, exclusive = inclKey, false
		if raw, ok = fragment[inclKey]; !ok {
			return nil, nil
		}
	}
	v, ok := parse(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s value %v", ErrInvalidFragment, key, raw)
	}
	return &bound[T]{keyword: key, raw: raw, v: v, exclusive: exclusive}, nil
}

// compileBounds returns nil when the fragment declares no bounds. Otherwise the
// returned check fails on the first violated side.
func compileBounds[T any](fragment map[string]any, parse func(any) (T, bool), cmp func(a, b T) int) (func(T) *Failure, error) {
	lo, err := pickBound(fragment, kwExclMin, kwMin, parse)
	if err != nil {
		return nil, err
	}
	hi, err := pickBound(fragment, kwExclMax, kwMax, parse)
	if err != nil {
		return nil, err
	}
	var checks []func(T) *Failure
	if lo != nil {
		checks = append(checks, func(x T) *Failure {
			c := cmp(x, lo.v)
			if c > 0 || (c == 0 && !lo.exclusive) {
				return nil
			}
			op := ">="
			if lo.exclusive {
				op = ">"
			}
			return &Failure{Keyword: lo.keyword, Value: lo.raw, Message: fmt.Sprintf("must be %s %v", op, lo.raw)}
		})
	}
	if hi != nil {
		checks = append(checks, func(x T) *Failure {
			c := cmp(x, hi.v)
			if c < 0 || (c == 0 && !hi.exclusive) {
				return nil
			}
			op := "<="
			if hi.exclusive {
				op = "<"
			}
			return &Failure{Keyword: hi.keyword, Value: hi.raw, Message: fmt.Sprintf("must be %s %v", op, hi.raw)}
		})
	}
	if len(checks) == 0 {
		return nil, nil
	}
	return func(x T) *Failure {
		for _, c := range checks {
			if f := c(x); f != nil {
				return f
			}
		}
		return nil
	}, nil
}
