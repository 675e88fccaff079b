package jsonskema

import (
	"math/big"

	"github.com/reoring/jsonskema/internal/value"
)

type numericBound struct {
	keyword string
	code    string
	op      string
	fails   func(cmp int) bool
}

var numericBounds = []numericBound{
	{"maximum", CodeTooBig, "<=", func(c int) bool { return c > 0 }},
	{"exclusiveMaximum", CodeTooBig, "<", func(c int) bool { return c >= 0 }},
	{"minimum", CodeTooSmall, ">=", func(c int) bool { return c < 0 }},
	{"exclusiveMinimum", CodeTooSmall, ">", func(c int) bool { return c <= 0 }},
}

// numericApplies reports whether a bound given as limit constrains inst. A
// bigint limit only constrains bigint data; an ordinary limit constrains both.
func numericApplies(limit, inst any) bool {
	k := value.KindOf(inst)
	if k != value.Number && k != value.BigInt {
		return false
	}
	return value.KindOf(limit) != value.BigInt || k == value.BigInt
}

func isNumeric(v any) bool {
	k := value.KindOf(v)
	return k == value.Number || k == value.BigInt
}

func (b *builder) compileNumeric() error {
	if raw, ok := b.m["multipleOf"]; ok {
		div, isNum := value.Rat(raw)
		if !isNum || div.Sign() <= 0 {
			return b.invalid("multipleOf", "must be a number greater than 0, got %v", raw)
		}
		s := b.site("multipleOf")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			if !numericApplies(raw, inst) {
				return outcome{}
			}
			x, ok := value.Rat(inst)
			if !ok {
				return outcome{}
			}
			if new(big.Rat).Quo(x, div).IsInt() {
				return outcome{}
			}
			return s.fail(path, CodeNotMultiple, map[string]any{"limit": raw, "got": inst})
		})
	}
	for _, nb := range numericBounds {
		raw, ok := b.m[nb.keyword]
		if !ok {
			continue
		}
		if !isNumeric(raw) {
			return b.invalid(nb.keyword, "must be a number, got %T", raw)
		}
		s := b.site(nb.keyword)
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			if !numericApplies(raw, inst) {
				return outcome{}
			}
			c, ok := value.Compare(inst, raw)
			if !ok || !nb.fails(c) {
				return outcome{}
			}
			return s.fail(path, nb.code, map[string]any{"op": nb.op, "limit": raw, "got": inst})
		})
	}
	return nil
}
