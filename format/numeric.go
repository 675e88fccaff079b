package format

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/reoring/jsonskema/internal/value"
)

type numericRange struct {
	min, max *big.Rat
	integer  bool
}

func intRange(bits uint) numericRange {
	hi := new(big.Int).Lsh(big.NewInt(1), bits-1)
	lo := new(big.Int).Neg(hi)
	hi.Sub(hi, big.NewInt(1))
	return numericRange{min: new(big.Rat).SetInt(lo), max: new(big.Rat).SetInt(hi), integer: true}
}

func uintRange(bits uint) numericRange {
	hi := new(big.Int).Lsh(big.NewInt(1), bits)
	hi.Sub(hi, big.NewInt(1))
	return numericRange{min: new(big.Rat), max: new(big.Rat).SetInt(hi), integer: true}
}

func floatRange(max float64) numericRange {
	m := new(big.Rat).SetFloat64(max)
	return numericRange{min: new(big.Rat).Neg(m), max: m}
}

var numericFormats = map[string]numericRange{
	"int8":    intRange(8),
	"int16":   intRange(16),
	"int32":   intRange(32),
	"int64":   intRange(64),
	"uint8":   uintRange(8),
	"uint16":  uintRange(16),
	"uint32":  uintRange(32),
	"uint64":  uintRange(64),
	"float16": floatRange(65504),
	"float32": floatRange(math.MaxFloat32),
	"float64": floatRange(math.MaxFloat64),
}

var numericAliases = map[string]string{
	"int":     "int64",
	"integer": "int64",
	"uint":    "uint64",
	"float":   "float32",
	"double":  "float64",
}

func init() {
	for name, r := range numericFormats {
		builtin[Numeric].Register(name, numericCompiler(name, r))
	}
	for alias, target := range numericAliases {
		builtin[Numeric].Register(alias, numericCompiler(alias, numericFormats[target]))
	}
}

var decimalRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

// parseDecimal coerces a numeric-looking string.
func parseDecimal(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if !decimalRe.MatchString(s) {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

func boundRat(v any) (*big.Rat, bool) {
	if s, ok := v.(string); ok {
		return parseDecimal(s)
	}
	return value.Rat(v)
}

func numericCompiler(name string, r numericRange) CompileFunc {
	return func(_ Context, fragment map[string]any) (Predicate, error) {
		strict := false
		if raw, ok := fragment["formatStrict"]; ok {
			b, isBool := raw.(bool)
			if !isBool {
				return nil, fmt.Errorf("%w: formatStrict must be a boolean, got %T", ErrInvalidFragment, raw)
			}
			strict = b
		}
		bounds, err := compileBounds(fragment, boundRat, func(a, b *big.Rat) int { return a.Cmp(b) })
		if err != nil {
			return nil, err
		}
		return func(v any) *Failure {
			var x *big.Rat
			switch value.KindOf(v) {
			case value.Number, value.BigInt:
				var ok bool
				if x, ok = value.Rat(v); !ok {
					// NaN and infinities
					return mismatch(name)
				}
			case value.String:
				if strict {
					return &Failure{Keyword: "format", Value: name, Message: fmt.Sprintf("must be a %s number, not a string", name)}
				}
				var ok bool
				if x, ok = parseDecimal(v.(string)); !ok {
					return &Failure{Keyword: "format", Value: name, Message: fmt.Sprintf("must be a numeric %s", name)}
				}
			default:
				return nil
			}
			if r.integer && !x.IsInt() {
				return &Failure{Keyword: "format", Value: name, Message: fmt.Sprintf("must be an integer for %s", name)}
			}
			if x.Cmp(r.min) < 0 || x.Cmp(r.max) > 0 {
				return &Failure{Keyword: "format", Value: name, Message: fmt.Sprintf("out of %s range", name)}
			}
			if bounds != nil {
				return bounds(x)
			}
			return nil
		}, nil
	}
}
