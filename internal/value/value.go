// Package value classifies and compares values of the shared document model
// (maps, slices, strings, numbers, *big.Int, bools, nil).
package value

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"time"
)

// Kind is the basic JSON-like kind of a value.
type Kind int

const (
	Null Kind = iota
	Boolean
	Number
	BigInt
	String
	Array
	Object
	Other
)

// String returns the type name used by the "type" keyword.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Number:
		return "number"
	case BigInt:
		return "bigint"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case string:
		return String
	case []any:
		return Array
	case map[string]any:
		return Object
	case *big.Int:
		return BigInt
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Number
	case json.Number:
		return Number
	default:
		return Other
	}
}

// IsNumber reports whether v is an ordinary (non-bigint) number.
func IsNumber(v any) bool { return KindOf(v) == Number }

// Float converts an ordinary number to float64. It returns false for bigints
// and non-numbers.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsInteger reports whether v is an ordinary number without a fractional part.
func IsInteger(v any) bool {
	switch t := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return true
		}
		if r, ok := new(big.Rat).SetString(string(t)); ok {
			return r.IsInt()
		}
		return false
	default:
		f, ok := Float(v)
		if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
			return false
		}
		return math.Trunc(f) == f
	}
}

// Rat converts a number or bigint to an exact rational. Floats are converted
// through their shortest decimal representation so that 0.1 becomes 1/10
// rather than the nearest binary fraction.
func Rat(v any) (*big.Rat, bool) {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil, false
		}
		return new(big.Rat).SetInt(t), true
	case int:
		return new(big.Rat).SetInt64(int64(t)), true
	case int8:
		return new(big.Rat).SetInt64(int64(t)), true
	case int16:
		return new(big.Rat).SetInt64(int64(t)), true
	case int32:
		return new(big.Rat).SetInt64(int64(t)), true
	case int64:
		return new(big.Rat).SetInt64(t), true
	case uint:
		return new(big.Rat).SetUint64(uint64(t)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(t)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(t)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(t)), true
	case uint64:
		return new(big.Rat).SetUint64(t), true
	case json.Number:
		return new(big.Rat).SetString(string(t))
	case float32:
		return ratFromFloat(float64(t), 32)
	case float64:
		return ratFromFloat(t, 64)
	default:
		return nil, false
	}
}

func ratFromFloat(f float64, bits int) (*big.Rat, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	return new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, bits))
}

// Compare compares two numeric values (numbers or bigints) exactly. The second
// result is false when either side is not numeric.
func Compare(a, b any) (int, bool) {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	ra, ok := Rat(a)
	if !ok {
		return 0, false
	}
	rb, ok := Rat(b)
	if !ok {
		return 0, false
	}
	return ra.Cmp(rb), true
}

// Equal reports structural equality as used by enum, const and uniqueItems.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	numeric := func(k Kind) bool { return k == Number || k == BigInt }
	if numeric(ka) && numeric(kb) {
		c, ok := Compare(a, b)
		return ok && c == 0
	}
	if ka != kb {
		if ta, ok := a.(time.Time); ok {
			tb, ok := b.(time.Time)
			return ok && ta.Equal(tb)
		}
		return false
	}
	switch ka {
	case Null:
		return true
	case Boolean:
		return a.(bool) == b.(bool)
	case String:
		return a.(string) == b.(string)
	case Array:
		xa, xb := a.([]any), b.([]any)
		if len(xa) != len(xb) {
			return false
		}
		for i := range xa {
			if !Equal(xa[i], xb[i]) {
				return false
			}
		}
		return true
	case Object:
		ma, mb := a.(map[string]any), b.(map[string]any)
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	default:
		if ta, ok := a.(time.Time); ok {
			tb, ok := b.(time.Time)
			return ok && ta.Equal(tb)
		}
		return false
	}
}
