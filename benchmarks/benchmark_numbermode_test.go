package benchmarks_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/reoring/jsonskema"
)

// Macro: huge array of small numeric objects
func numberModePayload() []byte {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range 5000 {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(`{"a":`)
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(`,"b":12345678901234567890123,"c":-3.75}`)
	}
	sb.WriteByte(']')
	return []byte(sb.String())
}

func benchDecode(b *testing.B, mode jsonskema.NumberMode) {
	data := numberModePayload()
	opt := jsonskema.DecodeOpt{NumberMode: mode}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsonskema.DecodeJSON(data, opt); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_NumberMode_Huge_Float64(b *testing.B)    { benchDecode(b, jsonskema.NumberFloat64) }
func Benchmark_NumberMode_Huge_JSONNumber(b *testing.B) { benchDecode(b, jsonskema.NumberJSONNumber) }
func Benchmark_NumberMode_Huge_BigInt(b *testing.B)     { benchDecode(b, jsonskema.NumberBigInt) }

func Benchmark_DecodeAndValidate_Strict(b *testing.B) {
	v := mustCompile(b, `{"items":{"properties":{"a":{"type":"integer"},"b":{"type":["integer","bigint"]},"c":{"type":"number"}}}}`)
	data := numberModePayload()
	opt := jsonskema.DecodeOpt{NumberMode: jsonskema.NumberBigInt, OnDuplicateKey: jsonskema.Error}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inst, err := jsonskema.DecodeJSON(data, opt)
		if err != nil {
			b.Fatal(err)
		}
		if iss := v.Evaluate(inst); iss != nil {
			b.Fatal(iss)
		}
	}
}

func Benchmark_DetectDuplicateKeys(b *testing.B) {
	data := numberModePayload()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if iss := jsonskema.DetectDuplicateKeys(data, -1); len(iss) != 0 {
			b.Fatal(iss)
		}
	}
}
