package jsonskema_test

import (
	"math/big"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/pattern"
)

func TestKeywords(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		inst   string
		valid  bool
		code   string
	}{
		{"type string ok", `{"type":"string"}`, `"x"`, true, ""},
		{"type string bad", `{"type":"string"}`, `1`, false, jsonskema.CodeInvalidType},
		{"type union", `{"type":["string","null"]}`, `null`, true, ""},
		{"integer accepts 1.0", `{"type":"integer"}`, `1.0`, true, ""},
		{"integer rejects 1.5", `{"type":"integer"}`, `1.5`, false, jsonskema.CodeInvalidType},
		{"number accepts integer", `{"type":"number"}`, `3`, true, ""},
		{"enum ok", `{"enum":[1,"a",{"k":[1]}]}`, `{"k":[1.0]}`, true, ""},
		{"enum bad", `{"enum":[1,"a"]}`, `"b"`, false, jsonskema.CodeInvalidEnum},
		{"const ok", `{"const":{"a":null}}`, `{"a":null}`, true, ""},
		{"const bad", `{"const":2}`, `2.5`, false, jsonskema.CodeInvalidConst},
		{"multipleOf decimal", `{"multipleOf":0.1}`, `0.3`, true, ""},
		{"multipleOf bad", `{"multipleOf":3}`, `10`, false, jsonskema.CodeNotMultiple},
		{"maximum inclusive", `{"maximum":3}`, `3`, true, ""},
		{"maximum bad", `{"maximum":3}`, `3.5`, false, jsonskema.CodeTooBig},
		{"exclusiveMaximum", `{"exclusiveMaximum":3}`, `3`, false, jsonskema.CodeTooBig},
		{"minimum bad", `{"minimum":0}`, `-1`, false, jsonskema.CodeTooSmall},
		{"exclusiveMinimum", `{"exclusiveMinimum":0}`, `0`, false, jsonskema.CodeTooSmall},
		{"bounds ignore strings", `{"minimum":10}`, `"1"`, true, ""},
		{"minLength code points", `{"minLength":2}`, `"日本"`, true, ""},
		{"maxLength bad", `{"maxLength":1}`, `"ab"`, false, jsonskema.CodeTooLong},
		{"pattern unanchored", `{"pattern":"b+"}`, `"abbc"`, true, ""},
		{"pattern bad", `{"pattern":"^a$"}`, `"b"`, false, jsonskema.CodePattern},
		{"minItems", `{"minItems":2}`, `[1]`, false, jsonskema.CodeTooFewItems},
		{"maxItems", `{"maxItems":1}`, `[1,2]`, false, jsonskema.CodeTooManyItems},
		{"uniqueItems ok", `{"uniqueItems":true}`, `[1,"1",[1]]`, true, ""},
		{"uniqueItems bad", `{"uniqueItems":true}`, `[{"a":1},{"a":1.0}]`, false, jsonskema.CodeUniqueness},
		{"uniqueItems false", `{"uniqueItems":false}`, `[1,1]`, true, ""},
		{"items schema", `{"items":{"type":"integer"}}`, `[1,2,"x"]`, false, jsonskema.CodeInvalidType},
		{"prefixItems then items false", `{"prefixItems":[{"type":"string"}],"items":false}`, `["a",1]`, false, jsonskema.CodeFalseSchema},
		{"prefixItems shorter data", `{"prefixItems":[{},{}],"items":false}`, `[1]`, true, ""},
		{"contains default", `{"contains":{"type":"integer"}}`, `["a",1]`, true, ""},
		{"contains none", `{"contains":{"type":"integer"}}`, `["a"]`, false, jsonskema.CodeContains},
		{"contains bounds", `{"contains":{"type":"integer"},"minContains":2,"maxContains":3}`, `[1,"a",2]`, true, ""},
		{"minContains", `{"contains":{"type":"integer"},"minContains":2}`, `[1]`, false, jsonskema.CodeContains},
		{"maxContains", `{"contains":{"type":"integer"},"maxContains":1}`, `[1,2]`, false, jsonskema.CodeContains},
		{"minContains zero", `{"contains":{"type":"integer"},"minContains":0}`, `[]`, true, ""},
		{"required", `{"required":["a"]}`, `{"b":1}`, false, jsonskema.CodeRequired},
		{"required ignores non objects", `{"required":["a"]}`, `[]`, true, ""},
		{"properties", `{"properties":{"a":{"type":"string"}}}`, `{"a":1}`, false, jsonskema.CodeInvalidType},
		{"patternProperties", `{"patternProperties":{"^x-":{"type":"integer"}}}`, `{"x-a":"s"}`, false, jsonskema.CodeInvalidType},
		{"additionalProperties false", `{"properties":{"a":{}},"additionalProperties":false}`, `{"a":1,"b":2}`, false, jsonskema.CodeUnknownKey},
		{"additionalProperties respects patterns", `{"patternProperties":{"^x":{}},"additionalProperties":false}`, `{"xy":1}`, true, ""},
		{"additionalProperties schema", `{"additionalProperties":{"type":"integer"}}`, `{"a":"s"}`, false, jsonskema.CodeInvalidType},
		{"minProperties", `{"minProperties":1}`, `{}`, false, jsonskema.CodeTooFewProperties},
		{"maxProperties", `{"maxProperties":1}`, `{"a":1,"b":2}`, false, jsonskema.CodeTooManyProperties},
		{"propertyNames", `{"propertyNames":{"maxLength":3}}`, `{"abcd":1}`, false, jsonskema.CodePropertyName},
		{"dependentRequired", `{"dependentRequired":{"card":["billing"]}}`, `{"card":1}`, false, jsonskema.CodeRequired},
		{"dependentRequired absent", `{"dependentRequired":{"card":["billing"]}}`, `{"x":1}`, true, ""},
		{"dependentSchemas", `{"dependentSchemas":{"card":{"required":["billing"]}}}`, `{"card":1}`, false, jsonskema.CodeRequired},
		{"allOf", `{"allOf":[{"type":"integer"},{"minimum":5}]}`, `3`, false, jsonskema.CodeTooSmall},
		{"anyOf ok", `{"anyOf":[{"type":"string"},{"minimum":5}]}`, `7`, true, ""},
		{"anyOf none", `{"anyOf":[{"type":"string"},{"minimum":5}]}`, `3`, false, jsonskema.CodeNoMatch},
		{"oneOf one", `{"oneOf":[{"type":"integer"},{"minimum":0}]}`, `-1`, true, ""},
		{"oneOf both", `{"oneOf":[{"type":"integer"},{"minimum":0}]}`, `1`, false, jsonskema.CodeUnionAmbiguous},
		{"oneOf neither", `{"oneOf":[{"type":"integer"},{"minimum":0}]}`, `-1.5`, false, jsonskema.CodeNoMatch},
		{"not", `{"not":{"type":"string"}}`, `"s"`, false, jsonskema.CodeNot},
		{"not passes", `{"not":{"type":"string"}}`, `1`, true, ""},
		{"if then", `{"if":{"properties":{"k":{"const":"a"}}},"then":{"required":["x"]},"else":{"required":["y"]}}`, `{"k":"a"}`, false, jsonskema.CodeRequired},
		{"if else", `{"if":{"properties":{"k":{"const":"a"}}},"then":{"required":["x"]},"else":{"required":["y"]}}`, `{"k":"b","y":1}`, true, ""},
		{"lone if", `{"if":false}`, `1`, true, ""},
		{"unknown keywords ignored", `{"x-custom":{"type":"nothing"}}`, `1`, true, ""},
		{"format uuid", `{"format":"uuid"}`, `"123e4567-e89b-12d3-a456-426614174000"`, true, ""},
		{"format uuid bad", `{"format":"uuid"}`, `"nope"`, false, jsonskema.CodeInvalidFormat},
		{"format ignores other kinds", `{"format":"email"}`, `12`, true, ""},
		{"format date bound", `{"format":"date","formatMaximum":"2020-01-01"}`, `"2021-01-01"`, false, jsonskema.CodeTooBig},
		{"format numeric coerces", `{"format":"uint8"}`, `"255"`, true, ""},
		{"format numeric strict", `{"format":"uint8","formatStrict":true}`, `"255"`, false, jsonskema.CodeInvalidFormat},
		{"format uint8 range", `{"format":"uint8"}`, `256`, false, jsonskema.CodeInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := compileJSON(t, tc.schema)
			iss := v.Evaluate(doc(t, tc.inst))
			if tc.valid {
				assert.Empty(t, iss, dump(iss))
				return
			}
			require.NotEmpty(t, iss)
			assert.Equal(t, tc.code, iss[0].Code, dump(iss))
		})
	}
}

func TestBooleanSchemas(t *testing.T) {
	yes := jsonskema.MustCompile(true)
	no := jsonskema.MustCompile(false)
	for _, inst := range []any{nil, true, 0.5, "s", []any{1}, map[string]any{"a": 1}, big.NewInt(3)} {
		assert.True(t, yes.Validate(inst))
		assert.False(t, no.Validate(inst))
		assert.Equal(t, jsonskema.CodeFalseSchema, no.Errors()[0].Code)
		assert.Equal(t, "/", no.ErrorPath())
	}
}

func TestScenario_StringLength(t *testing.T) {
	v := compileJSON(t, `{"type":"string","minLength":2,"maxLength":3}`)
	for inst, want := range map[string]bool{"A": false, "AB": true, "ABC": true, "ABCD": false} {
		assert.Equal(t, want, v.Validate(inst), inst)
	}
}

func TestScenario_ExclusiveMaximumBigInt(t *testing.T) {
	v := jsonskema.MustCompile(map[string]any{"exclusiveMaximum": big.NewInt(42)})
	assert.True(t, v.Validate(52.0), "ordinary numbers ignore a bigint bound")
	assert.True(t, v.Validate(big.NewInt(32)))
	assert.False(t, v.Validate(big.NewInt(42)))
	assert.False(t, v.Validate(big.NewInt(52)))
	assert.Equal(t, jsonskema.CodeTooBig, v.Errors()[0].Code)
}

func TestBigIntExactness(t *testing.T) {
	huge, _ := new(big.Int).SetString("9007199254740993", 10) // 2^53 + 1, not a float64

	v := jsonskema.MustCompile(map[string]any{"minimum": big.NewInt(0), "maximum": huge})
	assert.True(t, v.Validate(huge))
	assert.False(t, v.Validate(new(big.Int).Add(huge, big.NewInt(1))))
	assert.False(t, v.Validate(big.NewInt(-1)))
	assert.True(t, v.Validate(-5.0), "ordinary numbers ignore bigint bounds")

	// ordinary bounds apply to bigints too
	v = jsonskema.MustCompile(map[string]any{"maximum": 10})
	assert.False(t, v.Validate(big.NewInt(11)))
	assert.True(t, v.Validate(big.NewInt(10)))

	v = jsonskema.MustCompile(map[string]any{"multipleOf": big.NewInt(3)})
	assert.True(t, v.Validate(new(big.Int).Mul(huge, big.NewInt(3))))
	assert.False(t, v.Validate(new(big.Int).Add(huge, big.NewInt(1))))
	assert.True(t, v.Validate(10.0))
}

func TestBigIntType(t *testing.T) {
	b := big.NewInt(1)
	assert.False(t, compileJSON(t, `{"type":"integer"}`).Validate(b))
	assert.False(t, compileJSON(t, `{"type":"number"}`).Validate(b))
	assert.True(t, compileJSON(t, `{"type":"bigint"}`).Validate(b))
	assert.False(t, compileJSON(t, `{"type":"bigint"}`).Validate(1.0))
	assert.True(t, compileJSON(t, `{"type":["integer","bigint"]}`).Validate(b))
	assert.True(t, compileJSON(t, `{"const":1}`).Validate(b), "a bigint equals a number with the same integer value")
}

func TestPatternLiteral(t *testing.T) {
	lit := jsonskema.MustCompile(map[string]any{"pattern": pattern.Literal("^abc$", "i")})
	raw := jsonskema.MustCompile(map[string]any{"pattern": "^abc$"})
	assert.True(t, lit.Validate("ABC"))
	assert.False(t, raw.Validate("ABC"))
	assert.Equal(t, jsonskema.CodePattern, raw.Errors()[0].Code)

	re := jsonskema.MustCompile(map[string]any{"pattern": regexp.MustCompile(`^\d+$`)})
	assert.True(t, re.Validate("123"))
	assert.False(t, re.Validate("12a"))

	// a delimited string is not a literal: the slashes are part of the regex
	assert.False(t, jsonskema.MustCompile(map[string]any{"pattern": "/abc/i"}).Validate("ABC"))
}

func TestIssueLocations(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"age": {"type": "integer", "minimum": 0},
			"a/b": {"type": "string"}
		}
	}`
	inst := doc(t, `{"age": -1, "a/b": 1}`)

	iss := compileJSON(t, schema, jsonskema.WithAllErrors(true)).Evaluate(inst)
	require.Len(t, iss, 3, dump(iss))
	assert.Equal(t, []string{jsonskema.CodeRequired, jsonskema.CodeInvalidType, jsonskema.CodeTooSmall}, iss.Codes())
	assert.Equal(t, "/name", iss[0].Path)
	assert.Equal(t, "mem://jsonskema/root.json#/required", iss[0].SchemaPath)
	assert.Equal(t, "/a~1b", iss[1].Path)
	assert.Equal(t, "mem://jsonskema/root.json#/properties/a~1b/type", iss[1].SchemaPath)
	assert.Equal(t, "/age", iss[2].Path)
	assert.Equal(t, "minimum", iss[2].Keyword)
	assert.Equal(t, float64(0), iss[2].Value)
	assert.NotEmpty(t, iss[2].Message)

	// without AllErrors each AND group stops at its first failure
	iss = compileJSON(t, schema).Evaluate(inst)
	require.Len(t, iss, 1, dump(iss))
	assert.Equal(t, jsonskema.CodeRequired, iss[0].Code)
}

func TestCombinatorIssues(t *testing.T) {
	v := compileJSON(t, `{"anyOf":[{"type":"string"},{"minimum":5}]}`)
	iss := v.Evaluate(3.0)
	require.Len(t, iss, 3, dump(iss))
	assert.Equal(t, []string{jsonskema.CodeNoMatch, jsonskema.CodeInvalidType, jsonskema.CodeTooSmall}, iss.Codes())

	// a branch failure does not leak when another branch succeeds
	assert.Empty(t, v.Evaluate("s"))

	v = compileJSON(t, `{"oneOf":[{"type":"integer"},{"minimum":0},{"maximum":100}]}`, jsonskema.WithAllErrors(true))
	iss = v.Evaluate(1.0)
	require.Len(t, iss, 1)
	assert.Equal(t, jsonskema.CodeUnionAmbiguous, iss[0].Code)
	assert.Equal(t, 3, iss[0].Params["count"])
	assert.Equal(t, []int{0, 1, 2}, iss[0].Params["matched"])

	// not and if never leak inner issues
	iss = compileJSON(t, `{"not":{"type":"integer"}}`).Evaluate(1.0)
	require.Len(t, iss, 1)
	iss = compileJSON(t, `{"if":{"type":"string"},"else":{"minimum":10}}`).Evaluate(1.0)
	require.Len(t, iss, 1)
	assert.Equal(t, "minimum", iss[0].Keyword)
}

func TestUnevaluated(t *testing.T) {
	v := compileJSON(t, `{
		"properties": {"a": {}},
		"allOf": [{"properties": {"b": {}}}],
		"unevaluatedProperties": false
	}`)
	assert.True(t, v.Validate(doc(t, `{"a":1,"b":2}`)))
	require.False(t, v.Validate(doc(t, `{"a":1,"c":3}`)))
	assert.Equal(t, jsonskema.CodeUnevaluated, v.Errors()[0].Code)
	assert.Equal(t, "/c", v.ErrorPath())

	// properties of a failing branch do not count as evaluated
	v = compileJSON(t, `{
		"anyOf": [
			{"properties": {"a": {"type": "string"}}, "required": ["a"]},
			{"properties": {"b": {}}, "required": ["b"]}
		],
		"unevaluatedProperties": false
	}`)
	assert.True(t, v.Validate(doc(t, `{"b":2}`)))
	assert.True(t, v.Validate(doc(t, `{"a":"s","b":2}`)))
	require.False(t, v.Validate(doc(t, `{"a":1,"b":2}`)))
	assert.Equal(t, "/a", v.ErrorPath())

	// annotations flow through references and conditionals
	v = compileJSON(t, `{
		"$defs": {"base": {"properties": {"id": {}}}},
		"$ref": "#/$defs/base",
		"if": {"properties": {"kind": {"const": "x"}}},
		"then": {"properties": {"x": {}}},
		"unevaluatedProperties": {"type": "boolean"}
	}`)
	assert.True(t, v.Validate(doc(t, `{"id":1,"kind":"x","x":2,"extra":true}`)))
	assert.False(t, v.Validate(doc(t, `{"id":1,"kind":"y","x":2}`)))

	v = compileJSON(t, `{"prefixItems":[{}],"contains":{"type":"string"},"unevaluatedItems":{"type":"integer"}}`)
	assert.True(t, v.Validate(doc(t, `[true,"s",3]`)))
	require.False(t, v.Validate(doc(t, `[true,"s",false]`)))
	assert.Equal(t, "/2", v.ErrorPath())

	v = compileJSON(t, `{"items":{},"unevaluatedItems":false}`)
	assert.True(t, v.Validate(doc(t, `[1,2,3]`)))
}

func TestDraftVocabulary(t *testing.T) {
	// draft-07 tuples and additionalItems
	v := compileJSON(t, `{"$schema":"http://json-schema.org/draft-07/schema#","items":[{"type":"string"}],"additionalItems":false}`)
	assert.True(t, v.Validate(doc(t, `["a"]`)))
	require.False(t, v.Validate(doc(t, `["a",1]`)))
	assert.Equal(t, "/1", v.ErrorPath())

	// keywords next to $ref are ignored before 2019-09
	d7 := `{"$schema":"http://json-schema.org/draft-07/schema#","definitions":{"s":{"type":"string"}},"properties":{"a":{"$ref":"#/definitions/s","maxLength":1}}}`
	assert.True(t, compileJSON(t, d7).Validate(doc(t, `{"a":"long"}`)))
	d2020 := `{"$defs":{"s":{"type":"string"}},"properties":{"a":{"$ref":"#/$defs/s","maxLength":1}}}`
	assert.False(t, compileJSON(t, d2020).Validate(doc(t, `{"a":"long"}`)))

	// draft-07 dependencies in both forms
	v = compileJSON(t, `{"$schema":"http://json-schema.org/draft-07/schema#","dependencies":{"a":["b"],"c":{"required":["d"]}}}`)
	assert.True(t, v.Validate(doc(t, `{"a":1,"b":2}`)))
	assert.False(t, v.Validate(doc(t, `{"a":1}`)))
	assert.False(t, v.Validate(doc(t, `{"c":1}`)))

	// draft-06 has no conditionals; draft-07 has no unevaluated*
	assert.True(t, compileJSON(t, `{"$schema":"http://json-schema.org/draft-06/schema#","if":true,"then":false}`).Validate(1.0))
	assert.True(t, compileJSON(t, `{"$schema":"http://json-schema.org/draft-07/schema#","unevaluatedProperties":false}`).Validate(doc(t, `{"a":1}`)))

	// contains counting starts with 2019-09
	assert.True(t, compileJSON(t, `{"$schema":"http://json-schema.org/draft-07/schema#","contains":{"const":1},"maxContains":1}`).Validate(doc(t, `[1,1]`)))
	assert.False(t, compileJSON(t, `{"$schema":"https://json-schema.org/draft/2019-09/schema","contains":{"const":1},"maxContains":1}`).Validate(doc(t, `[1,1]`)))

	// array-form items is a 2020-12 compile error
	_, err := jsonskema.Compile(doc(t, `{"items":[{}]}`))
	assert.ErrorIs(t, err, jsonskema.ErrInvalidKeyword)

	// default draft is configurable
	v = compileJSON(t, `{"items":[{"type":"string"}]}`, jsonskema.WithDraft(7))
	assert.False(t, v.Validate(doc(t, `[1]`)))
	assert.Equal(t, "draft-07", v.Draft().Name)
}
