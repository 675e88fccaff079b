package jsonskema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/draft"
)

// The draft-07 subset both validators implement must agree on validity.
func TestDifferential_Gojsonschema(t *testing.T) {
	schemas := []string{
		`{"type":"object","required":["a"],"properties":{"a":{"type":"integer","minimum":0,"exclusiveMaximum":10}}}`,
		`{"type":"array","items":{"type":"string","minLength":2,"maxLength":4},"minItems":1,"uniqueItems":true}`,
		`{"items":[{"type":"string"},{"type":"number"}],"additionalItems":false}`,
		`{"anyOf":[{"type":"string","pattern":"^[a-z]+$"},{"type":"number","multipleOf":0.5}]}`,
		`{"oneOf":[{"type":"integer"},{"minimum":2}]}`,
		`{"not":{"enum":[1,"x",null]}}`,
		`{"properties":{"a":{"const":{"k":[1,2]}}},"additionalProperties":{"type":"boolean"}}`,
		`{"patternProperties":{"^n_":{"type":"number"}},"additionalProperties":false,"minProperties":1,"maxProperties":2}`,
		`{"dependencies":{"card":["billing"],"vip":{"required":["level"]}}}`,
		`{"propertyNames":{"pattern":"^[a-z]+$"}}`,
		`{"if":{"properties":{"t":{"const":"n"}}},"then":{"properties":{"v":{"type":"number"}}},"else":{"properties":{"v":{"type":"string"}}}}`,
		`{"contains":{"type":"integer","minimum":5}}`,
		`{"definitions":{"node":{"type":"object","properties":{"next":{"$ref":"#/definitions/node"},"v":{"type":"integer"}}}},"$ref":"#/definitions/node"}`,
		`{"allOf":[{"type":"number"},{"maximum":3}],"enum":[1,2,3,4]}`,
	}
	instances := []string{
		`null`, `true`, `0`, `1`, `2`, `2.5`, `3`, `7`, `11`, `-1`, `"x"`, `"ab"`, `"abcde"`, `"AB"`,
		`[]`, `["ab"]`, `["ab","ab"]`, `["a",1]`, `["a",1,2]`, `[1,7]`,
		`{}`, `{"a":1}`, `{"a":-1}`, `{"a":"1"}`, `{"a":{"k":[1,2]}}`, `{"a":{"k":[2,1]}}`, `{"b":true}`, `{"b":1}`,
		`{"n_1":1}`, `{"n_1":1,"n_2":2,"n_3":3}`, `{"m":1}`,
		`{"card":1}`, `{"card":1,"billing":2}`, `{"vip":true}`, `{"vip":true,"level":1}`, `{"Bad":1}`,
		`{"t":"n","v":1}`, `{"t":"n","v":"1"}`, `{"t":"s","v":"1"}`,
		`{"next":{"next":{"v":1}}}`, `{"next":{"next":{"v":"x"}}}`,
	}
	for _, schemaSrc := range schemas {
		schemaDoc := doc(t, schemaSrc)
		oracle, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDoc))
		require.NoError(t, err, schemaSrc)
		ours := compileJSON(t, schemaSrc, jsonskema.WithDraft(draft.Draft7))
		for _, instSrc := range instances {
			inst := doc(t, instSrc)
			res, err := oracle.Validate(gojsonschema.NewGoLoader(inst))
			require.NoError(t, err)
			assert.Equal(t, res.Valid(), ours.Validate(inst), "schema %s instance %s: %s", schemaSrc, instSrc, dump(ours.Errors()))
		}
	}
}
