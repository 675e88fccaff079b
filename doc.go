// Package jsonskema compiles JSON Schema documents (draft-06, draft-07,
// 2019-09 and 2020-12) into reusable validators.
//
// - Documents are plain decoded values: map[string]any, []any, strings, bools,
//   nil and numbers (float64, json.Number, fixed-width integers or *big.Int).
// - Validation reports Issues: instance JSON Pointer, schema location, a stable
//   code and a message from package i18n.
// - "$ref" resolves within the document, against schemas added with
//   RegisterSchema and against the bundled meta-schemas. Nothing is fetched
//   over the network.
// - Formats come from package format and assert by default; unknown format
//   names fail compilation.
//
// Design policy:
// - Keep only public APIs in the root package; put decoding internals under internal/.
// - Drafts live in draft/, formats in format/, pattern literals in pattern/, and the
//   CLI under cmd/jsonskema.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	v, err := jsonskema.New(jsonskema.WithAllErrors(true)).Compile(schema)
//	inst, err := jsonskema.DecodeJSON(data, jsonskema.DecodeOpt{NumberMode: jsonskema.NumberJSONNumber})
//	if iss := v.Evaluate(inst); iss != nil {
//		for _, it := range iss {
//			log.Printf("%s: %s", it.Path, it.Message)
//		}
//	}
package jsonskema
