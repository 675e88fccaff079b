package jsonskema_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsonskema"
)

// doc decodes a JSON literal used as schema or instance.
func doc(t testing.TB, s string) any {
	t.Helper()
	v, err := jsonskema.DecodeJSON([]byte(s))
	require.NoError(t, err, "decode %s", s)
	return v
}

func compileJSON(t testing.TB, schema string, opts ...jsonskema.Option) *jsonskema.Validator {
	t.Helper()
	v, err := jsonskema.Compile(doc(t, schema), opts...)
	require.NoError(t, err, "compile %s", schema)
	return v
}

// dump renders issues for failure messages.
func dump(iss jsonskema.Issues) string { return spew.Sdump(iss) }
