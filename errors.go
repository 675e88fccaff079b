package jsonskema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType       = "invalid_type"
	CodeInvalidEnum       = "invalid_enum"
	CodeInvalidConst      = "invalid_const"
	CodeInvalidFormat     = "invalid_format"
	CodeTooSmall          = "too_small"
	CodeTooBig            = "too_big"
	CodeNotMultiple       = "not_multiple"
	CodeTooShort          = "too_short"
	CodeTooLong           = "too_long"
	CodePattern           = "pattern"
	CodeTooFewItems       = "too_few_items"
	CodeTooManyItems      = "too_many_items"
	CodeUniqueness        = "uniqueness"
	CodeContains          = "contains"
	CodeRequired          = "required"
	CodeTooFewProperties  = "too_few_properties"
	CodeTooManyProperties = "too_many_properties"
	CodeUnknownKey        = "unknown_key"
	CodePropertyName      = "property_name"
	// anyOf/oneOf with no matching branch
	CodeNoMatch = "no_match"
	// oneOf with more than one matching branch
	CodeUnionAmbiguous = "union_ambiguous"
	CodeNot            = "not"
	CodeFalseSchema    = "false_schema"
	CodeUnevaluated    = "unevaluated"
	CodeMaxDepth       = "max_depth"
	// Decoding
	CodeDuplicateKey = "duplicate_key"
	CodeParseError   = "parse_error"
	CodeTruncated    = "truncated"
)

// Issue represents a single validation entry.
type Issue struct {
	Keyword    string // Schema keyword that failed (for example: minLength).
	Value      any    // The keyword's schema value.
	Path       string // Instance JSON Pointer (for example: /items/2/price); "/" is the root.
	SchemaPath string // Location of the keyword: "<uri>#<pointer>/<keyword>".
	Code       string // One of the codes listed above.
	Message    string
	// Params carries structured parameters (e.g., {"limit":1, "got":42})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. too_short at /name (minLength)
		fmt.Fprintf(b, "%s at %s (%s)", it.Code, it.Path, it.Keyword)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Codes returns the issue codes in order, mostly useful in tests and logs.
func (iss Issues) Codes() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Code
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

var (
	// ErrUnresolvedRef reports a reference whose target cannot be found.
	ErrUnresolvedRef = errors.New("unresolved reference")
	// ErrUnknownFormat reports a format name no registry knows.
	ErrUnknownFormat = errors.New("unknown format")
	// ErrInvalidKeyword reports a keyword whose value has the wrong shape.
	ErrInvalidKeyword = errors.New("invalid keyword value")
)

// CompileError is returned when a schema document cannot be compiled.
type CompileError struct {
	Keyword    string
	SchemaPath string
	Err        error
}

func (e *CompileError) Error() string {
	if e.Keyword == "" {
		return fmt.Sprintf("compile %s: %v", e.SchemaPath, e.Err)
	}
	return fmt.Sprintf("compile %s (%s): %v", e.SchemaPath, e.Keyword, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
