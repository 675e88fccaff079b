package jsonskema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/jsonskema/internal/engine"
)

// NumberMode dictates how decoded numbers are represented.
type NumberMode int

const (
	NumberFloat64    NumberMode = iota // Fast mode (with potential precision loss).
	NumberJSONNumber                   // Preserve json.Number.
	// NumberBigInt keeps integers exact: int64 when they fit, *big.Int
	// otherwise. Non-integers become float64.
	NumberBigInt
)

// Severity expresses the severity level for decoding findings.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// DecodeOpt bundles decoding options.
type DecodeOpt struct {
	NumberMode     NumberMode
	OnDuplicateKey Severity // Warn or Error (duplicate JSON keys).
	MaxDepth       int      // 0 means unlimited.
	// OnWarning receives Warn-severity findings. Optional.
	OnWarning func(Issue)
}

// DecodeJSON decodes a single JSON document into the value model.
func DecodeJSON(data []byte, opts ...DecodeOpt) (any, error) {
	return decodeFrom(eng.NewBytes(data), lastOpt(opts))
}

// DecodeJSONReader is DecodeJSON reading from r until the document ends.
func DecodeJSONReader(r io.Reader, opts ...DecodeOpt) (any, error) {
	return decodeFrom(eng.NewReader(r), lastOpt(opts))
}

func lastOpt(opts []DecodeOpt) DecodeOpt {
	if len(opts) == 0 {
		return DecodeOpt{}
	}
	return opts[len(opts)-1]
}

func decodeFrom(src eng.TokenSource, opt DecodeOpt) (any, error) {
	var sink func(eng.SimpleIssue)
	if opt.OnWarning != nil && opt.OnDuplicateKey == Warn {
		sink = func(si eng.SimpleIssue) {
			if si.Code == CodeDuplicateKey {
				opt.OnWarning(fromEngineIssue(si))
			}
		}
	}
	enforced := eng.WrapWithEnforcement(src, eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		IssueSink:   sink,
	})
	v, err := eng.Decode(enforced, toEngineNumber(opt.NumberMode))
	if err != nil {
		return nil, toIssues(err)
	}
	return v, nil
}

func toEngineNumber(m NumberMode) eng.NumberMode {
	switch m {
	case NumberJSONNumber:
		return eng.NumberJSONNumber
	case NumberBigInt:
		return eng.NumberBigInt
	default:
		return eng.NumberFloat64
	}
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}

func fromEngineIssue(si eng.SimpleIssue) Issue {
	return Issue{Keyword: "decode", Code: si.Code, Path: si.Path, Message: si.Message}
}

// toIssues maps decoding errors to Issues.
func toIssues(err error) Issues {
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return Issues{fromEngineIssue(ie.SimpleIssue)}
	}
	return Issues{{Keyword: "decode", Code: CodeParseError, Path: "/", Message: err.Error()}}
}

// DetectDuplicateKeys reports every duplicated object key of a JSON document
// with its path. maxIssues < 0 means unlimited; otherwise the list is capped
// and ends with a truncated entry.
func DetectDuplicateKeys(data []byte, maxIssues int) Issues {
	var iss Issues
	for _, si := range eng.DetectDuplicateKeys(eng.NewBytes(data), maxIssues) {
		iss = AppendIssues(iss, fromEngineIssue(si))
	}
	return iss
}

// DecodeYAML decodes the first document of a YAML stream into the value model.
func DecodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, Issues{{Keyword: "decode", Code: CodeParseError, Path: "/", Message: err.Error()}}
	}
	return normalizeDoc(v), nil
}

// DecodeYAMLAll decodes every document of a YAML stream.
func DecodeYAMLAll(data []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []any
	for i := 0; ; i++ {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, Issues{{Keyword: "decode", Code: CodeParseError, Path: "/",
				Message: fmt.Sprintf("document %d: %v", i, err)}}
		}
		out = append(out, normalizeDoc(v))
	}
}

// normalizeDoc converts YAML-decoded values (which may contain map[any]any)
// into the JSON-like model. Values without such maps are returned as is.
func normalizeDoc(v any) any {
	out, _ := normalizeValue(v)
	return out
}

func normalizeValue(v any) (any, bool) {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			nv, _ := normalizeValue(vv)
			out[fmt.Sprint(k)] = nv
		}
		return out, true
	case map[string]any:
		var out map[string]any
		for k, vv := range t {
			if nv, changed := normalizeValue(vv); changed {
				if out == nil {
					out = make(map[string]any, len(t))
					for k2, v2 := range t {
						out[k2] = v2
					}
				}
				out[k] = nv
			}
		}
		if out == nil {
			return t, false
		}
		return out, true
	case []any:
		var out []any
		for i, vv := range t {
			if nv, changed := normalizeValue(vv); changed {
				if out == nil {
					out = append([]any(nil), t...)
				}
				out[i] = nv
			}
		}
		if out == nil {
			return t, false
		}
		return out, true
	default:
		return v, false
	}
}
