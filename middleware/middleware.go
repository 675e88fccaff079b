// Package middleware validates JSON request bodies against a compiled schema.
// Framework adapters live in the echo and gin submodules.
package middleware

import (
	"context"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/reoring/jsonskema"
)

// Evaluator is satisfied by *jsonskema.Validator, *jsonskema.SyncValidator and
// *kubeopenapi.Validator.
type Evaluator interface {
	Evaluate(inst any) jsonskema.Issues
}

type ctxKeyInstance struct{}

// ContextWithInstance attaches a validated instance to the context.
func ContextWithInstance(ctx context.Context, inst any) context.Context {
	return context.WithValue(ctx, ctxKeyInstance{}, inst)
}

// InstanceFromContext retrieves the instance stored by ContextWithInstance.
func InstanceFromContext(ctx context.Context) (any, bool) {
	v := ctx.Value(ctxKeyInstance{})
	if v == nil {
		return nil, false
	}
	return v, true
}

// DefaultDecodeOpt returns a recommended default for HTTP JSON boundaries.
// - Duplicate keys are errors
// - Numbers stay exact as json.Number and still count as "number"/"integer"
// - Nesting is bounded
func DefaultDecodeOpt() jsonskema.DecodeOpt {
	return jsonskema.DecodeOpt{
		NumberMode:     jsonskema.NumberJSONNumber,
		OnDuplicateKey: jsonskema.Error,
		MaxDepth:       256,
	}
}

func withDefaults(opt jsonskema.DecodeOpt) jsonskema.DecodeOpt {
	if opt.NumberMode == 0 && opt.OnDuplicateKey == 0 && opt.MaxDepth == 0 && opt.OnWarning == nil {
		return DefaultDecodeOpt()
	}
	return opt
}

// Decode reads one JSON document from r and validates it with v. Decoding and
// validation failures are returned as jsonskema.Issues. A zero opt means
// DefaultDecodeOpt.
func Decode(r io.Reader, v Evaluator, opt jsonskema.DecodeOpt) (any, error) {
	inst, err := jsonskema.DecodeJSONReader(r, withDefaults(opt))
	if err != nil {
		return nil, err
	}
	if iss := v.Evaluate(inst); iss != nil {
		return nil, iss
	}
	return inst, nil
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues jsonskema.Issues) map[string]any {
	return map[string]any{"issues": []jsonskema.Issue(issues)}
}

// ValidateJSON is net/http middleware: it validates the request body with v,
// stores the instance in the request context on success, or answers 400 with
// the Issues payload.
func ValidateJSON(v Evaluator, opt jsonskema.DecodeOpt) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inst, err := Decode(r.Body, v, opt)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithInstance(r.Context(), inst)))
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	var body any = map[string]any{"error": err.Error()}
	if iss, ok := jsonskema.AsIssues(err); ok {
		body = ErrorPayload(iss)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(body)
}
