package jsonskema

import (
	"sync"

	"github.com/reoring/jsonskema/draft"
)

// Validator applies a compiled schema to instances. The compiled program is
// immutable; Evaluate and Check are safe for concurrent use. Validate keeps
// its result in the Validator and is not; use Clone or Synchronized for that.
type Validator struct {
	p    *program
	errs Issues
}

func newValidator(p *program) *Validator { return &Validator{p: p} }

// Evaluate validates inst and returns its issues; nil means valid.
func (v *Validator) Evaluate(inst any) Issues {
	e := evaluator{p: v.p}
	out := e.eval(v.p.root, inst, nil)
	if len(out.issues) == 0 {
		return nil
	}
	return out.issues
}

// Check is Evaluate returning an error, which is Issues when inst is invalid.
func (v *Validator) Check(inst any) error {
	if iss := v.Evaluate(inst); len(iss) > 0 {
		return iss
	}
	return nil
}

// Validate evaluates inst and keeps the issues for Errors.
func (v *Validator) Validate(inst any) bool {
	v.errs = v.Evaluate(inst)
	return len(v.errs) == 0
}

// Errors returns the issues of the last Validate call.
func (v *Validator) Errors() Issues { return v.errs }

// ErrorPath returns the instance path of the first issue of the last Validate
// call, or "" when it succeeded.
func (v *Validator) ErrorPath() string {
	if len(v.errs) == 0 {
		return ""
	}
	return v.errs[0].Path
}

// Clone returns a Validator sharing the compiled program with its own
// Validate state.
func (v *Validator) Clone() *Validator { return &Validator{p: v.p} }

// Location is the canonical URI of the compiled root schema.
func (v *Validator) Location() string { return v.p.loc }

// Draft is the draft the root schema was compiled under.
func (v *Validator) Draft() *draft.Descriptor { return v.p.draft }

// SyncValidator guards a Validator's Validate state with a mutex.
type SyncValidator struct {
	mu sync.Mutex
	v  *Validator
}

// Synchronized wraps a clone of v for sharing between goroutines.
func Synchronized(v *Validator) *SyncValidator { return &SyncValidator{v: v.Clone()} }

func (s *SyncValidator) Evaluate(inst any) Issues { return s.v.Evaluate(inst) }

func (s *SyncValidator) Check(inst any) error { return s.v.Check(inst) }

func (s *SyncValidator) Validate(inst any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.Validate(inst)
}

func (s *SyncValidator) Errors() Issues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(Issues(nil), s.v.errs...)
}

func (s *SyncValidator) ErrorPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.ErrorPath()
}

func (s *SyncValidator) Clone() *Validator { return s.v.Clone() }

func (s *SyncValidator) Location() string { return s.v.Location() }

func (s *SyncValidator) Draft() *draft.Descriptor { return s.v.Draft() }
