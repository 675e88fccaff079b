// Package pattern normalises the two accepted spellings of a "pattern" keyword
// value (a raw regular expression string, or a delimited literal such as
// /^ab+c$/i) into a compiled Go regular expression.
//
// Matching uses Go's RE2 engine. Constructs RE2 does not support (lookaround,
// backreferences) fail at compile time.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is wrapped by every error returned from this package.
var ErrInvalid = errors.New("pattern: invalid")

// Pattern is a delimited pattern literal: the expression source plus inline
// flags.
type Pattern struct {
	Source string
	Flags  string
}

// String renders the literal in /source/flags form.
func (p Pattern) String() string { return "/" + p.Source + "/" + p.Flags }

// supported flags and their RE2 counterparts; "u" is implied by RE2.
var flagMap = map[rune]string{
	'i': "i",
	'm': "m",
	's': "s",
	'u': "",
}

// IsLiteral reports whether s has the /source/flags shape.
func IsLiteral(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse splits a delimited literal into source and flags.
func Parse(s string) (Pattern, error) {
	if len(s) < 2 || s[0] != '/' {
		return Pattern{}, fmt.Errorf("%w: %q is not a delimited literal", ErrInvalid, s)
	}
	end := strings.LastIndexByte(s, '/')
	if end == 0 {
		return Pattern{}, fmt.Errorf("%w: %q has no closing delimiter", ErrInvalid, s)
	}
	p := Pattern{Source: s[1:end], Flags: s[end+1:]}
	if err := checkFlags(p.Flags); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// Literal builds a Pattern; it panics on unsupported flags.
func Literal(source, flags string) Pattern {
	if err := checkFlags(flags); err != nil {
		panic(err)
	}
	return Pattern{Source: source, Flags: flags}
}

func checkFlags(flags string) error {
	seen := map[rune]bool{}
	for _, f := range flags {
		if _, ok := flagMap[f]; !ok {
			return fmt.Errorf("%w: unsupported flag %q", ErrInvalid, f)
		}
		if seen[f] {
			return fmt.Errorf("%w: duplicate flag %q", ErrInvalid, f)
		}
		seen[f] = true
	}
	return nil
}

// Expr returns the RE2 expression equivalent to the literal.
func (p Pattern) Expr() (string, error) {
	if err := checkFlags(p.Flags); err != nil {
		return "", err
	}
	var inline strings.Builder
	for _, f := range p.Flags {
		inline.WriteString(flagMap[f])
	}
	if inline.Len() == 0 {
		return p.Source, nil
	}
	return "(?" + inline.String() + ")" + p.Source, nil
}

// Compile accepts a raw pattern string, a Pattern or an already compiled
// *regexp.Regexp. Any other value is rejected.
func Compile(v any) (*regexp.Regexp, error) {
	var expr string
	switch t := v.(type) {
	case *regexp.Regexp:
		if t == nil {
			return nil, fmt.Errorf("%w: nil regexp", ErrInvalid)
		}
		return t, nil
	case string:
		expr = t
	case Pattern:
		e, err := t.Expr()
		if err != nil {
			return nil, err
		}
		expr = e
	case *Pattern:
		if t == nil {
			return nil, fmt.Errorf("%w: nil pattern", ErrInvalid)
		}
		return Compile(*t)
	default:
		return nil, fmt.Errorf("%w: expected string or pattern literal, got %T", ErrInvalid, v)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return re, nil
}
