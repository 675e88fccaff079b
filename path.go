package jsonskema

import (
	"strconv"
	"strings"
)

// pathRef builds instance JSON Pointer paths in a chain-safe way. Each step
// shares its parent, so descending into children never copies the prefix.
// The nil *pathRef is the root.
type pathRef struct {
	parent *pathRef
	tok    string
}

func (p *pathRef) Field(name string) *pathRef {
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	return &pathRef{parent: p, tok: pointerEscaper.Replace(name)}
}

func (p *pathRef) Index(i int) *pathRef {
	return &pathRef{parent: p, tok: strconv.Itoa(i)}
}

// Pointer renders the path; the root renders as "/".
func (p *pathRef) Pointer() string {
	if p == nil {
		return "/"
	}
	var toks []string
	for q := p; q != nil; q = q.parent {
		toks = append(toks, q.tok)
	}
	var b strings.Builder
	for i := len(toks) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(toks[i])
	}
	return b.String()
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapeToken(s string) string { return pointerEscaper.Replace(s) }
