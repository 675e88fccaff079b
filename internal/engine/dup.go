package engine

import "io"

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// DetectDuplicateKeys scans src and reports every duplicated object key with
// its path. maxIssues < 0 means unlimited, 0 disables reporting and > 0 caps
// the list, ending it with a "truncated" entry. A syntax error ends the scan
// with a "parse_error" entry.
func DetectDuplicateKeys(src TokenSource, maxIssues int) []SimpleIssue {
	if maxIssues == 0 {
		return nil
	}
	var issues []SimpleIssue
	full := false
	sink := func(si SimpleIssue) {
		if full {
			return
		}
		issues = append(issues, si)
		if maxIssues > 0 && len(issues) >= maxIssues {
			issues = append(issues, SimpleIssue{Code: "truncated", Path: "/", Message: "max issues reached"})
			full = true
		}
	}
	enforced := &enforcingTokenSource{inner: src, opt: EnforceOptions{OnDuplicate: DupWarn, IssueSink: sink}}
	for !full {
		_, err := enforced.NextToken()
		if err == io.EOF && len(enforced.stack) > 0 {
			err = io.ErrUnexpectedEOF
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			issues = append(issues, SimpleIssue{Code: "parse_error", Path: "/", Message: err.Error()})
			break
		}
	}
	return issues
}
