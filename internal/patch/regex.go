package patch

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrSearchNotFound means neither the original construct nor its patched
// form is present: the upstream file changed shape.
var ErrSearchNotFound = errors.New("search string not found")

// SearchError names the construct that could not be found.
type SearchError struct {
	Search string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s: `%s`", ErrSearchNotFound, e.Search)
}

func (e *SearchError) Unwrap() error { return ErrSearchNotFound }

// RegexTransform comments out every statement matched by Original.
//
// Both expressions must capture the indentation as group 1 and the statement
// as group 2. Patched must match the same statement already prefixed with
// "// " so that a second run is a no-op.
type RegexTransform struct {
	// Search is the human label used in errors.
	Search   string
	Original *regexp.Regexp
	Patched  *regexp.Regexp
}

// Apply implements Transform.
func (t RegexTransform) Apply(content string) (string, Status, error) {
	if !t.Original.MatchString(content) {
		if t.Patched.MatchString(content) {
			return content, StatusAlreadyPatched, nil
		}
		return content, "", &SearchError{Search: t.Search}
	}
	return t.Original.ReplaceAllString(content, "${1}// ${2}"), StatusPatched, nil
}

// CommentOut builds a RegexTransform from the statement pattern alone. The
// pattern must not contain capture groups of its own; indentation is
// restricted to spaces and tabs on the statement's line.
func CommentOut(search, statement string) RegexTransform {
	return RegexTransform{
		Search:   search,
		Original: regexp.MustCompile(`(?m)^([ \t]*)(` + statement + `)`),
		Patched:  regexp.MustCompile(`(?m)^([ \t]*)// (` + statement + `)`),
	}
}
