package parser

import "fmt"

// The parser fails as a whole on the first problem it finds, and the error kind
// tells the operator where to look: StructuralError means the email template
// changed, GrammarError means a schedule box no longer scans, SemanticError
// means the dates themselves don't add up.

// StructuralError reports HTML that does not match the expected newsletter
// shape (missing link, missing title heading, broken schedule box ancestry).
type StructuralError struct {
	Msg string
}

func (e *StructuralError) Error() string {
	return "newsletter structure: " + e.Msg
}

func newStructuralError(format string, args ...any) *StructuralError {
	return &StructuralError{Msg: fmt.Sprintf(format, args...)}
}

// GrammarError reports schedule text the date-entry grammar cannot accept.
// Fragment carries the offending span of source text.
type GrammarError struct {
	Fragment string
	Msg      string
}

func (e *GrammarError) Error() string {
	if e.Fragment == "" {
		return "date grammar: " + e.Msg
	}
	return fmt.Sprintf("date grammar: %s (near %q)", e.Msg, e.Fragment)
}

func newGrammarError(fragment, format string, args ...any) *GrammarError {
	return &GrammarError{Fragment: fragment, Msg: fmt.Sprintf(format, args...)}
}

// SemanticError reports well-formed input with an impossible meaning: a wrong
// day-number count in the subject, an invalid calendar date or showtime, or a
// day-only entry that fits neither boundary month.
type SemanticError struct {
	Fragment string
	Msg      string
}

func (e *SemanticError) Error() string {
	if e.Fragment == "" {
		return "date semantics: " + e.Msg
	}
	return fmt.Sprintf("date semantics: %s (near %q)", e.Msg, e.Fragment)
}

func newSemanticError(fragment, format string, args ...any) *SemanticError {
	return &SemanticError{Fragment: fragment, Msg: fmt.Sprintf(format, args...)}
}
