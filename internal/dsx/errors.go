package dsx

import (
	"fmt"
	"strings"
)

// ParseError reports input that could not be tokenized or structured:
// bad block nesting, a truncated heredoc, or an unreadable file.
type ParseError struct {
	Line    int
	Msg     string
	Context []string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dsx parse error at line %d: %s", e.Line, e.Msg)
	}

	return fmt.Sprintf("dsx parse error: %s", e.Msg)
}

// ContextWindow renders the captured source lines around the failure,
// marking the offending line.
func (e *ParseError) ContextWindow() string {
	if len(e.Context) == 0 {
		return ""
	}

	var sb strings.Builder

	start := e.Line - len(e.Context)/2
	if start < 1 {
		start = 1
	}

	for i, line := range e.Context {
		prefix := "   "
		if start+i == e.Line {
			prefix = ">>>"
		}

		fmt.Fprintf(&sb, "%s %d: %s\n", prefix, start+i, line)
	}

	return sb.String()
}

// ValidationError reports structural violations in an otherwise parseable
// export. The parser reports mismatched END types as ParseError, not as
// ValidationError.
type ValidationError struct {
	Identifier string
	Msg        string
}

func (e *ValidationError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("dsx validation error (%s): %s", e.Identifier, e.Msg)
	}

	return fmt.Sprintf("dsx validation error: %s", e.Msg)
}
