package document

import "fmt"

// ValidationError reports a document whose content is well-formed but holds
// a value the tracker cannot accept, such as a non-numeric priority.
type ValidationError struct {
	Line  int // 1-based; 0 when not tied to a line
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: invalid %s: %s", e.Line, e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// TranscriptionError reports a document whose structure cannot be read back,
// such as front-matter that is never closed.
type TranscriptionError struct {
	Line int
	Msg  string
}

func (e *TranscriptionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}
