package protocol

import "fmt"

// ValidationError reports input rejected by local checks. It is corrected at
// the call site and never sent to the server.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
