package notify

import "fmt"

// ValidationError is returned when a registration or trigger request is
// malformed. It never reaches engine state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}
