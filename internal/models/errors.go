package models

import "fmt"

// ValidationError reports the snapshot field that caused an evaluation to be refused
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}
