package pipeline

import "fmt"

// NotFoundError means a lookup missed: an issue identifier, a comment id.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

// ConfigurationError means workspace scoping could not be determined, so
// the operation cannot write anywhere safely. Fatal for that operation.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "cannot determine workspace scoping: " + e.Reason
}
