package prediction

import (
	"fmt"
	"strings"
)

// ValidationError reports a record that cannot be predicted on. Fields lists
// the offending names; the message is safe to return to callers.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func missingFields(names []string) *ValidationError {
	return &ValidationError{
		Fields:  names,
		Message: "Missing fields: " + strings.Join(names, ", "),
	}
}

// ConfigurationError means the service cannot serve a variant: its regressor
// is absent or does not fit the assembler.
type ConfigurationError struct {
	Variant string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s model misconfigured: %s", e.Variant, e.Reason)
}

// InferenceError wraps a regressor failure. Its message is not meant for
// callers; log it and answer with a generic error.
type InferenceError struct {
	Variant string
	Model   string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference with %s failed: %v", e.Variant, e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
