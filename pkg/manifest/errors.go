package manifest

import "fmt"

// ConfigParseError wraps an underlying TOML decode error with the source
// path that failed to parse.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// FieldIssue is one field-level validation problem.
type FieldIssue struct {
	Field   string
	Message string
}

// ConfigValidationError carries every field-level issue found while
// schema-validating a manifest.
type ConfigValidationError struct {
	Path   string
	Issues []FieldIssue
}

func (e *ConfigValidationError) Error() string {
	msg := fmt.Sprintf("validation failed for %s (%d issue(s)):", e.Path, len(e.Issues))
	for _, issue := range e.Issues {
		msg += fmt.Sprintf("\n  - %s: %s", issue.Field, issue.Message)
	}
	return msg
}
