package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Issue codes reported in validation errors.
const (
	CodeInvalidType      = "invalid_type"
	CodeTooSmall         = "too_small"
	CodeTooBig           = "too_big"
	CodeInvalidString    = "invalid_string"
	CodeInvalidEnumValue = "invalid_enum_value"
)

// Issue describes one failed rule.  Path holds the field name and, for list
// elements, the element index.
type Issue struct {
	Code     string   `json:"code"`
	Expected string   `json:"expected,omitempty"`
	Received string   `json:"received,omitempty"`
	Options  []string `json:"options,omitempty"`
	Path     []any    `json:"path"`
	Message  string   `json:"message"`
}

// Field returns the top-level field the issue refers to, or "" when the
// issue concerns the whole payload.
func (i Issue) Field() string {
	if len(i.Path) == 0 {
		return ""
	}
	if s, ok := i.Path[0].(string); ok {
		return s
	}
	return ""
}

// ValidationError lists every issue found in a candidate record.  It
// serializes to the bare issue list.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		field := is.Field()
		if field == "" {
			field = "body"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, is.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// MarshalJSON encodes the error as its issue list.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	if e.Issues == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.Issues)
}

// Fields groups issue messages by top-level field.
func (e *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(e.Issues))
	for _, is := range e.Issues {
		out[is.Field()] = append(out[is.Field()], is.Message)
	}
	return out
}

// Has reports whether at least one issue names the given field.
func (e *ValidationError) Has(field string) bool {
	for _, is := range e.Issues {
		if is.Field() == field {
			return true
		}
	}
	return false
}
