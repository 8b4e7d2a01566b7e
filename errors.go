package codable

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrSchema indicates an invalid schema detected while building plans.
	ErrSchema = errors.New("invalid schema")

	// ErrKeyNotFound indicates no candidate key resolved and the field has
	// no fallback.
	ErrKeyNotFound = errors.New("key not found")

	// ErrTypeMismatch indicates a value was present but could not be read
	// or coerced into the field's type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrFormat indicates malformed base64 or date text.
	ErrFormat = errors.New("malformed value")

	// ErrHook indicates a decode or encode hook failed.
	ErrHook = errors.New("hook failed")

	// ErrNoVariant indicates no enum variant matched the document.
	ErrNoVariant = errors.New("no matching variant")

	// ErrPathConflict indicates an encode path descends through a key that
	// already holds a non-object value.
	ErrPathConflict = errors.New("path conflict")

	// ErrUnmarshal indicates the format failed to parse input bytes.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the format failed to render output bytes.
	ErrMarshal = errors.New("marshal failed")
)

// SchemaError reports a problem found while normalizing declarations.
// Schema errors are never recoverable.
type SchemaError struct {
	Type   string // Record or enum name
	Field  string // Field name, empty for type-level problems
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s.%s: %s", ErrSchema.Error(), e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSchema.Error(), e.Type, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// FieldError reports a per-field decode or encode failure.
// It wraps ErrKeyNotFound, ErrTypeMismatch, ErrFormat or ErrPathConflict.
type FieldError struct {
	Err   error    // Underlying sentinel error
	Type  string   // Record name
	Field string   // Field name
	Keys  []string // Candidate keys tried, in order
	Cause error    // Original error, if any
}

func (e *FieldError) Error() string {
	var sb strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&sb, "%s.%s: %s", e.Type, e.Field, e.Err.Error())
	} else {
		fmt.Fprintf(&sb, "%s: %s", e.Type, e.Err.Error())
	}
	if len(e.Keys) > 0 {
		fmt.Fprintf(&sb, " (keys %s)", strings.Join(quoteAll(e.Keys), ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap exposes the sentinel and, for nested failures, the inner error.
func (e *FieldError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// HookError wraps an error returned by a decode or encode hook.
type HookError struct {
	Type  string
	Phase string // "decode" or "encode"
	Cause error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s %s hook: %v", e.Type, e.Phase, e.Cause)
}

// Unwrap returns both the sentinel and the hook's own error so either can
// be matched with errors.Is.
func (e *HookError) Unwrap() []error {
	return []error{ErrHook, e.Cause}
}

// NoVariantError reports that no enum variant matched.
type NoVariantError struct {
	Type  string
	Value Value
}

func (e *NoVariantError) Error() string {
	return fmt.Sprintf("%s: %s for %s", e.Type, ErrNoVariant.Error(), e.Value)
}

func (e *NoVariantError) Unwrap() error {
	return ErrNoVariant
}

// CodecError represents a marshal/unmarshal error from a Format.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	Cause error // Original error from the format
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// newSchemaError creates a SchemaError with a formatted reason.
func newSchemaError(typ, field, format string, args ...any) error {
	return &SchemaError{
		Type:   typ,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// newFieldError creates a FieldError for a field failure.
func newFieldError(sentinel error, typ, field string, keys []string, cause error) error {
	return &FieldError{
		Err:   sentinel,
		Type:  typ,
		Field: field,
		Keys:  keys,
		Cause: cause,
	}
}

// newCodecError creates a CodecError for marshal/unmarshal failures.
func newCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
