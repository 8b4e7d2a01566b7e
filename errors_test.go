package codable

import (
	"errors"
	"testing"
)

func TestSchemaError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{newSchemaError("User", "age", "default %q does not fit", "x"), `invalid schema: User.age: default "x" does not fit`},
		{newSchemaError("User", "", "cycle"), "invalid schema: User: cycle"},
	}
	for _, tt := range tests {
		if tt.err.Error() != tt.want {
			t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
		}
		if !errors.Is(tt.err, ErrSchema) {
			t.Error("SchemaError should unwrap to ErrSchema")
		}
	}
}

func TestFieldError(t *testing.T) {
	err := newFieldError(ErrKeyNotFound, "User", "name", []string{"login", "name"}, nil)
	if got := err.Error(); got != `User.name: key not found (keys "login", "name")` {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrTypeMismatch) {
		t.Error("FieldError should match only its sentinel")
	}

	inner := newFieldError(ErrFormat, "Address", "zip", nil, nil)
	outer := newFieldError(ErrTypeMismatch, "User", "home", []string{"home"}, inner)
	if got := outer.Error(); got != `User.home: type mismatch (keys "home"): Address.zip: malformed value` {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(outer, ErrTypeMismatch) || !errors.Is(outer, ErrFormat) {
		t.Error("nested FieldError should match both sentinels")
	}

	noField := &FieldError{Err: ErrPathConflict, Type: "User"}
	if got := noField.Error(); got != "User: path conflict" {
		t.Errorf("Error() = %q", got)
	}
}

func TestHookError(t *testing.T) {
	cause := errors.New("boom")
	err := &HookError{Type: "User", Phase: "encode", Cause: cause}
	if got := err.Error(); got != "User encode hook: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrHook) || !errors.Is(err, cause) {
		t.Error("HookError should match ErrHook and its cause")
	}
}

func TestNoVariantError(t *testing.T) {
	err := &NoVariantError{Type: "Shape", Value: String("hexagon")}
	if got := err.Error(); got != `Shape: no matching variant for "hexagon"` {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNoVariant) {
		t.Error("NoVariantError should unwrap to ErrNoVariant")
	}
}

func TestCodecError(t *testing.T) {
	err := newCodecError(ErrUnmarshal, errors.New("unexpected EOF"))
	if got := err.Error(); got != "unmarshal failed: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrUnmarshal) || errors.Is(err, ErrMarshal) {
		t.Error("CodecError should match only its sentinel")
	}
	if got := (&CodecError{Err: ErrMarshal}).Error(); got != "marshal failed" {
		t.Errorf("Error() = %q", got)
	}
}
