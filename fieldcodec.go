package codable

import (
	"fmt"
	"sort"
	"sync"
)

// FieldCodec overrides how a single field is read from and written to a
// document. Implementations are attached per field while the schema is
// normalized and bypass the coercion engine entirely.
type FieldCodec interface {
	// DecodeFrom reads the field from c, trying keys in order. Returning an
	// absent Value means none of the keys were present.
	DecodeFrom(c Container, keys []string) (Value, error)

	// EncodeInto writes v under key in c. Nested encode paths have already
	// been descended; key is the final segment.
	EncodeInto(c Container, key string, v Value) error
}

// ValueFunc converts one value into another.
type ValueFunc func(v Value) (Value, error)

type transformCodec struct {
	decode ValueFunc
	encode ValueFunc
}

// Transform returns a FieldCodec that looks the field up with the standard
// key rules and applies decode to the raw document value, and applies
// encode before writing. A nil function leaves values unchanged.
func Transform(decode, encode ValueFunc) FieldCodec {
	return &transformCodec{decode: decode, encode: encode}
}

func (t *transformCodec) DecodeFrom(c Container, keys []string) (Value, error) {
	for _, key := range keys {
		raw, ok := Lookup(c, key)
		if !ok {
			continue
		}
		if t.decode == nil {
			return raw, nil
		}
		return t.decode(raw)
	}
	return Value{}, nil
}

func (t *transformCodec) EncodeInto(c Container, key string, v Value) error {
	if t.encode != nil {
		out, err := t.encode(v)
		if err != nil {
			return err
		}
		v = out
	}
	c.Set(key, v)
	return nil
}

// stringFunc lifts a string transformation into a ValueFunc. Non-string
// input is a type mismatch.
func stringFunc(fn func(string) (string, error)) ValueFunc {
	return func(v Value) (Value, error) {
		s, ok := v.AsString()
		if !ok {
			return Value{}, fmt.Errorf("%w: expected string, got %s", ErrTypeMismatch, v.Kind())
		}
		out, err := fn(s)
		if err != nil {
			return Value{}, err
		}
		return String(out), nil
	}
}

// Built-in field codec names usable in the codec attribute.
const (
	CodecSHA256    = "sha256"
	CodecSHA512    = "sha512"
	CodecArgon2    = "argon2"
	CodecBcrypt    = "bcrypt"
	CodecMaskEmail = "mask.email"
	CodecMaskSSN   = "mask.ssn"
	CodecMaskPhone = "mask.phone"
	CodecMaskCard  = "mask.card"
	CodecMaskName  = "mask.name"
)

var (
	builtinOnce   sync.Once
	builtinCodecs map[string]FieldCodec
)

func builtins() map[string]FieldCodec {
	builtinOnce.Do(func() {
		builtinCodecs = map[string]FieldCodec{
			CodecSHA256:    Hashed(SHA256Hasher()),
			CodecSHA512:    Hashed(SHA512Hasher()),
			CodecArgon2:    Hashed(Argon2()),
			CodecBcrypt:    Hashed(Bcrypt()),
			CodecMaskEmail: Masked(MaskEmail),
			CodecMaskSSN:   Masked(MaskSSN),
			CodecMaskPhone: Masked(MaskPhone),
			CodecMaskCard:  Masked(MaskCard),
			CodecMaskName:  Masked(MaskName),
		}
	})
	return builtinCodecs
}

// BuiltinFieldCodec returns the built-in codec registered under name.
func BuiltinFieldCodec(name string) (FieldCodec, bool) {
	c, ok := builtins()[name]
	return c, ok
}

// BuiltinFieldCodecNames returns the sorted names of all built-in codecs.
func BuiltinFieldCodecNames() []string {
	table := builtins()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
