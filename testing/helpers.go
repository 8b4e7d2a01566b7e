// Package testing provides test utilities for codable.
package testing

import (
	"context"
	"testing"

	"github.com/reers/codable"
)

// CodecEncrypt is the codec name SanitizedUser uses for its encrypted field.
const CodecEncrypt = "encrypt"

// TestKey returns a valid 32-byte AES key for testing.
func TestKey(t testing.TB) []byte {
	t.Helper()
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor(t testing.TB) codable.Encryptor {
	t.Helper()
	enc, err := codable.AES(TestKey(t))
	if err != nil {
		t.Fatalf("AES() error: %v", err)
	}
	return enc
}

// SanitizedOptions returns the options SanitizedUser needs.
func SanitizedOptions(t testing.TB) []codable.Option {
	t.Helper()
	return []codable.Option{
		codable.WithFieldCodec(CodecEncrypt, codable.Encrypted(TestEncryptor(t))),
	}
}

// Doc builds a document object from alternating keys and native values.
func Doc(t testing.TB, kv ...any) *codable.Object {
	t.Helper()
	if len(kv)%2 != 0 {
		t.Fatalf("Doc() needs key/value pairs, got %d arguments", len(kv))
	}
	obj := codable.NewObject()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			t.Fatalf("Doc() key %v is not a string", kv[i])
		}
		v, ok := codable.FromNative(kv[i+1])
		if !ok {
			t.Fatalf("Doc() value %v for %q is not supported", kv[i+1], key)
		}
		obj.Set(key, v)
	}
	return obj
}

// RoundTrip marshals v with s and unmarshals the result.
func RoundTrip[T any](t testing.TB, s *codable.Serializer[T], v *T) *T {
	t.Helper()
	ctx := context.Background()
	data, err := s.Marshal(ctx, v)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out, err := s.Unmarshal(ctx, data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v\n%s", err, data)
	}
	return out
}

// SimpleUser is a test type with no transformation tags.
type SimpleUser struct {
	_    struct{} `codable:"case=snake"`
	ID   string
	Name string
}

// SanitizedUser is a test type exercising field codecs. Build its codecs
// with SanitizedOptions.
type SanitizedUser struct {
	_        struct{} `codable:"case=snake"`
	ID       string
	Email    string `codable:"codec=encrypt"`
	Password string `codable:"codec=sha256"`
	SSN      string `codable:"codec=mask.ssn"`
	Note     string `codable:"default=none"`
}
