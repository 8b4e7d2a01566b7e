package codable

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeBase64 renders b as padded standard base64.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 decodes standard base64, tolerating missing padding.
func DecodeBase64(s string) ([]byte, error) {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return b, nil
}

// bytesValue stores raw bytes in a dynamic record as a string.
func bytesValue(b []byte) Value {
	return String(string(b))
}

// valueBytes reads bytes stored by bytesValue.
func valueBytes(v Value) ([]byte, bool) {
	s, ok := v.AsString()
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

// bytesToArray renders bytes as an array of small unsigned integers.
func bytesToArray(b []byte) Value {
	out := make([]Value, len(b))
	for i, c := range b {
		out[i] = Uint(uint64(c))
	}
	return Array(out...)
}

// arrayToBytes reads an array of integers in [0, 255].
func arrayToBytes(v Value) ([]byte, bool) {
	elems, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	out := make([]byte, len(elems))
	for i, e := range elems {
		u, ok := readDirect(e, ElemUint, 8)
		if !ok {
			return nil, false
		}
		out[i] = byte(u.u)
	}
	return out, true
}
