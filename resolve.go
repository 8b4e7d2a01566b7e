package codable

import (
	"fmt"
	"strings"
)

// Reader converts a raw document value into a field value. It returns
// ok == false when the value cannot be read.
type Reader func(v Value) (Value, bool)

// Resolution is the outcome of ResolveForDecode.
type Resolution struct {
	// Value is the first successfully read value.
	Value Value
	// Key is the candidate key that produced Value.
	Key string
	// OK reports whether any candidate produced a value.
	OK bool
	// Found reports whether any candidate key was present at all, even if
	// its value could not be read.
	Found bool
	// Raw holds the first present raw value when OK is false.
	Raw Value
}

// Lookup reads the raw value stored under key. Dotted keys descend nested
// containers read-only; when the nested path is missing the literal key
// is tried as a flat key.
func Lookup(c Container, key string) (Value, bool) {
	if c == nil {
		return Value{}, false
	}
	if strings.Contains(key, PathSeparator) {
		if v, ok := lookupPath(c, strings.Split(key, PathSeparator)); ok {
			return v, true
		}
	}
	return c.Get(key)
}

func lookupPath(c Container, segments []string) (Value, bool) {
	for _, seg := range segments[:len(segments)-1] {
		next, ok := c.Nested(seg)
		if !ok {
			return Value{}, false
		}
		c = next
	}
	return c.Get(segments[len(segments)-1])
}

// ResolveForDecode tries keys in order and returns the first value that
// read accepts. Absence is not an error; callers decide whether it is
// fatal.
func ResolveForDecode(c Container, keys []string, read Reader) Resolution {
	var res Resolution
	for _, key := range keys {
		raw, ok := Lookup(c, key)
		if !ok {
			continue
		}
		if !res.Found {
			res.Found = true
			res.Raw = raw
		}
		if v, ok := read(raw); ok {
			return Resolution{Value: v, Key: key, OK: true, Found: true}
		}
	}
	return res
}

// ResolveForEncode writes v under key. When treatDotAsNested is set and
// key contains dots, intermediate containers are created as needed and v
// is written under the last segment; otherwise key is used verbatim.
// Absent values are not written.
func ResolveForEncode(c Container, key string, v Value, treatDotAsNested bool) error {
	if v.IsAbsent() {
		return nil
	}
	target, last, err := descendForEncode(c, key, treatDotAsNested)
	if err != nil {
		return err
	}
	target.Set(last, v)
	return nil
}

// descendForEncode walks or creates the containers for all but the last
// path segment and returns the innermost container and final key.
func descendForEncode(c Container, key string, treatDotAsNested bool) (Container, string, error) {
	if !treatDotAsNested || !strings.Contains(key, PathSeparator) {
		return c, key, nil
	}
	segments := strings.Split(key, PathSeparator)
	for _, seg := range segments[:len(segments)-1] {
		next, err := c.NestedOrCreate(seg)
		if err != nil {
			return nil, "", fmt.Errorf("encode %q: %w", key, err)
		}
		c = next
	}
	return c, segments[len(segments)-1], nil
}

// descendForDecode walks a container path read-only.
func descendForDecode(c Container, path string) (Container, bool) {
	for _, seg := range splitPath(path) {
		next, ok := c.Nested(seg)
		if !ok {
			return nil, false
		}
		c = next
	}
	return c, true
}

// descendOrCreate walks a container path, creating missing containers.
func descendOrCreate(c Container, path string) (Container, error) {
	for _, seg := range splitPath(path) {
		next, err := c.NestedOrCreate(seg)
		if err != nil {
			return nil, err
		}
		c = next
	}
	return c, nil
}

// validPath reports whether every segment of a dotted path is non-empty.
func validPath(path string) bool {
	for _, seg := range strings.Split(path, PathSeparator) {
		if seg == "" {
			return false
		}
	}
	return true
}
