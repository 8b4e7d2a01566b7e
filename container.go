package codable

import (
	"fmt"
	"sort"
)

// Container is the keyed document abstraction the generated procedures
// read from and write into.
type Container interface {
	// Get returns the value stored under key.
	Get(key string) (Value, bool)

	// Set stores v under key, replacing any previous value.
	Set(key string, v Value)

	// Nested returns the container stored under key for reading. It never
	// creates anything and reports false when key is missing or does not
	// hold an object.
	Nested(key string) (Container, bool)

	// NestedOrCreate returns the container stored under key, creating an
	// empty one when key is missing. It fails with ErrPathConflict when key
	// holds a non-object value.
	NestedOrCreate(key string) (Container, error)

	// Keys returns the keys in insertion order.
	Keys() []string
}

// Object is an insertion-ordered map of Values. It is the Container used
// for documents and for dynamic records. The zero Object is not usable;
// call NewObject.
type Object struct {
	keys  []string
	index map[string]int
	vals  []Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Get implements Container.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.vals[i], true
}

// Set implements Container. Absent values are ignored.
func (o *Object) Set(key string, v Value) {
	if v.IsAbsent() {
		return
	}
	if i, ok := o.index[key]; ok {
		o.vals[i] = v
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
}

// Delete removes key, preserving the order of the remaining keys.
func (o *Object) Delete(key string) {
	i, ok := o.index[key]
	if !ok {
		return
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
	delete(o.index, key)
	for j := i; j < len(o.keys); j++ {
		o.index[o.keys[j]] = j
	}
}

// Nested implements Container.
func (o *Object) Nested(key string) (Container, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	child, ok := v.AsObject()
	if !ok {
		return nil, false
	}
	return child, true
}

// NestedOrCreate implements Container.
func (o *Object) NestedOrCreate(key string) (Container, error) {
	v, ok := o.Get(key)
	if !ok {
		child := NewObject()
		o.Set(key, ObjectValue(child))
		return child, nil
	}
	child, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: key %q holds %s", ErrPathConflict, key, v.Kind())
	}
	return child, nil
}

// Keys implements Container.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Equal reports whether o and other hold equal values under the same keys.
// Key order is not significant.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i, k := range o.keys {
		ov, ok := other.Get(k)
		if !ok || !o.vals[i].Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	out := NewObject()
	for i, k := range o.keys {
		out.Set(k, cloneValue(o.vals[i]))
	}
	return out
}

// String renders o for diagnostics.
func (o *Object) String() string {
	return ObjectValue(o).String()
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = cloneValue(e)
		}
		return Array(out...)
	case KindObject:
		return ObjectValue(v.obj.Clone())
	default:
		return v
	}
}

// sortedKeys returns the keys of m in lexical order so conversions from
// unordered Go maps stay deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
