package codable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindAbsent is the zero Kind. An absent value was never set; encoding
	// an absent value writes nothing.
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
	KindObject
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a loosely typed document or record value.
//
// The zero Value is absent. Values are immutable except for the Object
// they may reference, which is shared on copy.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

// Null returns an explicit null.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a signed integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint returns an unsigned integer value.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array value holding vs.
func Array(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindArray, arr: vs}
}

// ObjectValue wraps o as a Value. A nil o yields null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the zero Value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsNull reports whether v is an explicit null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the signed integer held by v.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsUint returns the unsigned integer held by v.
func (v Value) AsUint() (uint64, bool) { return v.u, v.kind == KindUint }

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the elements held by v. The slice must not be modified.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object held by v.
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }

// IsNumber reports whether v holds an int, uint or float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindUint || v.kind == KindFloat
}

// number returns v as a float64 for numeric kinds.
func (v Value) number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal reports deep equality. Numbers compare by value across kinds so
// Int(1), Uint(1) and Float(1) are equal.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		return numbersEqual(v, o)
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(o.obj)
	default:
		return false
	}
}

func numbersEqual(a, b Value) bool {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return a.i == b.i
	case a.kind == KindUint && b.kind == KindUint:
		return a.u == b.u
	case a.kind == KindInt && b.kind == KindUint:
		return a.i >= 0 && uint64(a.i) == b.u
	case a.kind == KindUint && b.kind == KindInt:
		return b.i >= 0 && uint64(b.i) == a.u
	}
	af, _ := a.number()
	bf, _ := b.number()
	return af == bf
}

// String renders v in a compact JSON-like form for diagnostics.
func (v Value) String() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v Value) writeTo(sb *strings.Builder) {
	switch v.kind {
	case KindAbsent:
		sb.WriteString("<absent>")
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint:
		sb.WriteString(strconv.FormatUint(v.u, 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.f))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindArray:
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			e.writeTo(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			e, _ := v.obj.Get(k)
			e.writeTo(sb)
		}
		sb.WriteByte('}')
	}
}

// formatFloat renders f as the shortest decimal text that parses back to f.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FromNative converts a decoded Go tree (as produced by encoding/json,
// yaml or msgpack into an `any`) into a Value. Unsupported leaf types
// yield ok == false.
func FromNative(x any) (Value, bool) {
	switch t := x.(type) {
	case nil:
		return Null(), true
	case Value:
		return t, true
	case bool:
		return Bool(t), true
	case int:
		return Int(int64(t)), true
	case int8:
		return Int(int64(t)), true
	case int16:
		return Int(int64(t)), true
	case int32:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case uint:
		return Uint(uint64(t)), true
	case uint8:
		return Uint(uint64(t)), true
	case uint16:
		return Uint(uint64(t)), true
	case uint32:
		return Uint(uint64(t)), true
	case uint64:
		return Uint(t), true
	case float32:
		return Float(float64(t)), true
	case float64:
		return Float(t), true
	case string:
		return String(t), true
	case []any:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			ev, ok := FromNative(e)
			if !ok {
				return Value{}, false
			}
			out = append(out, ev)
		}
		return Array(out...), true
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(t) {
			ev, ok := FromNative(t[k])
			if !ok {
				return Value{}, false
			}
			obj.Set(k, ev)
		}
		return ObjectValue(obj), true
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			m[ks] = e
		}
		return FromNative(m)
	default:
		return Value{}, false
	}
}

// Native converts v into a plain Go tree of bool, int64, uint64,
// float64, string, []any and map[string]any. Absent becomes nil.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Native()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.Keys() {
			e, _ := v.obj.Get(k)
			out[k] = e.Native()
		}
		return out
	default:
		return nil
	}
}
