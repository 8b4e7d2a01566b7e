package codable

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts v into the target primitive kind using the loose
// conversion table. It is meant to run after a direct read failed; it
// never returns an error, only ok == false.
//
// Supported targets are ElemBool, ElemInt, ElemUint, ElemFloat and
// ElemString, all at 64 bits.
func Coerce(v Value, target ElemKind) (Value, bool) {
	return coerce(v, target, 64)
}

// CoerceOptional is Coerce for optional targets: null and absent input
// yield null instead of failing.
func CoerceOptional(v Value, target ElemKind) (Value, bool) {
	if v.IsAbsent() || v.IsNull() {
		return Null(), true
	}
	if out, ok := readDirect(v, target, 64); ok {
		return out, true
	}
	return Coerce(v, target)
}

// readScalar attempts a direct read and falls back to coercion.
func readScalar(v Value, kind ElemKind, bits int) (Value, bool) {
	if out, ok := readDirect(v, kind, bits); ok {
		return out, true
	}
	return coerce(v, kind, bits)
}

// readDirect accepts values already of the target type. Integers accept
// in-range values of either signedness and integral floats; floats accept
// any number.
func readDirect(v Value, kind ElemKind, bits int) (Value, bool) {
	bits = normBits(bits)
	switch kind {
	case ElemBool:
		if b, ok := v.AsBool(); ok {
			return Bool(b), true
		}
	case ElemInt:
		switch v.Kind() {
		case KindInt:
			if fitsInt(v.i, bits) {
				return v, true
			}
		case KindUint:
			if v.u <= math.MaxInt64 && fitsInt(int64(v.u), bits) {
				return Int(int64(v.u)), true
			}
		case KindFloat:
			if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 && fitsInt(int64(v.f), bits) {
				return Int(int64(v.f)), true
			}
		}
	case ElemUint:
		switch v.Kind() {
		case KindUint:
			if fitsUint(v.u, bits) {
				return v, true
			}
		case KindInt:
			if v.i >= 0 && fitsUint(uint64(v.i), bits) {
				return Uint(uint64(v.i)), true
			}
		case KindFloat:
			if v.f == math.Trunc(v.f) && v.f >= 0 && v.f < math.MaxUint64 && fitsUint(uint64(v.f), bits) {
				return Uint(uint64(v.f)), true
			}
		}
	case ElemFloat:
		if f, ok := v.number(); ok {
			return Float(roundFloat(f, bits)), true
		}
	case ElemString:
		if s, ok := v.AsString(); ok {
			return String(s), true
		}
	}
	return Value{}, false
}

func coerce(v Value, target ElemKind, bits int) (Value, bool) {
	bits = normBits(bits)
	switch target {
	case ElemBool:
		return coerceBool(v)
	case ElemInt:
		switch v.Kind() {
		case KindString:
			i, err := strconv.ParseInt(v.s, 10, bits)
			if err != nil {
				return Value{}, false
			}
			return Int(i), true
		case KindBool:
			if v.b {
				return Int(1), true
			}
			return Int(0), true
		}
	case ElemUint:
		switch v.Kind() {
		case KindString:
			u, err := strconv.ParseUint(v.s, 10, bits)
			if err != nil {
				return Value{}, false
			}
			return Uint(u), true
		case KindBool:
			if v.b {
				return Uint(1), true
			}
			return Uint(0), true
		}
	case ElemFloat:
		switch v.Kind() {
		case KindString:
			f, err := strconv.ParseFloat(v.s, bits)
			if err != nil {
				return Value{}, false
			}
			return Float(f), true
		case KindBool:
			if v.b {
				return Float(1), true
			}
			return Float(0), true
		}
	case ElemString:
		switch v.Kind() {
		case KindString:
			return v, true
		case KindInt:
			return String(strconv.FormatInt(v.i, 10)), true
		case KindUint:
			return String(strconv.FormatUint(v.u, 10)), true
		case KindFloat:
			return String(formatFloat(v.f)), true
		case KindBool:
			return String(strconv.FormatBool(v.b)), true
		}
	}
	return Value{}, false
}

func coerceBool(v Value) (Value, bool) {
	switch v.Kind() {
	case KindBool:
		return v, true
	case KindInt, KindUint, KindFloat:
		f, _ := v.number()
		return Bool(f != 0), true
	case KindString:
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return Bool(f != 0), true
		}
		switch strings.ToLower(v.s) {
		case "true", "yes":
			return Bool(true), true
		case "false", "no":
			return Bool(false), true
		}
	}
	return Value{}, false
}

func normBits(bits int) int {
	if bits <= 0 || bits > 64 {
		return 64
	}
	return bits
}

func fitsInt(i int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return i >= -limit && i < limit
}

func fitsUint(u uint64, bits int) bool {
	if bits >= 64 {
		return true
	}
	return u < uint64(1)<<bits
}

func roundFloat(f float64, bits int) float64 {
	if bits == 32 {
		return float64(float32(f))
	}
	return f
}
