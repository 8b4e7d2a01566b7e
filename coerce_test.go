package codable

import (
	"math"
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name   string
		in     Value
		target ElemKind
		want   Value
		ok     bool
	}{
		{"string to int", String("42"), ElemInt, Int(42), true},
		{"negative string to int", String("-7"), ElemInt, Int(-7), true},
		{"float text to int", String("4.5"), ElemInt, Value{}, false},
		{"bool to int", Bool(true), ElemInt, Int(1), true},
		{"string to uint", String("9"), ElemUint, Uint(9), true},
		{"negative string to uint", String("-9"), ElemUint, Value{}, false},
		{"string to float", String("2.5"), ElemFloat, Float(2.5), true},
		{"bool to float", Bool(false), ElemFloat, Float(0), true},
		{"int to string", Int(-3), ElemString, String("-3"), true},
		{"uint to string", Uint(3), ElemString, String("3"), true},
		{"float to string", Float(1.25), ElemString, String("1.25"), true},
		{"bool to string", Bool(true), ElemString, String("true"), true},
		{"number to bool", Int(2), ElemBool, Bool(true), true},
		{"zero to bool", Float(0), ElemBool, Bool(false), true},
		{"numeric text to bool", String("0"), ElemBool, Bool(false), true},
		{"yes to bool", String("YES"), ElemBool, Bool(true), true},
		{"no to bool", String("no"), ElemBool, Bool(false), true},
		{"word to bool", String("maybe"), ElemBool, Value{}, false},
		{"array to string", Array(Int(1)), ElemString, Value{}, false},
		{"null to int", Null(), ElemInt, Value{}, false},
		{"object to float", ObjectValue(NewObject()), ElemFloat, Value{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Coerce(tt.in, tt.target)
			if ok != tt.ok {
				t.Fatalf("Coerce(%s, %s) ok = %v, want %v", tt.in, tt.target, ok, tt.ok)
			}
			if ok && (got.Kind() != tt.want.Kind() || !got.Equal(tt.want)) {
				t.Errorf("Coerce(%s, %s) = %s (%s), want %s (%s)", tt.in, tt.target, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestCoerceOptional(t *testing.T) {
	for _, in := range []Value{Null(), {}} {
		got, ok := CoerceOptional(in, ElemInt)
		if !ok || !got.IsNull() {
			t.Errorf("CoerceOptional(%s) = %s, %v, want null", in, got, ok)
		}
	}
	got, ok := CoerceOptional(String("12"), ElemInt)
	if !ok || !got.Equal(Int(12)) {
		t.Errorf("CoerceOptional(\"12\") = %s, %v", got, ok)
	}
	got, ok = CoerceOptional(Int(5), ElemInt)
	if !ok || !got.Equal(Int(5)) {
		t.Errorf("CoerceOptional(5) = %s, %v", got, ok)
	}
	if _, ok := CoerceOptional(String("x"), ElemInt); ok {
		t.Error("CoerceOptional(\"x\") should fail")
	}
}

func TestReadScalar_DirectBeforeCoercion(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		kind ElemKind
		bits int
		want Value
		ok   bool
	}{
		{"integral float to int", Float(3), ElemInt, 64, Int(3), true},
		{"fractional float to int", Float(3.5), ElemInt, 64, Value{}, false},
		{"uint to int", Uint(7), ElemInt, 64, Int(7), true},
		{"huge uint to int", Uint(math.MaxUint64), ElemInt, 64, Value{}, false},
		{"int overflows int8", Int(200), ElemInt, 8, Value{}, false},
		{"text overflows int8", String("200"), ElemInt, 8, Value{}, false},
		{"int fits int8", Int(-128), ElemInt, 8, Int(-128), true},
		{"negative int to uint", Int(-1), ElemUint, 64, Value{}, false},
		{"int fits uint16", Int(65535), ElemUint, 16, Uint(65535), true},
		{"int to float", Int(2), ElemFloat, 64, Float(2), true},
		{"float32 rounding", Float(0.1), ElemFloat, 32, Float(float64(float32(0.1))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := readScalar(tt.in, tt.kind, tt.bits)
			if ok != tt.ok {
				t.Fatalf("readScalar(%s) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("readScalar(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestValue_Equal(t *testing.T) {
	if !Int(1).Equal(Uint(1)) || !Int(1).Equal(Float(1)) {
		t.Error("numbers should compare by value across kinds")
	}
	if Int(-1).Equal(Uint(math.MaxUint64)) {
		t.Error("Int(-1) should not equal MaxUint64")
	}
	if String("1").Equal(Int(1)) {
		t.Error("strings never equal numbers")
	}
	a := NewObject()
	a.Set("x", Array(Int(1), Null()))
	b := NewObject()
	b.Set("x", Array(Float(1), Null()))
	if !ObjectValue(a).Equal(ObjectValue(b)) {
		t.Error("objects with equal members should be equal")
	}
}

func TestFromNative(t *testing.T) {
	v, ok := FromNative(map[string]any{
		"b": []any{int(1), "x", nil},
		"a": map[any]any{"k": true, 3: 2.5},
	})
	if !ok {
		t.Fatal("FromNative() failed")
	}
	obj, _ := v.AsObject()
	if keys := obj.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys = %v, want sorted [a b]", keys)
	}
	inner, _ := obj.Get("a")
	innerObj, _ := inner.AsObject()
	if three, ok := innerObj.Get("3"); !ok || !three.Equal(Float(2.5)) {
		t.Errorf("non-string map key should be stringified, got %s", inner)
	}
	if _, ok := FromNative(struct{}{}); ok {
		t.Error("FromNative(struct{}{}) should fail")
	}
	if got := v.Native().(map[string]any)["b"].([]any)[0]; got != int64(1) {
		t.Errorf("Native() = %#v, want int64(1)", got)
	}
}
