package codable

import (
	"errors"
	"testing"
)

func mustEnum(t *testing.T, decl *EnumDecl) *EnumCodec {
	t.Helper()
	plan, err := NormalizeEnum(decl)
	if err != nil {
		t.Fatalf("NormalizeEnum() error: %v", err)
	}
	ec, err := CompileEnum(plan)
	if err != nil {
		t.Fatalf("CompileEnum() error: %v", err)
	}
	return ec
}

func TestEnum_RawMatching(t *testing.T) {
	ec := mustEnum(t, &EnumDecl{Name: "Level", Raw: true, Cases: []CaseDecl{
		{Name: "low", Match: []Predicate{InRange(Int(0), Int(3))}},
		{Name: "mid", Match: []Predicate{InRange(Float(2), Float(6.5))}},
		{Name: "named", Match: []Predicate{Equals(String("high"), String("max"))}},
		{Name: "flag", Match: []Predicate{Equals(Bool(true))}},
	}})
	tests := []struct {
		in   Value
		want string
	}{
		{Int(0), "low"},
		{Float(2.5), "low"},
		{Uint(3), "low"},
		{Float(3.5), "mid"},
		{Int(6), "mid"},
		{String("max"), "named"},
		{Bool(true), "flag"},
	}
	for _, tt := range tests {
		v, err := ec.Decode(tt.in)
		if err != nil {
			t.Errorf("Decode(%s) error: %v", tt.in, err)
			continue
		}
		if v.Case != tt.want {
			t.Errorf("Decode(%s) = %s, want %s", tt.in, v.Case, tt.want)
		}
	}

	for _, in := range []Value{Int(7), String("3"), Null(), ObjectValue(doc("low", map[string]any{}))} {
		_, err := ec.Decode(in)
		var nv *NoVariantError
		if !errors.Is(err, ErrNoVariant) || !errors.As(err, &nv) || nv.Type != "Level" {
			t.Errorf("Decode(%s) error = %v, want NoVariantError", in, err)
		}
	}
}

func TestEnum_DeclarationOrderWins(t *testing.T) {
	ec := mustEnum(t, &EnumDecl{Name: "E", Raw: true, Cases: []CaseDecl{
		{Name: "first", Match: []Predicate{Equals(Int(1), Int(2))}},
		{Name: "second", Match: []Predicate{Equals(Int(1))}},
	}})
	v, err := ec.Decode(Float(1))
	if err != nil || v.Case != "first" {
		t.Errorf("Decode(1) = %v, %v, want first", v, err)
	}
}

func TestEnum_AllPredicatesMustHold(t *testing.T) {
	ec := mustEnum(t, &EnumDecl{Name: "Event", Cases: []CaseDecl{
		{Name: "signup", Match: []Predicate{PathPresent("user"), PathPresent("user.email")}},
		{Name: "visit", Match: []Predicate{PathPresent("user")}},
	}})
	v, err := ec.Decode(ObjectValue(doc("user", map[string]any{"email": "a@b"})))
	if err != nil || v.Case != "signup" {
		t.Errorf("Decode() = %v, %v, want signup", v, err)
	}
	v, err = ec.Decode(ObjectValue(doc("user", map[string]any{"id": 1})))
	if err != nil || v.Case != "visit" {
		t.Errorf("Decode() = %v, %v, want visit", v, err)
	}
}

func shapeDecl() *EnumDecl {
	return &EnumDecl{Name: "Shape", Cases: []CaseDecl{
		{Name: "circle", Values: []FieldDecl{
			Field("radius", ShapeScalar, Elem(ElemFloat), A(AttrKey, "r")),
		}},
		{Name: "rect", Match: []Predicate{PathPresent("geometry.rect")}, Values: []FieldDecl{
			Field("w", ShapeScalar, Elem(ElemInt)),
			Field("h", ShapeScalar, Elem(ElemInt), A(AttrDefault, "1")),
		}},
		{Name: "point"},
	}}
}

func TestEnum_AssociatedValues(t *testing.T) {
	ec := mustEnum(t, shapeDecl())

	v, err := ec.Decode(ObjectValue(doc("circle", map[string]any{"r": "2.5"})))
	if err != nil {
		t.Fatalf("Decode(circle) error: %v", err)
	}
	if r, _ := v.Values.Get("radius"); v.Case != "circle" || !r.Equal(Float(2.5)) {
		t.Errorf("Decode(circle) = %s %s", v.Case, v.Values)
	}

	v, err = ec.Decode(ObjectValue(doc("geometry", map[string]any{"rect": map[string]any{"w": 3}})))
	if err != nil {
		t.Fatalf("Decode(rect) error: %v", err)
	}
	if h, _ := v.Values.Get("h"); v.Case != "rect" || !h.Equal(Int(1)) {
		t.Errorf("Decode(rect) = %s %s", v.Case, v.Values)
	}

	v, err = ec.Decode(String("point"))
	if err != nil || v.Case != "point" || v.Values.Len() != 0 {
		t.Errorf("Decode(point) = %v, %v", v, err)
	}

	_, err = ec.Decode(ObjectValue(doc("circle", map[string]any{})))
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Decode(circle without radius) error = %v, want ErrKeyNotFound", err)
	}
}

func TestEnum_Encode(t *testing.T) {
	ec := mustEnum(t, shapeDecl())
	tests := []struct {
		in   Variant
		want string
	}{
		{Variant{Case: "circle", Values: doc("radius", 1.5)}, `{"circle":{"r":1.5}}`},
		{Variant{Case: "rect", Values: doc("w", 2, "h", 4)}, `{"geometry":{"rect":{"w":2,"h":4}}}`},
		{Variant{Case: "point"}, `"point"`},
	}
	for _, tt := range tests {
		got, err := ec.Encode(tt.in)
		if err != nil {
			t.Errorf("Encode(%s) error: %v", tt.in.Case, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Encode(%s) = %s, want %s", tt.in.Case, got, tt.want)
		}
		back, err := ec.Decode(got)
		if err != nil || back.Case != tt.in.Case {
			t.Errorf("Decode(Encode(%s)) = %v, %v", tt.in.Case, back, err)
		}
	}

	if _, err := ec.Encode(Variant{Case: "hexagon"}); !errors.Is(err, ErrNoVariant) {
		t.Errorf("Encode(hexagon) error = %v, want ErrNoVariant", err)
	}
}

func TestEnum_RawEncodeUsesFirstLiteral(t *testing.T) {
	ec := mustEnum(t, &EnumDecl{Name: "E", Raw: true, Cases: []CaseDecl{
		{Name: "on", Match: []Predicate{Equals(Int(1), String("on"))}},
		{Name: "off", Match: []Predicate{InRange(Int(-5), Int(0))}},
	}})
	for name, want := range map[string]Value{"on": Int(1), "off": Int(-5)} {
		got, err := ec.Encode(Variant{Case: name})
		if err != nil || !got.Equal(want) {
			t.Errorf("Encode(%s) = %s, %v, want %s", name, got, err, want)
		}
	}
}

func TestEnumField_InRecord(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{Name: "Drawing", Fields: []FieldDecl{
		Field("shapes", ShapeArray, EnumElem(shapeDecl()), A(AttrCompact)),
	}})
	rec, err := rc.Decode(doc("shapes", []any{
		map[string]any{"circle": map[string]any{"r": 1}},
		"triangle",
		"point",
	}))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	items, _ := fieldOf(t, rec, "shapes").AsArray()
	if len(items) != 2 {
		t.Fatalf("shapes = %v, want unknown variant compacted away", items)
	}
	if v, ok := VariantOf(items[1]); !ok || v.Case != "point" {
		t.Errorf("shapes[1] = %s, want point", items[1])
	}

	out := NewObject()
	if err := rc.Encode(rec, out); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := out.String(); got != `{"shapes":[{"circle":{"r":1}},"point"]}` {
		t.Errorf("Encode() = %s", got)
	}
}

func TestVariantOf(t *testing.T) {
	v := Variant{Case: "a"}.Value()
	got, ok := VariantOf(v)
	if !ok || got.Case != "a" || got.Values.Len() != 0 {
		t.Errorf("VariantOf(%s) = %v, %v", v, got, ok)
	}
	for _, bad := range []Value{String("a"), ObjectValue(NewObject()), ObjectValue(doc("a", 1))} {
		if _, ok := VariantOf(bad); ok {
			t.Errorf("VariantOf(%s) should fail", bad)
		}
	}
}
