package codable

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize_DecodeKeyPrecedence(t *testing.T) {
	decl := &TypeDecl{
		Name:  "User",
		Attrs: []Attr{A(AttrCase, "snake")},
		Fields: []FieldDecl{
			Field("userName", ShapeScalar, Elem(ElemString), A(AttrKey, "login", "user_name"), A(AttrCase, "kebab")),
			Field("email", ShapeScalar, Elem(ElemString)),
			Field("homePage", ShapeScalar, Elem(ElemString), A(AttrEncodeKey, "links.home")),
		},
	}
	n := &Normalizer{CaseStyles: []CaseStyle{PascalCase}}
	plan, err := n.Record(decl)
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	f, _ := plan.Field("userName")
	want := []string{"login", "user_name", "UserName", "user-name", "userName"}
	if strings.Join(f.DecodeKeys, ",") != strings.Join(want, ",") {
		t.Errorf("DecodeKeys = %v, want %v", f.DecodeKeys, want)
	}
	if f.EncodeKey != "login" {
		t.Errorf("EncodeKey = %q, want first decode key", f.EncodeKey)
	}

	f, _ = plan.Field("email")
	if strings.Join(f.DecodeKeys, ",") != "email,Email" {
		t.Errorf("DecodeKeys = %v, want case keys then raw name without duplicates", f.DecodeKeys)
	}

	f, _ = plan.Field("homePage")
	if f.EncodeKey != "links.home" || !f.TreatDotAsNested {
		t.Errorf("EncodeKey = %q nested=%v, want links.home nested", f.EncodeKey, f.TreatDotAsNested)
	}
	if f.DecodeKeys[0] != "home_page" {
		t.Errorf("DecodeKeys = %v, encodekey must not change decode keys", f.DecodeKeys)
	}
}

func TestNormalize_Containers(t *testing.T) {
	plan, err := Normalize(&TypeDecl{
		Name:   "Env",
		Attrs:  []Attr{A(AttrContainer, "data.user"), A(AttrEncodeContainer, "out")},
		Fields: []FieldDecl{Field("id", ShapeScalar, Elem(ElemInt))},
	})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if plan.DecodeContainer != "data.user" || plan.EncodeContainer != "out" {
		t.Errorf("containers = %q/%q", plan.DecodeContainer, plan.EncodeContainer)
	}

	plan, err = Normalize(&TypeDecl{
		Name:   "Env",
		Attrs:  []Attr{A(AttrContainer, "data")},
		Fields: []FieldDecl{Field("id", ShapeScalar, Elem(ElemInt))},
	})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if plan.EncodeContainer != "data" {
		t.Errorf("EncodeContainer = %q, want decode container by default", plan.EncodeContainer)
	}
}

func TestNormalize_RecursiveThroughOptional(t *testing.T) {
	node := &TypeDecl{Name: "Node"}
	node.Fields = []FieldDecl{
		Field("value", ShapeScalar, Elem(ElemInt)),
		Field("next", ShapeOptional, RecordElem(node)),
		Field("children", ShapeArray, RecordElem(node)),
	}
	plan, err := Normalize(node)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	next, _ := plan.Field("next")
	if next.Elem.Record != plan {
		t.Error("recursive reference should point at the same plan")
	}
}

func TestNormalize_RequiredCycleRejected(t *testing.T) {
	a := &TypeDecl{Name: "A"}
	b := &TypeDecl{Name: "B"}
	a.Fields = []FieldDecl{Field("b", ShapeScalar, RecordElem(b))}
	b.Fields = []FieldDecl{Field("a", ShapeScalar, RecordElem(a))}

	_, err := Normalize(a)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("Normalize() error = %v, want ErrSchema", err)
	}

	b.Fields = []FieldDecl{Field("a", ShapeOptional, RecordElem(a))}
	if _, err := Normalize(a); err != nil {
		t.Errorf("cycle broken by an optional field should normalize: %v", err)
	}
}

func TestNormalize_SharedTypeNormalizedOnce(t *testing.T) {
	addr := &TypeDecl{Name: "Address", Fields: []FieldDecl{Field("city", ShapeScalar, Elem(ElemString))}}
	person := &TypeDecl{Name: "Person", Fields: []FieldDecl{
		Field("home", ShapeScalar, RecordElem(addr)),
		Field("work", ShapeScalar, RecordElem(addr)),
	}}
	plan, err := Normalize(person)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if plan.Fields[0].Elem.Record != plan.Fields[1].Elem.Record {
		t.Error("shared declaration should yield one plan")
	}
}

func TestNormalize_EncodePathConflicts(t *testing.T) {
	tests := []struct {
		name   string
		fields []FieldDecl
		ok     bool
	}{
		{"same key", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "x")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "x")),
		}, false},
		{"through value", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "x")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "x.y")),
		}, false},
		{"siblings", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "x.y")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "x.z")),
		}, true},
		{"flat dotted key", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "x")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "x.y"), A(AttrNested, "false")),
		}, true},
		{"flat key equals nested path", []FieldDecl{
			Field("a", ShapeOptional, Elem(ElemInt), A(AttrKey, "x.y")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "x.y"), A(AttrNested, "false")),
		}, false},
		{"flat key read by decode key", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "z", "x.y")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "x.y"), A(AttrNested, "false")),
		}, false},
		{"ignored field", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "x")),
			Field("b", ShapeOptional, Elem(ElemInt), A(AttrKey, "x"), A(AttrIgnore)),
		}, true},
		{"decode keys may overlap", []FieldDecl{
			Field("a", ShapeScalar, Elem(ElemInt), A(AttrKey, "x", "shared")),
			Field("b", ShapeScalar, Elem(ElemInt), A(AttrKey, "y", "shared")),
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(&TypeDecl{Name: "T", Fields: tt.fields})
			if tt.ok && err != nil {
				t.Errorf("Normalize() error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrSchema) {
				t.Errorf("Normalize() error = %v, want ErrSchema", err)
			}
		})
	}
}

func TestNormalize_FlattenConflict(t *testing.T) {
	inner := &TypeDecl{Name: "Audit", Fields: []FieldDecl{Field("id", ShapeScalar, Elem(ElemInt))}}
	_, err := Normalize(&TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("id", ShapeScalar, Elem(ElemInt)),
		Field("audit", ShapeScalar, RecordElem(inner), A(AttrFlatten)),
	}})
	if !errors.Is(err, ErrSchema) {
		t.Errorf("Normalize() error = %v, want conflict through flattened field", err)
	}
}

func TestNormalize_AttributeValidation(t *testing.T) {
	rec := &TypeDecl{Name: "R", Fields: []FieldDecl{Field("x", ShapeScalar, Elem(ElemInt))}}
	tests := []struct {
		name  string
		field FieldDecl
	}{
		{"unknown attribute", Field("f", ShapeScalar, Elem(ElemInt), A("bogus"))},
		{"duplicate attribute", Field("f", ShapeScalar, Elem(ElemInt), A(AttrCompact), A(AttrCompact))},
		{"base64 on string", Field("f", ShapeScalar, Elem(ElemString), A(AttrBase64))},
		{"date on int", Field("f", ShapeScalar, Elem(ElemInt), A(AttrDate, "iso8601"))},
		{"unknown date strategy", Field("f", ShapeScalar, Elem(ElemTime), A(AttrDate, "lunar"))},
		{"format without layout", Field("f", ShapeScalar, Elem(ElemTime), A(AttrDate, "format"))},
		{"compact on scalar", Field("f", ShapeScalar, Elem(ElemInt), A(AttrCompact))},
		{"flatten with key", Field("f", ShapeScalar, RecordElem(rec), A(AttrFlatten), A(AttrKey, "x"))},
		{"flatten optional", Field("f", ShapeOptional, RecordElem(rec), A(AttrFlatten))},
		{"ignore without fallback", Field("f", ShapeScalar, Elem(ElemInt), A(AttrIgnore))},
		{"unknown codec", Field("f", ShapeScalar, Elem(ElemString), A(AttrCodec, "rot13"))},
		{"codec with base64", Field("f", ShapeScalar, Elem(ElemBytes), A(AttrCodec, CodecSHA256), A(AttrBase64))},
		{"nested not bool", Field("f", ShapeScalar, Elem(ElemInt), A(AttrNested, "maybe"))},
		{"empty key", Field("f", ShapeScalar, Elem(ElemInt), A(AttrKey, ""))},
		{"malformed key path", Field("f", ShapeScalar, Elem(ElemInt), A(AttrKey, "a..b"))},
		{"unknown case", Field("f", ShapeScalar, Elem(ElemInt), A(AttrCase, "shouty"))},
		{"bad int width", scalarField("f", ElemDecl{Kind: ElemInt, Bits: 12})},
		{"bad float width", scalarField("f", ElemDecl{Kind: ElemFloat, Bits: 16})},
		{"bad map key", FieldDecl{Name: "f", Shape: ShapeMap, Elem: ElemDecl{Kind: ElemInt, MapKey: ElemBool}}},
		{"record without declaration", Field("f", ShapeScalar, ElemDecl{Kind: ElemRecord})},
		{"unparseable default", Field("f", ShapeScalar, Elem(ElemInt), A(AttrDefault, "[1,"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(&TypeDecl{Name: "T", Fields: []FieldDecl{tt.field}})
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Normalize() error = %v, want *SchemaError", err)
			}
			if se.Type != "T" || se.Field != "f" {
				t.Errorf("SchemaError = %+v, want T.f", se)
			}
		})
	}
}

// scalarField declares a scalar field with an explicit element declaration.
func scalarField(name string, ed ElemDecl) FieldDecl {
	return FieldDecl{Name: name, Shape: ShapeScalar, Elem: ed}
}

func TestNormalize_TypeValidation(t *testing.T) {
	field := []FieldDecl{Field("x", ShapeScalar, Elem(ElemInt))}
	tests := []struct {
		name string
		decl *TypeDecl
	}{
		{"no name", &TypeDecl{Fields: field}},
		{"duplicate field", &TypeDecl{Name: "T", Fields: append(field, field...)}},
		{"unnamed field", &TypeDecl{Name: "T", Fields: []FieldDecl{{Shape: ShapeScalar}}}},
		{"unknown type attribute", &TypeDecl{Name: "T", Attrs: []Attr{A("strict")}, Fields: field}},
		{"malformed container", &TypeDecl{Name: "T", Attrs: []Attr{A(AttrContainer, "a.")}, Fields: field}},
		{"container without path", &TypeDecl{Name: "T", Attrs: []Attr{A(AttrContainer)}, Fields: field}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.decl); !errors.Is(err, ErrSchema) {
				t.Errorf("Normalize() error = %v, want ErrSchema", err)
			}
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	plan, err := Normalize(&TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("name", ShapeScalar, Elem(ElemString), A(AttrDefault, "a,b")),
		Field("count", ShapeScalar, Elem(ElemInt), A(AttrDefault, "5")),
		Field("tags", ShapeArray, Elem(ElemString), A(AttrDefault, "[x, y]")),
		Field("nick", ShapeOptional, Elem(ElemString), A(AttrDefault, "null")),
		Field("skip", ShapeScalar, Elem(ElemBool), A(AttrIgnore), A(AttrDefault, "true")),
	}})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	want := map[string]Value{
		"name":  String("a,b"),
		"count": Int(5),
		"tags":  Array(String("x"), String("y")),
		"nick":  Null(),
		"skip":  Bool(true),
	}
	for name, v := range want {
		f, _ := plan.Field(name)
		if !f.HasDefault || !f.Default.Equal(v) {
			t.Errorf("%s default = %s (set %v), want %s", name, f.Default, f.HasDefault, v)
		}
	}
	skip, _ := plan.Field("skip")
	if !skip.Ignored {
		t.Error("skip should be ignored")
	}
}

func TestNormalizeEnum_Validation(t *testing.T) {
	rec := []FieldDecl{Field("r", ShapeScalar, Elem(ElemFloat))}
	tests := []struct {
		name string
		decl *EnumDecl
	}{
		{"no cases", &EnumDecl{Name: "E"}},
		{"duplicate case", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a"}, {Name: "a"}}}},
		{"empty equals", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a", Match: []Predicate{Equals()}}}}},
		{"empty range", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a", Match: []Predicate{InRange(Int(5), Int(1))}}}}},
		{"string range", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a", Match: []Predicate{InRange(String("a"), Int(1))}}}}},
		{"raw path", &EnumDecl{Name: "E", Raw: true, Cases: []CaseDecl{{Name: "a", Match: []Predicate{PathPresent("a")}}}}},
		{"raw with values", &EnumDecl{Name: "E", Raw: true, Cases: []CaseDecl{{Name: "a", Values: rec}}}},
		{"values keyed by number", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a", Match: []Predicate{Equals(Int(1))}, Values: rec}}}},
		{"values keyed by range", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a", Match: []Predicate{InRange(Int(1), Int(2))}, Values: rec}}}},
		{"object literal", &EnumDecl{Name: "E", Cases: []CaseDecl{{Name: "a", Match: []Predicate{Equals(ObjectValue(NewObject()))}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeEnum(tt.decl); !errors.Is(err, ErrSchema) {
				t.Errorf("NormalizeEnum() error = %v, want ErrSchema", err)
			}
		})
	}
}

func TestNormalizeEnum_DefaultMatch(t *testing.T) {
	plan, err := NormalizeEnum(&EnumDecl{Name: "Color", Cases: []CaseDecl{{Name: "red"}, {Name: "green"}}})
	if err != nil {
		t.Fatalf("NormalizeEnum() error: %v", err)
	}
	if got := plan.Variants[1].Match[0].String(); got != `equals("green")` {
		t.Errorf("default predicate = %s, want equals(\"green\")", got)
	}
}
