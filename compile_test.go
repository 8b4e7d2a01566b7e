package codable

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var valueComparer = cmp.Comparer(func(a, b Value) bool { return a.Equal(b) })

func mustCodec(t *testing.T, decl *TypeDecl) *RecordCodec {
	t.Helper()
	plan, err := Normalize(decl)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	rc, err := Compile(plan)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return rc
}

func fieldOf(t *testing.T, rec *Object, name string) Value {
	t.Helper()
	v, ok := rec.Get(name)
	if !ok {
		t.Fatalf("record has no field %q: %s", name, rec)
	}
	return v
}

func TestDecode_FirstReadableKeyWins(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("count", ShapeScalar, Elem(ElemInt), A(AttrKey, "n", "num")),
	}})
	rec, err := rc.Decode(doc("n", "lots", "num", "12", "count", 1))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(Int(12), fieldOf(t, rec, "count"), valueComparer); diff != "" {
		t.Errorf("count mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Fallbacks(t *testing.T) {
	decl := &TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("withDefault", ShapeScalar, Elem(ElemInt), A(AttrDefault, "5")),
		Field("required", ShapeScalar, Elem(ElemInt)),
		Field("optional", ShapeOptional, Elem(ElemInt)),
	}}
	rc := mustCodec(t, decl)

	tests := []struct {
		name    string
		doc     *Object
		want    map[string]Value
		wantErr error
		field   string
	}{
		{
			name: "absent uses default",
			doc:  doc("required", 1),
			want: map[string]Value{"withDefault": Int(5), "required": Int(1), "optional": Null()},
		},
		{
			name: "mismatch uses default",
			doc:  doc("withDefault", "abc", "required", 1, "optional", 2),
			want: map[string]Value{"withDefault": Int(5), "required": Int(1), "optional": Int(2)},
		},
		{
			name: "null optional",
			doc:  doc("required", 1, "optional", nil),
			want: map[string]Value{"withDefault": Int(5), "required": Int(1), "optional": Null()},
		},
		{
			name:    "absent required",
			doc:     doc("withDefault", 1),
			wantErr: ErrKeyNotFound,
			field:   "required",
		},
		{
			name:    "mismatch required",
			doc:     doc("required", []any{1}),
			wantErr: ErrTypeMismatch,
			field:   "required",
		},
		{
			name:    "mismatch optional",
			doc:     doc("required", 1, "optional", "many"),
			wantErr: ErrTypeMismatch,
			field:   "optional",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := rc.Decode(tt.doc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				var fe *FieldError
				if !errors.As(err, &fe) || fe.Field != tt.field {
					t.Errorf("FieldError = %+v, want field %s", fe, tt.field)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			got := make(map[string]Value)
			for _, k := range rec.Keys() {
				got[k], _ = rec.Get(k)
			}
			if diff := cmp.Diff(tt.want, got, valueComparer); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_InitKeepsValue(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{Name: "T", Fields: []FieldDecl{
		{Name: "level", Shape: ShapeScalar, Elem: Elem(ElemInt), HasInit: true},
	}})
	rec, err := rc.Decode(doc("level", "high"))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if _, ok := rec.Get("level"); ok {
		t.Errorf("record = %s, unreadable field with an initializer should be left unset", rec)
	}
}

func TestDecode_Compaction(t *testing.T) {
	decl := func(attrs ...Attr) *TypeDecl {
		return &TypeDecl{Name: "T", Fields: []FieldDecl{
			Field("ids", ShapeArray, Elem(ElemInt), attrs...),
		}}
	}
	in := doc("ids", []any{1, nil, "x", "2"})

	rec, err := mustCodec(t, decl(A(AttrCompact))).Decode(in)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(Array(Int(1), Int(2)), fieldOf(t, rec, "ids"), valueComparer); diff != "" {
		t.Errorf("compacted ids mismatch (-want +got):\n%s", diff)
	}

	_, err = mustCodec(t, decl()).Decode(in)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Decode() without compact error = %v, want ErrTypeMismatch", err)
	}
}

func TestDecode_MapAndSet(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{Name: "T", Fields: []FieldDecl{
		{Name: "ports", Shape: ShapeMap, Elem: ElemDecl{Kind: ElemString, MapKey: ElemInt}, Attrs: []Attr{A(AttrCompact)}},
		Field("roles", ShapeSet, Elem(ElemString)),
		Field("limits", ShapeMap, Elem(ElemInt)),
	}})
	rec, err := rc.Decode(doc(
		"ports", map[string]any{"80": "http", "web": "x", "443": nil, "22": 22},
		"roles", []any{"a", "b", "a"},
		"limits", map[string]any{},
	))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	ports := NewObject()
	ports.Set("22", String("22"))
	ports.Set("80", String("http"))
	want := []Value{ObjectValue(ports), Array(String("a"), String("b")), ObjectValue(NewObject())}
	got := []Value{fieldOf(t, rec, "ports"), fieldOf(t, rec, "roles"), fieldOf(t, rec, "limits")}
	if diff := cmp.Diff(want, got, valueComparer); diff != "" {
		t.Errorf("collections mismatch (-want +got):\n%s", diff)
	}

	_, err = rc.Decode(doc("ports", map[string]any{}, "roles", "a", "limits", map[string]any{}))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Decode() with scalar set error = %v, want ErrTypeMismatch", err)
	}
}

func TestDecode_NestedRecord(t *testing.T) {
	addr := &TypeDecl{Name: "Address", Fields: []FieldDecl{Field("city", ShapeScalar, Elem(ElemString))}}
	rc := mustCodec(t, &TypeDecl{Name: "Person", Fields: []FieldDecl{
		Field("home", ShapeScalar, RecordElem(addr)),
	}})

	_, err := rc.Decode(doc("home", map[string]any{}))
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Type != "Person" || fe.Field != "home" {
		t.Fatalf("Decode() error = %v, want Person.home failure", err)
	}
	if !errors.Is(err, ErrTypeMismatch) || !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Decode() error = %v, want mismatch caused by the missing nested key", err)
	}
	var inner *FieldError
	if !errors.As(fe.Cause, &inner) || inner.Type != "Address" || inner.Field != "city" {
		t.Errorf("Cause = %v, want Address.city", fe.Cause)
	}
}

func TestRecordCodec_Containers(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{
		Name:   "T",
		Attrs:  []Attr{A(AttrContainer, "data.user"), A(AttrEncodeContainer, "user")},
		Fields: []FieldDecl{Field("id", ShapeScalar, Elem(ElemInt))},
	})
	rec, err := rc.Decode(doc("data", map[string]any{"user": map[string]any{"id": 3}}))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	out := NewObject()
	if err := rc.Encode(rec, out); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := out.String(); got != `{"user":{"id":3}}` {
		t.Errorf("Encode() = %s", got)
	}

	if _, err := rc.Decode(doc("data", 1)); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Decode() without container error = %v, want ErrKeyNotFound", err)
	}
	if err := rc.Encode(rec, doc("user", "taken")); !errors.Is(err, ErrPathConflict) {
		t.Errorf("Encode() into scalar container error = %v, want ErrPathConflict", err)
	}
}

func TestRecordCodec_Hooks(t *testing.T) {
	boom := errors.New("boom")
	decl := &TypeDecl{
		Name:   "T",
		Fields: []FieldDecl{Field("n", ShapeScalar, Elem(ElemInt))},
		AfterDecode: func(rec *Object) error {
			n, _ := rec.Get("n")
			i, _ := n.AsInt()
			if i < 0 {
				return boom
			}
			rec.Set("n", Int(i+1))
			return nil
		},
		BeforeEncode: func(rec *Object) error {
			if _, ok := rec.Get("n"); !ok {
				return boom
			}
			return nil
		},
	}
	rc := mustCodec(t, decl)

	rec, err := rc.Decode(doc("n", 1))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if n := fieldOf(t, rec, "n"); !n.Equal(Int(2)) {
		t.Errorf("n = %s, want hook result 2", n)
	}

	_, err = rc.Decode(doc("n", -1))
	if !errors.Is(err, ErrHook) || !errors.Is(err, boom) {
		t.Errorf("Decode() error = %v, want ErrHook wrapping boom", err)
	}
	var he *HookError
	if !errors.As(err, &he) || he.Phase != "decode" {
		t.Errorf("HookError = %+v", he)
	}

	err = rc.Encode(NewObject(), NewObject())
	if !errors.Is(err, ErrHook) {
		t.Errorf("Encode() error = %v, want ErrHook", err)
	}
}

func TestRecordCodec_Flatten(t *testing.T) {
	audit := &TypeDecl{Name: "Audit", Fields: []FieldDecl{
		Field("createdBy", ShapeScalar, Elem(ElemString), A(AttrKey, "created_by")),
	}}
	rc := mustCodec(t, &TypeDecl{Name: "Doc", Fields: []FieldDecl{
		Field("title", ShapeScalar, Elem(ElemString)),
		Field("audit", ShapeScalar, RecordElem(audit), A(AttrFlatten)),
	}})
	in := doc("title", "t", "created_by", "ann")
	rec, err := rc.Decode(in)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	sub, _ := fieldOf(t, rec, "audit").AsObject()
	if v, _ := sub.Get("createdBy"); !v.Equal(String("ann")) {
		t.Errorf("audit = %s, want fields read from the parent", sub)
	}

	out := NewObject()
	if err := rc.Encode(rec, out); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("Encode() = %s, want %s", out, in)
	}
}

func TestEncode_Rules(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("name", ShapeScalar, Elem(ElemString), A(AttrKey, "profile.name")),
		Field("raw", ShapeScalar, Elem(ElemString), A(AttrKey, "a.b"), A(AttrNested, "false")),
		Field("nick", ShapeOptional, Elem(ElemString)),
		Field("secret", ShapeOptional, Elem(ElemString), A(AttrIgnore)),
		Field("age", ShapeScalar, Elem(ElemInt)),
		Field("avatar", ShapeScalar, Elem(ElemBytes), A(AttrBase64)),
		Field("blob", ShapeScalar, Elem(ElemBytes)),
	}})
	rec := NewObject()
	rec.Set("name", String("Ann"))
	rec.Set("raw", String("r"))
	rec.Set("nick", Null())
	rec.Set("secret", String("s"))
	rec.Set("avatar", bytesValue([]byte{1, 2}))
	rec.Set("blob", bytesValue([]byte{255}))

	out := NewObject()
	if err := rc.Encode(rec, out); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := `{"profile":{"name":"Ann"},"a.b":"r","avatar":"AQI=","blob":[255]}`
	if got := out.String(); got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}

	rec.Set("age", String("old"))
	if err := rc.Encode(rec, NewObject()); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Encode() error = %v, want ErrTypeMismatch", err)
	}
}

func TestCompile_DefaultMustFit(t *testing.T) {
	plan, err := Normalize(&TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("n", ShapeScalar, Elem(ElemInt), A(AttrDefault, "[1]")),
	}})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if _, err := Compile(plan); !errors.Is(err, ErrSchema) {
		t.Errorf("Compile() error = %v, want ErrSchema", err)
	}
}

func TestDecode_TimeAndBytesDefaults(t *testing.T) {
	rc := mustCodec(t, &TypeDecl{Name: "T", Fields: []FieldDecl{
		Field("at", ShapeScalar, Elem(ElemTime), A(AttrDefault, "2001-01-01T00:00:00Z")),
		Field("ms", ShapeScalar, Elem(ElemTime), A(AttrDate, "epoch-millis"), A(AttrDefault, "1000")),
		Field("key", ShapeScalar, Elem(ElemBytes), A(AttrBase64), A(AttrDefault, "AQI=")),
		Field("raw", ShapeScalar, Elem(ElemBytes), A(AttrDefault, "[3, 4]")),
	}})
	rec, err := rc.Decode(NewObject())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []Value{
		String("2001-01-01T00:00:00Z"),
		String("1970-01-01T00:00:01Z"),
		bytesValue([]byte{1, 2}),
		bytesValue([]byte{3, 4}),
	}
	got := []Value{fieldOf(t, rec, "at"), fieldOf(t, rec, "ms"), fieldOf(t, rec, "key"), fieldOf(t, rec, "raw")}
	if diff := cmp.Diff(want, got, valueComparer); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_CustomCodec(t *testing.T) {
	upper := func(v Value) (Value, error) {
		s, _ := v.AsString()
		return String(s + "!"), nil
	}
	rc := mustCodec(t, &TypeDecl{Name: "T", Fields: []FieldDecl{
		{Name: "shout", Shape: ShapeScalar, Elem: Elem(ElemString), Attrs: []Attr{A(AttrKey, "s.t")}, Codec: Transform(upper, upper)},
		{Name: "quiet", Shape: ShapeScalar, Elem: Elem(ElemString), Attrs: []Attr{A(AttrDefault, "hush")}, Codec: Transform(nil, nil)},
	}})
	rec, err := rc.Decode(doc("s", map[string]any{"t": "hi"}))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if v := fieldOf(t, rec, "shout"); !v.Equal(String("hi!")) {
		t.Errorf("shout = %s", v)
	}
	if v := fieldOf(t, rec, "quiet"); !v.Equal(String("hush")) {
		t.Errorf("quiet = %s, want default when the codec finds nothing", v)
	}

	out := NewObject()
	if err := rc.Encode(rec, out); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := out.String(); got != `{"s":{"t":"hi!!"},"quiet":"hush"}` {
		t.Errorf("Encode() = %s", got)
	}
}
