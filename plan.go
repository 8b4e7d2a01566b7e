package codable

import "strings"

// PathSeparator splits nested key paths.
const PathSeparator = "."

// BinaryTextMode selects how byte fields are represented as text.
type BinaryTextMode uint8

const (
	// BinaryNone encodes bytes as an array of integers.
	BinaryNone BinaryTextMode = iota
	// BinaryBase64 encodes bytes as standard base64 text.
	BinaryBase64
)

// ElemType is a resolved element type.
type ElemType struct {
	Kind   ElemKind
	Bits   int
	MapKey ElemKind
	Record *RecordPlan
	Enum   *EnumPlan
}

// FieldPlan is the normalized, immutable codec metadata for one field.
type FieldPlan struct {
	Name  string
	Shape Shape
	Elem  ElemType

	// DecodeKeys are tried in order. Never empty; the raw name is last.
	DecodeKeys []string
	// EncodeKey is the single key written on encode.
	EncodeKey string
	// TreatDotAsNested makes dots in EncodeKey denote nested containers.
	TreatDotAsNested bool

	Ignored    bool
	HasInit    bool
	HasDefault bool
	Default    Value

	BinaryText BinaryTextMode
	Date       *DateStrategy
	Compact    bool
	Codec      FieldCodec
	CodecName  string
	Flatten    bool
}

// Optional reports whether the field accepts null/absence without a default.
func (f *FieldPlan) Optional() bool {
	return f.Shape == ShapeOptional
}

// encodePath returns the key segments written on encode.
func (f *FieldPlan) encodePath() []string {
	if f.TreatDotAsNested && strings.Contains(f.EncodeKey, PathSeparator) {
		return strings.Split(f.EncodeKey, PathSeparator)
	}
	return []string{f.EncodeKey}
}

// RecordPlan is the normalized plan for a product type.
type RecordPlan struct {
	Name   string
	Fields []FieldPlan

	// DecodeContainer and EncodeContainer are dot-separated paths to the
	// record's root within the document. Empty means the document root.
	DecodeContainer string
	EncodeContainer string

	AfterDecode  func(rec *Object) error
	BeforeEncode func(rec *Object) error
}

// Field returns the plan of the named field.
func (p *RecordPlan) Field(name string) (*FieldPlan, bool) {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			return &p.Fields[i], true
		}
	}
	return nil, false
}

// EnumPlan is the normalized plan for a sum type.
type EnumPlan struct {
	Name     string
	Raw      bool
	Variants []VariantPlan
}

// VariantPlan is the normalized plan for one enum case.
type VariantPlan struct {
	Name   string
	Match  []Predicate
	Values []FieldPlan
}

// splitPath splits a dotted path. Empty input yields no segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}
