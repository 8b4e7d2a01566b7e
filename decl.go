package codable

import (
	"fmt"
	"strings"
)

// Shape is the container shape of a field.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeOptional
	ShapeArray
	ShapeSet
	ShapeMap
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeOptional:
		return "optional"
	case ShapeArray:
		return "array"
	case ShapeSet:
		return "set"
	case ShapeMap:
		return "map"
	default:
		return "unknown"
	}
}

// IsCollection reports whether s is an array, set or map.
func (s Shape) IsCollection() bool {
	return s == ShapeArray || s == ShapeSet || s == ShapeMap
}

// ElemKind is the primitive kind of a field or collection element.
type ElemKind uint8

const (
	ElemAny ElemKind = iota
	ElemBool
	ElemInt
	ElemUint
	ElemFloat
	ElemString
	ElemBytes
	ElemTime
	ElemRecord
	ElemEnum
)

func (k ElemKind) String() string {
	switch k {
	case ElemAny:
		return "any"
	case ElemBool:
		return "bool"
	case ElemInt:
		return "int"
	case ElemUint:
		return "uint"
	case ElemFloat:
		return "float"
	case ElemString:
		return "string"
	case ElemBytes:
		return "bytes"
	case ElemTime:
		return "time"
	case ElemRecord:
		return "record"
	case ElemEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ElemDecl describes an element type as supplied by a front end.
type ElemDecl struct {
	Kind ElemKind
	// Bits is the width of ints, uints and floats. Zero means 64.
	Bits int
	// Record is the nested declaration for ElemRecord.
	Record *TypeDecl
	// Enum is the nested declaration for ElemEnum.
	Enum *EnumDecl
	// MapKey is the key kind for ShapeMap: ElemString (default), ElemInt or ElemUint.
	MapKey ElemKind
}

// Attr is one raw attribute attached to a field or type: a name plus its
// ordered argument literals.
type Attr struct {
	Name string
	Args []string
}

func (a Attr) String() string {
	if len(a.Args) == 0 {
		return a.Name
	}
	return a.Name + "=" + strings.Join(a.Args, "|")
}

// FieldDecl is a raw field declaration.
type FieldDecl struct {
	Name  string
	Shape Shape
	Elem  ElemDecl
	Attrs []Attr

	// HasInit marks fields whose record type supplies an initial value
	// before decoding starts.
	HasInit bool

	// Codec attaches a custom codec directly, bypassing the named registry.
	Codec FieldCodec
}

// TypeDecl is a raw record declaration.
type TypeDecl struct {
	Name   string
	Attrs  []Attr
	Fields []FieldDecl

	// AfterDecode and BeforeEncode are optional record hooks.
	AfterDecode  func(rec *Object) error
	BeforeEncode func(rec *Object) error
}

// EnumDecl is a raw sum type declaration.
type EnumDecl struct {
	Name string
	// Raw marks enums whose cases carry only a literal scalar.
	Raw   bool
	Cases []CaseDecl
}

// CaseDecl is one variant of an enum.
type CaseDecl struct {
	Name string
	// Match lists predicates that must all hold for this case to be
	// selected. Empty means Equals(String(Name)).
	Match []Predicate
	// Values are the associated values. Positional values use the name
	// "_<index>"; see PositionalName.
	Values []FieldDecl
}

// PositionalName returns the field name used for an unlabeled associated
// value at index i.
func PositionalName(i int) string {
	return fmt.Sprintf("_%d", i)
}

// Attribute names understood by the normalizer.
const (
	AttrKey             = "key"
	AttrEncodeKey       = "encodekey"
	AttrNested          = "nested"
	AttrCase            = "case"
	AttrIgnore          = "ignore"
	AttrDefault         = "default"
	AttrBase64          = "base64"
	AttrDate            = "date"
	AttrCompact         = "compact"
	AttrCodec           = "codec"
	AttrFlatten         = "flatten"
	AttrContainer       = "container"
	AttrEncodeContainer = "encodecontainer"
)

// Field is a convenience constructor for builder-style declarations.
func Field(name string, shape Shape, elem ElemDecl, attrs ...Attr) FieldDecl {
	return FieldDecl{Name: name, Shape: shape, Elem: elem, Attrs: attrs}
}

// A returns an attribute.
func A(name string, args ...string) Attr {
	return Attr{Name: name, Args: args}
}

// Elem returns a primitive element declaration.
func Elem(kind ElemKind) ElemDecl {
	return ElemDecl{Kind: kind}
}

// RecordElem returns a nested record element declaration.
func RecordElem(decl *TypeDecl) ElemDecl {
	return ElemDecl{Kind: ElemRecord, Record: decl}
}

// EnumElem returns an enum element declaration.
func EnumElem(decl *EnumDecl) ElemDecl {
	return ElemDecl{Kind: ElemEnum, Enum: decl}
}
