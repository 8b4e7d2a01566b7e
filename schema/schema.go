// Package schema loads codable declarations from YAML files so records
// can be decoded and encoded without Go struct types.
//
// A schema file lists record types and enums:
//
//	types:
//	  - name: User
//	    attrs: case=snake
//	    fields:
//	      - name: ID
//	        type: int64
//	        attrs: key=id|user_id
//	      - name: Tags
//	        type: "[]string"
//	        attrs: compact
//	      - name: Status
//	        type: Status
//	enums:
//	  - name: Status
//	    raw: true
//	    cases:
//	      - name: active
//	        match:
//	          - equals: [active, 1]
//
// Type expressions are a primitive (any, bool, int, int8..int64, uint,
// uint8..uint64, float32, float64, string, bytes, time) or the name of a
// declared type or enum, optionally prefixed by one shape: *T (optional),
// []T (array), set[T] or map[K]T with K one of string, int or uint.
// Attribute strings use the struct tag grammar.
package schema

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/reers/codable"
	"gopkg.in/yaml.v3"
)

type fileSpec struct {
	Types []typeSpec `yaml:"types"`
	Enums []enumSpec `yaml:"enums"`
}

type typeSpec struct {
	Name   string      `yaml:"name"`
	Attrs  string      `yaml:"attrs"`
	Fields []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Attrs string `yaml:"attrs"`
}

type enumSpec struct {
	Name  string     `yaml:"name"`
	Raw   bool       `yaml:"raw"`
	Cases []caseSpec `yaml:"cases"`
}

type caseSpec struct {
	Name   string          `yaml:"name"`
	Match  []predicateSpec `yaml:"match"`
	Fields []fieldSpec     `yaml:"fields"`
}

type predicateSpec struct {
	Equals []any   `yaml:"equals"`
	Range  []any   `yaml:"range"`
	Path   *string `yaml:"path"`
}

// Schema is a set of parsed declarations. Plans built from a Schema are
// memoized, so a Schema must not be used from several goroutines while
// building; the returned codecs are safe for concurrent use.
type Schema struct {
	types     map[string]*codable.TypeDecl
	enums     map[string]*codable.EnumDecl
	typeOrder []string
	enumOrder []string
	norm      *codable.Normalizer
}

// Option configures how a Schema builds plans.
type Option func(*codable.Normalizer)

// WithCaseStyle derives extra decode keys for every record.
func WithCaseStyle(styles ...codable.CaseStyle) Option {
	return func(n *codable.Normalizer) {
		n.CaseStyles = append(n.CaseStyles, styles...)
	}
}

// WithFieldCodec makes a custom codec available to the codec attribute.
func WithFieldCodec(name string, fc codable.FieldCodec) Option {
	return func(n *codable.Normalizer) {
		if n.Codecs == nil {
			n.Codecs = make(map[string]codable.FieldCodec)
		}
		n.Codecs[name] = fc
	}
}

// Load reads and parses a schema file.
func Load(path string, opts ...Option) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse parses a schema document. Unknown keys are rejected.
func Parse(data []byte, opts ...Option) (*Schema, error) {
	var spec fileSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", codable.ErrSchema, err)
	}

	s := &Schema{
		types: make(map[string]*codable.TypeDecl),
		enums: make(map[string]*codable.EnumDecl),
		norm:  &codable.Normalizer{},
	}
	for _, opt := range opts {
		opt(s.norm)
	}

	// Declare every name first so fields may reference types declared later.
	for _, ts := range spec.Types {
		if err := s.declare(ts.Name); err != nil {
			return nil, err
		}
		s.types[ts.Name] = &codable.TypeDecl{Name: ts.Name}
		s.typeOrder = append(s.typeOrder, ts.Name)
	}
	for _, es := range spec.Enums {
		if err := s.declare(es.Name); err != nil {
			return nil, err
		}
		s.enums[es.Name] = &codable.EnumDecl{Name: es.Name, Raw: es.Raw}
		s.enumOrder = append(s.enumOrder, es.Name)
	}

	for _, ts := range spec.Types {
		decl := s.types[ts.Name]
		attrs, err := codable.ParseTag(ts.Attrs)
		if err != nil {
			return nil, schemaErr(ts.Name, "", err)
		}
		decl.Attrs = attrs
		if decl.Fields, err = s.fields(ts.Name, ts.Fields); err != nil {
			return nil, err
		}
	}
	for _, es := range spec.Enums {
		decl := s.enums[es.Name]
		for _, cs := range es.Cases {
			cd := codable.CaseDecl{Name: cs.Name}
			for _, ps := range cs.Match {
				p, err := predicate(ps)
				if err != nil {
					return nil, schemaErr(es.Name, cs.Name, err)
				}
				cd.Match = append(cd.Match, p)
			}
			fields, err := s.fields(es.Name+"."+cs.Name, cs.Fields)
			if err != nil {
				return nil, err
			}
			cd.Values = fields
			decl.Cases = append(decl.Cases, cd)
		}
	}
	return s, nil
}

func (s *Schema) declare(name string) error {
	if name == "" {
		return fmt.Errorf("%w: declaration without a name", codable.ErrSchema)
	}
	if _, ok := s.types[name]; ok {
		return schemaErr(name, "", fmt.Errorf("declared twice"))
	}
	if _, ok := s.enums[name]; ok {
		return schemaErr(name, "", fmt.Errorf("declared twice"))
	}
	if _, ok := primitives[name]; ok {
		return schemaErr(name, "", fmt.Errorf("name shadows a primitive type"))
	}
	return nil
}

func (s *Schema) fields(owner string, specs []fieldSpec) ([]codable.FieldDecl, error) {
	out := make([]codable.FieldDecl, 0, len(specs))
	for _, fs := range specs {
		shape, elem, err := s.parseType(fs.Type)
		if err != nil {
			return nil, schemaErr(owner, fs.Name, err)
		}
		attrs, err := codable.ParseTag(fs.Attrs)
		if err != nil {
			return nil, schemaErr(owner, fs.Name, err)
		}
		out = append(out, codable.Field(fs.Name, shape, elem, attrs...))
	}
	return out, nil
}

var primitives = map[string]codable.ElemDecl{
	"any":     {Kind: codable.ElemAny},
	"bool":    {Kind: codable.ElemBool},
	"int":     {Kind: codable.ElemInt},
	"int8":    {Kind: codable.ElemInt, Bits: 8},
	"int16":   {Kind: codable.ElemInt, Bits: 16},
	"int32":   {Kind: codable.ElemInt, Bits: 32},
	"int64":   {Kind: codable.ElemInt, Bits: 64},
	"uint":    {Kind: codable.ElemUint},
	"uint8":   {Kind: codable.ElemUint, Bits: 8},
	"uint16":  {Kind: codable.ElemUint, Bits: 16},
	"uint32":  {Kind: codable.ElemUint, Bits: 32},
	"uint64":  {Kind: codable.ElemUint, Bits: 64},
	"float32": {Kind: codable.ElemFloat, Bits: 32},
	"float64": {Kind: codable.ElemFloat, Bits: 64},
	"string":  {Kind: codable.ElemString},
	"bytes":   {Kind: codable.ElemBytes},
	"time":    {Kind: codable.ElemTime},
}

var mapKeys = map[string]codable.ElemKind{
	"string": codable.ElemString,
	"int":    codable.ElemInt,
	"uint":   codable.ElemUint,
}

// parseType reads a type expression into a shape and element.
func (s *Schema) parseType(expr string) (codable.Shape, codable.ElemDecl, error) {
	expr = strings.TrimSpace(expr)
	shape := codable.ShapeScalar
	var mapKey codable.ElemKind
	switch {
	case strings.HasPrefix(expr, "*"):
		shape, expr = codable.ShapeOptional, expr[1:]
	case strings.HasPrefix(expr, "[]"):
		shape, expr = codable.ShapeArray, expr[2:]
	case strings.HasPrefix(expr, "set[") && strings.HasSuffix(expr, "]"):
		shape, expr = codable.ShapeSet, expr[4:len(expr)-1]
	case strings.HasPrefix(expr, "map["):
		key, rest, ok := strings.Cut(expr[4:], "]")
		if !ok {
			return 0, codable.ElemDecl{}, fmt.Errorf("malformed map type %q", expr)
		}
		k, ok := mapKeys[key]
		if !ok {
			return 0, codable.ElemDecl{}, fmt.Errorf("unsupported map key type %q", key)
		}
		shape, mapKey, expr = codable.ShapeMap, k, rest
	}
	elem, err := s.elem(expr)
	if err != nil {
		return 0, codable.ElemDecl{}, err
	}
	elem.MapKey = mapKey
	return shape, elem, nil
}

func (s *Schema) elem(name string) (codable.ElemDecl, error) {
	if name == "" {
		return codable.ElemDecl{}, fmt.Errorf("missing element type")
	}
	if p, ok := primitives[name]; ok {
		return p, nil
	}
	if d, ok := s.types[name]; ok {
		return codable.RecordElem(d), nil
	}
	if d, ok := s.enums[name]; ok {
		return codable.EnumElem(d), nil
	}
	if strings.ContainsAny(name, "*[]") {
		return codable.ElemDecl{}, fmt.Errorf("nested shapes are not supported: %q", name)
	}
	return codable.ElemDecl{}, fmt.Errorf("unknown type %q", name)
}

func predicate(ps predicateSpec) (codable.Predicate, error) {
	set := 0
	if ps.Equals != nil {
		set++
	}
	if ps.Range != nil {
		set++
	}
	if ps.Path != nil {
		set++
	}
	if set != 1 {
		return codable.Predicate{}, fmt.Errorf("predicate needs exactly one of equals, range or path")
	}
	switch {
	case ps.Equals != nil:
		lits, err := literals(ps.Equals)
		if err != nil {
			return codable.Predicate{}, err
		}
		return codable.Equals(lits...), nil
	case ps.Range != nil:
		if len(ps.Range) != 2 {
			return codable.Predicate{}, fmt.Errorf("range needs [low, high]")
		}
		bounds, err := literals(ps.Range)
		if err != nil {
			return codable.Predicate{}, err
		}
		return codable.InRange(bounds[0], bounds[1]), nil
	}
	return codable.PathPresent(*ps.Path), nil
}

func literals(xs []any) ([]codable.Value, error) {
	out := make([]codable.Value, len(xs))
	for i, x := range xs {
		v, ok := codable.FromNative(x)
		if !ok {
			return nil, fmt.Errorf("unsupported literal %v", x)
		}
		out[i] = v
	}
	return out, nil
}

func schemaErr(typ, field string, err error) error {
	return &codable.SchemaError{Type: typ, Field: field, Reason: err.Error()}
}

// TypeNames returns record type names in file order.
func (s *Schema) TypeNames() []string {
	return append([]string(nil), s.typeOrder...)
}

// EnumNames returns enum names in file order.
func (s *Schema) EnumNames() []string {
	return append([]string(nil), s.enumOrder...)
}

// Type returns the declaration of a record type.
func (s *Schema) Type(name string) (*codable.TypeDecl, bool) {
	d, ok := s.types[name]
	return d, ok
}

// Enum returns the declaration of an enum.
func (s *Schema) Enum(name string) (*codable.EnumDecl, bool) {
	d, ok := s.enums[name]
	return d, ok
}

// Plan normalizes the named record type.
func (s *Schema) Plan(name string) (*codable.RecordPlan, error) {
	d, ok := s.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", codable.ErrSchema, name)
	}
	return s.norm.Record(d)
}

// EnumPlan normalizes the named enum.
func (s *Schema) EnumPlan(name string) (*codable.EnumPlan, error) {
	d, ok := s.enums[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown enum %q", codable.ErrSchema, name)
	}
	return s.norm.Enum(d)
}

// Codec normalizes and compiles the named record type.
func (s *Schema) Codec(name string) (*codable.RecordCodec, error) {
	plan, err := s.Plan(name)
	if err != nil {
		return nil, err
	}
	return codable.Compile(plan)
}
