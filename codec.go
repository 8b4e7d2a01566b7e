package codable

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

func init() {
	sentinel.Tag(TagName)
}

// Option configures New and Use.
type Option func(*config)

type config struct {
	styles []CaseStyle
	codecs map[string]FieldCodec
	enums  []*Enum
}

func newConfig(opts []Option) *config {
	cfg := &config{codecs: make(map[string]FieldCodec)}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCaseStyle derives extra decode keys for every field of every record
// using the given styles, after any styles the record declares itself.
func WithCaseStyle(styles ...CaseStyle) Option {
	return func(c *config) {
		c.styles = append(c.styles, styles...)
	}
}

// WithFieldCodec makes a custom codec available to the codec attribute
// under name. It takes precedence over a built-in codec of the same name.
func WithFieldCodec(name string, fc FieldCodec) Option {
	return func(c *config) {
		c.codecs[name] = fc
	}
}

// WithEnum registers Go types that are decoded and encoded as enums.
func WithEnum(enums ...*Enum) Option {
	return func(c *config) {
		c.enums = append(c.enums, enums...)
	}
}

// Codec decodes and encodes values of the struct type T. Build one with New
// or fetch a cached one with Use. A Codec is immutable and safe for
// concurrent use.
type Codec[T any] struct {
	plan   *RecordPlan
	record *RecordCodec
	bind   *binder
}

// New scans T's codable tags, normalizes the resulting schema and compiles
// its codec. Schema problems are reported here, never during decode.
func New[T any](opts ...Option) (*Codec[T], error) {
	cfg := newConfig(opts)
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, newSchemaError(rt.String(), "", "codable types must be structs, got %s", rt.Kind())
	}

	b, err := newBinder(cfg)
	if err != nil {
		return nil, err
	}
	meta := sentinel.Scan[T]()
	sb, err := b.structDecl(rt, &meta)
	if err != nil {
		return nil, err
	}

	n := &Normalizer{CaseStyles: cfg.styles, Codecs: cfg.codecs}
	plan, err := n.Record(sb.decl)
	if err != nil {
		return nil, err
	}
	rc, err := Compile(plan)
	if err != nil {
		return nil, err
	}

	emitSchemaBuilt(context.Background(), plan.Name, len(plan.Fields))
	return &Codec[T]{plan: plan, record: rc, bind: b}, nil
}

// Plan returns the normalized plan of T.
func (c *Codec[T]) Plan() *RecordPlan {
	return c.plan
}

// Record returns the dynamic record codec underlying c.
func (c *Codec[T]) Record() *RecordCodec {
	return c.record
}

// Decode builds a T from src.
func (c *Codec[T]) Decode(src Container) (*T, error) {
	rec, err := c.record.Decode(src)
	if err != nil {
		return nil, err
	}
	return c.FromRecord(rec)
}

// Encode writes v into dst.
func (c *Codec[T]) Encode(v *T, dst Container) error {
	rec, err := c.ToRecord(v)
	if err != nil {
		return err
	}
	return c.record.Encode(rec, dst)
}

// DecodeValue builds a T from a document value, which must be an object.
func (c *Codec[T]) DecodeValue(doc Value) (*T, error) {
	obj, ok := doc.AsObject()
	if !ok {
		return nil, newFieldError(ErrTypeMismatch, c.plan.Name, "", nil, fmt.Errorf("document is %s, not object", doc.Kind()))
	}
	return c.Decode(obj)
}

// EncodeValue renders v as a document object.
func (c *Codec[T]) EncodeValue(v *T) (Value, error) {
	out := NewObject()
	if err := c.Encode(v, out); err != nil {
		return Value{}, err
	}
	return ObjectValue(out), nil
}

// FromRecord binds a dynamic record produced by Record().Decode into a T.
func (c *Codec[T]) FromRecord(rec *Object) (*T, error) {
	out := new(T)
	if err := c.bind.structFromObject(rec, reflect.ValueOf(out).Elem()); err != nil {
		return nil, err
	}
	return out, nil
}

// ToRecord converts v into the dynamic record form understood by
// Record().Encode. T's WillEncode hook runs first.
func (c *Codec[T]) ToRecord(v *T) (*Object, error) {
	if v == nil {
		return nil, newFieldError(ErrTypeMismatch, c.plan.Name, "", nil, fmt.Errorf("nil %s", c.plan.Name))
	}
	return c.bind.structToObject(reflect.ValueOf(v).Elem())
}
