package codable

import (
	"fmt"
	"reflect"
)

// Enum binds a Go type to a sum type. Build one with NewEnum (an
// interface implemented by one struct per case) or NewRawEnum (a scalar
// type with one constant per case), then register it with WithEnum.
type Enum struct {
	name  string
	typ   reflect.Type
	raw   bool
	cases []EnumCase
}

// EnumCase is one case of an Enum. Cases are tried in the order given.
type EnumCase struct {
	name  string
	match []Predicate
	typ   reflect.Type // associated-value struct, NewEnum only
	value any          // constant, NewRawEnum only
}

// NewEnum declares the interface type T as an enum.
//
//	type Shape interface{ isShape() }
//	type Circle struct{ Radius float64 }
//	type Square struct{ Side float64 }
//
//	shapes := codable.NewEnum[Shape]("Shape",
//	    codable.Case[Circle]("circle"),
//	    codable.Case[Square]("square", codable.PathPresent("square")),
//	)
func NewEnum[T any](name string, cases ...EnumCase) *Enum {
	return &Enum{name: name, typ: reflect.TypeFor[T](), cases: cases}
}

// Case declares a case whose associated values are the fields of V. V or
// *V must implement the enum's interface. With no predicates the case
// matches its own name.
func Case[V any](name string, match ...Predicate) EnumCase {
	return EnumCase{name: name, match: match, typ: reflect.TypeFor[V]()}
}

// NewRawEnum declares the scalar type T as an enum of constants.
func NewRawEnum[T comparable](name string, cases ...EnumCase) *Enum {
	return &Enum{name: name, typ: reflect.TypeFor[T](), raw: true, cases: cases}
}

// Raw declares a constant case. With no predicates it matches the
// constant's own value.
func Raw[T comparable](name string, value T, match ...Predicate) EnumCase {
	return EnumCase{name: name, match: match, value: value}
}

type enumBinding struct {
	enum  *Enum
	decl  *EnumDecl
	cases []caseBinding
}

type caseBinding struct {
	name string
	typ  reflect.Type // struct type holding the values
	ptr  bool         // *typ implements the interface, typ does not
	raw  reflect.Value
}

// declare builds the enum declaration on first use.
func (eb *enumBinding) declare(b *binder) (*EnumDecl, error) {
	if eb.decl != nil {
		return eb.decl, nil
	}
	e := eb.enum
	eb.decl = &EnumDecl{Name: e.name, Raw: e.raw}
	fail := func(c EnumCase, format string, args ...any) (*EnumDecl, error) {
		eb.decl = nil
		return nil, newSchemaError(e.name, c.name, format, args...)
	}
	if !e.raw && e.typ.Kind() != reflect.Interface {
		return nil, newSchemaError(e.name, "", "enum type %s must be an interface", e.typ)
	}
	for _, c := range e.cases {
		cd := CaseDecl{Name: c.name, Match: c.match}
		cb := caseBinding{name: c.name}
		if e.raw {
			rv := reflect.ValueOf(c.value)
			if !rv.IsValid() || rv.Type() != e.typ {
				return fail(c, "case value %v is not a %s", c.value, e.typ)
			}
			cb.raw = rv
			if len(cd.Match) == 0 {
				lit, ok := scalarLiteral(rv)
				if !ok {
					return fail(c, "case value %v is not a scalar", c.value)
				}
				cd.Match = []Predicate{Equals(lit)}
			}
		} else {
			if c.typ == nil || c.typ.Kind() != reflect.Struct {
				return fail(c, "case type %v must be a struct", c.typ)
			}
			switch {
			case c.typ.Implements(e.typ):
			case reflect.PointerTo(c.typ).Implements(e.typ):
				cb.ptr = true
			default:
				return fail(c, "%s does not implement %s", c.typ, e.typ)
			}
			cb.typ = c.typ
			sb, err := b.structDecl(c.typ, nil)
			if err != nil {
				eb.decl = nil
				return nil, err
			}
			cd.Values = sb.decl.Fields
		}
		eb.decl.Cases = append(eb.decl.Cases, cd)
		eb.cases = append(eb.cases, cb)
	}
	return eb.decl, nil
}

// scalarLiteral converts a constant of a scalar kind into a Value.
func scalarLiteral(rv reflect.Value) (Value, bool) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), true
	case reflect.String:
		return String(rv.String()), true
	}
	return Value{}, false
}

func (eb *enumBinding) toValue(b *binder, rv reflect.Value) (Value, error) {
	if eb.enum.raw {
		for _, c := range eb.cases {
			if c.raw.Interface() == rv.Interface() {
				return Variant{Case: c.name}.Value(), nil
			}
		}
		return Value{}, fmt.Errorf("%w: %v is not a case of %s", ErrNoVariant, rv.Interface(), eb.enum.name)
	}
	if rv.IsNil() {
		return Null(), nil
	}
	dyn := rv.Elem()
	for _, c := range eb.cases {
		switch {
		case !c.ptr && dyn.Type() == c.typ:
		case c.ptr && dyn.Type() == reflect.PointerTo(c.typ):
			if dyn.IsNil() {
				return Null(), nil
			}
			dyn = dyn.Elem()
		default:
			continue
		}
		vals, err := b.structToObject(dyn)
		if err != nil {
			return Value{}, err
		}
		return Variant{Case: c.name, Values: vals}.Value(), nil
	}
	return Value{}, fmt.Errorf("%w: %s is not a case of %s", ErrNoVariant, dyn.Type(), eb.enum.name)
}

func (eb *enumBinding) fromValue(b *binder, v Value, rv reflect.Value) error {
	if v.IsNull() && !eb.enum.raw {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	variant, ok := VariantOf(v)
	if !ok {
		return mismatch("%s is not a variant", v)
	}
	for _, c := range eb.cases {
		if c.name != variant.Case {
			continue
		}
		if eb.enum.raw {
			rv.Set(c.raw)
			return nil
		}
		nv := reflect.New(c.typ)
		if err := b.structFromObject(variant.Values, nv.Elem()); err != nil {
			return err
		}
		if c.ptr {
			rv.Set(nv)
		} else {
			rv.Set(nv.Elem())
		}
		return nil
	}
	return &NoVariantError{Type: eb.enum.name, Value: String(variant.Case)}
}
