package codable

import (
	"fmt"
	"strings"
)

// PredicateKind identifies a variant match predicate.
type PredicateKind uint8

const (
	// PredicateEquals holds when the document equals one of the literals
	// or, for object documents, contains one of the string literals as a key.
	PredicateEquals PredicateKind = iota + 1
	// PredicateInRange holds when a numeric document lies in [Low, High].
	PredicateInRange
	// PredicatePathPresent holds when an object document contains Path.
	PredicatePathPresent
)

// Predicate is one match rule of an enum variant.
type Predicate struct {
	Kind     PredicateKind
	Literals []Value
	Low      Value
	High     Value
	Path     string
}

// Equals matches any of the given scalar literals.
func Equals(literals ...Value) Predicate {
	return Predicate{Kind: PredicateEquals, Literals: literals}
}

// InRange matches numbers between low and high inclusive.
func InRange(low, high Value) Predicate {
	return Predicate{Kind: PredicateInRange, Low: low, High: high}
}

// PathPresent matches object documents containing the dotted path.
func PathPresent(path string) Predicate {
	return Predicate{Kind: PredicatePathPresent, Path: path}
}

func (p Predicate) String() string {
	switch p.Kind {
	case PredicateEquals:
		parts := make([]string, len(p.Literals))
		for i, l := range p.Literals {
			parts[i] = l.String()
		}
		return "equals(" + strings.Join(parts, "|") + ")"
	case PredicateInRange:
		return fmt.Sprintf("range(%s..%s)", p.Low, p.High)
	case PredicatePathPresent:
		return "path(" + p.Path + ")"
	default:
		return "invalid"
	}
}

// match reports whether p holds for doc. For object documents it also
// returns the payload the variant's associated values are read from.
func (p Predicate) match(doc Value, raw bool) (Value, bool) {
	obj, isObj := doc.AsObject()
	if isObj && raw {
		return Value{}, false
	}
	switch p.Kind {
	case PredicateEquals:
		for _, lit := range p.Literals {
			if isObj {
				key, ok := lit.AsString()
				if !ok {
					continue
				}
				if payload, ok := obj.Get(key); ok {
					return payload, true
				}
				continue
			}
			if lit.Equal(doc) {
				return Value{}, true
			}
		}
	case PredicateInRange:
		f, ok := doc.number()
		if !ok {
			return Value{}, false
		}
		lo, _ := p.Low.number()
		hi, _ := p.High.number()
		return Value{}, f >= lo && f <= hi
	case PredicatePathPresent:
		if !isObj {
			return Value{}, false
		}
		segments := splitPath(p.Path)
		parent, ok := descendForDecode(obj, strings.Join(segments[:len(segments)-1], PathSeparator))
		if !ok {
			return Value{}, false
		}
		v, ok := parent.Get(segments[len(segments)-1])
		if !ok {
			return Value{}, false
		}
		if v.Kind() == KindObject {
			return v, true
		}
		return doc, true
	}
	return Value{}, false
}

// validate checks a predicate at schema time.
func (p Predicate) validate(raw bool) string {
	switch p.Kind {
	case PredicateEquals:
		if len(p.Literals) == 0 {
			return "equals predicate needs at least one literal"
		}
		for _, l := range p.Literals {
			switch l.Kind() {
			case KindAbsent, KindArray, KindObject:
				return fmt.Sprintf("literal %s is not a scalar", l)
			}
		}
	case PredicateInRange:
		lo, ok1 := p.Low.number()
		hi, ok2 := p.High.number()
		if !ok1 || !ok2 {
			return "range bounds must be numbers"
		}
		if lo > hi {
			return fmt.Sprintf("range %s..%s is empty", p.Low, p.High)
		}
	case PredicatePathPresent:
		if raw {
			return "raw enums cannot match on paths"
		}
		if p.Path == "" || !validPath(p.Path) {
			return fmt.Sprintf("malformed path %q", p.Path)
		}
	default:
		return "unknown predicate"
	}
	return ""
}

// Variant is the dynamic record form of an enum value: the selected case
// and its associated values.
type Variant struct {
	Case   string
	Values *Object
}

// Value stores the variant in a dynamic record as {case: values}.
func (v Variant) Value() Value {
	vals := v.Values
	if vals == nil {
		vals = NewObject()
	}
	obj := NewObject()
	obj.Set(v.Case, ObjectValue(vals))
	return ObjectValue(obj)
}

// VariantOf reads a variant stored by Variant.Value.
func VariantOf(v Value) (Variant, bool) {
	obj, ok := v.AsObject()
	if !ok || obj.Len() != 1 {
		return Variant{}, false
	}
	name := obj.Keys()[0]
	inner, _ := obj.Get(name)
	vals, ok := inner.AsObject()
	if !ok {
		return Variant{}, false
	}
	return Variant{Case: name, Values: vals}, true
}

// EnumCodec decodes and encodes one sum type.
type EnumCodec struct {
	plan   *EnumPlan
	values []*RecordCodec // per variant; nil when the variant has no values
}

// CompileEnum builds the codec for an enum plan.
func CompileEnum(plan *EnumPlan) (*EnumCodec, error) {
	return newCompiler().enum(plan)
}

// Plan returns the plan the codec was compiled from.
func (ec *EnumCodec) Plan() *EnumPlan {
	return ec.plan
}

// Decode selects the first variant, in declaration order, whose predicates
// all hold for doc and decodes its associated values.
func (ec *EnumCodec) Decode(doc Value) (Variant, error) {
	for i := range ec.plan.Variants {
		vp := &ec.plan.Variants[i]
		payload, ok := matchAll(vp.Match, doc, ec.plan.Raw)
		if !ok {
			continue
		}
		out := Variant{Case: vp.Name, Values: NewObject()}
		if rc := ec.values[i]; rc != nil {
			src, ok := payload.AsObject()
			if !ok {
				src = NewObject()
			}
			if err := rc.decodeFields(src, out.Values); err != nil {
				return Variant{}, err
			}
		}
		return out, nil
	}
	return Variant{}, &NoVariantError{Type: ec.plan.Name, Value: doc}
}

func matchAll(preds []Predicate, doc Value, raw bool) (Value, bool) {
	var payload Value
	for _, p := range preds {
		pv, ok := p.match(doc, raw)
		if !ok {
			return Value{}, false
		}
		if payload.IsAbsent() {
			payload = pv
		}
	}
	return payload, true
}

// Encode writes the marker of v's case followed by its associated values.
func (ec *EnumCodec) Encode(v Variant) (Value, error) {
	i := ec.variantIndex(v.Case)
	if i < 0 {
		return Value{}, &NoVariantError{Type: ec.plan.Name, Value: String(v.Case)}
	}
	first := ec.plan.Variants[i].Match[0]
	rc := ec.values[i]
	if rc == nil {
		switch first.Kind {
		case PredicateEquals:
			return first.Literals[0], nil
		case PredicateInRange:
			return first.Low, nil
		}
	}
	root := NewObject()
	var target Container = root
	switch first.Kind {
	case PredicateEquals:
		key, _ := first.Literals[0].AsString()
		payload := NewObject()
		root.Set(key, ObjectValue(payload))
		target = payload
	case PredicatePathPresent:
		t, err := descendOrCreate(root, first.Path)
		if err != nil {
			return Value{}, err
		}
		target = t
	}
	if rc != nil {
		vals := v.Values
		if vals == nil {
			vals = NewObject()
		}
		if err := rc.encodeFields(vals, target); err != nil {
			return Value{}, err
		}
	}
	return ObjectValue(root), nil
}

func (ec *EnumCodec) variantIndex(name string) int {
	for i := range ec.plan.Variants {
		if ec.plan.Variants[i].Name == name {
			return i
		}
	}
	return -1
}
