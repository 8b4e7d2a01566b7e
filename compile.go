package codable

import (
	"errors"
	"fmt"
	"strconv"
)

// RecordCodec is the compiled decode and encode procedure for one record
// plan. It works on dynamic records: an *Object keyed by field name whose
// values use the record-side representation of each field. A RecordCodec
// is immutable and safe for concurrent use.
type RecordCodec struct {
	plan   *RecordPlan
	fields []*fieldCodec
}

type fieldCodec struct {
	owner string
	plan  *FieldPlan
	elem  elemCodec
	def   Value        // record-side default
	flat  *RecordCodec // flattened record
}

type elemCodec struct {
	kind   ElemKind
	bits   int
	mapKey ElemKind
	binary BinaryTextMode
	date   DateStrategy
	record *RecordCodec
	enum   *EnumCodec
}

type compiler struct {
	records map[*RecordPlan]*RecordCodec
	enums   map[*EnumPlan]*EnumCodec
}

func newCompiler() *compiler {
	return &compiler{
		records: make(map[*RecordPlan]*RecordCodec),
		enums:   make(map[*EnumPlan]*EnumCodec),
	}
}

// Compile builds the codec for a normalized record plan. It fails only
// when a declared default does not fit its field.
func Compile(plan *RecordPlan) (*RecordCodec, error) {
	return newCompiler().record(plan)
}

func (c *compiler) record(plan *RecordPlan) (*RecordCodec, error) {
	if rc, ok := c.records[plan]; ok {
		return rc, nil
	}
	rc := &RecordCodec{plan: plan}
	c.records[plan] = rc
	for i := range plan.Fields {
		fc, err := c.field(plan.Name, &plan.Fields[i])
		if err != nil {
			return nil, err
		}
		rc.fields = append(rc.fields, fc)
	}
	return rc, nil
}

func (c *compiler) enum(plan *EnumPlan) (*EnumCodec, error) {
	if ec, ok := c.enums[plan]; ok {
		return ec, nil
	}
	ec := &EnumCodec{plan: plan, values: make([]*RecordCodec, len(plan.Variants))}
	c.enums[plan] = ec
	for i := range plan.Variants {
		vp := &plan.Variants[i]
		if len(vp.Values) == 0 {
			continue
		}
		rc, err := c.record(&RecordPlan{Name: plan.Name + "." + vp.Name, Fields: vp.Values})
		if err != nil {
			return nil, err
		}
		ec.values[i] = rc
	}
	return ec, nil
}

func (c *compiler) field(owner string, f *FieldPlan) (*fieldCodec, error) {
	fc := &fieldCodec{
		owner: owner,
		plan:  f,
		elem: elemCodec{
			kind:   f.Elem.Kind,
			bits:   normBits(f.Elem.Bits),
			mapKey: f.Elem.MapKey,
			binary: f.BinaryText,
			date:   defaultDateStrategy,
		},
	}
	if f.Date != nil {
		fc.elem.date = *f.Date
	}
	var err error
	if f.Elem.Record != nil {
		if fc.elem.record, err = c.record(f.Elem.Record); err != nil {
			return nil, err
		}
		if f.Flatten {
			fc.flat = fc.elem.record
		}
	}
	if f.Elem.Enum != nil {
		if fc.elem.enum, err = c.enum(f.Elem.Enum); err != nil {
			return nil, err
		}
	}
	if f.HasDefault {
		if fc.def, err = fc.decodeValue(f.Default); err != nil {
			return nil, newSchemaError(owner, f.Name, "default %s does not fit %s %s: %v", f.Default, f.Shape, f.Elem.Kind, err)
		}
	}
	return fc, nil
}

// Plan returns the plan the codec was compiled from.
func (rc *RecordCodec) Plan() *RecordPlan {
	return rc.plan
}

// Decode builds a dynamic record from c. Fields are decoded in declaration
// order; the first failure aborts the whole record.
func (rc *RecordCodec) Decode(c Container) (*Object, error) {
	root := c
	if path := rc.plan.DecodeContainer; path != "" {
		sub, ok := descendForDecode(c, path)
		if !ok {
			return nil, newFieldError(ErrKeyNotFound, rc.plan.Name, "", []string{path}, nil)
		}
		root = sub
	}
	rec := NewObject()
	if err := rc.decodeFields(root, rec); err != nil {
		return nil, err
	}
	if hook := rc.plan.AfterDecode; hook != nil {
		if err := hook(rec); err != nil {
			return nil, &HookError{Type: rc.plan.Name, Phase: "decode", Cause: err}
		}
	}
	return rec, nil
}

func (rc *RecordCodec) decodeFields(c Container, rec *Object) error {
	for _, fc := range rc.fields {
		if err := fc.decode(c, rec); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes rec into c. The pre-encode hook runs first and may modify
// rec. Fields missing from rec are not written.
func (rc *RecordCodec) Encode(rec *Object, c Container) error {
	if rec == nil {
		return newFieldError(ErrTypeMismatch, rc.plan.Name, "", nil, errors.New("nil record"))
	}
	if hook := rc.plan.BeforeEncode; hook != nil {
		if err := hook(rec); err != nil {
			return &HookError{Type: rc.plan.Name, Phase: "encode", Cause: err}
		}
	}
	root := c
	if path := rc.plan.EncodeContainer; path != "" {
		sub, err := descendOrCreate(c, path)
		if err != nil {
			return newFieldError(ErrPathConflict, rc.plan.Name, "", []string{path}, err)
		}
		root = sub
	}
	return rc.encodeFields(rec, root)
}

func (rc *RecordCodec) encodeFields(rec *Object, c Container) error {
	for _, fc := range rc.fields {
		if err := fc.encode(rec, c); err != nil {
			return err
		}
	}
	return nil
}

func (fc *fieldCodec) decode(c Container, rec *Object) error {
	f := fc.plan
	switch {
	case f.Ignored:
		return fc.fallback(rec)
	case f.Flatten:
		sub, err := fc.flat.Decode(c)
		if err != nil {
			return err
		}
		rec.Set(f.Name, ObjectValue(sub))
		return nil
	case f.Codec != nil:
		v, err := f.Codec.DecodeFrom(c, f.DecodeKeys)
		if err != nil {
			if f.HasDefault || f.HasInit {
				return fc.fallback(rec)
			}
			return newFieldError(failureKind(err), fc.owner, f.Name, f.DecodeKeys, err)
		}
		if v.IsAbsent() {
			return fc.fallback(rec)
		}
		rec.Set(f.Name, v)
		return nil
	}

	var firstErr error
	res := ResolveForDecode(c, f.DecodeKeys, func(raw Value) (Value, bool) {
		v, err := fc.decodeValue(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return Value{}, false
		}
		return v, true
	})
	switch {
	case res.OK:
		rec.Set(f.Name, res.Value)
		return nil
	case !res.Found, f.HasDefault, f.HasInit:
		return fc.fallback(rec)
	default:
		return newFieldError(failureKind(firstErr), fc.owner, f.Name, f.DecodeKeys, firstErr)
	}
}

// fallback assigns the value a field takes when the document supplies
// none: the default, else the initializer (left in place), else null for
// optional fields.
func (fc *fieldCodec) fallback(rec *Object) error {
	f := fc.plan
	switch {
	case f.HasDefault:
		rec.Set(f.Name, cloneValue(fc.def))
	case f.HasInit:
	case f.Optional():
		rec.Set(f.Name, Null())
	default:
		return newFieldError(ErrKeyNotFound, fc.owner, f.Name, f.DecodeKeys, nil)
	}
	return nil
}

func failureKind(err error) error {
	if errors.Is(err, ErrFormat) {
		return ErrFormat
	}
	return ErrTypeMismatch
}

// decodeValue converts a raw document value into the record-side value of
// the field's shape.
func (fc *fieldCodec) decodeValue(raw Value) (Value, error) {
	f := fc.plan
	switch f.Shape {
	case ShapeOptional:
		if raw.IsNull() {
			return Null(), nil
		}
		return fc.elem.decode(raw)
	case ShapeArray, ShapeSet:
		items, ok := raw.AsArray()
		if !ok {
			return Value{}, mismatch("expected array, got %s", raw.Kind())
		}
		out := make([]Value, 0, len(items))
		for i, item := range items {
			if f.Compact && item.IsNull() {
				continue
			}
			v, err := fc.elem.decode(item)
			if err != nil {
				if f.Compact {
					continue
				}
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			if f.Shape == ShapeSet && containsValue(out, v) {
				continue
			}
			out = append(out, v)
		}
		return Array(out...), nil
	case ShapeMap:
		obj, ok := raw.AsObject()
		if !ok {
			return Value{}, mismatch("expected object, got %s", raw.Kind())
		}
		out := NewObject()
		for _, k := range obj.Keys() {
			item, _ := obj.Get(k)
			if !validMapKey(k, fc.elem.mapKey) {
				if f.Compact {
					continue
				}
				return Value{}, mismatch("map key %q is not %s", k, fc.elem.mapKey)
			}
			if f.Compact && item.IsNull() {
				continue
			}
			v, err := fc.elem.decode(item)
			if err != nil {
				if f.Compact {
					continue
				}
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			out.Set(k, v)
		}
		return ObjectValue(out), nil
	default:
		return fc.elem.decode(raw)
	}
}

func (e *elemCodec) decode(v Value) (Value, error) {
	if v.IsAbsent() {
		return Value{}, mismatch("missing value")
	}
	switch e.kind {
	case ElemAny:
		return v, nil
	case ElemBool, ElemInt, ElemUint, ElemFloat, ElemString:
		out, ok := readScalar(v, e.kind, e.bits)
		if !ok {
			return Value{}, mismatch("cannot read %s as %s", v, e.kind)
		}
		return out, nil
	case ElemBytes:
		if e.binary == BinaryBase64 {
			s, ok := v.AsString()
			if !ok {
				return Value{}, mismatch("expected base64 string, got %s", v.Kind())
			}
			b, err := DecodeBase64(s)
			if err != nil {
				return Value{}, err
			}
			return bytesValue(b), nil
		}
		b, ok := arrayToBytes(v)
		if !ok {
			return Value{}, mismatch("expected byte array, got %s", v)
		}
		return bytesValue(b), nil
	case ElemTime:
		t, err := e.date.decode(v)
		if err != nil {
			if errors.Is(err, ErrFormat) {
				return Value{}, err
			}
			return Value{}, mismatch("cannot read %s as %s date", v, e.date)
		}
		return timeValue(t), nil
	case ElemRecord:
		obj, ok := v.AsObject()
		if !ok {
			return Value{}, mismatch("expected object, got %s", v.Kind())
		}
		rec, err := e.record.Decode(obj)
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(rec), nil
	case ElemEnum:
		variant, err := e.enum.Decode(v)
		if err != nil {
			return Value{}, err
		}
		return variant.Value(), nil
	}
	return Value{}, mismatch("unsupported element kind %s", e.kind)
}

func (fc *fieldCodec) encode(rec *Object, c Container) error {
	f := fc.plan
	if f.Ignored {
		return nil
	}
	v, ok := rec.Get(f.Name)
	if !ok || (v.IsNull() && f.Optional()) {
		return nil
	}
	fail := func(sentinel, err error) error {
		return newFieldError(sentinel, fc.owner, f.Name, []string{f.EncodeKey}, err)
	}
	if f.Flatten {
		sub, ok := v.AsObject()
		if !ok {
			return fail(ErrTypeMismatch, fmt.Errorf("flattened value is %s", v.Kind()))
		}
		return fc.flat.Encode(sub, c)
	}
	if f.Codec != nil {
		target, last, err := descendForEncode(c, f.EncodeKey, f.TreatDotAsNested)
		if err != nil {
			return fail(ErrPathConflict, err)
		}
		if err := f.Codec.EncodeInto(target, last, v); err != nil {
			return fail(failureKind(err), err)
		}
		return nil
	}
	out, err := fc.encodeValue(v)
	if err != nil {
		return fail(failureKind(err), err)
	}
	if err := ResolveForEncode(c, f.EncodeKey, out, f.TreatDotAsNested); err != nil {
		return fail(ErrPathConflict, err)
	}
	return nil
}

// encodeValue converts a record-side value into its document form.
func (fc *fieldCodec) encodeValue(v Value) (Value, error) {
	switch fc.plan.Shape {
	case ShapeArray, ShapeSet:
		items, ok := v.AsArray()
		if !ok {
			return Value{}, mismatch("expected array, got %s", v.Kind())
		}
		out := make([]Value, len(items))
		for i, item := range items {
			ev, err := fc.elem.encode(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = ev
		}
		return Array(out...), nil
	case ShapeMap:
		obj, ok := v.AsObject()
		if !ok {
			return Value{}, mismatch("expected object, got %s", v.Kind())
		}
		out := NewObject()
		for _, k := range obj.Keys() {
			if !validMapKey(k, fc.elem.mapKey) {
				return Value{}, mismatch("map key %q is not %s", k, fc.elem.mapKey)
			}
			item, _ := obj.Get(k)
			ev, err := fc.elem.encode(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			out.Set(k, ev)
		}
		return ObjectValue(out), nil
	default:
		return fc.elem.encode(v)
	}
}

func (e *elemCodec) encode(v Value) (Value, error) {
	switch e.kind {
	case ElemAny:
		if v.IsAbsent() {
			return Value{}, mismatch("missing value")
		}
		return v, nil
	case ElemBool, ElemInt, ElemUint, ElemFloat, ElemString:
		out, ok := readDirect(v, e.kind, e.bits)
		if !ok {
			return Value{}, mismatch("record value %s is not %s", v, e.kind)
		}
		return out, nil
	case ElemBytes:
		b, ok := valueBytes(v)
		if !ok {
			return Value{}, mismatch("record value %s is not bytes", v)
		}
		if e.binary == BinaryBase64 {
			return String(EncodeBase64(b)), nil
		}
		return bytesToArray(b), nil
	case ElemTime:
		t, ok := valueTime(v)
		if !ok {
			return Value{}, mismatch("record value %s is not a time", v)
		}
		return e.date.encode(t), nil
	case ElemRecord:
		obj, ok := v.AsObject()
		if !ok {
			return Value{}, mismatch("record value %s is not an object", v)
		}
		out := NewObject()
		if err := e.record.Encode(obj, out); err != nil {
			return Value{}, err
		}
		return ObjectValue(out), nil
	case ElemEnum:
		variant, ok := VariantOf(v)
		if !ok {
			return Value{}, mismatch("record value %s is not a variant", v)
		}
		return e.enum.Encode(variant)
	}
	return Value{}, mismatch("unsupported element kind %s", e.kind)
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

func validMapKey(k string, kind ElemKind) bool {
	var err error
	switch kind {
	case ElemInt:
		_, err = strconv.ParseInt(k, 10, 64)
	case ElemUint:
		_, err = strconv.ParseUint(k, 10, 64)
	}
	return err == nil
}

func containsValue(vs []Value, v Value) bool {
	for _, e := range vs {
		if e.Equal(v) {
			return true
		}
	}
	return false
}
