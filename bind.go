package codable

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/zoobzio/sentinel"
)

var (
	valueType       = reflect.TypeFor[Value]()
	timeType        = reflect.TypeFor[time.Time]()
	initializerType = reflect.TypeFor[Initializer]()
	decodeHookType  = reflect.TypeFor[DecodeHook]()
	encodeHookType  = reflect.TypeFor[EncodeHook]()
)

// binder maps Go types onto declarations and converts between Go values
// and dynamic records. It is filled while New runs and read-only after.
type binder struct {
	structs map[reflect.Type]*structBinding
	enums   map[reflect.Type]*enumBinding
}

type structBinding struct {
	decl       *TypeDecl
	fields     []boundField
	init       bool
	didDecode  bool
	willEncode bool
}

type boundField struct {
	name  string
	index []int
}

func newBinder(cfg *config) (*binder, error) {
	b := &binder{
		structs: make(map[reflect.Type]*structBinding),
		enums:   make(map[reflect.Type]*enumBinding),
	}
	for _, e := range cfg.enums {
		if _, dup := b.enums[e.typ]; dup {
			return nil, newSchemaError(e.name, "", "type %s registered as enum twice", e.typ)
		}
		b.enums[e.typ] = &enumBinding{enum: e}
	}
	return b, nil
}

// structDecl builds the declaration of a struct type. meta may be nil for
// nested types, which are looked up in sentinel's cache or scanned.
func (b *binder) structDecl(rt reflect.Type, meta *sentinel.Metadata) (*structBinding, error) {
	if sb, ok := b.structs[rt]; ok {
		return sb, nil
	}
	if meta == nil {
		meta = scanNestedType(rt)
	}
	name := meta.TypeName
	if name == "" {
		name = rt.String()
	}
	ptr := reflect.PointerTo(rt)
	sb := &structBinding{
		decl:       &TypeDecl{Name: name},
		init:       ptr.Implements(initializerType),
		didDecode:  ptr.Implements(decodeHookType),
		willEncode: ptr.Implements(encodeHookType),
	}
	b.structs[rt] = sb

	attrs, err := typeAttrs(rt)
	if err != nil {
		return nil, newSchemaError(name, "", "%v", err)
	}
	sb.decl.Attrs = attrs

	// Only fields Init assigns count as initialized.
	var initialized reflect.Value
	if sb.init {
		initialized = reflect.New(rt)
		initialized.Interface().(Initializer).Init()
		initialized = initialized.Elem()
	}

	for _, fm := range meta.Fields {
		sf := rt.FieldByIndex(fm.Index)
		if !sf.IsExported() {
			continue
		}
		tag, tagged := fm.Tags[TagName]
		if tag == "-" {
			continue
		}
		fattrs, err := ParseTag(tag)
		if err != nil {
			return nil, newSchemaError(name, fm.Name, "%v", err)
		}
		if sf.Anonymous && !tagged && fm.Kind == sentinel.KindStruct {
			fattrs = []Attr{{Name: AttrFlatten}}
		}
		shape, elem, err := b.fieldType(fm.ReflectType)
		if err != nil {
			return nil, newSchemaError(name, fm.Name, "%v", err)
		}
		sb.decl.Fields = append(sb.decl.Fields, FieldDecl{
			Name:    fm.Name,
			Shape:   shape,
			Elem:    elem,
			Attrs:   fattrs,
			HasInit: sb.init && !initialized.FieldByIndex(fm.Index).IsZero(),
		})
		sb.fields = append(sb.fields, boundField{name: fm.Name, index: fm.Index})
	}
	return sb, nil
}

// typeAttrs reads type-level attributes from a blank `_ struct{}` field.
func typeAttrs(rt reflect.Type) ([]Attr, error) {
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.Name != "_" {
			continue
		}
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			return ParseTag(tag)
		}
	}
	return nil, nil
}

// scanNestedType returns metadata for a nested struct type, preferring
// sentinel's cache and falling back to reflection.
func scanNestedType(rt reflect.Type) *sentinel.Metadata {
	if meta, ok := sentinel.Lookup(rt.String()); ok {
		return &meta
	}
	meta := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        make(map[string]string),
		}
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			fm.Tags[TagName] = tag
		}
		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}
		meta.Fields = append(meta.Fields, fm)
	}
	return &meta
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isEmptyStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

// fieldType maps a Go field type onto a shape and element declaration.
func (b *binder) fieldType(t reflect.Type) (Shape, ElemDecl, error) {
	if t == valueType || t == timeType || isBytes(t) || b.enums[t] != nil {
		ed, err := b.elemDecl(t)
		return ShapeScalar, ed, err
	}
	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Pointer {
			return 0, ElemDecl{}, fmt.Errorf("unsupported type %s", t)
		}
		ed, err := b.elemDecl(t.Elem())
		return ShapeOptional, ed, err
	case reflect.Slice, reflect.Array:
		ed, err := b.elemDecl(t.Elem())
		return ShapeArray, ed, err
	case reflect.Map:
		if isEmptyStruct(t.Elem()) {
			ed, err := b.elemDecl(t.Key())
			return ShapeSet, ed, err
		}
		var key ElemKind
		switch t.Key().Kind() {
		case reflect.String:
			key = ElemString
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			key = ElemInt
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			key = ElemUint
		default:
			return 0, ElemDecl{}, fmt.Errorf("unsupported map key type %s", t.Key())
		}
		ed, err := b.elemDecl(t.Elem())
		ed.MapKey = key
		return ShapeMap, ed, err
	}
	ed, err := b.elemDecl(t)
	return ShapeScalar, ed, err
}

func (b *binder) elemDecl(t reflect.Type) (ElemDecl, error) {
	switch {
	case t == valueType:
		return Elem(ElemAny), nil
	case t == timeType:
		return Elem(ElemTime), nil
	case isBytes(t):
		return Elem(ElemBytes), nil
	}
	if eb := b.enums[t]; eb != nil {
		decl, err := eb.declare(b)
		if err != nil {
			return ElemDecl{}, err
		}
		return EnumElem(decl), nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return Elem(ElemBool), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ElemDecl{Kind: ElemInt, Bits: t.Bits()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ElemDecl{Kind: ElemUint, Bits: t.Bits()}, nil
	case reflect.Float32, reflect.Float64:
		return ElemDecl{Kind: ElemFloat, Bits: t.Bits()}, nil
	case reflect.String:
		return Elem(ElemString), nil
	case reflect.Struct:
		sb, err := b.structDecl(t, nil)
		if err != nil {
			return ElemDecl{}, err
		}
		return RecordElem(sb.decl), nil
	case reflect.Interface:
		return ElemDecl{}, fmt.Errorf("interface type %s must be registered with WithEnum", t)
	}
	return ElemDecl{}, fmt.Errorf("unsupported type %s", t)
}

// structToObject converts a struct into its dynamic record, running the
// WillEncode hook first.
func (b *binder) structToObject(rv reflect.Value) (*Object, error) {
	sb := b.structs[rv.Type()]
	if sb.willEncode {
		if !rv.CanAddr() {
			tmp := reflect.New(rv.Type()).Elem()
			tmp.Set(rv)
			rv = tmp
		}
		if err := rv.Addr().Interface().(EncodeHook).WillEncode(); err != nil {
			return nil, &HookError{Type: sb.decl.Name, Phase: "encode", Cause: err}
		}
	}
	obj := NewObject()
	for _, f := range sb.fields {
		v, err := b.toValue(rv.FieldByIndex(f.index))
		if err != nil {
			return nil, newFieldError(ErrTypeMismatch, sb.decl.Name, f.name, nil, err)
		}
		obj.Set(f.name, v)
	}
	return obj, nil
}

// structFromObject assigns the fields present in obj to rv, which must be
// addressable. Init runs before assignment and DidDecode after.
func (b *binder) structFromObject(obj *Object, rv reflect.Value) error {
	sb := b.structs[rv.Type()]
	if sb.init {
		rv.Addr().Interface().(Initializer).Init()
	}
	for _, f := range sb.fields {
		v, ok := obj.Get(f.name)
		if !ok {
			continue
		}
		if err := b.fromValue(v, rv.FieldByIndex(f.index)); err != nil {
			return newFieldError(ErrTypeMismatch, sb.decl.Name, f.name, nil, err)
		}
	}
	if sb.didDecode {
		if err := rv.Addr().Interface().(DecodeHook).DidDecode(); err != nil {
			return &HookError{Type: sb.decl.Name, Phase: "decode", Cause: err}
		}
	}
	return nil
}

func (b *binder) toValue(rv reflect.Value) (Value, error) {
	t := rv.Type()
	switch {
	case t == valueType:
		return rv.Interface().(Value), nil
	case t == timeType:
		return timeValue(rv.Interface().(time.Time)), nil
	case isBytes(t):
		return bytesValue(rv.Bytes()), nil
	}
	if eb := b.enums[t]; eb != nil {
		return eb.toValue(b, rv)
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return b.toValue(rv.Elem())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := range out {
			v, err := b.toValue(rv.Index(i))
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = v
		}
		return Array(out...), nil
	case reflect.Map:
		keys := rv.MapKeys()
		sortMapKeys(keys)
		if isEmptyStruct(t.Elem()) {
			out := make([]Value, len(keys))
			for i, k := range keys {
				v, err := b.toValue(k)
				if err != nil {
					return Value{}, err
				}
				out[i] = v
			}
			return Array(out...), nil
		}
		obj := NewObject()
		for _, k := range keys {
			v, err := b.toValue(rv.MapIndex(k))
			if err != nil {
				return Value{}, fmt.Errorf("key %v: %w", k, err)
			}
			obj.Set(mapKeyString(k), v)
		}
		return ObjectValue(obj), nil
	case reflect.Struct:
		obj, err := b.structToObject(rv)
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(obj), nil
	}
	return Value{}, fmt.Errorf("unsupported type %s", t)
}

func (b *binder) fromValue(v Value, rv reflect.Value) error {
	t := rv.Type()
	switch {
	case t == valueType:
		rv.Set(reflect.ValueOf(v))
		return nil
	case t == timeType:
		tm, ok := valueTime(v)
		if !ok {
			return mismatch("%s is not a time", v)
		}
		rv.Set(reflect.ValueOf(tm))
		return nil
	case isBytes(t):
		bs, ok := valueBytes(v)
		if !ok {
			return mismatch("%s is not bytes", v)
		}
		rv.SetBytes(bs)
		return nil
	}
	if eb := b.enums[t]; eb != nil {
		return eb.fromValue(b, v, rv)
	}
	switch t.Kind() {
	case reflect.Pointer:
		if v.IsNull() || v.IsAbsent() {
			rv.Set(reflect.Zero(t))
			return nil
		}
		nv := reflect.New(t.Elem())
		if err := b.fromValue(v, nv.Elem()); err != nil {
			return err
		}
		rv.Set(nv)
		return nil
	case reflect.Bool:
		x, ok := readScalar(v, ElemBool, 0)
		if !ok {
			return mismatch("%s is not bool", v)
		}
		rv.SetBool(x.b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x, ok := readScalar(v, ElemInt, t.Bits())
		if !ok {
			return mismatch("%s does not fit %s", v, t)
		}
		rv.SetInt(x.i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		x, ok := readScalar(v, ElemUint, t.Bits())
		if !ok {
			return mismatch("%s does not fit %s", v, t)
		}
		rv.SetUint(x.u)
		return nil
	case reflect.Float32, reflect.Float64:
		x, ok := readScalar(v, ElemFloat, t.Bits())
		if !ok {
			return mismatch("%s is not a number", v)
		}
		rv.SetFloat(x.f)
		return nil
	case reflect.String:
		x, ok := readScalar(v, ElemString, 0)
		if !ok {
			return mismatch("%s is not a string", v)
		}
		rv.SetString(x.s)
		return nil
	case reflect.Slice, reflect.Array:
		items, ok := v.AsArray()
		if !ok {
			return mismatch("%s is not an array", v)
		}
		target := rv
		if t.Kind() == reflect.Slice {
			target = reflect.MakeSlice(t, len(items), len(items))
		} else if len(items) != t.Len() {
			return mismatch("array of %d elements for %s", len(items), t)
		}
		for i := range items {
			if err := b.fromValue(items[i], target.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		if t.Kind() == reflect.Slice {
			rv.Set(target)
		}
		return nil
	case reflect.Map:
		return b.mapFromValue(v, rv)
	case reflect.Struct:
		obj, ok := v.AsObject()
		if !ok {
			return mismatch("%s is not an object", v)
		}
		return b.structFromObject(obj, rv)
	}
	return mismatch("unsupported type %s", t)
}

func (b *binder) mapFromValue(v Value, rv reflect.Value) error {
	t := rv.Type()
	if isEmptyStruct(t.Elem()) {
		items, ok := v.AsArray()
		if !ok {
			return mismatch("%s is not an array", v)
		}
		m := reflect.MakeMapWithSize(t, len(items))
		for _, item := range items {
			k := reflect.New(t.Key()).Elem()
			if err := b.fromValue(item, k); err != nil {
				return err
			}
			m.SetMapIndex(k, reflect.Zero(t.Elem()))
		}
		rv.Set(m)
		return nil
	}
	obj, ok := v.AsObject()
	if !ok {
		return mismatch("%s is not an object", v)
	}
	m := reflect.MakeMapWithSize(t, obj.Len())
	for _, key := range obj.Keys() {
		k := reflect.New(t.Key()).Elem()
		if err := setMapKey(k, key); err != nil {
			return err
		}
		item, _ := obj.Get(key)
		e := reflect.New(t.Elem()).Elem()
		if err := b.fromValue(item, e); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m.SetMapIndex(k, e)
	}
	rv.Set(m)
	return nil
}

func mapKeyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10)
	default:
		return k.String()
	}
}

func setMapKey(k reflect.Value, s string) error {
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, k.Type().Bits())
		if err != nil {
			return mismatch("map key %q: %v", s, err)
		}
		k.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, k.Type().Bits())
		if err != nil {
			return mismatch("map key %q: %v", s, err)
		}
		k.SetUint(u)
	default:
		k.SetString(s)
	}
	return nil
}

// sortMapKeys orders map keys so encoded documents are deterministic.
func sortMapKeys(keys []reflect.Value) {
	if len(keys) == 0 {
		return
	}
	switch keys[0].Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Uint() < keys[j].Uint() })
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	default:
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
	}
}
