package codable

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Normalizer turns raw declarations into immutable plans. Plans are
// memoized per declaration pointer so shared and recursive types are
// normalized once. A Normalizer is not safe for concurrent use; the plans
// it returns are.
type Normalizer struct {
	// CaseStyles are applied to every record after the record's own styles.
	CaseStyles []CaseStyle
	// Codecs resolves codec attribute names before the built-in table.
	Codecs map[string]FieldCodec

	records map[*TypeDecl]*RecordPlan
	enums   map[*EnumDecl]*EnumPlan
	stack   []frame
}

// frame is one declaration being normalized. strict marks that it was
// reached through an edge every value must follow (a scalar or flattened
// field), as opposed to an optional or collection edge.
type frame struct {
	decl   any
	strict bool
}

// Normalize builds the plan for decl with default options.
func Normalize(decl *TypeDecl) (*RecordPlan, error) {
	return new(Normalizer).Record(decl)
}

// NormalizeEnum builds the plan for an enum declaration with default options.
func NormalizeEnum(decl *EnumDecl) (*EnumPlan, error) {
	return new(Normalizer).Enum(decl)
}

// Record builds the plan for decl.
func (n *Normalizer) Record(decl *TypeDecl) (*RecordPlan, error) {
	n.init()
	return n.record(decl, false)
}

// Enum builds the plan for decl.
func (n *Normalizer) Enum(decl *EnumDecl) (*EnumPlan, error) {
	n.init()
	return n.enum(decl, false)
}

func (n *Normalizer) init() {
	if n.records == nil {
		n.records = make(map[*TypeDecl]*RecordPlan)
		n.enums = make(map[*EnumDecl]*EnumPlan)
	}
}

// enter checks for unbounded recursion and pushes decl. It reports whether
// decl is already being normalized further up the stack.
func (n *Normalizer) enter(decl any, name string, strict bool) (bool, error) {
	for i := len(n.stack) - 1; i >= 0; i-- {
		if n.stack[i].decl != decl {
			continue
		}
		unbounded := strict
		for _, f := range n.stack[i+1:] {
			unbounded = unbounded && f.strict
		}
		if unbounded {
			return true, newSchemaError(name, "", "cyclic type reachable only through required fields")
		}
		return true, nil
	}
	n.stack = append(n.stack, frame{decl: decl, strict: strict})
	return false, nil
}

func (n *Normalizer) leave() {
	n.stack = n.stack[:len(n.stack)-1]
}

func (n *Normalizer) record(decl *TypeDecl, strict bool) (*RecordPlan, error) {
	if decl == nil {
		return nil, newSchemaError("?", "", "nil record declaration")
	}
	if decl.Name == "" {
		return nil, newSchemaError("?", "", "record declaration has no name")
	}
	active, err := n.enter(decl, decl.Name, strict)
	if err != nil {
		return nil, err
	}
	if p, ok := n.records[decl]; ok {
		if !active {
			n.leave()
		}
		return p, nil
	}
	defer n.leave()

	plan := &RecordPlan{
		Name:         decl.Name,
		AfterDecode:  decl.AfterDecode,
		BeforeEncode: decl.BeforeEncode,
	}
	n.records[decl] = plan

	styles, err := n.typeAttrs(decl, plan)
	if err != nil {
		delete(n.records, decl)
		return nil, err
	}
	fields, err := n.fields(decl.Name, decl.Fields, styles)
	if err != nil {
		delete(n.records, decl)
		return nil, err
	}
	plan.Fields = fields
	if err := checkEncodePaths(plan.Name, plan.Fields); err != nil {
		delete(n.records, decl)
		return nil, err
	}
	return plan, nil
}

func (n *Normalizer) typeAttrs(decl *TypeDecl, plan *RecordPlan) ([]CaseStyle, error) {
	var styles []CaseStyle
	seen := make(map[string]bool)
	for _, a := range decl.Attrs {
		if seen[a.Name] {
			return nil, newSchemaError(decl.Name, "", "duplicate attribute %q", a.Name)
		}
		seen[a.Name] = true
		switch a.Name {
		case AttrCase:
			s, err := parseStyles(a.Args)
			if err != nil {
				return nil, newSchemaError(decl.Name, "", "%v", err)
			}
			styles = append(styles, s...)
		case AttrContainer, AttrEncodeContainer:
			if len(a.Args) != 1 || !validPath(a.Args[0]) {
				return nil, newSchemaError(decl.Name, "", "malformed %s path %q", a.Name, strings.Join(a.Args, "|"))
			}
			if a.Name == AttrContainer {
				plan.DecodeContainer = a.Args[0]
				if !seen[AttrEncodeContainer] {
					plan.EncodeContainer = a.Args[0]
				}
			} else {
				plan.EncodeContainer = a.Args[0]
			}
		default:
			return nil, newSchemaError(decl.Name, "", "unknown type attribute %q", a.Name)
		}
	}
	return append(styles, n.CaseStyles...), nil
}

func parseStyles(names []string) ([]CaseStyle, error) {
	if len(names) == 0 {
		return nil, errString("case attribute needs at least one style")
	}
	out := make([]CaseStyle, 0, len(names))
	for _, name := range names {
		s, ok := ParseCaseStyle(name)
		if !ok {
			return nil, errString("unknown case style " + strconv.Quote(name))
		}
		out = append(out, s)
	}
	return out, nil
}

type errString string

func (e errString) Error() string { return string(e) }

func (n *Normalizer) fields(owner string, decls []FieldDecl, styles []CaseStyle) ([]FieldPlan, error) {
	out := make([]FieldPlan, 0, len(decls))
	names := make(map[string]bool, len(decls))
	for i := range decls {
		fd := &decls[i]
		if fd.Name == "" {
			return nil, newSchemaError(owner, "", "field %d has no name", i)
		}
		if names[fd.Name] {
			return nil, newSchemaError(owner, fd.Name, "duplicate field")
		}
		names[fd.Name] = true
		fp, err := n.field(owner, fd, styles)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, nil
}

// fieldAttrs is the parsed attribute set of one field.
type fieldAttrs struct {
	keys      []string
	encodeKey string
	nested    *bool
	styles    []CaseStyle
	ignore    bool
	def       *string
	base64    bool
	date      *DateStrategy
	compact   bool
	codecName string
	flatten   bool
}

func (n *Normalizer) field(owner string, fd *FieldDecl, typeStyles []CaseStyle) (FieldPlan, error) {
	fail := func(format string, args ...any) (FieldPlan, error) {
		return FieldPlan{}, newSchemaError(owner, fd.Name, format, args...)
	}

	fa, err := parseFieldAttrs(fd.Attrs)
	if err != nil {
		return fail("%v", err)
	}

	fp := FieldPlan{
		Name:             fd.Name,
		Shape:            fd.Shape,
		HasInit:          fd.HasInit,
		Ignored:          fa.ignore,
		Compact:          fa.compact,
		Flatten:          fa.flatten,
		Date:             fa.date,
		Codec:            fd.Codec,
		TreatDotAsNested: true,
	}
	if fd.Shape > ShapeMap {
		return fail("unknown shape %d", fd.Shape)
	}

	strict := fd.Shape == ShapeScalar && !fa.ignore
	if fp.Elem, err = n.elem(owner, fd, strict); err != nil {
		return FieldPlan{}, err
	}

	if fa.flatten {
		switch {
		case len(fd.Attrs) != 1 || fd.Codec != nil:
			return fail("flatten cannot be combined with other attributes")
		case fd.Elem.Kind != ElemRecord || fd.Shape != ShapeScalar:
			return fail("flatten requires a non-optional record field")
		}
	}
	if fa.base64 {
		if fd.Elem.Kind != ElemBytes {
			return fail("base64 requires a bytes field, got %s", fd.Elem.Kind)
		}
		fp.BinaryText = BinaryBase64
	}
	if fa.date != nil && fd.Elem.Kind != ElemTime {
		return fail("date requires a time field, got %s", fd.Elem.Kind)
	}
	if fa.compact && !fd.Shape.IsCollection() {
		return fail("compact requires an array, set or map field, got %s", fd.Shape)
	}
	if fa.codecName != "" {
		if fd.Codec != nil {
			return fail("codec attribute conflicts with an attached codec")
		}
		c, ok := n.Codecs[fa.codecName]
		if !ok {
			c, ok = BuiltinFieldCodec(fa.codecName)
		}
		if !ok {
			return fail("unknown codec %q", fa.codecName)
		}
		fp.Codec = c
		fp.CodecName = fa.codecName
	}
	if fp.Codec != nil && (fa.base64 || fa.date != nil || fa.compact) {
		return fail("custom codec cannot be combined with base64, date or compact")
	}

	if fa.def != nil {
		v, err := parseDefault(&fp, *fa.def)
		if err != nil {
			return fail("default %q: %v", *fa.def, err)
		}
		fp.HasDefault = true
		fp.Default = v
	}
	if fa.ignore && !fp.HasDefault && !fp.HasInit && !fp.Optional() {
		return fail("ignored field needs a default, an initializer or an optional shape")
	}

	styles := append(append([]CaseStyle(nil), typeStyles...), fa.styles...)
	fp.DecodeKeys = decodeKeys(fd.Name, fa.keys, styles)
	fp.EncodeKey = fp.DecodeKeys[0]
	if fa.encodeKey != "" {
		fp.EncodeKey = fa.encodeKey
	}
	if fa.nested != nil {
		fp.TreatDotAsNested = *fa.nested
	}
	if fp.TreatDotAsNested && strings.Contains(fp.EncodeKey, PathSeparator) && !validPath(fp.EncodeKey) {
		return fail("malformed nested encode key %q", fp.EncodeKey)
	}
	return fp, nil
}

func parseFieldAttrs(attrs []Attr) (fieldAttrs, error) {
	var fa fieldAttrs
	seen := make(map[string]bool, len(attrs))
	noArgs := func(a Attr) error {
		if len(a.Args) != 0 {
			return errString(a.Name + " takes no arguments")
		}
		return nil
	}
	oneArg := func(a Attr) (string, error) {
		if len(a.Args) != 1 || a.Args[0] == "" {
			return "", errString(a.Name + " takes exactly one argument")
		}
		return a.Args[0], nil
	}
	for _, a := range attrs {
		if seen[a.Name] {
			return fa, errString("duplicate attribute " + strconv.Quote(a.Name))
		}
		seen[a.Name] = true
		var err error
		switch a.Name {
		case AttrKey:
			if len(a.Args) == 0 {
				return fa, errString("key attribute needs at least one key")
			}
			for _, k := range a.Args {
				if k == "" {
					return fa, errString("empty key")
				}
				if !validPath(k) {
					return fa, errString("malformed key path " + strconv.Quote(k))
				}
			}
			fa.keys = a.Args
		case AttrEncodeKey:
			fa.encodeKey, err = oneArg(a)
		case AttrNested:
			var s string
			if s, err = oneArg(a); err == nil {
				var b bool
				if b, err = strconv.ParseBool(s); err == nil {
					fa.nested = &b
				}
			}
		case AttrCase:
			fa.styles, err = parseStyles(a.Args)
		case AttrIgnore:
			err = noArgs(a)
			fa.ignore = true
		case AttrDefault:
			if len(a.Args) != 1 {
				return fa, errString("default takes exactly one literal")
			}
			lit := a.Args[0]
			fa.def = &lit
		case AttrBase64:
			err = noArgs(a)
			fa.base64 = true
		case AttrDate:
			fa.date, err = ParseDateStrategy(a.Args)
		case AttrCompact:
			err = noArgs(a)
			fa.compact = true
		case AttrCodec:
			fa.codecName, err = oneArg(a)
		case AttrFlatten:
			err = noArgs(a)
			fa.flatten = true
		default:
			return fa, errString("unknown attribute " + strconv.Quote(a.Name))
		}
		if err != nil {
			return fa, err
		}
	}
	return fa, nil
}

// decodeKeys orders candidate keys: explicit keys, then case-derived keys,
// then the raw name, keeping the first occurrence of each.
func decodeKeys(name string, explicit []string, styles []CaseStyle) []string {
	out := make([]string, 0, len(explicit)+len(styles)+1)
	seen := make(map[string]bool)
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range explicit {
		add(k)
	}
	for _, s := range styles {
		add(ConvertCase(name, s))
	}
	add(name)
	return out
}

func (n *Normalizer) elem(owner string, fd *FieldDecl, strict bool) (ElemType, error) {
	ed := fd.Elem
	et := ElemType{Kind: ed.Kind, Bits: normBits(ed.Bits)}
	fail := func(format string, args ...any) (ElemType, error) {
		return ElemType{}, newSchemaError(owner, fd.Name, format, args...)
	}
	switch ed.Kind {
	case ElemInt, ElemUint:
		switch ed.Bits {
		case 0, 8, 16, 32, 64:
		default:
			return fail("unsupported integer width %d", ed.Bits)
		}
	case ElemFloat:
		switch ed.Bits {
		case 0, 32, 64:
		default:
			return fail("unsupported float width %d", ed.Bits)
		}
	case ElemRecord:
		if ed.Record == nil {
			return fail("record element without declaration")
		}
		p, err := n.record(ed.Record, strict)
		if err != nil {
			return ElemType{}, err
		}
		et.Record = p
	case ElemEnum:
		if ed.Enum == nil {
			return fail("enum element without declaration")
		}
		p, err := n.enum(ed.Enum, strict)
		if err != nil {
			return ElemType{}, err
		}
		et.Enum = p
	case ElemAny, ElemBool, ElemString, ElemBytes, ElemTime:
	default:
		return fail("unknown element kind %d", ed.Kind)
	}
	if fd.Shape == ShapeMap {
		switch ed.MapKey {
		case ElemAny, ElemString:
			et.MapKey = ElemString
		case ElemInt, ElemUint:
			et.MapKey = ed.MapKey
		default:
			return fail("unsupported map key kind %s", ed.MapKey)
		}
	}
	return et, nil
}

// parseDefault reads a default literal into its document form. Text-like
// scalars take the literal verbatim; everything else is parsed as a YAML
// flow value so collections and records can be written inline.
func parseDefault(fp *FieldPlan, literal string) (Value, error) {
	if fp.Optional() && literal == "null" {
		return Null(), nil
	}
	if fp.Shape == ShapeScalar || fp.Shape == ShapeOptional {
		switch fp.Elem.Kind {
		case ElemString, ElemTime:
			return String(literal), nil
		case ElemBytes:
			if fp.BinaryText == BinaryBase64 {
				return String(literal), nil
			}
		}
	}
	var x any
	if err := yaml.Unmarshal([]byte(literal), &x); err != nil {
		return Value{}, err
	}
	v, ok := FromNative(x)
	if !ok {
		return Value{}, errString("unsupported literal")
	}
	return v, nil
}

// checkEncodePaths rejects fields whose encode paths collide: equal paths,
// or one path running through another field's value. Flattened records
// contribute their own fields. A dotted key written flat also collides
// with any other field whose nested path or decode key has the same text,
// since lookups fall back from the nested path to the flat key.
func checkEncodePaths(owner string, fields []FieldPlan) error {
	type entry struct {
		field string
		path  []string
		text  string
		flat  bool
		keys  []string
	}
	var entries []entry
	var collect func(prefix []string, fields []FieldPlan, via string)
	collect = func(prefix []string, fields []FieldPlan, via string) {
		for i := range fields {
			f := &fields[i]
			if f.Ignored {
				continue
			}
			name := f.Name
			if via != "" {
				name = via + "." + f.Name
			}
			if f.Flatten && f.Elem.Record != nil {
				sub := append(append([]string(nil), prefix...), splitPath(f.Elem.Record.EncodeContainer)...)
				collect(sub, f.Elem.Record.Fields, name)
				continue
			}
			seg := f.encodePath()
			path := append(append([]string(nil), prefix...), seg...)
			e := entry{
				field: name,
				path:  path,
				text:  strings.Join(path, PathSeparator),
				flat:  len(seg) == 1 && strings.Contains(seg[0], PathSeparator),
			}
			for _, k := range f.DecodeKeys {
				e.keys = append(e.keys, strings.Join(append(append([]string(nil), prefix...), k), PathSeparator))
			}
			entries = append(entries, e)
		}
	}
	collect(nil, fields, "")
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i].path, entries[j].path
			if len(b) < len(a) {
				a, b = b, a
			}
			if isPrefix(a, b) {
				return newSchemaError(owner, entries[j].field, "encode key %q conflicts with field %s",
					strings.Join(entries[j].path, PathSeparator), entries[i].field)
			}
			if flatCollides(entries[i].flat, entries[i].text, entries[j].text, entries[j].keys) ||
				flatCollides(entries[j].flat, entries[j].text, entries[i].text, entries[i].keys) {
				return newSchemaError(owner, entries[j].field, "flat dotted key %q collides with field %s",
					entries[j].text, entries[i].field)
			}
		}
	}
	return nil
}

// flatCollides reports whether a flat dotted key text is reachable through
// another field's encode path or decode keys.
func flatCollides(flat bool, text, otherText string, otherKeys []string) bool {
	if !flat {
		return false
	}
	if otherText == text {
		return true
	}
	for _, k := range otherKeys {
		if k == text {
			return true
		}
	}
	return false
}

func isPrefix(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (n *Normalizer) enum(decl *EnumDecl, strict bool) (*EnumPlan, error) {
	if decl == nil {
		return nil, newSchemaError("?", "", "nil enum declaration")
	}
	if decl.Name == "" {
		return nil, newSchemaError("?", "", "enum declaration has no name")
	}
	active, err := n.enter(decl, decl.Name, strict)
	if err != nil {
		return nil, err
	}
	if p, ok := n.enums[decl]; ok {
		if !active {
			n.leave()
		}
		return p, nil
	}
	defer n.leave()

	plan := &EnumPlan{Name: decl.Name, Raw: decl.Raw}
	n.enums[decl] = plan
	if err := n.variants(decl, plan); err != nil {
		delete(n.enums, decl)
		return nil, err
	}
	return plan, nil
}

func (n *Normalizer) variants(decl *EnumDecl, plan *EnumPlan) error {
	if len(decl.Cases) == 0 {
		return newSchemaError(decl.Name, "", "enum has no cases")
	}
	seen := make(map[string]bool, len(decl.Cases))
	for _, cd := range decl.Cases {
		fail := func(format string, args ...any) error {
			return newSchemaError(decl.Name, cd.Name, format, args...)
		}
		if cd.Name == "" {
			return newSchemaError(decl.Name, "", "case has no name")
		}
		if seen[cd.Name] {
			return fail("duplicate case")
		}
		seen[cd.Name] = true

		match := cd.Match
		if len(match) == 0 {
			match = []Predicate{Equals(String(cd.Name))}
		}
		for _, p := range match {
			if reason := p.validate(decl.Raw); reason != "" {
				return fail("%s", reason)
			}
		}
		if decl.Raw && len(cd.Values) > 0 {
			return fail("raw enum cases cannot carry values")
		}
		if len(cd.Values) > 0 {
			first := match[0]
			switch first.Kind {
			case PredicateEquals:
				if _, ok := first.Literals[0].AsString(); !ok {
					return fail("cases with values must be keyed by a string literal or a path")
				}
			case PredicateInRange:
				return fail("cases with values must be keyed by a string literal or a path")
			}
		}

		owner := decl.Name + "." + cd.Name
		values, err := n.fields(owner, cd.Values, nil)
		if err != nil {
			return err
		}
		if err := checkEncodePaths(owner, values); err != nil {
			return err
		}
		plan.Variants = append(plan.Variants, VariantPlan{
			Name:   cd.Name,
			Match:  append([]Predicate(nil), match...),
			Values: values,
		})
	}
	return nil
}
