package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/reers/codable"
	"github.com/reers/codable/schema"
	"github.com/scott-cotton/cli"
)

func (cfg *planConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: plan requires one argument, a schema file", cli.ErrUsage)
	}
	opts, err := caseOptions(cfg.Case)
	if err != nil {
		return err
	}
	s, err := schema.Load(args[0], opts...)
	if err != nil {
		return err
	}
	p := newPalette(!cfg.NoColor && isTerminal(cc.Out))
	return renderSchema(cc.Out, s, p)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// caseOptions parses a |-separated list of case style names.
func caseOptions(styles string) ([]schema.Option, error) {
	if styles == "" {
		return nil, nil
	}
	var out []codable.CaseStyle
	for _, name := range strings.Split(styles, "|") {
		s, ok := codable.ParseCaseStyle(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("%w: unknown case style %q", cli.ErrUsage, name)
		}
		out = append(out, s)
	}
	return []schema.Option{schema.WithCaseStyle(out...)}, nil
}

type sprintf func(format string, a ...any) string

type palette struct {
	typ, field, kind, attr sprintf
}

func newPalette(colored bool) palette {
	if !colored {
		return palette{typ: fmt.Sprintf, field: fmt.Sprintf, kind: fmt.Sprintf, attr: fmt.Sprintf}
	}
	return palette{
		typ:   color.RGB(196, 96, 16).SprintfFunc(),
		field: color.RGB(128, 216, 236).SprintfFunc(),
		kind:  color.RGB(8, 196, 16).SprintfFunc(),
		attr:  color.RGB(128, 128, 128).SprintfFunc(),
	}
}

// renderSchema prints the plan of every record and enum in s.
func renderSchema(w io.Writer, s *schema.Schema, p palette) error {
	for _, name := range s.TypeNames() {
		plan, err := s.Plan(name)
		if err != nil {
			return err
		}
		renderRecord(w, plan, p)
	}
	for _, name := range s.EnumNames() {
		plan, err := s.EnumPlan(name)
		if err != nil {
			return err
		}
		renderEnum(w, plan, p)
	}
	return nil
}

func renderRecord(w io.Writer, plan *codable.RecordPlan, p palette) {
	fmt.Fprintf(w, "%s %s", p.kind("%s", "record"), p.typ("%s", plan.Name))
	if plan.DecodeContainer != "" {
		fmt.Fprintf(w, " %s", p.attr("container=%s", plan.DecodeContainer))
	}
	if plan.EncodeContainer != plan.DecodeContainer {
		fmt.Fprintf(w, " %s", p.attr("encodecontainer=%s", plan.EncodeContainer))
	}
	fmt.Fprintln(w)
	renderFields(w, plan.Fields, p, "  ")
}

func renderFields(w io.Writer, fields []codable.FieldPlan, p palette, indent string) {
	for i := range fields {
		f := &fields[i]
		fmt.Fprintf(w, "%s%s %s", indent, p.field("%s", f.Name), p.kind("%s", typeString(f)))
		for _, a := range fieldNotes(f) {
			fmt.Fprintf(w, " %s", p.attr("%s", a))
		}
		fmt.Fprintln(w)
	}
}

func fieldNotes(f *codable.FieldPlan) []string {
	if f.Ignored {
		return []string{"ignored"}
	}
	if f.Flatten {
		return []string{"flatten"}
	}
	notes := []string{"keys=" + strings.Join(f.DecodeKeys, "|")}
	if f.EncodeKey != f.DecodeKeys[0] {
		notes = append(notes, "encodekey="+f.EncodeKey)
	}
	if !f.TreatDotAsNested {
		notes = append(notes, "nested=false")
	}
	if f.HasDefault {
		notes = append(notes, "default="+f.Default.String())
	}
	if f.BinaryText == codable.BinaryBase64 {
		notes = append(notes, "base64")
	}
	if f.Date != nil {
		notes = append(notes, "date="+f.Date.String())
	}
	if f.Compact {
		notes = append(notes, "compact")
	}
	if f.CodecName != "" {
		notes = append(notes, "codec="+f.CodecName)
	}
	return notes
}

// typeString renders a field type in schema type-expression syntax.
func typeString(f *codable.FieldPlan) string {
	elem := elemString(f.Elem)
	switch f.Shape {
	case codable.ShapeOptional:
		return "*" + elem
	case codable.ShapeArray:
		return "[]" + elem
	case codable.ShapeSet:
		return "set[" + elem + "]"
	case codable.ShapeMap:
		return "map[" + f.Elem.MapKey.String() + "]" + elem
	}
	return elem
}

func elemString(e codable.ElemType) string {
	switch e.Kind {
	case codable.ElemRecord:
		return e.Record.Name
	case codable.ElemEnum:
		return e.Enum.Name
	case codable.ElemInt, codable.ElemUint, codable.ElemFloat:
		if e.Bits == 64 && e.Kind != codable.ElemFloat {
			return e.Kind.String()
		}
		return fmt.Sprintf("%s%d", e.Kind, e.Bits)
	}
	return e.Kind.String()
}

func renderEnum(w io.Writer, plan *codable.EnumPlan, p palette) {
	kind := "enum"
	if plan.Raw {
		kind = "raw enum"
	}
	fmt.Fprintf(w, "%s %s\n", p.kind("%s", kind), p.typ("%s", plan.Name))
	for _, v := range plan.Variants {
		preds := make([]string, len(v.Match))
		for i, m := range v.Match {
			preds[i] = m.String()
		}
		fmt.Fprintf(w, "  %s %s\n", p.field("%s", v.Name), p.attr("%s", strings.Join(preds, " && ")))
		renderFields(w, v.Values, p, "    ")
	}
}
