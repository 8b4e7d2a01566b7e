package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reers/codable"
	"github.com/reers/codable/bson"
	"github.com/reers/codable/json"
	"github.com/reers/codable/msgpack"
	"github.com/reers/codable/schema"
	"github.com/reers/codable/yaml"
	"github.com/scott-cotton/cli"
)

func (cfg *convertConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Schema == "" || cfg.Type == "" {
		return fmt.Errorf("%w: convert requires -schema and -type", cli.ErrUsage)
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: convert takes at most one input file, got %v", cli.ErrUsage, args)
	}
	from, err := formatByName(cfg.From, false)
	if err != nil {
		return err
	}
	to, err := formatByName(cfg.To, cfg.Indent)
	if err != nil {
		return err
	}
	opts, err := caseOptions(cfg.Case)
	if err != nil {
		return err
	}
	s, err := schema.Load(cfg.Schema, opts...)
	if err != nil {
		return err
	}
	rc, err := s.Codec(cfg.Type)
	if err != nil {
		return err
	}

	var in io.Reader = cc.In
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open %q: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}
	return convert(in, cc.Out, rc, from, to)
}

// convert reads one document, decodes it into a record with rc and writes
// the record encoded in the target format.
func convert(r io.Reader, w io.Writer, rc *codable.RecordCodec, from, to codable.Format) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading: %w", err)
	}
	doc, err := from.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", codable.ErrUnmarshal, err)
	}
	obj, ok := doc.AsObject()
	if !ok {
		return fmt.Errorf("%w: document is %s, not object", codable.ErrTypeMismatch, doc.Kind())
	}
	rec, err := rc.Decode(obj)
	if err != nil {
		return err
	}
	out := codable.NewObject()
	if err := rc.Encode(rec, out); err != nil {
		return err
	}
	b, err := to.Marshal(codable.ObjectValue(out))
	if err != nil {
		return fmt.Errorf("%w: %w", codable.ErrMarshal, err)
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if _, isText := textFormats[to.ContentType()]; isText && (len(b) == 0 || b[len(b)-1] != '\n') {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

var textFormats = map[string]struct{}{
	"application/json": {},
	"application/yaml": {},
}

// formatByName resolves a format flag value.
func formatByName(name string, indent bool) (codable.Format, error) {
	switch strings.ToLower(name) {
	case "json", "j":
		if indent {
			return json.NewIndent("  "), nil
		}
		return json.New(), nil
	case "yaml", "yml", "y":
		return yaml.New(), nil
	case "msgpack", "mp":
		return msgpack.New(), nil
	case "bson", "b":
		return bson.New(), nil
	}
	return nil, fmt.Errorf("%w: unknown format %q (json, yaml, msgpack, bson)", cli.ErrUsage, name)
}
