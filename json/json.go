// Package json provides a JSON format for codable documents.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/reers/codable"
)

// jsonFormat implements codable.Format for JSON.
type jsonFormat struct {
	indent string
}

// New returns a JSON format producing compact output.
func New() codable.Format {
	return &jsonFormat{}
}

// NewIndent returns a JSON format that indents nested values with indent.
func NewIndent(indent string) codable.Format {
	return &jsonFormat{indent: indent}
}

// ContentType returns the MIME type for JSON.
func (f *jsonFormat) ContentType() string {
	return "application/json"
}

// Marshal renders v as JSON. Object keys keep their insertion order.
func (f *jsonFormat) Marshal(v codable.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	if f.indent == "" {
		return buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", f.indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal parses JSON into a document value. Object keys keep their
// document order and integers stay integers.
func (f *jsonFormat) Unmarshal(data []byte) (codable.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readValue(dec)
	if err != nil {
		return codable.Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return codable.Value{}, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func readValue(dec *json.Decoder) (codable.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return codable.Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := codable.NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return codable.Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return codable.Value{}, fmt.Errorf("object key %v is not a string", kt)
				}
				v, err := readValue(dec)
				if err != nil {
					return codable.Value{}, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return codable.Value{}, err
			}
			return codable.ObjectValue(obj), nil
		case '[':
			elems := []codable.Value{}
			for dec.More() {
				v, err := readValue(dec)
				if err != nil {
					return codable.Value{}, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil {
				return codable.Value{}, err
			}
			return codable.Array(elems...), nil
		}
		return codable.Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case nil:
		return codable.Null(), nil
	case bool:
		return codable.Bool(t), nil
	case string:
		return codable.String(t), nil
	case json.Number:
		return number(t)
	}
	return codable.Value{}, fmt.Errorf("unexpected token %v", tok)
}

// number keeps integral literals as Int or Uint and everything else as
// Float.
func number(n json.Number) (codable.Value, error) {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return codable.Int(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return codable.Uint(u), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return codable.Value{}, fmt.Errorf("invalid number %q", s)
	}
	return codable.Float(f), nil
}

func writeValue(buf *bytes.Buffer, v codable.Value) error {
	switch v.Kind() {
	case codable.KindAbsent, codable.KindNull:
		buf.WriteString("null")
	case codable.KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case codable.KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case codable.KindUint:
		u, _ := v.AsUint()
		buf.WriteString(strconv.FormatUint(u, 10))
	case codable.KindFloat:
		f, _ := v.AsFloat()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("unsupported float value %v", f)
		}
		out, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(out)
	case codable.KindString:
		s, _ := v.AsString()
		writeString(buf, s)
	case codable.KindArray:
		elems, _ := v.AsArray()
		buf.WriteByte('[')
		for i, e := range elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case codable.KindObject:
		obj, _ := v.AsObject()
		buf.WriteByte('{')
		for i, k := range obj.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			e, _ := obj.Get(k)
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value kind %s", v.Kind())
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	// Marshaling a string cannot fail.
	out, _ := json.Marshal(s)
	buf.Write(out)
}
