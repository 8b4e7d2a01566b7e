// Package yaml provides a YAML format for codable documents.
package yaml

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reers/codable"
	"gopkg.in/yaml.v3"
)

// yamlFormat implements codable.Format for YAML.
type yamlFormat struct{}

// New returns a YAML format.
func New() codable.Format {
	return &yamlFormat{}
}

// ContentType returns the MIME type for YAML.
func (f *yamlFormat) ContentType() string {
	return "application/yaml"
}

// Marshal renders v as a YAML document with two-space indentation.
func (f *yamlFormat) Marshal(v codable.Value) ([]byte, error) {
	node, err := ToNode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses the first YAML document in data. An empty input is
// null.
func (f *yamlFormat) Unmarshal(data []byte) (codable.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return codable.Value{}, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return codable.Null(), nil
	}
	return FromNode(doc.Content[0])
}

// FromNode converts a parsed YAML node into a document value. Mapping
// order is preserved, aliases are expanded and merge keys are applied.
func FromNode(n *yaml.Node) (codable.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return codable.Null(), nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.SequenceNode:
		elems := make([]codable.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromNode(c)
			if err != nil {
				return codable.Value{}, err
			}
			elems = append(elems, v)
		}
		return codable.Array(elems...), nil
	case yaml.MappingNode:
		obj := codable.NewObject()
		if err := mergeMapping(obj, n); err != nil {
			return codable.Value{}, err
		}
		return codable.ObjectValue(obj), nil
	case yaml.ScalarNode:
		return scalar(n)
	}
	return codable.Value{}, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

func mergeMapping(obj *codable.Object, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
			if err := merge(obj, v); err != nil {
				return err
			}
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		val, err := FromNode(v)
		if err != nil {
			return err
		}
		obj.Set(k.Value, val)
	}
	return nil
}

// merge applies a << value. Keys already present win.
func merge(obj *codable.Object, v *yaml.Node) error {
	if v.Kind == yaml.AliasNode {
		v = v.Alias
	}
	var srcs []*yaml.Node
	switch v.Kind {
	case yaml.MappingNode:
		srcs = []*yaml.Node{v}
	case yaml.SequenceNode:
		for _, c := range v.Content {
			if c.Kind == yaml.AliasNode {
				c = c.Alias
			}
			srcs = append(srcs, c)
		}
	default:
		return fmt.Errorf("line %d: merge value must be a mapping", v.Line)
	}
	for _, src := range srcs {
		if src.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		tmp := codable.NewObject()
		if err := mergeMapping(tmp, src); err != nil {
			return err
		}
		for _, key := range tmp.Keys() {
			if _, ok := obj.Get(key); ok {
				continue
			}
			val, _ := tmp.Get(key)
			obj.Set(key, val)
		}
	}
	return nil
}

func scalar(n *yaml.Node) (codable.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return codable.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return codable.Value{}, err
		}
		return codable.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return codable.Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return codable.Value{}, err
		}
		return codable.Uint(u), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return codable.Value{}, err
		}
		return codable.Float(f), nil
	}
	return codable.String(n.Value), nil
}

// ToNode converts a document value into a YAML node tree.
func ToNode(v codable.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case codable.KindAbsent, codable.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case codable.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, nil
	case codable.KindInt:
		i, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}, nil
	case codable.KindUint:
		u, _ := v.AsUint()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(u, 10)}, nil
	case codable.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: floatText(f)}, nil
	case codable.KindString:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}, nil
	case codable.KindArray:
		elems, _ := v.AsArray()
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range elems {
			c, err := ToNode(e)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, c)
		}
		return out, nil
	case codable.KindObject:
		obj, _ := v.AsObject()
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range obj.Keys() {
			e, _ := obj.Get(k)
			c, err := ToNode(e)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, c)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
}

// floatText renders f so that it resolves back to a float.
func floatText(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
