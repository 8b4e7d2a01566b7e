package codable

import (
	"fmt"
	"strings"
)

// TagName is the struct tag key read by New. Attribute strings in YAML
// schemas use the same grammar.
const TagName = "codable"

// ParseTag parses an attribute string such as
//
//	key=user_name|login,case=snake,default='a,b',nested=false,ignore
//
// into ordered attributes. Parts are separated by commas, arguments by
// '|'. Single- or double-quoted arguments may contain either separator.
func ParseTag(tag string) ([]Attr, error) {
	var attrs []Attr
	for _, part := range splitUnquoted(tag, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rest, hasArgs := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid tag: empty attribute name in %q", part)
		}
		a := Attr{Name: name}
		if hasArgs {
			for _, arg := range splitUnquoted(rest, '|') {
				a.Args = append(a.Args, unquote(strings.TrimSpace(arg)))
			}
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// FormatTag renders attributes back into tag syntax, quoting arguments
// that contain separators.
func FormatTag(attrs []Attr) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		if len(a.Args) == 0 {
			parts[i] = a.Name
			continue
		}
		args := make([]string, len(a.Args))
		for j, arg := range a.Args {
			if arg == "" || strings.ContainsAny(arg, ",|'\" ") {
				arg = "'" + arg + "'"
			}
			args[j] = arg
		}
		parts[i] = a.Name + "=" + strings.Join(args, "|")
	}
	return strings.Join(parts, ",")
}

func splitUnquoted(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			cur.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
