package codable

import (
	"strings"
	"sync"
)

// CaseStyle is a naming convention used to derive document keys from
// field names.
type CaseStyle uint8

// Supported case styles. The zero CaseStyle is invalid.
const (
	_                  CaseStyle = iota
	FlatCase                     // username
	UpperCase                    // USERNAME
	CamelCase                    // userName
	PascalCase                   // UserName
	SnakeCase                    // user_name
	KebabCase                    // user-name
	CamelSnakeCase               // user_Name
	PascalSnakeCase              // User_Name
	ScreamingSnakeCase           // USER_NAME
	CamelKebabCase               // user-Name
	PascalKebabCase              // User-Name
	ScreamingKebabCase           // USER-NAME
)

type wordCasing uint8

const (
	casingLower wordCasing = iota
	casingUpper
	casingCamel
	casingPascal
)

type caseStyleInfo struct {
	name   string
	casing wordCasing
	sep    string
}

var (
	caseStylesOnce sync.Once
	caseStyles     map[CaseStyle]caseStyleInfo
	caseStyleNames map[string]CaseStyle
)

// styleTable returns the read-only style table, building it on first use.
func styleTable() (map[CaseStyle]caseStyleInfo, map[string]CaseStyle) {
	caseStylesOnce.Do(func() {
		caseStyles = map[CaseStyle]caseStyleInfo{
			FlatCase:           {"flat", casingLower, ""},
			UpperCase:          {"upper", casingUpper, ""},
			CamelCase:          {"camel", casingCamel, ""},
			PascalCase:         {"pascal", casingPascal, ""},
			SnakeCase:          {"snake", casingLower, "_"},
			KebabCase:          {"kebab", casingLower, "-"},
			CamelSnakeCase:     {"camel_snake", casingCamel, "_"},
			PascalSnakeCase:    {"pascal_snake", casingPascal, "_"},
			ScreamingSnakeCase: {"screaming_snake", casingUpper, "_"},
			CamelKebabCase:     {"camel_kebab", casingCamel, "-"},
			PascalKebabCase:    {"pascal_kebab", casingPascal, "-"},
			ScreamingKebabCase: {"screaming_kebab", casingUpper, "-"},
		}
		caseStyleNames = make(map[string]CaseStyle, len(caseStyles))
		for style, info := range caseStyles {
			caseStyleNames[info.name] = style
		}
	})
	return caseStyles, caseStyleNames
}

// String returns the style name accepted by ParseCaseStyle.
func (s CaseStyle) String() string {
	table, _ := styleTable()
	if info, ok := table[s]; ok {
		return info.name
	}
	return "invalid"
}

// ParseCaseStyle looks up a style by name (e.g. "snake", "pascal_kebab").
// Hyphens and underscores are interchangeable in names.
func ParseCaseStyle(name string) (CaseStyle, bool) {
	_, names := styleTable()
	style, ok := names[strings.ReplaceAll(strings.ToLower(name), "-", "_")]
	return style, ok
}

// ConvertCase rewrites identifier in the given style. Unknown styles
// return the identifier unchanged.
func ConvertCase(identifier string, style CaseStyle) string {
	table, _ := styleTable()
	info, ok := table[style]
	if !ok {
		return identifier
	}

	words := splitWords(identifier)
	for i, w := range words {
		switch info.casing {
		case casingLower:
			words[i] = strings.ToLower(w)
		case casingUpper:
			words[i] = strings.ToUpper(w)
		case casingCamel:
			if i == 0 {
				words[i] = strings.ToLower(w)
			} else {
				words[i] = capitalize(w)
			}
		case casingPascal:
			words[i] = capitalize(w)
		}
	}
	return strings.Join(words, info.sep)
}

// splitWords segments an identifier into words.
//
// Non-alphanumerics separate words and are dropped; leading and trailing
// ones are trimmed. An uppercase letter following a lowercase letter
// starts a new word. Input without lowercase letters is treated as one
// acronym-preserving block: it is lowered and split on separators only.
func splitWords(s string) []string {
	s = strings.TrimFunc(s, func(r rune) bool { return !isAlnum(r) })
	if s == "" {
		return nil
	}

	allUpper := !strings.ContainsFunc(s, isLower)
	if allUpper {
		s = strings.ToLower(s)
	}

	var words []string
	var current strings.Builder
	var prev rune
	for _, r := range s {
		if !isAlnum(r) {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			prev = r
			continue
		}
		if !allUpper && isUpper(r) && isLower(prev) && current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		prev = r
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

func isAlnum(r rune) bool {
	return isLower(r) || isUpper(r) || (r >= '0' && r <= '9')
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
