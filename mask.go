package codable

import (
	"strings"
	"unicode"
)

// Masker redacts a string value.
type Masker func(value string) string

// Masked returns a FieldCodec that redacts string values on encode.
// Decoding reads the stored value unchanged.
func Masked(m Masker) FieldCodec {
	return Transform(nil, stringFunc(func(s string) (string, error) {
		return m(s), nil
	}))
}

// MaskSSN keeps the last four digits: 123-45-6789 becomes ***-**-6789.
func MaskSSN(value string) string {
	last4, ok := lastDigits(value)
	if !ok {
		return stars(value)
	}
	return "***-**-" + last4
}

// MaskEmail keeps the first character and the domain:
// alice@example.com becomes a***@example.com.
func MaskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at < 1 {
		return stars(value)
	}
	return value[:1] + "***" + value[at:]
}

// MaskPhone keeps the last four digits and the common layout.
func MaskPhone(value string) string {
	last4, ok := lastDigits(value)
	if !ok {
		return stars(value)
	}
	n := len(digitsOf(value))
	switch {
	case strings.HasPrefix(value, "(") && n >= 10:
		return "(***) ***-" + last4
	case n >= 10:
		return "***-***-" + last4
	default:
		return "***-" + last4
	}
}

// MaskCard keeps the last four digits, preserving space or dash grouping.
func MaskCard(value string) string {
	last4, ok := lastDigits(value)
	if !ok {
		return stars(value)
	}
	n := len(digitsOf(value))
	sep := ""
	switch {
	case strings.Contains(value, " "):
		sep = " "
	case strings.Contains(value, "-"):
		sep = "-"
	}
	if sep == "" {
		return strings.Repeat("*", n-4) + last4
	}
	groups := make([]string, (n-4+3)/4, (n-4+3)/4+1)
	for i := range groups {
		groups[i] = "****"
	}
	return strings.Join(append(groups, last4), sep)
}

// MaskName keeps the first letter of every word: John Smith becomes J*** S****.
func MaskName(value string) string {
	words := strings.Fields(value)
	for i, w := range words {
		r := []rune(w)
		words[i] = string(r[0]) + strings.Repeat("*", len(r)-1)
	}
	return strings.Join(words, " ")
}

func digitsOf(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func lastDigits(s string) (string, bool) {
	d := digitsOf(s)
	if len(d) < 4 {
		return "", false
	}
	return d[len(d)-4:], true
}

func stars(s string) string {
	return strings.Repeat("*", len(s))
}
