package codable

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateKind selects how time values are represented in documents.
type DateKind uint8

const (
	DateEpochSeconds    DateKind = iota + 1 // float seconds since 1970
	DateEpochSecondsInt                     // integer seconds since 1970
	DateEpochMillis                         // integer milliseconds since 1970
	DateReference                           // float seconds since 2001-01-01T00:00:00Z
	DateISO8601                             // ISO-8601 text
	DateFormat                              // text in a custom Go layout
)

// referenceUnix is the Unix time of the DateReference anchor,
// 2001-01-01T00:00:00Z.
const referenceUnix = 978307200

var dateKindNames = map[string]DateKind{
	"epoch-seconds":     DateEpochSeconds,
	"epoch-seconds-int": DateEpochSecondsInt,
	"epoch-millis":      DateEpochMillis,
	"reference-date":    DateReference,
	"iso8601":           DateISO8601,
	"format":            DateFormat,
}

// DateStrategy is a resolved date coding strategy.
type DateStrategy struct {
	Kind   DateKind
	Layout string // DateFormat only
}

func (d DateStrategy) String() string {
	for name, k := range dateKindNames {
		if k == d.Kind {
			if d.Kind == DateFormat {
				return name + "(" + d.Layout + ")"
			}
			return name
		}
	}
	return "invalid"
}

// ParseDateStrategy builds a strategy from attribute arguments, e.g.
// ["iso8601"] or ["format", "2006-01-02"].
func ParseDateStrategy(args []string) (*DateStrategy, error) {
	if len(args) == 0 {
		return nil, errors.New("date strategy required")
	}
	kind, ok := dateKindNames[strings.ToLower(args[0])]
	if !ok {
		return nil, fmt.Errorf("unknown date strategy %q", args[0])
	}
	d := &DateStrategy{Kind: kind}
	if kind == DateFormat {
		if len(args) != 2 || args[1] == "" {
			return nil, errors.New("date format requires a layout")
		}
		d.Layout = args[1]
	} else if len(args) > 1 {
		return nil, fmt.Errorf("date strategy %q takes no arguments", args[0])
	}
	return d, nil
}

var defaultDateStrategy = DateStrategy{Kind: DateISO8601}

// decode converts a document value into a time. Wrong value kinds report
// ErrTypeMismatch; unparseable text reports ErrFormat.
func (d DateStrategy) decode(v Value) (time.Time, error) {
	switch d.Kind {
	case DateEpochSeconds, DateReference:
		f, ok := readScalar(v, ElemFloat, 64)
		if !ok {
			return time.Time{}, ErrTypeMismatch
		}
		if d.Kind == DateReference {
			return secondsToTime(f.f + referenceUnix), nil
		}
		return secondsToTime(f.f), nil
	case DateEpochSecondsInt:
		i, ok := readScalar(v, ElemInt, 64)
		if !ok {
			return time.Time{}, ErrTypeMismatch
		}
		return time.Unix(i.i, 0).UTC(), nil
	case DateEpochMillis:
		i, ok := readScalar(v, ElemInt, 64)
		if !ok {
			return time.Time{}, ErrTypeMismatch
		}
		return time.UnixMilli(i.i).UTC(), nil
	case DateISO8601, DateFormat:
		s, ok := v.AsString()
		if !ok {
			return time.Time{}, ErrTypeMismatch
		}
		var t time.Time
		var err error
		if d.Kind == DateISO8601 {
			t, err = ParseISO8601(s)
		} else {
			t, err = time.Parse(d.Layout, s)
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return t, nil
	}
	return time.Time{}, ErrTypeMismatch
}

// encode converts a time into its document representation.
func (d DateStrategy) encode(t time.Time) Value {
	switch d.Kind {
	case DateEpochSeconds:
		return Float(timeToSeconds(t))
	case DateReference:
		return Float(timeToSeconds(t) - referenceUnix)
	case DateEpochSecondsInt:
		return Int(t.Unix())
	case DateEpochMillis:
		return Int(t.UnixMilli())
	case DateFormat:
		return String(t.Format(d.Layout))
	default:
		return String(t.Format(time.RFC3339Nano))
	}
}

func secondsToTime(f float64) time.Time {
	sec, frac := math.Modf(f)
	nsec := math.Round(frac * 1e9)
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

func timeToSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// iso8601Layouts cover the accepted offset spellings. Fractional seconds
// are accepted by time.Parse after the seconds field in every layout.
var iso8601Layouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseISO8601 parses ISO-8601 text with optional fractional seconds and
// any of the offset forms Z, ±hh:mm, ±hhmm or ±hh. Text without an offset
// is read as UTC.
func ParseISO8601(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range iso8601Layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// timeValue stores a time in a dynamic record.
func timeValue(t time.Time) Value {
	return String(t.Format(time.RFC3339Nano))
}

// valueTime reads a time stored by timeValue.
func valueTime(v Value) (time.Time, bool) {
	s, ok := v.AsString()
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseISO8601(s)
	return t, err == nil
}
