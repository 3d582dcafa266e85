package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/spec-kit/event-service/internal/domain"
)

// Kind classifies a normalized cell value.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindDecimal
	KindTimestamp
	KindText
)

// Value is a normalized cell. Raw always holds the trimmed source text.
type Value struct {
	Kind  Kind
	Raw   string
	Int   int64
	Float float64
	Time  time.Time
}

var (
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
	numberPattern  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// largest magnitude a float64 represents exactly as an integer
const maxExactFloatInt = 1 << 53

// NormalizeValue classifies raw as null, number, timestamp or text, in that order.
func NormalizeValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{Kind: KindNull}
	}
	if integerPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Value{Kind: KindInteger, Raw: s, Int: n, Float: float64(n)}
		}
	}
	if numberPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			if f == math.Trunc(f) && math.Abs(f) < maxExactFloatInt {
				return Value{Kind: KindInteger, Raw: s, Int: int64(f), Float: f}
			}
			return Value{Kind: KindDecimal, Raw: s, Float: f}
		}
	}
	if t, ok := parseDate(s); ok {
		return Value{Kind: KindTimestamp, Raw: s, Time: t}
	}
	return Value{Kind: KindText, Raw: s}
}

func parseDate(s string) (time.Time, bool) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	if t.Year() < 1000 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}

// IsNull reports whether the cell was empty.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// As converts the value into the Go type stored for a column of type t.
func (v Value) As(t domain.ColumnType) any {
	if v.Kind == KindNull {
		return nil
	}
	switch t {
	case domain.ColumnInteger:
		return v.Int
	case domain.ColumnDecimal:
		return v.Float
	case domain.ColumnTimestamp:
		return v.Time
	default:
		return v.Raw
	}
}

// JSON returns a representation suitable for API previews.
func (v Value) JSON() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInteger:
		return v.Int
	case KindDecimal:
		return v.Float
	case KindTimestamp:
		return v.Time
	default:
		return v.Raw
	}
}

// InferColumnType picks the narrowest column type that holds every non-null value.
func InferColumnType(values []Value) domain.ColumnType {
	var (
		nonNull    int
		numeric    = true
		hasDecimal bool
		allDates   = true
		maxLen     int
	)
	for _, v := range values {
		if v.Kind == KindNull {
			continue
		}
		nonNull++
		switch v.Kind {
		case KindInteger:
			allDates = false
		case KindDecimal:
			hasDecimal = true
			allDates = false
		case KindTimestamp:
			numeric = false
		default:
			numeric = false
			allDates = false
		}
		if n := len([]rune(v.Raw)); n > maxLen {
			maxLen = n
		}
	}

	switch {
	case nonNull == 0:
		return domain.ColumnText
	case numeric && hasDecimal:
		return domain.ColumnDecimal
	case numeric:
		return domain.ColumnInteger
	case allDates:
		return domain.ColumnTimestamp
	case maxLen <= domain.VarcharMaxLen:
		return domain.ColumnVarchar
	default:
		return domain.ColumnText
	}
}
