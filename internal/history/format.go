// Package history renders raw history values for display.
package history

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/dustin/go-humanize"
)

// UnresolvedString is what a value macro expands to when no value exists.
const UnresolvedString = "*UNKNOWN*"

// Meta is the item metadata a value is rendered with.
type Meta struct {
	ValueType domain.ValueType
	Units     string
	// Mapping is the item's value map (raw value -> display value); may be nil.
	Mapping map[string]string
}

// Formatter renders a history value. A nil value renders as UnresolvedString.
type Formatter interface {
	Format(value *string, meta Meta) string
}

// DefaultFormatter formats numbers with their units and trims long texts.
type DefaultFormatter struct {
	// TrimLength caps character, text and log values; 0 disables trimming.
	TrimLength int
	Location   *time.Location
}

// NewDefaultFormatter returns a formatter that trims texts to 20 characters.
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{TrimLength: 20, Location: time.UTC}
}

// units that are never scaled with a prefix
var plainUnits = map[string]bool{
	"%":   true,
	"ms":  true,
	"rpm": true,
	"RPM": true,
}

// Format implements Formatter.
func (f *DefaultFormatter) Format(value *string, meta Meta) string {
	if value == nil {
		return UnresolvedString
	}
	raw := *value

	var out string
	switch meta.ValueType {
	case domain.ValueTypeFloat, domain.ValueTypeUint:
		out = f.formatNumber(raw, meta)
	default:
		out = f.trim(raw)
	}

	if mapped, ok := meta.Mapping[raw]; ok {
		return mapped + " (" + out + ")"
	}
	return out
}

func (f *DefaultFormatter) formatNumber(raw string, meta Meta) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}

	switch {
	case meta.Units == "":
		return formatFloat(v, meta.ValueType)
	case meta.Units == "unixtime":
		loc := f.Location
		if loc == nil {
			loc = time.UTC
		}
		return time.Unix(int64(v), 0).In(loc).Format("2006-01-02 15:04:05")
	case meta.Units == "B" || meta.Units == "Bps":
		if v < 0 {
			return formatFloat(v, meta.ValueType) + " " + meta.Units
		}
		s := humanize.IBytes(uint64(v))
		if meta.Units == "Bps" {
			s += "ps"
		}
		return s
	case plainUnits[meta.Units] || math.Abs(v) < 1000:
		return formatFloat(v, meta.ValueType) + " " + meta.Units
	default:
		return humanize.SIWithDigits(v, 2, meta.Units)
	}
}

func formatFloat(v float64, vt domain.ValueType) string {
	if vt == domain.ValueTypeUint {
		return strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func (f *DefaultFormatter) trim(s string) string {
	if f.TrimLength <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= f.TrimLength {
		return s
	}
	return string(runes[:f.TrimLength]) + "..."
}
