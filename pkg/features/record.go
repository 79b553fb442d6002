// Package features turns loosely-typed input records into the fixed-order
// feature vectors consumed by the demand regressors.
//
// The flow is:
//
//	Record (map of named scalars) → Input (typed, defaults applied) → Vector
//
// A Vector is positional. Its column order must match the order the target
// model was trained on, so each variant's order is declared once in
// assembler.go and exposed through Assembler.Columns.
package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Variant selects the prediction mode.
type Variant string

const (
	Daily  Variant = "daily"
	Hourly Variant = "hourly"
)

// ParseVariant accepts "daily" or "hourly" (case-insensitive).
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Hourly:
		return Hourly, nil
	default:
		return "", fmt.Errorf("unknown variant %q (must be daily or hourly)", s)
	}
}

// Input record field names.
const (
	FieldSeason     = "season"
	FieldYear       = "yr"
	FieldMonth      = "mnth"
	FieldWeekday    = "weekday"
	FieldHoliday    = "holiday"
	FieldWorkingday = "workingday"
	FieldWeather    = "weathersit"
	FieldTemp       = "temp"
	FieldATemp      = "atemp"
	FieldHumidity   = "hum"
	FieldWindspeed  = "windspeed"
	FieldDate       = "date"
	FieldHour       = "hr"
)

var dailyRequired = []string{
	FieldDate, FieldSeason, FieldYear, FieldMonth, FieldWeekday, FieldHoliday,
	FieldWorkingday, FieldWeather, FieldTemp, FieldATemp, FieldHumidity, FieldWindspeed,
}

// RequiredFields returns the fields a record must carry for the variant, in
// the order they are reported when missing.
func RequiredFields(v Variant) []string {
	fields := append([]string(nil), dailyRequired...)
	if v == Hourly {
		fields = append(fields, FieldHour)
	}
	return fields
}

// Record is a single input record: field name to scalar value. Numbers may
// arrive as any Go numeric type, json.Number or a numeric string.
type Record map[string]any

// Has reports whether the field is present and not null.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Missing returns the fields from want that are absent, preserving order.
// A date key holding null counts as present; it resolves to DateMalformed.
func (r Record) Missing(want []string) []string {
	var missing []string
	for _, f := range want {
		if _, keyed := r[f]; f == FieldDate && keyed {
			continue
		}
		if !r.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Float returns a field as float64.
func (r Record) Float(field string) (float64, error) {
	raw, ok := r[field]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s is missing", field)
	}
	f, ok := toFloat64(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return f, nil
}

// Int returns a field as int, truncating toward zero.
func (r Record) Int(field string) (int, error) {
	f, err := r.Float(field)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// IntOr returns the field as int, or def when the field is absent.
func (r Record) IntOr(field string, def int) (int, error) {
	if !r.Has(field) {
		return def, nil
	}
	return r.Int(field)
}

// String returns a string field. Non-string values are formatted.
func (r Record) String(field string) (string, bool) {
	raw, ok := r[field]
	if !ok || raw == nil {
		return "", false
	}
	if s, ok := raw.(string); ok {
		return s, true
	}
	return fmt.Sprint(raw), true
}

// JSON renders the record as compact JSON with sorted keys, the form stored in
// the prediction log.
func (r Record) JSON() ([]byte, error) {
	return json.Marshal(map[string]any(r))
}

// toFloat64 converts the numeric representations a decoded JSON body or a
// hand-built record can contain.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int16:
		return float64(val), true
	case int8:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
