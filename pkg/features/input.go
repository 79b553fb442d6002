package features

import (
	"strings"
	"time"
)

// Defaults applied when optional fields are absent.
const (
	DefaultYear    = 1
	DefaultHoliday = 0
	DefaultHour    = 12
	// DefaultDay is the day-of-month used when the date is missing or
	// cannot be parsed.
	DefaultDay = 15
)

// DateLayout is the accepted format of the date field.
const DateLayout = "2006-01-02"

// DateStatus records how the date field was resolved.
type DateStatus int

const (
	DatePresent DateStatus = iota
	DateMissing
	DateMalformed
)

func (s DateStatus) String() string {
	switch s {
	case DatePresent:
		return "present"
	case DateMissing:
		return "missing"
	case DateMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Input is the typed form of a Record. The validate tags carry the accepted
// ranges; the json tags name fields the way callers send them.
type Input struct {
	Season     int     `json:"season" validate:"min=1,max=4"`
	Year       int     `json:"yr" validate:"min=0,max=1"`
	Month      int     `json:"mnth" validate:"min=1,max=12"`
	Weekday    int     `json:"weekday" validate:"min=0,max=6"`
	Holiday    int     `json:"holiday" validate:"min=0,max=1"`
	Workingday int     `json:"workingday" validate:"min=0,max=1"`
	Weather    int     `json:"weathersit" validate:"min=1,max=4"`
	Hour       int     `json:"hr" validate:"min=0,max=23"`
	Temp       float64 `json:"temp" validate:"min=0,max=1"`
	ATemp      float64 `json:"atemp" validate:"min=0,max=1"`
	Humidity   float64 `json:"hum" validate:"min=0,max=1"`
	Windspeed  float64 `json:"windspeed" validate:"min=0,max=1"`

	// Date is only meaningful when DateStatus is DatePresent.
	Date       time.Time  `json:"-"`
	DateStatus DateStatus `json:"-"`
	RawDate    string     `json:"-"`
}

// DayOfMonth returns the day of the parsed date, or DefaultDay.
func (in Input) DayOfMonth() int {
	if in.DateStatus != DatePresent {
		return DefaultDay
	}
	return in.Date.Day()
}

// FieldError describes one field that could not be read from a record.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors collects every unreadable field of a record.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the offending field names in order.
func (e FieldErrors) Fields() []string {
	names := make([]string, len(e))
	for i, fe := range e {
		names[i] = fe.Field
	}
	return names
}

// ParseDate parses a YYYY-MM-DD date. The second result is false when s does
// not match the layout.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FromRecord converts a record to an Input for variant v, applying the
// defaults for yr, holiday and hr. Only the hourly variant reads hr; any other
// variant gets DefaultHour whatever the record says. Fields that are required
// by every variant must be present; completeness against a variant's full list
// is the caller's concern. Ranges are not checked here.
func FromRecord(r Record, v Variant) (Input, error) {
	var (
		in   Input
		errs FieldErrors
	)

	readInt := func(field string, dst *int) {
		v, err := r.Int(field)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: err.Error()})
			return
		}
		*dst = v
	}
	readIntOr := func(field string, def int, dst *int) {
		v, err := r.IntOr(field, def)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: err.Error()})
			return
		}
		*dst = v
	}
	readFloat := func(field string, dst *float64) {
		v, err := r.Float(field)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: err.Error()})
			return
		}
		*dst = v
	}

	readInt(FieldSeason, &in.Season)
	readIntOr(FieldYear, DefaultYear, &in.Year)
	readInt(FieldMonth, &in.Month)
	readInt(FieldWeekday, &in.Weekday)
	readIntOr(FieldHoliday, DefaultHoliday, &in.Holiday)
	readInt(FieldWorkingday, &in.Workingday)
	readInt(FieldWeather, &in.Weather)
	in.Hour = DefaultHour
	if v == Hourly {
		readIntOr(FieldHour, DefaultHour, &in.Hour)
	}
	readFloat(FieldTemp, &in.Temp)
	readFloat(FieldATemp, &in.ATemp)
	readFloat(FieldHumidity, &in.Humidity)
	readFloat(FieldWindspeed, &in.Windspeed)

	if len(errs) > 0 {
		return Input{}, errs
	}

	raw, ok := r.String(FieldDate)
	_, keyed := r[FieldDate]
	switch {
	case !ok && keyed:
		// An explicit null is a date the caller sent but we cannot read.
		in.DateStatus = DateMalformed
	case !ok:
		in.DateStatus = DateMissing
	default:
		in.RawDate = raw
		if t, ok := ParseDate(raw); ok {
			in.Date = t
			in.DateStatus = DatePresent
		} else {
			in.DateStatus = DateMalformed
		}
	}

	return in, nil
}
