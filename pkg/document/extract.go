// Package document pulls an input record out of free text, such as the text
// layer of an uploaded PDF weather report.
//
// Matching is case-insensitive and expects "label: value" pairs, with the
// colon or dash optional. Only date and temperature are mandatory; every other
// field falls back to a typical-day default and the calendar fields are
// derived from the date.
package document

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/ridewise/pkg/features"
)

var (
	ErrEmptyDocument       = errors.New("document has no text")
	ErrDateNotFound        = errors.New("date is mandatory but not found")
	ErrInvalidDate         = errors.New("date is not a valid calendar date")
	ErrTemperatureNotFound = errors.New("temperature is mandatory but not found")
)

// Defaults for optional fields.
const (
	DefaultHour       = 12
	DefaultWeather    = 1
	DefaultHumidity   = 0.6
	DefaultWindspeed  = 0.2
	DefaultWorkingday = 1
	DefaultHoliday    = 0
)

const sep = `\s*[:\-]?\s*`

var (
	dateRe = regexp.MustCompile(`\bdate` + sep +
		`(\d{4}\s*[-/]\s*\d{2}\s*[-/]\s*\d{2}|\d{2}\s*[-/]\s*\d{2}\s*[-/]\s*\d{4})`)
	hourRe        = regexp.MustCompile(`\bhour` + sep + `(\d{1,2})`)
	weatherRe     = regexp.MustCompile(`\bweather` + sep + `(\d)`)
	temperatureRe = regexp.MustCompile(`\btemperature` + sep + `(\d+(?:\.\d+)?|\.\d+)`)
	humidityRe    = regexp.MustCompile(`\bhumidity` + sep + `(\d+(?:\.\d+)?|\.\d+)`)
	windRe        = regexp.MustCompile(`\bwind\s*speed` + sep + `(\d+(?:\.\d+)?|\.\d+)`)
	workingdayRe  = regexp.MustCompile(`\bworking\s*day` + sep + `(\d)`)
	holidayRe     = regexp.MustCompile(`\bholiday` + sep + `(\d)`)

	spaceRe = regexp.MustCompile(`\s+`)
)

// Extract builds a complete record for either variant from text.
func Extract(text string) (features.Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	lower := strings.ToLower(text)

	date, err := findDate(lower)
	if err != nil {
		return nil, err
	}

	m := temperatureRe.FindStringSubmatch(lower)
	if m == nil {
		return nil, ErrTemperatureNotFound
	}
	temp, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, fmt.Errorf("temperature %q: %w", m[1], err)
	}

	r := features.Record{
		features.FieldDate:       date.Format(features.DateLayout),
		features.FieldHour:       findInt(hourRe, lower, DefaultHour),
		features.FieldWeather:    findInt(weatherRe, lower, DefaultWeather),
		features.FieldTemp:       temp,
		features.FieldATemp:      temp,
		features.FieldHumidity:   findFloat(humidityRe, lower, DefaultHumidity),
		features.FieldWindspeed:  findFloat(windRe, lower, DefaultWindspeed),
		features.FieldWorkingday: findInt(workingdayRe, lower, DefaultWorkingday),
		features.FieldHoliday:    findInt(holidayRe, lower, DefaultHoliday),
		features.FieldMonth:      int(date.Month()),
		features.FieldWeekday:    int(date.Weekday()),
		features.FieldSeason:     Season(date.Month()),
		features.FieldYear:       yearFlag(date.Year()),
	}
	return r, nil
}

func findDate(lower string) (time.Time, error) {
	m := dateRe.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, ErrDateNotFound
	}

	raw := strings.ReplaceAll(spaceRe.ReplaceAllString(m[1], ""), "/", "-")
	for _, layout := range []string{"2006-01-02", "02-01-2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, raw)
}

func findInt(re *regexp.Regexp, s string, def int) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return def
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	return v
}

func findFloat(re *regexp.Regexp, s string, def float64) float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return def
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return def
	}
	return v
}

// Season maps a month to the season code: 1 winter (Dec-Feb), 2 spring
// (Mar-May), 3 summer (Jun-Aug), 4 fall (Sep-Nov).
func Season(m time.Month) int {
	switch m {
	case time.March, time.April, time.May:
		return 2
	case time.June, time.July, time.August:
		return 3
	case time.September, time.October, time.November:
		return 4
	default:
		return 1
	}
}

// yearFlag encodes the year the way the training data does: 0 for 2011,
// 1 for 2012 and later.
func yearFlag(year int) int {
	if year >= 2012 {
		return 1
	}
	return 0
}
