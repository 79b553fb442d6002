package features

import "fmt"

// Vector is an assembled feature vector. Positions are significant.
type Vector []float64

// column derives one feature from a typed input.
type column func(in Input) float64

// catalogue holds every derived feature either variant uses, keyed by the
// column name the models were trained with.
var catalogue = map[string]column{
	"atemp":      func(in Input) float64 { return in.ATemp },
	"temp":       func(in Input) float64 { return in.Temp },
	"hum":        func(in Input) float64 { return in.Humidity },
	"windspeed":  func(in Input) float64 { return in.Windspeed },
	"holiday":    func(in Input) float64 { return float64(in.Holiday) },
	"workingday": func(in Input) float64 { return float64(in.Workingday) },
	"yr":         func(in Input) float64 { return float64(in.Year) },

	"day_sin": func(in Input) float64 {
		s, _ := Cyclical(float64(in.DayOfMonth()), PeriodDay)
		return s
	},
	"mnth_sin": func(in Input) float64 {
		s, _ := Cyclical(float64(in.Month), PeriodMonth)
		return s
	},
	"mnth_cos": func(in Input) float64 {
		_, c := Cyclical(float64(in.Month), PeriodMonth)
		return c
	},
	"weekday_sin": func(in Input) float64 {
		s, _ := Cyclical(float64(in.Weekday), PeriodWeekday)
		return s
	},
	"weekday_cos": func(in Input) float64 {
		_, c := Cyclical(float64(in.Weekday), PeriodWeekday)
		return c
	},
	"hr_sin": func(in Input) float64 {
		s, _ := Cyclical(float64(in.Hour), PeriodHour)
		return s
	},
	"hr_cos": func(in Input) float64 {
		_, c := Cyclical(float64(in.Hour), PeriodHour)
		return c
	},

	"is_weekend":   func(in Input) float64 { return flag(IsWeekend(in.Weekday)) },
	"is_peak_hour": func(in Input) float64 { return flag(IsPeakHour(in.Hour)) },
	"time_of_day_morning": func(in Input) float64 {
		return flag(in.Hour >= 6 && in.Hour < 12)
	},
	"time_of_day_evening": func(in Input) float64 {
		return flag(in.Hour >= 18 && in.Hour < 24)
	},
	"season_4":     func(in Input) float64 { return flag(in.Season == 4) },
	"weathersit_3": func(in Input) float64 { return flag(in.Weather == 3) },

	"temp_squared":       func(in Input) float64 { return in.Temp * in.Temp },
	"temp_comfort":       func(in Input) float64 { return in.Temp * in.ATemp },
	"humidity_windspeed": func(in Input) float64 { return in.Humidity * in.Windspeed },
	"temp_humidity":      func(in Input) float64 { return in.Temp * in.Humidity },
	"weather_temp_interaction": func(in Input) float64 {
		return float64(in.Weather) * in.Temp
	},
}

// DailyColumns is the column order of the daily model.
var DailyColumns = []string{
	"atemp", "day_sin", "holiday", "hum", "humidity_windspeed", "is_weekend",
	"mnth_cos", "mnth_sin", "season_4", "temp", "temp_comfort", "temp_humidity",
	"temp_squared", "weather_temp_interaction", "weekday_cos", "weekday_sin",
	"windspeed", "workingday", "yr",
}

// HourlyColumns is the column order of the hourly model.
var HourlyColumns = []string{
	"atemp", "day_sin", "holiday", "hr_cos", "hr_sin", "hum", "humidity_windspeed",
	"is_peak_hour", "is_weekend", "mnth_cos", "mnth_sin", "season_4", "temp",
	"temp_comfort", "temp_humidity", "temp_squared", "time_of_day_evening",
	"time_of_day_morning", "weathersit_3", "weekday_cos", "weekday_sin",
	"windspeed", "workingday", "yr",
}

var peakHours = map[int]bool{7: true, 8: true, 9: true, 17: true, 18: true, 19: true}

// IsWeekend reports whether weekday (0 = Sunday) is Saturday or Sunday.
func IsWeekend(weekday int) bool {
	return weekday == 0 || weekday == 6
}

// IsPeakHour reports whether hr falls in the morning or evening commute.
func IsPeakHour(hr int) bool {
	return peakHours[hr]
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Assembler builds feature vectors for one variant.
type Assembler struct {
	variant Variant
	names   []string
	columns []column
}

// NewAssembler creates an assembler from an ordered list of catalogue column
// names.
func NewAssembler(v Variant, names []string) (*Assembler, error) {
	cols := make([]column, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		c, ok := catalogue[name]
		if !ok {
			return nil, fmt.Errorf("unknown feature column %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature column %q", name)
		}
		seen[name] = true
		cols[i] = c
	}
	return &Assembler{
		variant: v,
		names:   append([]string(nil), names...),
		columns: cols,
	}, nil
}

// ForVariant returns the assembler for the built-in daily or hourly layout.
func ForVariant(v Variant) (*Assembler, error) {
	switch v {
	case Daily:
		return NewAssembler(Daily, DailyColumns)
	case Hourly:
		return NewAssembler(Hourly, HourlyColumns)
	default:
		return nil, fmt.Errorf("unknown variant %q", v)
	}
}

// Variant returns the variant this assembler serves.
func (a *Assembler) Variant() Variant {
	return a.variant
}

// Columns returns a copy of the column order.
func (a *Assembler) Columns() []string {
	return append([]string(nil), a.names...)
}

// Len returns the vector length.
func (a *Assembler) Len() int {
	return len(a.columns)
}

// Assemble builds the vector for a typed input. It is a pure function of in.
func (a *Assembler) Assemble(in Input) Vector {
	vec := make(Vector, len(a.columns))
	for i, c := range a.columns {
		vec[i] = c(in)
	}
	return vec
}

// AssembleRecord converts the record and assembles it in one step, applying
// the optional-field defaults.
func (a *Assembler) AssembleRecord(r Record) (Vector, Input, error) {
	in, err := FromRecord(r, a.variant)
	if err != nil {
		return nil, Input{}, err
	}
	return a.Assemble(in), in, nil
}

// Named pairs each value of vec with its column name, mainly for logging and
// for remote models that accept named features.
func (a *Assembler) Named(vec Vector) map[string]float64 {
	out := make(map[string]float64, len(a.names))
	for i, name := range a.names {
		if i < len(vec) {
			out[name] = vec[i]
		}
	}
	return out
}
