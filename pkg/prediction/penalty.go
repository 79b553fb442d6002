package prediction

// weatherPenalty scales demand down as weather worsens. Codes: 1 clear,
// 2 mist, 3 light rain or snow, 4 heavy rain.
var weatherPenalty = map[int]float64{
	1: 1.0,
	2: 0.85,
	3: 0.50,
	4: 0.25,
}

// WeatherPenalty returns the multiplier for a weather code, 1.0 for codes
// outside the table.
func WeatherPenalty(code int) float64 {
	if p, ok := weatherPenalty[code]; ok {
		return p
	}
	return 1.0
}
