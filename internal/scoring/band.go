// Package scoring maps a final ability estimate to a proficiency band and
// builds the session summary.
package scoring

import "math"

// Band is a CEFR-aligned proficiency level.
type Band struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Min  float64 `json:"min"` // inclusive lower bound on theta
	Max  float64 `json:"max"` // exclusive upper bound on theta
}

// Bands is ordered by ascending theta and covers the whole real line.
var Bands = []Band{
	{Code: "A1", Name: "Beginner", Min: math.Inf(-1), Max: -2},
	{Code: "A2", Name: "Elementary", Min: -2, Max: -1},
	{Code: "B1", Name: "Pre-Intermediate", Min: -1, Max: 0},
	{Code: "B2", Name: "Intermediate", Min: 0, Max: 1},
	{Code: "C1", Name: "Upper-Intermediate", Min: 1, Max: 2},
	{Code: "C2", Name: "Advanced", Min: 2, Max: math.Inf(1)},
}

// Contains reports whether theta falls in [Min, Max). The top band also
// holds +Inf.
func (b Band) Contains(theta float64) bool {
	if theta < b.Min {
		return false
	}
	return theta < b.Max || math.IsInf(b.Max, 1)
}

// BandFor returns the band containing theta. NaN maps to the lowest band.
func BandFor(theta float64) Band {
	for _, b := range Bands {
		if b.Contains(theta) {
			return b
		}
	}
	return Bands[0]
}

// BandByCode looks a band up by its CEFR code.
func BandByCode(code string) (Band, bool) {
	for _, b := range Bands {
		if b.Code == code {
			return b, true
		}
	}
	return Band{}, false
}
