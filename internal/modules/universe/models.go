// Package universe manages the asset universe and its historical prices.
package universe

import "math"

// Asset is a member of the investment universe.
type Asset struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// DailyPrice is a single close observation for an asset.
type DailyPrice struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Close  float64 `json:"close"`
}

// TimeSeries holds price series for several assets aligned on a common,
// ascending set of dates. Missing observations are NaN until filled.
type TimeSeries struct {
	Dates []string
	Data  map[string][]float64
}

// FillMissing fills gaps using forward-fill then back-fill, returning a new
// TimeSeries. Series that are entirely missing stay NaN.
func (ts TimeSeries) FillMissing() TimeSeries {
	filled := TimeSeries{
		Dates: ts.Dates,
		Data:  make(map[string][]float64, len(ts.Data)),
	}

	for symbol, prices := range ts.Data {
		out := make([]float64, len(prices))
		copy(out, prices)

		// Forward-fill with the previous valid value.
		var lastValid float64
		hasLastValid := false
		for i := 0; i < len(out); i++ {
			if math.IsNaN(out[i]) {
				if hasLastValid {
					out[i] = lastValid
				}
			} else {
				lastValid = out[i]
				hasLastValid = true
			}
		}

		// Back-fill leading gaps.
		var nextValid float64
		hasNextValid := false
		for i := len(out) - 1; i >= 0; i-- {
			if math.IsNaN(out[i]) {
				if hasNextValid {
					out[i] = nextValid
				}
			} else {
				nextValid = out[i]
				hasNextValid = true
			}
		}

		filled.Data[symbol] = out
	}

	return filled
}
