package model

import "time"

// NewDailySeries builds a series from adjusted closes, one bar per business
// day starting at start. OHLC are derived from the close. Used by the mock
// fetcher and tests.
func NewDailySeries(symbol string, start time.Time, closes []float64) *PriceSeries {
	bars := make([]Bar, len(closes))
	d := TruncateToDate(start)
	for i, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		bars[i] = Bar{
			Date:     d,
			Open:     c,
			High:     c * 1.005,
			Low:      c * 0.995,
			Close:    c,
			AdjClose: c,
			Volume:   1000000,
		}
		d = d.AddDate(0, 0, 1)
	}
	return &PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
}
