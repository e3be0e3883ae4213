package model

import (
	"fmt"
	"time"
)

// Bar is one daily OHLCV bar. AdjClose drives all strategy math.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// PriceSeries holds the immutable daily history of one symbol.
type PriceSeries struct {
	Symbol    string
	Bars      []Bar
	FetchedAt time.Time
}

// Len returns the number of bars.
func (p *PriceSeries) Len() int { return len(p.Bars) }

// AdjCloses selects the adjusted close column.
func (p *PriceSeries) AdjCloses() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.AdjClose
	}
	return out
}

// Dates selects the date column.
func (p *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Date
	}
	return out
}

// Validate checks that dates are strictly increasing and adjusted closes are positive.
func (p *PriceSeries) Validate() error {
	for i, b := range p.Bars {
		if !(b.AdjClose > 0) {
			return fmt.Errorf("bar %d (%s): adjusted close must be positive, got %v", i, b.Date.Format(DateLayout), b.AdjClose)
		}
		if i > 0 && !b.Date.After(p.Bars[i-1].Date) {
			return fmt.Errorf("bar %d (%s): dates must be strictly increasing", i, b.Date.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the calendar date format used across the API and reports.
const DateLayout = "2006-01-02"

// TruncateToDate drops the time-of-day, keeping the calendar date in UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
