package model

import "time"

// FillReason records why the ledger traded.
type FillReason string

const (
	ReasonSignal   FillReason = "signal"
	ReasonStopLoss FillReason = "stop_loss"
)

// Side of a fill.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Fill is an executed all-in or all-out trade.
type Fill struct {
	Date   time.Time
	Side   Side
	Price  float64
	Units  float64
	Reason FillReason
}

// EquityPoint is the ledger snapshot after processing one bar.
// Invariant: Total == Cash + Holdings.
type EquityPoint struct {
	Date     time.Time
	Price    float64
	Cash     float64
	Units    float64
	Holdings float64
	Total    float64
	Return   float64 // fractional change of Total; NaN on the first bar
}

// EquityCurve is aligned with the SignalSeries it was simulated from.
type EquityCurve struct {
	Symbol         string
	InitialCapital float64
	Points         []EquityPoint
	Fills          []Fill
	StopLossExits  int
}

// Totals selects the total value column.
func (e *EquityCurve) Totals() []float64 {
	out := make([]float64, len(e.Points))
	for i, p := range e.Points {
		out[i] = p.Total
	}
	return out
}

// Returns selects the period return column, including the leading NaN.
func (e *EquityCurve) Returns() []float64 {
	out := make([]float64, len(e.Points))
	for i, p := range e.Points {
		out[i] = p.Return
	}
	return out
}

// Dates selects the date column.
func (e *EquityCurve) Dates() []time.Time {
	out := make([]time.Time, len(e.Points))
	for i, p := range e.Points {
		out[i] = p.Date
	}
	return out
}

// FinalValue returns the last total value, or the initial capital for an empty curve.
func (e *EquityCurve) FinalValue() float64 {
	if len(e.Points) == 0 {
		return e.InitialCapital
	}
	return e.Points[len(e.Points)-1].Total
}

// RoundTrip is a completed enter/exit pair taken from the signal events.
type RoundTrip struct {
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
}

// ReturnPct is the price change of the round trip in percent.
func (r RoundTrip) ReturnPct() float64 {
	return (r.ExitPrice/r.EntryPrice - 1) * 100
}

// Win reports whether the exit price exceeded the entry price.
func (r RoundTrip) Win() bool { return r.ExitPrice > r.EntryPrice }
