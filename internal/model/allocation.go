package model

import "time"

// GapPolicy decides what a ticker contributes on a union date it has no bar for.
type GapPolicy string

const (
	GapZero        GapPolicy = "zero"
	GapForwardFill GapPolicy = "forward_fill"
)

// Valid reports whether g is a known policy.
func (g GapPolicy) Valid() bool {
	return g == GapZero || g == GapForwardFill
}

// TickerAllocation is the per-ticker share of a portfolio run.
type TickerAllocation struct {
	Ticker           string
	AllocatedCapital float64
	WeightPct        float64
	Profit           float64
	ReturnPct        float64
	SharpeRatio      float64
	Dates            []time.Time
	Values           []float64 // rescaled equity on the ticker's own dates
	AlignedValues    []float64 // rescaled equity on the union dates
	Result           *TickerResult
}

// AllocationResult is the aggregate of a multi-ticker run.
type AllocationResult struct {
	TotalCapital    float64
	Smart           bool
	GapPolicy       GapPolicy
	Tickers         []TickerAllocation
	Dates           []time.Time
	PortfolioValues []float64
	TotalProfit     float64
	TotalReturnPct  float64
}

// DiagnosticKind classifies why a ticker was excluded.
type DiagnosticKind string

const (
	DiagDataUnavailable  DiagnosticKind = "data_unavailable"
	DiagInsufficientData DiagnosticKind = "insufficient_data"
	DiagInvalidParameter DiagnosticKind = "invalid_parameter"
	DiagInternal         DiagnosticKind = "internal"
)

// TickerDiagnostic explains a ticker excluded from aggregation.
type TickerDiagnostic struct {
	Ticker  string
	Kind    DiagnosticKind
	Message string
}
