package model

// PerformanceReport summarises one finished equity curve.
type PerformanceReport struct {
	TotalReturnPct float64
	SharpeRatio    float64 // NaN when return variance is zero
	MaxDrawdownPct float64 // <= 0
	WinRatePct     float64 // 0 with no completed round trips
	TotalTrades    int
	Wins           int
	FinalValue     float64
	StopLossExits  int
}

// TickerResult bundles everything produced for one ticker.
type TickerResult struct {
	Ticker  string
	Prices  *PriceSeries
	Signals *SignalSeries
	Equity  *EquityCurve
	Report  PerformanceReport
	Trades  []RoundTrip
}
