package performance

import (
	"math"

	"StrategyLab/internal/backtest"
	"StrategyLab/internal/calculator"
	"StrategyLab/internal/model"
)

// DefaultRiskFreeRate is the annual risk-free rate used for the Sharpe ratio.
const DefaultRiskFreeRate = 0.02

// Analyze scores a finished equity curve. The signal series supplies the
// entry/exit events used for win-rate accounting.
func Analyze(curve *model.EquityCurve, signals *model.SignalSeries, riskFreeRate float64) (model.PerformanceReport, []model.RoundTrip) {
	trips, total := backtest.PairTrades(signals)
	wins := 0
	for _, tr := range trips {
		if tr.Win() {
			wins++
		}
	}

	report := model.PerformanceReport{
		TotalReturnPct: TotalReturnPct(curve.FinalValue(), curve.InitialCapital),
		SharpeRatio:    SharpeRatio(curve.Returns(), riskFreeRate),
		MaxDrawdownPct: MaxDrawdownPct(curve.Totals()),
		WinRatePct:     WinRatePct(wins, total),
		TotalTrades:    total,
		Wins:           wins,
		FinalValue:     curve.FinalValue(),
		StopLossExits:  curve.StopLossExits,
	}
	return report, trips
}

// TotalReturnPct is (final/initial - 1) * 100.
func TotalReturnPct(final, initial float64) float64 {
	return (final/initial - 1) * 100
}

// SharpeRatio annualises mean daily excess return over its sample standard
// deviation. NaN entries (the first bar) are skipped. The result is NaN when
// the returns have no variance.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	daily := riskFreeRate / calculator.TradingDaysPerYear
	excess := make([]float64, 0, len(returns))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		e := r - daily
		excess = append(excess, e)
		lo, hi = math.Min(lo, e), math.Max(hi, e)
	}
	// A constant series leaves rounding residue in the mean, so compare the
	// range rather than trusting sd == 0.
	if len(excess) < 2 || lo == hi {
		return math.NaN()
	}
	mean := calculator.Mean(excess)
	sd := calculator.SampleStdDev(excess)
	if math.IsNaN(sd) || sd <= 1e-12*math.Max(1, math.Abs(mean)) {
		return math.NaN()
	}
	return math.Sqrt(calculator.TradingDaysPerYear) * mean / sd
}

// MaxDrawdownPct returns the most negative decline from a running peak, in
// percent. It is 0 when the values never decline.
func MaxDrawdownPct(values []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst * 100
}

// WinRatePct is wins/total*100, or 0 with no completed trades.
func WinRatePct(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}
