package report

import (
	"fmt"
	"math"
	"strings"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/calculator"
	"StrategyLab/internal/model"
)

// Snapshot is the price context shown above a ticker's backtest numbers.
type Snapshot struct {
	Price       float64
	High52w     float64
	Low52w      float64
	RangePos    float64 // 0 at the 52-week low, 1 at the high
	WilderRSI14 float64
	SMA50       float64 // NaN with fewer than 50 bars
}

// snapshotSMAPeriod is the trend line shown in the snapshot.
const snapshotSMAPeriod = 50

// TakeSnapshot summarises the last year of bars.
func TakeSnapshot(series *model.PriceSeries) (Snapshot, error) {
	if series == nil || series.Len() == 0 {
		return Snapshot{}, fmt.Errorf("empty series")
	}
	high, low, err := calculator.CalculateRange(series.Bars, calculator.TradingDaysPerYear)
	if err != nil {
		return Snapshot{}, err
	}
	closes := series.AdjCloses()
	last := closes[len(closes)-1]
	pos, err := calculator.CalculateRangePosition(last, high, low)
	if err != nil {
		return Snapshot{}, err
	}
	rsi, err := calculator.CalculateRSI(closes, 14)
	if err != nil {
		return Snapshot{}, err
	}
	sma := math.NaN()
	if len(closes) >= snapshotSMAPeriod {
		if sma, err = calculator.CalculateSMA(closes, snapshotSMAPeriod); err != nil {
			return Snapshot{}, err
		}
	}
	return Snapshot{Price: last, High52w: high, Low52w: low, RangePos: pos, WilderRSI14: rsi, SMA50: sma}, nil
}

func fmtSharpe(s float64) string {
	if math.IsNaN(s) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", s)
}

// FormatTicker formats a single-ticker backtest as a Telegram HTML message.
func FormatTicker(res *model.TickerResult) string {
	var b strings.Builder
	r := res.Report

	b.WriteString(fmt.Sprintf("📊 <b>%s backtest</b>", res.Ticker))
	if res.Signals != nil && res.Signals.Len() > 0 {
		pts := res.Signals.Points
		b.WriteString(fmt.Sprintf(" | %s → %s",
			pts[0].Date.Format(model.DateLayout), pts[len(pts)-1].Date.Format(model.DateLayout)))
		b.WriteString(fmt.Sprintf("\nMA %d/%d", res.Signals.ShortWindow, res.Signals.LongWindow))
	}
	b.WriteString("\n\n")

	if snap, err := TakeSnapshot(res.Prices); err == nil {
		b.WriteString(fmt.Sprintf("Price: %.2f (52w %.2f – %.2f, %.0f%% of range)\n",
			snap.Price, snap.Low52w, snap.High52w, snap.RangePos*100))
		if !math.IsNaN(snap.SMA50) {
			b.WriteString(fmt.Sprintf("SMA50: %.2f (%+.1f%%)\n", snap.SMA50, (snap.Price/snap.SMA50-1)*100))
		}
		b.WriteString(fmt.Sprintf("RSI(14, Wilder): %.0f\n\n", snap.WilderRSI14))
	}

	b.WriteString("📈 <b>Performance:</b>\n")
	b.WriteString(fmt.Sprintf("  Total return: %+.2f%%\n", r.TotalReturnPct))
	b.WriteString(fmt.Sprintf("  Sharpe: %s\n", fmtSharpe(r.SharpeRatio)))
	b.WriteString(fmt.Sprintf("  Max drawdown: %.2f%%\n", r.MaxDrawdownPct))
	b.WriteString(fmt.Sprintf("  Win rate: %.1f%% (%d/%d)\n", r.WinRatePct, r.Wins, r.TotalTrades))
	b.WriteString(fmt.Sprintf("  Final value: %.2f\n", r.FinalValue))
	if r.StopLossExits > 0 {
		b.WriteString(fmt.Sprintf("  Stop-loss exits: %d\n", r.StopLossExits))
	}

	if res.Signals != nil {
		if idx := res.Signals.Events(); len(idx) > 0 {
			last := res.Signals.Points[idx[len(idx)-1]]
			action := "BUY"
			if last.PositionChange == model.Exit {
				action = "SELL"
			}
			b.WriteString(fmt.Sprintf("\nLast signal: %s %s @ %.2f\n", action, last.Date.Format(model.DateLayout), last.Price))
		}
	}
	return b.String()
}

// FormatPortfolio formats a portfolio run as a Telegram HTML message.
func FormatPortfolio(res *analysis.PortfolioResult) string {
	var b strings.Builder
	alloc := res.Allocation

	mode := "equal"
	if alloc.Smart {
		mode = "Sharpe-weighted"
	}
	b.WriteString(fmt.Sprintf("💼 <b>Portfolio run</b> | %s\n", res.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Capital: %.0f (%s)\n\n", alloc.TotalCapital, mode))

	for _, ta := range alloc.Tickers {
		b.WriteString(fmt.Sprintf("  <b>%s</b> %.1f%% → %+.2f (%+.2f%%) sharpe %s\n",
			ta.Ticker, ta.WeightPct, ta.Profit, ta.ReturnPct, fmtSharpe(ta.SharpeRatio)))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Total: %+.2f (%+.2f%%)\n", alloc.TotalProfit, alloc.TotalReturnPct))

	if len(res.Diagnostics) > 0 {
		b.WriteString("\n⚠️ Excluded:\n")
		for _, d := range res.Diagnostics {
			b.WriteString(fmt.Sprintf("  %s: %s\n", d.Ticker, d.Kind))
		}
	}
	b.WriteString(fmt.Sprintf("\n<code>%s</code>", res.RunID))
	return b.String()
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "", "<code>", "", "</code>", "")

// PlainText drops the HTML markup used by the Telegram formatters.
func PlainText(s string) string { return tagStripper.Replace(s) }
