package report

import (
	"math"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/model"
)

// Clean maps NaN and ±Inf to 0 so values survive JSON encoding.
func Clean(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CleanList applies Clean to every element.
func CleanList(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Clean(v)
	}
	return out
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(model.DateLayout)
	}
	return out
}

// TradeMark is a buy or sell marker on the price chart.
type TradeMark struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// TickerView is the JSON shape of a single-ticker backtest.
type TickerView struct {
	Ticker          string      `json:"ticker"`
	Dates           []string    `json:"dates"`
	Prices          []float64   `json:"prices"`
	ShortMA         []float64   `json:"short_ma"`
	LongMA          []float64   `json:"long_ma"`
	RSI             []float64   `json:"rsi"`
	PortfolioValues []float64   `json:"portfolio_vals"`
	Buys            []TradeMark `json:"buys"`
	Sells           []TradeMark `json:"sells"`
	Sharpe          float64     `json:"sharpe"`
	ReturnPct       float64     `json:"return_pct"`
	MaxDrawdownPct  float64     `json:"max_drawdown_pct"`
	WinRatePct      float64     `json:"win_rate_pct"`
	TotalTrades     int         `json:"total_trades"`
	StopLossExits   int         `json:"stop_loss_exits"`
	FinalValue      float64     `json:"final_value"`
}

// NewTickerView flattens a ticker result into its JSON view.
func NewTickerView(res *model.TickerResult) TickerView {
	v := TickerView{
		Ticker:         res.Ticker,
		Buys:           []TradeMark{},
		Sells:          []TradeMark{},
		Sharpe:         Clean(res.Report.SharpeRatio),
		ReturnPct:      Clean(res.Report.TotalReturnPct),
		MaxDrawdownPct: Clean(res.Report.MaxDrawdownPct),
		WinRatePct:     Clean(res.Report.WinRatePct),
		TotalTrades:    res.Report.TotalTrades,
		StopLossExits:  res.Report.StopLossExits,
		FinalValue:     Clean(res.Report.FinalValue),
	}
	if res.Signals != nil {
		n := res.Signals.Len()
		v.Dates = make([]string, n)
		v.Prices = make([]float64, n)
		v.ShortMA = make([]float64, n)
		v.LongMA = make([]float64, n)
		v.RSI = make([]float64, n)
		for i, p := range res.Signals.Points {
			v.Dates[i] = p.Date.Format(model.DateLayout)
			v.Prices[i] = Clean(p.Price)
			v.ShortMA[i] = Clean(p.ShortMA)
			v.LongMA[i] = Clean(p.LongMA)
			v.RSI[i] = Clean(p.RSI)
			mark := TradeMark{Date: v.Dates[i], Price: v.Prices[i]}
			switch p.PositionChange {
			case model.Enter:
				v.Buys = append(v.Buys, mark)
			case model.Exit:
				v.Sells = append(v.Sells, mark)
			}
		}
	}
	if res.Equity != nil {
		v.PortfolioValues = CleanList(res.Equity.Totals())
	}
	return v
}

// StockView is one ticker inside a portfolio response.
type StockView struct {
	TickerView
	Allocation    float64   `json:"allocation"`
	AllocationPct float64   `json:"allocation_pct"`
	Profit        float64   `json:"profit"`
	ReturnPct     float64   `json:"return_pct"`
	Sharpe        float64   `json:"sharpe"`
	Values        []float64 `json:"values"`
}

// DiagnosticView explains an excluded ticker.
type DiagnosticView struct {
	Ticker  string `json:"ticker"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PortfolioView is the JSON shape of a portfolio run.
type PortfolioView struct {
	RunID           string           `json:"run_id"`
	Stocks          []StockView      `json:"stocks"`
	Dates           []string         `json:"dates"`
	PortfolioValues []float64        `json:"portfolio_values"`
	TotalProfit     float64          `json:"total_profit"`
	TotalReturnPct  float64          `json:"total_return_pct"`
	TotalCapital    float64          `json:"total_capital"`
	SmartAllocation bool             `json:"smart_allocation"`
	GapPolicy       string           `json:"gap_policy"`
	Excluded        []DiagnosticView `json:"excluded"`
}

// NewPortfolioView flattens a portfolio run into its JSON view.
// Stocks keep the allocation order, which is already sorted by profit.
func NewPortfolioView(res *analysis.PortfolioResult) PortfolioView {
	alloc := res.Allocation
	v := PortfolioView{
		RunID:           res.RunID,
		Stocks:          make([]StockView, 0, len(alloc.Tickers)),
		Dates:           formatDates(alloc.Dates),
		PortfolioValues: CleanList(alloc.PortfolioValues),
		TotalProfit:     Clean(alloc.TotalProfit),
		TotalReturnPct:  Clean(alloc.TotalReturnPct),
		TotalCapital:    alloc.TotalCapital,
		SmartAllocation: alloc.Smart,
		GapPolicy:       string(alloc.GapPolicy),
		Excluded:        make([]DiagnosticView, 0, len(res.Diagnostics)),
	}
	for _, ta := range alloc.Tickers {
		sv := StockView{
			Allocation:    Clean(ta.AllocatedCapital),
			AllocationPct: Clean(ta.WeightPct),
			Profit:        Clean(ta.Profit),
			ReturnPct:     Clean(ta.ReturnPct),
			Sharpe:        Clean(ta.SharpeRatio),
			Values:        CleanList(ta.Values),
		}
		if ta.Result != nil {
			sv.TickerView = NewTickerView(ta.Result)
		}
		sv.Ticker = ta.Ticker
		sv.Dates = formatDates(ta.Dates)
		v.Stocks = append(v.Stocks, sv)
	}
	for _, d := range res.Diagnostics {
		v.Excluded = append(v.Excluded, DiagnosticView{Ticker: d.Ticker, Kind: string(d.Kind), Message: d.Message})
	}
	return v
}
