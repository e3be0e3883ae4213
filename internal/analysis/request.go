package analysis

import (
	"strings"
	"time"

	"StrategyLab/internal/allocation"
	"StrategyLab/internal/backtest"
	"StrategyLab/internal/strategy"
)

// Request describes a single-ticker backtest.
type Request struct {
	Ticker       string
	Start        time.Time
	End          time.Time
	Interval     string
	Strategy     strategy.Params
	Backtest     backtest.Options
	RiskFreeRate float64
}

// Validate fails fast before any data is fetched.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Ticker) == "" {
		return strategy.InvalidParameter("ticker is required")
	}
	if !r.End.After(r.Start) {
		return strategy.InvalidParameter("end date must be after start date")
	}
	if err := r.Strategy.Validate(); err != nil {
		return err
	}
	return r.Backtest.Validate()
}

// PortfolioRequest describes a multi-ticker run. Every ticker is simulated
// with Allocation.NotionalCapital and rescaled afterwards.
type PortfolioRequest struct {
	Tickers      []string
	Start        time.Time
	End          time.Time
	Interval     string
	Strategy     strategy.Params
	StopLossPct  float64
	RiskFreeRate float64
	Allocation   allocation.Options
}

// Validate fails fast before any data is fetched.
func (r PortfolioRequest) Validate() error {
	if len(NormalizeTickers(r.Tickers)) == 0 {
		return strategy.InvalidParameter("no tickers provided")
	}
	if !(r.Allocation.TotalCapital > 0) {
		return strategy.InvalidParameter("capital must be positive")
	}
	if !r.End.After(r.Start) {
		return strategy.InvalidParameter("end date must be after start date")
	}
	if err := r.Strategy.Validate(); err != nil {
		return err
	}
	return r.tickerOptions().Validate()
}

func (r PortfolioRequest) tickerOptions() backtest.Options {
	notional := r.Allocation.NotionalCapital
	if notional <= 0 {
		notional = allocation.DefaultNotionalCapital
	}
	return backtest.Options{InitialCapital: notional, StopLossPct: r.StopLossPct}
}

func (r PortfolioRequest) tickerRequest(ticker string) Request {
	return Request{
		Ticker:       ticker,
		Start:        r.Start,
		End:          r.End,
		Interval:     r.Interval,
		Strategy:     r.Strategy,
		Backtest:     r.tickerOptions(),
		RiskFreeRate: r.RiskFreeRate,
	}
}

// NormalizeTickers upper-cases, trims and de-duplicates tickers, keeping order.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
