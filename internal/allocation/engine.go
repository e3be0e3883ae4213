package allocation

import (
	"math"
	"sort"
	"time"

	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

const (
	// DefaultNotionalCapital is the capital each ticker is simulated with before rescaling.
	DefaultNotionalCapital = 10000.0
	// DefaultFloorEpsilon keeps non-positive or undefined Sharpe ratios from
	// zeroing or dominating the smart weights.
	DefaultFloorEpsilon = 0.01
)

// Options configures how capital is split across tickers.
type Options struct {
	TotalCapital    float64
	NotionalCapital float64
	Smart           bool
	FloorEpsilon    float64
	GapPolicy       model.GapPolicy
}

// DefaultOptions returns smart allocation over the given capital with zero-filled gaps.
func DefaultOptions(totalCapital float64) Options {
	return Options{
		TotalCapital:    totalCapital,
		NotionalCapital: DefaultNotionalCapital,
		Smart:           true,
		FloorEpsilon:    DefaultFloorEpsilon,
		GapPolicy:       model.GapZero,
	}
}

func (o Options) validate() error {
	if !(o.TotalCapital > 0) {
		return strategy.InvalidParameter("total capital must be positive, got %v", o.TotalCapital)
	}
	if !(o.NotionalCapital > 0) {
		return strategy.InvalidParameter("notional capital must be positive, got %v", o.NotionalCapital)
	}
	if o.Smart && !(o.FloorEpsilon > 0) {
		return strategy.InvalidParameter("floor epsilon must be positive, got %v", o.FloorEpsilon)
	}
	if !o.GapPolicy.Valid() {
		return strategy.InvalidParameter("unknown gap policy %q", o.GapPolicy)
	}
	return nil
}

// Weights returns one weight per Sharpe ratio, summing to 1. Smart weights
// are proportional to max(sharpe, eps); NaN counts as eps.
func Weights(sharpes []float64, smart bool, eps float64) []float64 {
	w := make([]float64, len(sharpes))
	if len(sharpes) == 0 {
		return w
	}
	if !smart {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return w
	}
	sum := 0.0
	for i, s := range sharpes {
		v := eps
		if !math.IsNaN(s) && s > eps {
			v = s
		}
		w[i] = v
		sum += v
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// Allocate splits TotalCapital across independently simulated tickers,
// rescales each equity curve to its share and sums the curves over the union
// of all observed dates. Tickers are returned by profit, highest first.
func Allocate(results []*model.TickerResult, opts Options) (*model.AllocationResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, strategy.InvalidParameter("no ticker results to allocate")
	}

	sharpes := make([]float64, len(results))
	for i, r := range results {
		sharpes[i] = r.Report.SharpeRatio
	}
	weights := Weights(sharpes, opts.Smart, opts.FloorEpsilon)

	dates := unionDates(results)
	out := &model.AllocationResult{
		TotalCapital:    opts.TotalCapital,
		Smart:           opts.Smart,
		GapPolicy:       opts.GapPolicy,
		Dates:           dates,
		PortfolioValues: make([]float64, len(dates)),
		Tickers:         make([]model.TickerAllocation, len(results)),
	}

	for i, r := range results {
		allocated := weights[i] * opts.TotalCapital
		scale := allocated / opts.NotionalCapital

		totals := r.Equity.Totals()
		values := make([]float64, len(totals))
		for j, v := range totals {
			values[j] = v * scale
		}

		ta := model.TickerAllocation{
			Ticker:           r.Ticker,
			AllocatedCapital: allocated,
			WeightPct:        weights[i] * 100,
			SharpeRatio:      r.Report.SharpeRatio,
			Dates:            r.Equity.Dates(),
			Values:           values,
			Result:           r,
		}
		if n := len(values); n > 0 {
			ta.Profit = values[n-1] - allocated
			ta.ReturnPct = (values[n-1]/allocated - 1) * 100
		}
		ta.AlignedValues = align(dates, ta.Dates, values, allocated, opts.GapPolicy)
		for j, v := range ta.AlignedValues {
			out.PortfolioValues[j] += v
		}
		out.Tickers[i] = ta
	}

	if n := len(out.PortfolioValues); n > 0 {
		out.TotalProfit = out.PortfolioValues[n-1] - opts.TotalCapital
		out.TotalReturnPct = out.TotalProfit / opts.TotalCapital * 100
	}

	sort.SliceStable(out.Tickers, func(a, b int) bool {
		return out.Tickers[a].Profit > out.Tickers[b].Profit
	})
	return out, nil
}

// unionDates returns the sorted, de-duplicated dates of every ticker.
func unionDates(results []*model.TickerResult) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range results {
		for _, p := range r.Equity.Points {
			d := model.TruncateToDate(p.Date)
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// align maps a ticker's values onto the union dates. Under GapZero a missing
// date contributes 0. Under GapForwardFill it carries the last known value,
// and dates before the ticker's first bar count the allocated capital as
// uninvested cash.
func align(union, own []time.Time, values []float64, allocated float64, policy model.GapPolicy) []float64 {
	byDate := make(map[time.Time]float64, len(own))
	for i, d := range own {
		byDate[model.TruncateToDate(d)] = values[i]
	}
	out := make([]float64, len(union))
	last := allocated
	for i, d := range union {
		if v, ok := byDate[d]; ok {
			out[i] = v
			last = v
			continue
		}
		if policy == model.GapForwardFill {
			out[i] = last
		}
	}
	return out
}
