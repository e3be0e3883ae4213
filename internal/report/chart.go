package report

import (
	"errors"
	"strings"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/model"

	"github.com/vicanso/go-charts/v2"
)

func chartSplit(n int) int {
	switch {
	case n <= 30:
		return 6
	case n <= 120:
		return 8
	default:
		return 12
	}
}

// EquityChart renders a ticker's equity curve next to its price as a PNG.
// Both series are indexed to 100 so they share an axis.
func EquityChart(res *model.TickerResult) ([]byte, error) {
	if res.Equity == nil || len(res.Equity.Points) == 0 {
		return nil, errors.New("no equity points")
	}
	pts := res.Equity.Points
	x := make([]string, len(pts))
	equity := make([]float64, len(pts))
	price := make([]float64, len(pts))
	for i, p := range pts {
		x[i] = p.Date.Format(model.DateLayout)
		equity[i] = Clean(p.Total / res.Equity.InitialCapital * 100)
		price[i] = Clean(p.Price / pts[0].Price * 100)
	}

	painter, err := charts.LineRender([][]float64{equity, price},
		charts.TitleTextOptionFunc(strings.ToUpper(res.Ticker)+" • strategy vs buy & hold"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: x, BoundaryGap: charts.FalseFlag(), SplitNumber: chartSplit(len(x))}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"strategy", "buy & hold"}}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// PortfolioChart renders the aggregate portfolio value as a PNG.
func PortfolioChart(res *analysis.PortfolioResult) ([]byte, error) {
	alloc := res.Allocation
	if alloc == nil || len(alloc.Dates) == 0 {
		return nil, errors.New("no portfolio dates")
	}
	x := formatDates(alloc.Dates)
	painter, err := charts.LineRender([][]float64{CleanList(alloc.PortfolioValues)},
		charts.TitleTextOptionFunc("Portfolio • "+strings.Join(tickerNames(alloc), ", ")),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: x, BoundaryGap: charts.FalseFlag(), SplitNumber: chartSplit(len(x))}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

func tickerNames(alloc *model.AllocationResult) []string {
	out := make([]string, len(alloc.Tickers))
	for i, ta := range alloc.Tickers {
		out[i] = ta.Ticker
	}
	return out
}
