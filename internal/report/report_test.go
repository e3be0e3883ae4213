package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"StrategyLab/internal/allocation"
	"StrategyLab/internal/analysis"
	"StrategyLab/internal/backtest"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Flat, then up, then down: one MA(5/20) round trip.
func riseThenFall() []float64 {
	var p []float64
	for i := 0; i < 30; i++ {
		p = append(p, 100)
	}
	for i := 30; i < 50; i++ {
		p = append(p, float64(71+i))
	}
	for j := 0; j < 30; j++ {
		p = append(p, float64(118-2*j))
	}
	return p
}

func evaluate(t *testing.T, symbol string, closes []float64) *model.TickerResult {
	t.Helper()
	params := strategy.Params{ShortWindow: 5, LongWindow: 20, RSIPeriod: 14, RSIOversold: 35, RSIOverbought: 70}
	res, err := analysis.Evaluate(model.NewDailySeries(symbol, start, closes), params,
		backtest.Options{InitialCapital: allocation.DefaultNotionalCapital}, 0.02)
	require.NoError(t, err)
	return res
}

func portfolio(t *testing.T) *analysis.PortfolioResult {
	t.Helper()
	flat := make([]float64, 80)
	for i := range flat {
		flat[i] = 50
	}
	alloc, err := allocation.Allocate(
		[]*model.TickerResult{evaluate(t, "AAA", riseThenFall()), evaluate(t, "BBB", flat)},
		allocation.DefaultOptions(100000),
	)
	require.NoError(t, err)
	return &analysis.PortfolioResult{
		RunID:       "run-1",
		Allocation:  alloc,
		Diagnostics: []model.TickerDiagnostic{{Ticker: "ZZZ", Kind: model.DiagDataUnavailable, Message: "no data"}},
		FinishedAt:  time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, 0.0, Clean(math.NaN()))
	assert.Equal(t, 0.0, Clean(math.Inf(-1)))
	assert.Equal(t, 3.5, Clean(3.5))
	assert.Equal(t, []float64{0, 1, 0}, CleanList([]float64{math.NaN(), 1, math.Inf(1)}))
}

func TestNewTickerView(t *testing.T) {
	v := NewTickerView(evaluate(t, "AAA", riseThenFall()))

	assert.Len(t, v.Dates, 80)
	assert.Len(t, v.PortfolioValues, 80)
	assert.Equal(t, "2024-01-01", v.Dates[0])
	require.Len(t, v.Buys, 1)
	require.Len(t, v.Sells, 1)
	assert.Equal(t, 101.0, v.Buys[0].Price)
	assert.Equal(t, 108.0, v.Sells[0].Price)
	assert.Equal(t, 0.0, v.RSI[0], "warm-up RSI is cleaned to 0")

	_, err := json.Marshal(v)
	assert.NoError(t, err)
}

func TestNewPortfolioView(t *testing.T) {
	res := portfolio(t)
	v := NewPortfolioView(res)

	require.Len(t, v.Stocks, 2)
	assert.Equal(t, "run-1", v.RunID)
	assert.Equal(t, 100000.0, v.TotalCapital)
	assert.Len(t, v.Dates, len(v.PortfolioValues))
	require.Len(t, v.Excluded, 1)
	assert.Equal(t, "data_unavailable", v.Excluded[0].Kind)

	var total float64
	for _, s := range v.Stocks {
		total += s.AllocationPct
		assert.Len(t, s.Values, len(s.Dates))
	}
	assert.InDelta(t, 100, total, 1e-9)

	// BBB is flat, so its Sharpe is NaN; the encoded payload must still be valid.
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "NaN")
}

func TestFormatTicker(t *testing.T) {
	msg := FormatTicker(evaluate(t, "AAA", riseThenFall()))
	assert.Contains(t, msg, "<b>AAA backtest</b>")
	assert.Contains(t, msg, "MA 5/20")
	assert.Contains(t, msg, "Win rate: 100.0% (1/1)")
	assert.Contains(t, msg, "Last signal: SELL")
	assert.Contains(t, msg, "RSI(14, Wilder)")
	assert.Contains(t, msg, "SMA50: ")
}

func TestFormatPortfolio(t *testing.T) {
	msg := FormatPortfolio(portfolio(t))
	assert.Contains(t, msg, "Sharpe-weighted")
	assert.Contains(t, msg, "<b>AAA</b>")
	assert.Contains(t, msg, "<b>BBB</b>")
	assert.Contains(t, msg, "ZZZ: data_unavailable")
	assert.True(t, strings.HasSuffix(msg, "<code>run-1</code>"))
}

func TestTakeSnapshot(t *testing.T) {
	snap, err := TakeSnapshot(model.NewDailySeries("AAA", start, riseThenFall()))
	require.NoError(t, err)
	assert.Equal(t, 60.0, snap.Price)
	assert.InDelta(t, 120*1.005, snap.High52w, 1e-9)
	assert.InDelta(t, 60*0.995, snap.Low52w, 1e-9)
	// Last 50 closes: 101..120 rising, then 118 down to 60 by 2.
	want := 0.0
	for _, c := range riseThenFall()[30:] {
		want += c
	}
	assert.InDelta(t, want/50, snap.SMA50, 1e-9)

	short, err := TakeSnapshot(model.NewDailySeries("AAA", start, []float64{10, 11, 12}))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(short.SMA50))

	_, err = TakeSnapshot(&model.PriceSeries{})
	assert.Error(t, err)
}

func TestCharts(t *testing.T) {
	png := []byte("\x89PNG")

	img, err := EquityChart(evaluate(t, "AAA", riseThenFall()))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, png))

	img, err = PortfolioChart(portfolio(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, png))

	_, err = EquityChart(&model.TickerResult{})
	assert.Error(t, err)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "AAA run-1", PlainText("<b>AAA</b> <code>run-1</code>"))
}
