package performance

import (
	"math"
	"testing"
	"time"

	"StrategyLab/internal/backtest"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

var start = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)

func run(t *testing.T, prices []float64, p strategy.Params, capital float64) (model.PerformanceReport, *model.SignalSeries) {
	t.Helper()
	sig, err := strategy.GenerateSignals(model.NewDailySeries("T", start, prices), p)
	if err != nil {
		t.Fatalf("generate signals: %v", err)
	}
	curve, err := backtest.Simulate(sig, backtest.Options{InitialCapital: capital})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	report, _ := Analyze(curve, sig, DefaultRiskFreeRate)
	return report, sig
}

func TestAnalyze_NoTradesOnFlatSeries(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 42
	}
	report, sig := run(t, prices, strategy.Params{ShortWindow: 20, LongWindow: 50, RSIPeriod: 14}, 10000)
	for i, p := range sig.Points {
		if p.PositionChange != model.Hold {
			t.Fatalf("bar %d: unexpected position change %d", i, p.PositionChange)
		}
	}
	if report.TotalReturnPct != 0 {
		t.Errorf("expected 0 total return, got %.4f", report.TotalReturnPct)
	}
	if report.MaxDrawdownPct != 0 {
		t.Errorf("expected 0 drawdown, got %.4f", report.MaxDrawdownPct)
	}
	if report.WinRatePct != 0 {
		t.Errorf("expected 0 win rate, got %.4f", report.WinRatePct)
	}
	if !math.IsNaN(report.SharpeRatio) {
		t.Errorf("expected NaN sharpe for a flat curve, got %g", report.SharpeRatio)
	}
}

func TestAnalyze_SingleRoundTrip(t *testing.T) {
	var prices []float64
	for i := 0; i < 30; i++ {
		prices = append(prices, 100)
	}
	for i := 30; i < 50; i++ {
		prices = append(prices, float64(71+i))
	}
	for j := 0; j < 30; j++ {
		prices = append(prices, float64(118-2*j))
	}
	report, sig := run(t, prices, strategy.Params{ShortWindow: 5, LongWindow: 20, RSIPeriod: 14}, 10000)

	events := sig.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	buy, sell := sig.Points[events[0]].Price, sig.Points[events[1]].Price
	want := (sell/buy - 1) * 100
	if math.Abs(report.TotalReturnPct-want) > 1e-9 {
		t.Errorf("expected total return %.4f, got %.4f", want, report.TotalReturnPct)
	}
	wantWin := 0.0
	if sell > buy {
		wantWin = 100
	}
	if report.WinRatePct != wantWin {
		t.Errorf("expected win rate %.0f, got %.0f", wantWin, report.WinRatePct)
	}
	if report.TotalTrades != 1 {
		t.Errorf("expected 1 trade, got %d", report.TotalTrades)
	}
	if report.MaxDrawdownPct >= 0 {
		t.Errorf("expected a negative drawdown after the fall, got %.4f", report.MaxDrawdownPct)
	}
	if math.IsNaN(report.SharpeRatio) {
		t.Error("expected a defined Sharpe ratio")
	}
}

func TestSharpeRatio(t *testing.T) {
	if s := SharpeRatio([]float64{math.NaN(), 0, 0, 0}, 0.02); !math.IsNaN(s) {
		t.Errorf("expected NaN for zero variance, got %.4f", s)
	}
	if s := SharpeRatio([]float64{math.NaN()}, 0.02); !math.IsNaN(s) {
		t.Errorf("expected NaN without returns, got %.4f", s)
	}
	// Long constant runs leave rounding residue in the mean; still no variance.
	for _, n := range []int{10, 60, 100, 252, 1000} {
		flat := make([]float64, n)
		flat[0] = math.NaN()
		if s := SharpeRatio(flat, 0.02); !math.IsNaN(s) {
			t.Errorf("n=%d: expected NaN for constant returns, got %g", n, s)
		}
		for i := 1; i < n; i++ {
			flat[i] = 0.003
		}
		if s := SharpeRatio(flat, 0.02); !math.IsNaN(s) {
			t.Errorf("n=%d: expected NaN for constant non-zero returns, got %g", n, s)
		}
	}
	returns := []float64{math.NaN(), 0.01, -0.005, 0.02, 0.0}
	// mean excess / sample stdev * sqrt(252)
	rf := 0.02 / 252
	ex := []float64{0.01 - rf, -0.005 - rf, 0.02 - rf, -rf}
	mean := (ex[0] + ex[1] + ex[2] + ex[3]) / 4
	ss := 0.0
	for _, v := range ex {
		ss += (v - mean) * (v - mean)
	}
	want := math.Sqrt(252) * mean / math.Sqrt(ss/3)
	if got := SharpeRatio(returns, 0.02); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.6f, got %.6f", want, got)
	}
}

func TestMaxDrawdownPct(t *testing.T) {
	tests := []struct {
		values []float64
		want   float64
	}{
		{[]float64{100, 101, 102}, 0},
		{[]float64{100, 100, 100}, 0},
		{[]float64{100, 120, 90, 130, 117}, -25},
		{[]float64{100, 50}, -50},
	}
	for _, tt := range tests {
		if got := MaxDrawdownPct(tt.values); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%v: expected %.2f, got %.2f", tt.values, tt.want, got)
		}
	}
}

func TestWinRatePct(t *testing.T) {
	if WinRatePct(0, 0) != 0 {
		t.Error("expected 0 with no trades")
	}
	if got := WinRatePct(1, 4); got != 25 {
		t.Errorf("expected 25, got %.2f", got)
	}
}
