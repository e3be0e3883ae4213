package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"StrategyLab/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	Limiter   *rate.Limiter
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a Yahoo fetcher with optional proxy support.
// requestsPerSecond <= 0 disables rate limiting.
func NewYahooFetcher(proxyURL string, requestsPerSecond float64) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &YahooFetcher{
		BaseURL: defaultYahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Limiter: limiter,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the subset of the v8 chart response we read. Quote fields are
// pointers because Yahoo emits null for holidays and halted sessions.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

// FetchHistory downloads daily bars covering [start, end] inclusive.
func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (*model.PriceSeries, error) {
	if interval == "" {
		interval = "1d"
	}
	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrDataUnavailable, err)
	}

	params := url.Values{}
	params.Set("interval", interval)
	params.Set("includeAdjustedClose", "true")
	params.Set("events", "history")
	params.Set("period1", fmt.Sprint(model.TruncateToDate(start).Unix()))
	// end date is inclusive
	params.Set("period2", fmt.Sprint(model.TruncateToDate(end).AddDate(0, 0, 1).Unix()))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch %s: %v", ErrDataUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo %s: status %d, body: %s", ErrDataUnavailable, symbol, resp.StatusCode, truncate(string(body), 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrDataUnavailable, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error for %s: %s", ErrDataUnavailable, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no data returned for %s", ErrDataUnavailable, symbol)
	}

	bars := parseBars(&chart)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no usable bars for %s", ErrDataUnavailable, symbol)
	}
	log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("yahoo history fetched")

	return &model.PriceSeries{
		Symbol:    strings.ToUpper(symbol),
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}

// parseBars converts the chart payload into date-ordered, de-duplicated bars.
// Bars without an adjusted close are dropped; the close stands in when Yahoo
// sends no adjclose block at all.
func parseBars(chart *yahooChart) []model.Bar {
	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	adj := quote.Close
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	byDate := make(map[time.Time]model.Bar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		ac, ok := at(adj, i)
		if !ok || ac <= 0 {
			continue
		}
		o, _ := at(quote.Open, i)
		h, _ := at(quote.High, i)
		l, _ := at(quote.Low, i)
		c, _ := at(quote.Close, i)
		v, _ := at(quote.Volume, i)
		d := model.TruncateToDate(time.Unix(ts, 0).UTC())
		// a later timestamp for the same date (e.g. intraday last bar) wins
		byDate[d] = model.Bar{Date: d, Open: o, High: h, Low: l, Close: c, AdjClose: ac, Volume: int64(v)}
	}

	bars := make([]model.Bar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
