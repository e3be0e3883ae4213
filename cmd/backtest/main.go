package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/collector"
	"StrategyLab/internal/config"
	"StrategyLab/internal/logger"
	"StrategyLab/internal/model"
	"StrategyLab/internal/report"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		cfgPath  = flag.String("config", "configs/config.yaml", "config file (missing file uses defaults)")
		tickers  = flag.String("tickers", "", "comma-separated tickers; one ticker runs a single backtest")
		startStr = flag.String("start", "", "start date YYYY-MM-DD (default: end minus portfolio.lookback_days)")
		endStr   = flag.String("end", "", "end date YYYY-MM-DD (default: today)")
		capital  = flag.Float64("capital", 0, "total capital (default from config)")
		short    = flag.Int("short", 0, "short MA window (default from config)")
		long     = flag.Int("long", 0, "long MA window (default from config)")
		noRSI    = flag.Bool("no-rsi", false, "disable the RSI filter")
		equal    = flag.Bool("equal", false, "equal weights instead of Sharpe-weighted")
		stopLoss = flag.Float64("stop-loss", -1, "stop-loss fraction, e.g. 0.1 (default from config)")
		gap      = flag.String("gap", "", "gap policy: zero or forward_fill")
		asJSON   = flag.Bool("json", false, "print JSON instead of text")
		chart    = flag.String("chart", "", "write a PNG chart to this path")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger.Init("strategylab-backtest", cfg.LogLevel)

	if *tickers != "" {
		cfg.Portfolio.Tickers = strings.Split(*tickers, ",")
	}
	if *capital > 0 {
		cfg.Portfolio.TotalCapital = *capital
		cfg.Backtest.InitialCapital = *capital
	}
	if *short > 0 {
		cfg.Strategy.ShortWindow = *short
	}
	if *long > 0 {
		cfg.Strategy.LongWindow = *long
	}
	if *noRSI {
		off := false
		cfg.Strategy.UseRSIFilter = &off
	}
	if *equal {
		off := false
		cfg.Portfolio.SmartAllocation = &off
	}
	if *stopLoss >= 0 {
		cfg.Backtest.StopLossPct = *stopLoss
	}
	if *gap != "" {
		cfg.Portfolio.GapPolicy = model.GapPolicy(*gap)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid options")
	}

	now := time.Now()
	if *endStr != "" {
		if now, err = time.Parse(model.DateLayout, *endStr); err != nil {
			log.Fatal().Err(err).Msg("parse -end")
		}
	}
	req := cfg.WatchlistRequest(now)
	if *startStr != "" {
		if req.Start, err = time.Parse(model.DateLayout, *startStr); err != nil {
			log.Fatal().Err(err).Msg("parse -start")
		}
	}

	fetcher, err := collector.New(cfg.DataSource.Provider, cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	if err != nil {
		log.Fatal().Err(err).Msg("init fetcher")
	}
	an := analysis.NewAnalyzer(fetcher, cfg.Portfolio.Workers)
	ctx := context.Background()

	tickerList := analysis.NormalizeTickers(req.Tickers)
	if len(tickerList) == 0 {
		log.Fatal().Msg("no tickers: pass -tickers or set portfolio.tickers")
	}

	var (
		text     string
		view     any
		img      []byte
		chartErr error
	)
	if len(tickerList) == 1 {
		treq := cfg.TickerRequest(tickerList[0], now)
		treq.Start = req.Start
		res, err := an.RunTicker(ctx, treq)
		if err != nil {
			log.Fatal().Err(err).Str("ticker", tickerList[0]).Msg("backtest failed")
		}
		text, view = report.FormatTicker(res), report.NewTickerView(res)
		if *chart != "" {
			img, chartErr = report.EquityChart(res)
		}
	} else {
		res, err := an.RunPortfolio(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Msg("portfolio run failed")
		}
		text, view = report.FormatPortfolio(res), report.NewPortfolioView(res)
		if *chart != "" {
			img, chartErr = report.PortfolioChart(res)
		}
	}
	if chartErr != nil {
		log.Fatal().Err(chartErr).Msg("render chart")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			log.Fatal().Err(err).Msg("encode result")
		}
	} else {
		fmt.Println(report.PlainText(text))
	}

	if *chart != "" {
		if err := os.WriteFile(*chart, img, 0o644); err != nil {
			log.Fatal().Err(err).Msg("write chart")
		}
		log.Info().Str("path", *chart).Msg("chart written")
	}
}
