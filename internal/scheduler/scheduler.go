package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/config"
	"StrategyLab/internal/notifier"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/report"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the configured watchlist on a cron expression and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer *analysis.Analyzer
	Notifier notifier.Notifier // nil when Telegram is not configured
	Recorder recorder.Recorder
	Config   *config.Config
	Ctx      context.Context
	Now      func() time.Time

	mu   sync.Mutex
	last *analysis.PortfolioResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cfg *config.Config, an *analysis.Analyzer, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Analyzer: an,
		Notifier: n,
		Recorder: rec,
		Config:   cfg,
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// Register adds the watchlist task. An empty expression leaves the scheduler idle.
func (s *Scheduler) Register(portfolioCron string) error {
	if portfolioCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(portfolioCron, s.watchlistTask); err != nil {
		return fmt.Errorf("register portfolio task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the watchlist task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.watchlistTask()
}

// Last returns the most recent portfolio run seen by this process.
func (s *Scheduler) Last() *analysis.PortfolioResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) watchlistTask() {
	log.Info().Strs("tickers", s.Config.Portfolio.Tickers).Msg("running watchlist task")
	s.runPortfolio(s.Config.WatchlistRequest(s.Now()))
}

func (s *Scheduler) runPortfolio(req analysis.PortfolioRequest) {
	res, err := s.Analyzer.RunPortfolio(s.Ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("portfolio run failed")
		s.trySend(fmt.Sprintf("❌ Portfolio run failed: %v", err))
		return
	}
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.trySend(report.FormatPortfolio(res))
	if img, err := report.PortfolioChart(res); err == nil {
		s.trySendPhoto("portfolio.png", img, "Portfolio value")
	} else {
		log.Warn().Err(err).Msg("render portfolio chart")
	}
}

func (s *Scheduler) runTicker(ticker string) {
	res, err := s.Analyzer.RunTicker(s.Ctx, s.Config.TickerRequest(ticker, s.Now()))
	if err != nil {
		log.Error().Err(err).Str("ticker", ticker).Msg("backtest failed")
		s.trySend(fmt.Sprintf("❌ %s: %v", ticker, err))
		return
	}
	s.trySend(report.FormatTicker(res))
	if img, err := report.EquityChart(res); err == nil {
		s.trySendPhoto(ticker+".png", img, ticker+" equity")
	}
}

const helpText = "Available commands:\n" +
	"• /run: run the watchlist portfolio\n" +
	"• /run AAPL MSFT: run a portfolio of the given tickers\n" +
	"• /backtest AAPL: backtest one ticker\n" +
	"• /last: show the last portfolio run\n" +
	"• /history: list recorded runs"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	name := fields[0]
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/run":
		req := s.Config.WatchlistRequest(s.Now())
		if len(args) > 0 {
			req.Tickers = args
		}
		s.runPortfolio(req)
		return ""
	case "/backtest":
		if len(args) != 1 {
			return "Usage: /backtest TICKER"
		}
		s.runTicker(strings.ToUpper(args[0]))
		return ""
	case "/last":
		last := s.Last()
		if last == nil {
			return "No portfolio run yet."
		}
		return report.FormatPortfolio(last)
	case "/history":
		return s.history(ctx)
	default:
		return helpText
	}
}

func (s *Scheduler) history(ctx context.Context) string {
	runs, err := s.Recorder.RecentRuns(ctx, 10)
	if err != nil {
		log.Error().Err(err).Msg("load run history")
		return "❌ Failed to load history."
	}
	if len(runs) == 0 {
		return "No recorded runs."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s  %s  %+.2f%%\n",
			r.CreatedAt.Format("2006-01-02 15:04"), strings.Join(r.Tickers, ","), r.TotalReturnPct))
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func (s *Scheduler) trySendPhoto(name string, img []byte, caption string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendPhoto(s.Ctx, name, img, caption); err != nil {
		log.Error().Err(err).Msg("send chart")
	}
}
