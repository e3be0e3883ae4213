package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// dialect captures the few differences between the supported databases.
type dialect struct {
	name       string
	primaryKey string
	dollarArgs bool
}

var (
	sqliteDialect   = dialect{name: "sqlite", primaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgresDialect = dialect{name: "postgres", primaryKey: "BIGSERIAL PRIMARY KEY", dollarArgs: true}
)

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (d dialect) rebind(q string) string {
	if !d.dollarArgs {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLRecorder persists run history through database/sql.
type SQLRecorder struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

func newSQLRecorder(db *sql.DB, d dialect) (*SQLRecorder, error) {
	r := &SQLRecorder{db: db, dialect: d}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLRecorder) migrate() error {
	pk := r.dialect.primaryKey
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS portfolio_runs (
			id               ` + pk + `,
			run_id           TEXT NOT NULL UNIQUE,
			created_at       BIGINT NOT NULL,
			tickers          TEXT,
			total_capital    DOUBLE PRECISION,
			smart            INTEGER,
			gap_policy       TEXT,
			total_profit     DOUBLE PRECISION,
			total_return_pct DOUBLE PRECISION,
			excluded         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON portfolio_runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS run_allocations (
			id                ` + pk + `,
			run_id            TEXT NOT NULL,
			ticker            TEXT NOT NULL,
			allocated_capital DOUBLE PRECISION,
			weight_pct        DOUBLE PRECISION,
			profit            DOUBLE PRECISION,
			return_pct        DOUBLE PRECISION,
			sharpe_ratio      DOUBLE PRECISION,
			max_drawdown_pct  DOUBLE PRECISION,
			win_rate_pct      DOUBLE PRECISION,
			total_trades      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alloc_run ON run_allocations(run_id)`,

		`CREATE TABLE IF NOT EXISTS run_diagnostics (
			id      ` + pk + `,
			run_id  TEXT NOT NULL,
			ticker  TEXT NOT NULL,
			kind    TEXT,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diag_run ON run_diagnostics(run_id)`,
	}

	for i, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// RecordRun stores a run and its per-ticker rows in one transaction.
func (r *SQLRecorder) RecordRun(ctx context.Context, rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	smart := 0
	if rec.Smart {
		smart = 1
	}
	if _, err := tx.ExecContext(ctx, r.dialect.rebind(`INSERT INTO portfolio_runs
		(run_id, created_at, tickers, total_capital, smart, gap_policy, total_profit, total_return_pct, excluded)
		VALUES (?,?,?,?,?,?,?,?,?)`),
		rec.RunID, rec.CreatedAt.Unix(), joinTickers(rec.Tickers), rec.TotalCapital, smart,
		string(rec.GapPolicy), nullable(rec.TotalProfit), nullable(rec.TotalReturnPct), len(rec.Diagnostics),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, a := range rec.Allocations {
		if _, err := tx.ExecContext(ctx, r.dialect.rebind(`INSERT INTO run_allocations
			(run_id, ticker, allocated_capital, weight_pct, profit, return_pct, sharpe_ratio, max_drawdown_pct, win_rate_pct, total_trades)
			VALUES (?,?,?,?,?,?,?,?,?,?)`),
			rec.RunID, a.Ticker, a.AllocatedCapital, a.WeightPct, nullable(a.Profit), nullable(a.ReturnPct),
			nullable(a.SharpeRatio), nullable(a.MaxDrawdownPct), a.WinRatePct, a.TotalTrades,
		); err != nil {
			return fmt.Errorf("insert allocation %s: %w", a.Ticker, err)
		}
	}

	for _, d := range rec.Diagnostics {
		if _, err := tx.ExecContext(ctx, r.dialect.rebind(`INSERT INTO run_diagnostics
			(run_id, ticker, kind, message) VALUES (?,?,?,?)`),
			rec.RunID, d.Ticker, string(d.Kind), d.Message,
		); err != nil {
			return fmt.Errorf("insert diagnostic %s: %w", d.Ticker, err)
		}
	}
	return tx.Commit()
}

// RecentRuns lists the newest runs first.
func (r *SQLRecorder) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`SELECT run_id, created_at, tickers, total_capital,
		total_profit, total_return_pct, excluded
		FROM portfolio_runs ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s       RunSummary
			ts      int64
			tickers sql.NullString
			profit  sql.NullFloat64
			ret     sql.NullFloat64
		)
		if err := rows.Scan(&s.RunID, &ts, &tickers, &s.TotalCapital, &profit, &ret, &s.Excluded); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.CreatedAt = time.Unix(ts, 0)
		s.Tickers = splitTickers(tickers.String)
		s.TotalProfit = profit.Float64
		s.TotalReturnPct = ret.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLRecorder) Close() error {
	log.Info().Str("driver", r.dialect.name).Msg("closing recorder")
	return r.db.Close()
}
