package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// NewPostgresRecorder connects to Postgres and runs migrations.
func NewPostgresRecorder(ctx context.Context, dsn string) (*SQLRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r, err := newSQLRecorder(db, postgresDialect)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("postgres recorder opened")
	return r, nil
}

// Open picks a recorder for the configured driver. An empty driver yields a NoopRecorder.
func Open(ctx context.Context, driver, dsn string) (Recorder, error) {
	switch driver {
	case "":
		return NewNoopRecorder(), nil
	case "sqlite":
		return NewSQLiteRecorder(dsn)
	case "postgres":
		return NewPostgresRecorder(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
