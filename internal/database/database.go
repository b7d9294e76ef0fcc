package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Dialect identifies the SQL flavour a driver speaks
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

const dbTimeout = 5 * time.Second

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// Options controls how a connection is opened
type Options struct {
	Driver      string
	URL         string
	Attempts    int
	LockTimeout time.Duration
}

// Connect opens a pool and pings it, backing off between failed attempts.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*sql.DB, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn := opts.URL
	if dialect == SQLite {
		dsn = sqliteDSN(dsn, opts.LockTimeout)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == Postgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var counts int64
	for {
		pingCtx, cancel := context.WithTimeout(ctx, dbTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			logger.Info("Connected to database", zap.String("driver", opts.Driver))
			return db, nil
		}

		counts++
		logger.Warn("Database not yet ready, retrying...",
			zap.Int64("attempt", counts),
			zap.Error(err),
		)
		if counts >= int64(attempts) {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", counts, err)
		}

		backOff := time.Duration(math.Pow(float64(counts), 2)) * time.Second
		logger.Debug("Backing off", zap.Duration("duration", backOff))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(backOff):
		}
	}
}

// sqliteDSN makes writers take the database lock at BEGIN and bounds how
// long they wait for it.
func sqliteDSN(dsn string, lockTimeout time.Duration) string {
	if lockTimeout <= 0 {
		lockTimeout = 2 * time.Second
	}
	params := []string{"_txlock=immediate", "_foreign_keys=1", "_busy_timeout=" + strconv.FormatInt(lockTimeout.Milliseconds(), 10)}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range params {
		name := p[:strings.Index(p, "=")+1]
		if strings.Contains(dsn, name) {
			continue
		}
		dsn += sep + p
		sep = "&"
	}
	return dsn
}

// Rebind rewrites $n placeholders into the form the dialect expects.
func Rebind(dialect Dialect, query string) string {
	if dialect != SQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}
