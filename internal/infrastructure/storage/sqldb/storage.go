// Package sqldb implements the kiosk repositories over database/sql. SQLite is the default
// engine on the kiosk itself; PostgreSQL is supported for shared deployments.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"libkiosk/internal/config"
)

// sqliteOptions are added to every SQLite DSN that does not set the same key itself.
var sqliteOptions = [][2]string{
	{"_foreign_keys", "on"},
	{"_journal_mode", "WAL"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
}

type Storage struct {
	db       *sql.DB
	postgres bool
	log      *slog.Logger
}

// Open connects to the configured database. Migrations are applied separately.
func Open(ctx context.Context, cfg config.DB, log *slog.Logger) (*Storage, error) {
	var driverName, dsn string

	switch cfg.Driver {
	case config.DriverPostgres:
		driverName, dsn = "pgx", cfg.DSN
	case config.DriverSQLite:
		path := cfg.SQLitePath()
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		driverName, dsn = "sqlite3", sqliteDSN(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	log.Info("database opened", "driver", cfg.Driver)

	return &Storage{
		db:       db,
		postgres: cfg.Driver == config.DriverPostgres,
		log:      log.With("component", "storage"),
	}, nil
}

func sqliteDSN(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")

	set, err := url.ParseQuery(query)
	if err != nil {
		set = url.Values{}
	}

	params := make([]string, 0, len(sqliteOptions)+1)
	if query != "" {
		params = append(params, query)
	}
	for _, opt := range sqliteOptions {
		if !set.Has(opt[0]) {
			params = append(params, opt[0]+"="+opt[1])
		}
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping is used by the health endpoint.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Storage) rebind(query string) string {
	if !s.postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// forUpdate locks selected rows on PostgreSQL. SQLite transactions already hold the write
// lock from BEGIN IMMEDIATE.
func (s *Storage) forUpdate() string {
	if s.postgres {
		return " FOR UPDATE"
	}
	return ""
}
