package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS forms (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	token      TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sections (
	id       TEXT PRIMARY KEY,
	form_id  TEXT NOT NULL REFERENCES forms(id),
	name     TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sections_form ON sections(form_id, position);

CREATE TABLE IF NOT EXISTS fields (
	id         TEXT PRIMARY KEY,
	section_id TEXT NOT NULL REFERENCES sections(id),
	label      TEXT NOT NULL,
	type       TEXT NOT NULL CHECK (type IN ('text', 'number')),
	position   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fields_section ON fields(section_id, position);

CREATE TABLE IF NOT EXISTS submissions (
	id         TEXT PRIMARY KEY,
	form_id    TEXT NOT NULL REFERENCES forms(id),
	token      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_id, created_at);

CREATE TABLE IF NOT EXISTS submission_values (
	id            TEXT PRIMARY KEY,
	submission_id TEXT NOT NULL REFERENCES submissions(id),
	field_id      TEXT NOT NULL REFERENCES fields(id),
	position      INTEGER NOT NULL,
	value         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_values_submission ON submission_values(submission_id, position);
`

// DB wraps the SQLite handle and keeps a health flag fresh in the background.
type DB struct {
	*sql.DB
	path    string
	log     *zap.Logger
	healthy atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// Open opens (creating if needed) the database at path, applies the schema
// and starts a pinger that checks the connection every interval.
// A zero interval disables the pinger.
func Open(path string, poolSize int, interval time.Duration, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	if poolSize > 0 {
		sqlDB.SetMaxOpenConns(poolSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db: apply schema: %w", err)
	}

	d := &DB{
		DB:   sqlDB,
		path: path,
		log:  log,
		stop: make(chan struct{}),
	}
	d.healthy.Store(true)
	if interval > 0 {
		d.wg.Add(1)
		go d.healthcheck(interval)
	}
	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Healthy reports the result of the most recent ping.
func (d *DB) Healthy() bool {
	return d.healthy.Load()
}

func (d *DB) healthcheck(interval time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := d.PingContext(ctx)
			cancel()
			was := d.healthy.Swap(err == nil)
			switch {
			case err != nil && was:
				d.log.Warn("db: ping failed", zap.String("path", d.path), zap.Error(err))
			case err == nil && !was:
				d.log.Info("db: connection recovered", zap.String("path", d.path))
			}
		}
	}
}

// Close stops the pinger and closes the database.
func (d *DB) Close() error {
	close(d.stop)
	d.wg.Wait()
	return d.DB.Close()
}
