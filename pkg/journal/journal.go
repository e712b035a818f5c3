package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vango-dev/reactor/pkg/reactor"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS writes (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	key_node INTEGER NOT NULL,
	key_name TEXT NOT NULL,
	version  INTEGER NOT NULL,
	value    TEXT NOT NULL,
	at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS writes_run ON writes(run_id, id);
CREATE TABLE IF NOT EXISTS drains (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	pass        INTEGER NOT NULL,
	runs        INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	remaining   INTEGER NOT NULL,
	failures    INTEGER NOT NULL,
	duration_us INTEGER NOT NULL,
	error       TEXT NOT NULL,
	at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS drains_run ON drains(run_id, id);
`

// Journal records store writes and drain passes of one runtime in SQLite.
// Each Journal is one run, identified by a random id; several runs can share
// a database file.
//
// Attach it to a runtime on both sides:
//
//	store := reactor.NewMemoryStore(reactor.WithWriteObserver(j.ObserveWrite))
//	rt := reactor.New(reactor.WithStore(store), reactor.WithObserver(j))
type Journal struct {
	reactor.NopObserver

	db     *sql.DB
	run    string
	logger *slog.Logger
	now    func() time.Time

	// failed counts records that could not be written.
	failed atomic.Int64
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// Open opens (or creates) the database at path and starts a new run.
func Open(ctx context.Context, path, label string, opts ...Option) (*Journal, error) {
	j, err := open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	j.run = uuid.NewString()
	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`,
		j.run, label, j.now().UTC().UnixMilli()); err != nil {
		_ = j.db.Close()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return j, nil
}

// OpenReader opens the database at path for reading past runs without
// starting a new one. Its RunID is empty, so Writes and Drains need an
// explicit run.
func OpenReader(ctx context.Context, path string, opts ...Option) (*Journal, error) {
	return open(ctx, path, opts)
}

func open(ctx context.Context, path string, opts []Option) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Records are written from the runtime goroutine, one at a time.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	j := &Journal{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RunID returns the id of the run being recorded.
func (j *Journal) RunID() string {
	return j.run
}

// Failed returns the number of records that could not be written.
func (j *Journal) Failed() int64 {
	return j.failed.Load()
}

// ObserveWrite records one store write. Its signature matches
// reactor.WriteObserver.
func (j *Journal) ObserveWrite(key reactor.Key, value any, version reactor.Version) {
	_, err := j.db.Exec(
		`INSERT INTO writes (run_id, key_node, key_name, version, value, at) VALUES (?, ?, ?, ?, ?, ?)`,
		j.run, int64(key.Node), key.Name, int64(version), encodeValue(value), j.now().UTC().UnixMilli())
	if err != nil {
		j.failed.Add(1)
		j.logger.Warn("journal write failed", "key", key.String(), "error", err)
	}
}

// OnDrain implements reactor.Observer.
func (j *Journal) OnDrain(report reactor.DrainReport, drainErr error) {
	errText := ""
	if drainErr != nil {
		errText = drainErr.Error()
	}
	_, err := j.db.Exec(
		`INSERT INTO drains (run_id, pass, runs, skipped, remaining, failures, duration_us, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.run, int64(report.Pass), report.Runs, report.Skipped, report.Remaining,
		len(report.Failures), report.Duration.Microseconds(), errText, j.now().UTC().UnixMilli())
	if err != nil {
		j.failed.Add(1)
		j.logger.Warn("journal drain failed", "pass", report.Pass, "error", err)
	}
}

func encodeValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(data)
}

// RunRecord is one recorded run.
type RunRecord struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	StartedAt time.Time `json:"startedAt"`
}

// WriteRecord is one recorded store write.
type WriteRecord struct {
	Key     reactor.Key     `json:"key"`
	Version reactor.Version `json:"version"`
	Value   json.RawMessage `json:"value"`
	At      time.Time       `json:"at"`
}

// DrainRecord is one recorded drain pass.
type DrainRecord struct {
	Pass      uint64        `json:"pass"`
	Runs      int           `json:"runs"`
	Skipped   int           `json:"skipped"`
	Remaining int           `json:"remaining"`
	Failures  int           `json:"failures"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}

// Runs lists every run in the database, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, label, started_at FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started int64
		if err := rows.Scan(&r.ID, &r.Label, &started); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Writes returns the writes of run in order. An empty run means the current
// one. limit <= 0 returns every write.
func (j *Journal) Writes(ctx context.Context, run string, limit int) ([]WriteRecord, error) {
	if run == "" {
		run = j.run
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT key_node, key_name, version, value, at FROM writes WHERE run_id = ? ORDER BY id LIMIT ?`,
		run, limit)
	if err != nil {
		return nil, fmt.Errorf("query writes: %w", err)
	}
	defer rows.Close()

	var out []WriteRecord
	for rows.Next() {
		var w WriteRecord
		var node, version, at int64
		var value string
		if err := rows.Scan(&node, &w.Key.Name, &version, &value, &at); err != nil {
			return nil, fmt.Errorf("scan write: %w", err)
		}
		w.Key.Node = reactor.NodeID(node)
		w.Version = reactor.Version(version)
		w.Value = json.RawMessage(value)
		w.At = time.UnixMilli(at).UTC()
		out = append(out, w)
	}
	return out, rows.Err()
}

// Drains returns the drain passes of run in order. An empty run means the
// current one.
func (j *Journal) Drains(ctx context.Context, run string) ([]DrainRecord, error) {
	if run == "" {
		run = j.run
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT pass, runs, skipped, remaining, failures, duration_us, error, at FROM drains WHERE run_id = ? ORDER BY id`,
		run)
	if err != nil {
		return nil, fmt.Errorf("query drains: %w", err)
	}
	defer rows.Close()

	var out []DrainRecord
	for rows.Next() {
		var d DrainRecord
		var pass, durUS, at int64
		if err := rows.Scan(&pass, &d.Runs, &d.Skipped, &d.Remaining, &d.Failures, &durUS, &d.Error, &at); err != nil {
			return nil, fmt.Errorf("scan drain: %w", err)
		}
		d.Pass = uint64(pass)
		d.Duration = time.Duration(durUS) * time.Microsecond
		d.At = time.UnixMilli(at).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}
