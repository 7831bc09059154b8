// Package journal persists every host call to sqlite so a session can be
// inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/host"
)

const (
	queueSize     = 256
	maxBatch      = 64
	dropLogPeriod = 10 * time.Second
)

var ErrClosed = errors.New("journal closed")

const schema = `
CREATE TABLE IF NOT EXISTS host_calls (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT    NOT NULL,
	kind    TEXT    NOT NULL,
	at_ns   INTEGER NOT NULL,
	payload TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_host_calls_run ON host_calls(run_id, id);
`

// Entry is one journaled host call.
type Entry struct {
	ID    int64     `json:"id"`
	RunID string    `json:"runId"`
	Call  host.Call `json:"call"`
}

// Run summarises the calls recorded by one process run.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	LastAt    time.Time `json:"lastAt"`
	Calls     int       `json:"calls"`
}

// Journal is a host.Sink that writes calls through a single writer
// goroutine. Record never blocks; calls that do not fit in the queue are
// dropped and counted.
type Journal struct {
	db    *sql.DB
	runID string

	mu     sync.RWMutex
	closed bool
	queue  chan host.Call
	done   chan struct{}

	pending     atomic.Int64
	dropped     atomic.Uint64
	lastDropLog atomic.Int64
}

// Open opens (creating if needed) the journal database at path and starts
// a new run.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	j := &Journal{
		db:    db,
		runID: uuid.NewString(),
		queue: make(chan host.Call, queueSize),
		done:  make(chan struct{}),
	}
	go j.writeLoop()

	log.Info().Str("path", path).Str("run", j.runID).Msg("Journal opened")
	return j, nil
}

// RunID identifies this process run in the journal.
func (j *Journal) RunID() string { return j.runID }

// Dropped reports how many calls were discarded because the writer fell
// behind.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

func (j *Journal) Record(c host.Call) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	j.pending.Add(1)
	select {
	case j.queue <- c:
	default:
		j.pending.Add(-1)
		n := j.dropped.Add(1)
		now := time.Now().UnixNano()
		last := j.lastDropLog.Load()
		if now-last >= int64(dropLogPeriod) && j.lastDropLog.CompareAndSwap(last, now) {
			log.Warn().Uint64("dropped", n).Msg("Journal queue full, dropping host calls")
		}
	}
}

func (j *Journal) writeLoop() {
	defer close(j.done)
	batch := make([]host.Call, 0, maxBatch)
	for c := range j.queue {
		batch = append(batch[:0], c)
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-j.queue:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		if err := j.write(batch); err != nil {
			log.Error().Err(err).Int("calls", len(batch)).Msg("Journal write failed")
		}
		j.pending.Add(-int64(len(batch)))
	}
}

func (j *Journal) write(batch []host.Call) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO host_calls (run_id, kind, at_ns, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range batch {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", c.Kind, err)
		}
		if _, err := stmt.Exec(j.runID, string(c.Kind), c.At.UnixNano(), string(payload)); err != nil {
			return fmt.Errorf("inserting %s: %w", c.Kind, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit of the newest entries across all runs, newest
// first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j.isClosed() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, payload FROM host_calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &payload); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Call); err != nil {
			return nil, fmt.Errorf("decoding journal row %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Runs lists every recorded run, most recent first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	if j.isClosed() {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, MIN(at_ns), MAX(at_ns), COUNT(*)
		FROM host_calls
		GROUP BY run_id
		ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r             Run
			first, latest int64
		)
		if err := rows.Scan(&r.ID, &first, &latest, &r.Calls); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.Unix(0, first)
		r.LastAt = time.Unix(0, latest)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Flush blocks until every call queued so far has been written, or ctx is
// done.
func (j *Journal) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for j.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (j *Journal) isClosed() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.closed
}

// Close drains the queue, stops the writer and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	if n := j.dropped.Load(); n > 0 {
		log.Warn().Uint64("dropped", n).Msg("Journal closed with dropped calls")
	}
	return j.db.Close()
}
