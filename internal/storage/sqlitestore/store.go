// Package sqlitestore implements storage.Backend over a pure-Go
// modernc.org/sqlite database, the embeddable equivalent of
// `postgres-lopez`'s Postgres schema (original_source/postgres-lopez/src/db.rs)
// so the module has zero non-Go build dependencies. This is the default
// backend for `run`/`rm`/`page-rank` against a real wave (spec.md §7.3).
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/codepr/crawlwave/internal/storage"
	"github.com/codepr/crawlwave/internal/xhash"
)

// queue entry status values, matching spec.md §3's QueueEntry states.
const (
	statusOpen = iota
	statusTaken
	statusClosed
	statusErrored
)

const schema = `
CREATE TABLE IF NOT EXISTS waves (
	id    INTEGER PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS pages (
	wave_id   INTEGER NOT NULL,
	page_id   INTEGER NOT NULL,
	url       TEXT NOT NULL,
	depth     INTEGER NOT NULL,
	status    INTEGER NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (wave_id, page_id)
);
CREATE INDEX IF NOT EXISTS pages_status_depth ON pages (wave_id, status, depth);
CREATE TABLE IF NOT EXISTS edges (
	wave_id INTEGER NOT NULL,
	from_id INTEGER NOT NULL,
	to_id   INTEGER NOT NULL,
	reason  INTEGER NOT NULL,
	PRIMARY KEY (wave_id, from_id, to_id, reason)
);
CREATE TABLE IF NOT EXISTS analysis_schema (
	wave_id INTEGER NOT NULL,
	name    TEXT NOT NULL,
	type    TEXT NOT NULL,
	PRIMARY KEY (wave_id, name)
);
CREATE TABLE IF NOT EXISTS analyses (
	wave_id INTEGER NOT NULL,
	page_id INTEGER NOT NULL,
	name    TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (wave_id, page_id, name)
);
CREATE TABLE IF NOT EXISTS ranks (
	wave_id INTEGER NOT NULL,
	page_id INTEGER NOT NULL,
	rank    REAL NOT NULL,
	PRIMARY KEY (wave_id, page_id)
);
`

// Store is a single sqlite connection scoped to one wave, migrating its
// schema on open the same way postgres-lopez/src/db.rs runs its migrations
// on boot.
type Store struct {
	db     *sql.DB
	waveID int64
}

// Open opens (or creates) the sqlite file at path and resolves waveName to
// a durable wave row, creating it if this is the first time the wave is
// seen (spec.md §3: "re-opening a Wave adopts its existing state").
func Open(ctx context.Context, path, waveName string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite has no internal connection pool locking
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	waveID, err := resolveWaveID(ctx, db, waveName)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, waveID: waveID}, nil
}

func resolveWaveID(ctx context.Context, db *sql.DB, name string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM waves WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		id = xhash.PageID(name)
		_, err = db.ExecContext(ctx, `INSERT INTO waves (id, name) VALUES (?, ?)`, id, name)
	}
	return id, err
}

func (s *Store) Close() error { return s.db.Close() }

// Backend adapts *Store to storage.Backend.
type Backend struct{ Store *Store }

func (b Backend) BuildMaster(ctx context.Context) (storage.MasterBackend, error) {
	return b.Store, nil
}

func (b Backend) BuildWorkerFactory(ctx context.Context) (storage.WorkerBackendFactory, error) {
	return workerFactory{b.Store}, nil
}

func (b Backend) BuildRanker(ctx context.Context) (storage.PageRanker, error) {
	return b.Store, nil
}

func (b Backend) Remove(ctx context.Context) (storage.WaveRemoveReport, error) {
	var n int
	if err := b.Store.db.QueryRowContext(ctx, `SELECT count(*) FROM pages WHERE wave_id = ?`, b.Store.waveID).Scan(&n); err != nil {
		return storage.WaveRemoveReport{}, err
	}
	tx, err := b.Store.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.WaveRemoveReport{}, err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM pages WHERE wave_id = ?`,
		`DELETE FROM edges WHERE wave_id = ?`,
		`DELETE FROM analysis_schema WHERE wave_id = ?`,
		`DELETE FROM analyses WHERE wave_id = ?`,
		`DELETE FROM ranks WHERE wave_id = ?`,
		`DELETE FROM waves WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, b.Store.waveID); err != nil {
			return storage.WaveRemoveReport{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return storage.WaveRemoveReport{}, err
	}
	return storage.WaveRemoveReport{WasRemoved: true, RemovedPages: n}, nil
}

func (b Backend) Close() error { return b.Store.Close() }

type workerFactory struct{ store *Store }

func (f workerFactory) Build(ctx context.Context) (storage.WorkerBackend, error) {
	return f.store, nil
}

// --- MasterBackend ---

func (s *Store) WaveID() int64 { return s.waveID }

func (s *Store) EnsureSeeded(ctx context.Context, seeds []*url.URL) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, u := range seeds {
		id := xhash.PageID(u.String())
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (wave_id, page_id, url, depth, status) VALUES (?, ?, ?, 0, ?)
			 ON CONFLICT (wave_id, page_id) DO NOTHING`,
			s.waveID, id, u.String(), statusOpen); err != nil {
			return fmt.Errorf("sqlitestore: seed %s: %w", u, err)
		}
	}
	return tx.Commit()
}

func (s *Store) CreateAnalyses(ctx context.Context, analyses []storage.NamedType) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, a := range analyses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analysis_schema (wave_id, name, type) VALUES (?, ?, ?)
			 ON CONFLICT (wave_id, name) DO UPDATE SET type = excluded.type`,
			s.waveID, a.Name, a.Type.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CountCrawled(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM pages WHERE wave_id = ? AND status IN (?, ?)`,
		s.waveID, statusClosed, statusErrored).Scan(&n)
	return n, err
}

func (s *Store) ResetQueue(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pages SET status = ? WHERE wave_id = ? AND status = ?`,
		statusOpen, s.waveID, statusTaken)
	return err
}

func (s *Store) ExistsTaken(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM pages WHERE wave_id = ? AND status = ? LIMIT 1`,
		s.waveID, statusTaken).Scan(&n)
	return n > 0, err
}

func (s *Store) Fetch(ctx context.Context, batchSize, maxDepth int) ([]storage.QueueEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT page_id, url, depth FROM pages
		 WHERE wave_id = ? AND status = ? AND depth <= ?
		 ORDER BY depth ASC LIMIT ?`,
		s.waveID, statusOpen, maxDepth, batchSize)
	if err != nil {
		return nil, err
	}
	type row struct {
		id    int64
		raw   string
		depth int
	}
	var picked []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.raw, &r.depth); err != nil {
			rows.Close()
			return nil, err
		}
		picked = append(picked, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	out := make([]storage.QueueEntry, 0, len(picked))
	for _, r := range picked {
		parsed, err := url.Parse(r.raw)
		if err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET status = ? WHERE wave_id = ? AND page_id = ?`,
			statusTaken, s.waveID, r.id); err != nil {
			return nil, err
		}
		out = append(out, storage.QueueEntry{URL: parsed, Depth: r.depth})
	}
	return out, tx.Commit()
}

// --- WorkerBackend ---

func (s *Store) EnsureActive(ctx context.Context, u *url.URL) error { return nil }

func (s *Store) EnsureAnalyzed(ctx context.Context, u *url.URL, analyses []storage.NamedValue) error {
	id := xhash.PageID(u.String())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, a := range analyses {
		data, err := json.Marshal(a.Value)
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal analysis %q: %w", a.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analyses (wave_id, page_id, name, value) VALUES (?, ?, ?, ?)
			 ON CONFLICT (wave_id, page_id, name) DO UPDATE SET value = excluded.value`,
			s.waveID, id, a.Name, string(data)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) EnsureExplored(ctx context.Context, u *url.URL, statusCode, newDepth int, links []storage.OutLink) error {
	id := xhash.PageID(u.String())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currentStatus int
	err = tx.QueryRowContext(ctx, `SELECT status FROM pages WHERE wave_id = ? AND page_id = ?`, s.waveID, id).Scan(&currentStatus)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil && currentStatus == statusClosed {
		return tx.Commit() // queue monotonicity (spec.md §8): closed never regresses
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pages (wave_id, page_id, url, depth, status, status_code) VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (wave_id, page_id) DO UPDATE SET status = excluded.status, status_code = excluded.status_code`,
		s.waveID, id, u.String(), statusClosed, statusCode); err != nil {
		return err
	}

	for _, link := range links {
		toID := xhash.PageID(link.URL.String())
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (wave_id, from_id, to_id, reason) VALUES (?, ?, ?, ?)
			 ON CONFLICT (wave_id, from_id, to_id, reason) DO NOTHING`,
			s.waveID, id, toID, int(link.Reason)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (wave_id, page_id, url, depth, status) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (wave_id, page_id) DO NOTHING`,
			s.waveID, toID, link.URL.String(), newDepth, statusOpen); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) EnsureError(ctx context.Context, u *url.URL) error {
	id := xhash.PageID(u.String())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (wave_id, page_id, url, depth, status) VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (wave_id, page_id) DO UPDATE SET status = excluded.status`,
		s.waveID, id, u.String(), statusErrored)
	return err
}

// --- PageRanker ---

func (s *Store) Linkage(ctx context.Context, visit func(from, to int64) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id FROM edges WHERE wave_id = ?`, s.waveID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var from, to int64
		if err := rows.Scan(&from, &to); err != nil {
			return err
		}
		if err := visit(from, to); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) PushPageRanks(ctx context.Context, ranked []storage.RankedPage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, r := range ranked {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ranks (wave_id, page_id, rank) VALUES (?, ?, ?)
			 ON CONFLICT (wave_id, page_id) DO UPDATE SET rank = excluded.rank`,
			s.waveID, r.PageID, r.Rank); err != nil {
			return err
		}
	}
	return tx.Commit()
}
