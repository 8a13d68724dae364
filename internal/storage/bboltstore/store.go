// Package bboltstore implements storage.Backend over a single embedded
// go.etcd.io/bbolt file scoped to one wave — the Go-idiomatic equivalent
// of the original's embeddable sqlite backend for small local runs,
// grounded on the domain-stack survey in DESIGN.md (bbolt was the pack's
// only embedded single-file KV candidate). It backs any
// `run`/`rm`/`page-rank` invocation that passes `--backend=bbolt`.
package bboltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"os"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/codepr/crawlwave/internal/crawler/reason"
	"github.com/codepr/crawlwave/internal/storage"
	"github.com/codepr/crawlwave/internal/xhash"
)

var (
	bucketMeta     = []byte("meta")
	bucketQueue    = []byte("queue")
	bucketPages    = []byte("pages")
	bucketEdges    = []byte("edges")
	bucketSchema   = []byte("analysis_schema")
	bucketAnalyses = []byte("analyses")
	bucketScores   = []byte("scores")

	keyWaveID = []byte("wave_id")
)

// queue entry status bytes.
const (
	statusOpen = iota
	statusTaken
	statusClosed
	statusErrored
)

// Store is a bbolt-backed storage.Backend, scoped to the single wave whose
// name was passed to Open.
type Store struct {
	db     *bolt.DB
	waveID int64
}

// Open creates or opens the bbolt file at path, deriving the wave id from
// waveName deterministically (spec.md §3: "re-opening a Wave adopts its
// existing state").
func Open(path, waveName string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("bboltstore: open %s: %w", path, err)
	}
	waveID := xhash.PageID(waveName)
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketQueue, bucketPages, bucketEdges, bucketSchema, bucketAnalyses, bucketScores} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put(keyWaveID, encodeInt64(waveID))
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, waveID: waveID}, nil
}

// Remove deletes the bbolt file backing path entirely.
func Remove(path string) (storage.WaveRemoveReport, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return storage.WaveRemoveReport{}, nil
	}
	store, err := Open(path, "")
	if err != nil {
		return storage.WaveRemoveReport{}, err
	}
	n, err := store.pageCount()
	store.Close()
	if err != nil {
		return storage.WaveRemoveReport{}, err
	}
	if err := os.Remove(path); err != nil {
		return storage.WaveRemoveReport{}, err
	}
	return storage.WaveRemoveReport{WasRemoved: true, RemovedPages: n}, nil
}

func (s *Store) pageCount() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPages).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) Close() error { return s.db.Close() }

// Backend adapts *Store to storage.Backend, so one opened file serves as
// the program-lifetime handle a CLI subcommand builds master/worker/ranker
// views from.
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
	n, err := b.Store.pageCount()
	if err != nil {
		return storage.WaveRemoveReport{}, err
	}
	err = b.Store.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketQueue, bucketPages, bucketEdges, bucketSchema, bucketAnalyses, bucketScores} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.WaveRemoveReport{}, err
	}
	return storage.WaveRemoveReport{WasRemoved: true, RemovedPages: n}, nil
}

func (b Backend) Close() error { return b.Store.Close() }

// workerFactory hands out the same *Store to every shard; bbolt already
// serializes writers internally, so sharing one handle is safe.
type workerFactory struct{ store *Store }

func (f workerFactory) Build(ctx context.Context) (storage.WorkerBackend, error) {
	return f.store, nil
}

// --- MasterBackend ---

func (s *Store) WaveID() int64 { return s.waveID }

func (s *Store) EnsureSeeded(ctx context.Context, seeds []*url.URL) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		pages := tx.Bucket(bucketPages)
		for _, u := range seeds {
			id := xhash.PageID(u.String())
			key := encodeInt64(id)
			if queue.Get(key) != nil {
				continue
			}
			if err := pages.Put(key, []byte(u.String())); err != nil {
				return err
			}
			if err := queue.Put(key, encodeQueueEntry(statusOpen, 0, u.String())); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CreateAnalyses(ctx context.Context, analyses []storage.NamedType) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		schema := tx.Bucket(bucketSchema)
		for _, a := range analyses {
			if err := schema.Put([]byte(a.Name), []byte(a.Type.String())); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CountCrawled(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueue).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			status, _, _ := decodeQueueEntry(v)
			if status == statusClosed || status == statusErrored {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) ResetQueue(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueue)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			status, depth, u := decodeQueueEntry(v)
			if status == statusTaken {
				if err := b.Put(k, encodeQueueEntry(statusOpen, depth, u)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) ExistsTaken(ctx context.Context) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueue).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if status, _, _ := decodeQueueEntry(v); status == statusTaken {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (s *Store) Fetch(ctx context.Context, batchSize, maxDepth int) ([]storage.QueueEntry, error) {
	var out []storage.QueueEntry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueue)
		type candidate struct {
			key   []byte
			depth int
			url   string
		}
		var candidates []candidate
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			status, depth, u := decodeQueueEntry(v)
			if status == statusOpen && depth <= maxDepth {
				key := append([]byte(nil), k...)
				candidates = append(candidates, candidate{key: key, depth: depth, url: u})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].depth < candidates[j].depth })
		if len(candidates) > batchSize {
			candidates = candidates[:batchSize]
		}
		for _, cand := range candidates {
			parsed, err := url.Parse(cand.url)
			if err != nil {
				continue
			}
			if err := b.Put(cand.key, encodeQueueEntry(statusTaken, cand.depth, cand.url)); err != nil {
				return err
			}
			out = append(out, storage.QueueEntry{URL: parsed, Depth: cand.depth})
		}
		return nil
	})
	return out, err
}

// --- WorkerBackend ---

func (s *Store) EnsureActive(ctx context.Context, u *url.URL) error { return nil }

func (s *Store) EnsureAnalyzed(ctx context.Context, u *url.URL, analyses []storage.NamedValue) error {
	id := xhash.PageID(u.String())
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAnalyses)
		for _, a := range analyses {
			data, err := json.Marshal(a.Value)
			if err != nil {
				return fmt.Errorf("bboltstore: marshal analysis %q: %w", a.Name, err)
			}
			if err := b.Put(analysisKey(id, a.Name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) EnsureExplored(ctx context.Context, u *url.URL, statusCode, newDepth int, links []storage.OutLink) error {
	id := xhash.PageID(u.String())
	return s.db.Update(func(tx *bolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		pages := tx.Bucket(bucketPages)
		key := encodeInt64(id)
		ownDepth := newDepth - 1
		if v := queue.Get(key); v != nil {
			status, depth, _ := decodeQueueEntry(v)
			if status == statusClosed {
				return nil // queue monotonicity: a closed page never regresses (spec.md §8)
			}
			ownDepth = depth
		}
		if err := queue.Put(key, encodeQueueEntry(statusClosed, ownDepth, u.String())); err != nil {
			return err
		}
		edges := tx.Bucket(bucketEdges)
		for _, link := range links {
			toID := xhash.PageID(link.URL.String())
			if err := pages.Put(encodeInt64(toID), []byte(link.URL.String())); err != nil {
				return err
			}
			if err := edges.Put(edgeKey(id, toID, link.Reason), nil); err != nil {
				return err
			}
			toKey := encodeInt64(toID)
			if queue.Get(toKey) == nil {
				if err := queue.Put(toKey, encodeQueueEntry(statusOpen, newDepth, link.URL.String())); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) EnsureError(ctx context.Context, u *url.URL) error {
	id := xhash.PageID(u.String())
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueue)
		key := encodeInt64(id)
		_, depth, _ := decodeQueueEntry(b.Get(key))
		return b.Put(key, encodeQueueEntry(statusErrored, depth, u.String()))
	})
}

// --- PageRanker ---

func (s *Store) Linkage(ctx context.Context, visit func(from, to int64) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEdges).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			from, to, ok := decodeEdgeKey(k)
			if !ok {
				continue
			}
			if err := visit(from, to); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) PushPageRanks(ctx context.Context, ranked []storage.RankedPage) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScores)
		for _, r := range ranked {
			if err := b.Put(encodeInt64(r.PageID), encodeFloat64(r.Rank)); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- encoding helpers ---

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func encodeFloat64(f float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf
}

// encodeQueueEntry packs a queue row as: 1 status byte, 2 depth bytes
// (big-endian uint16), remaining bytes the URL string.
func encodeQueueEntry(status, depth int, u string) []byte {
	buf := make([]byte, 3+len(u))
	buf[0] = byte(status)
	binary.BigEndian.PutUint16(buf[1:3], uint16(depth))
	copy(buf[3:], u)
	return buf
}

func decodeQueueEntry(v []byte) (status, depth int, u string) {
	if len(v) < 3 {
		return statusOpen, 0, ""
	}
	return int(v[0]), int(binary.BigEndian.Uint16(v[1:3])), string(v[3:])
}

func analysisKey(id int64, name string) []byte {
	key := make([]byte, 0, 9+len(name))
	key = append(key, encodeInt64(id)...)
	key = append(key, 0)
	key = append(key, name...)
	return key
}

func edgeKey(from, to int64, r reason.Reason) []byte {
	key := make([]byte, 17)
	copy(key[0:8], encodeInt64(from))
	copy(key[8:16], encodeInt64(to))
	key[16] = byte(r)
	return key
}

func decodeEdgeKey(k []byte) (from, to int64, ok bool) {
	if len(k) != 17 {
		return 0, 0, false
	}
	return decodeInt64(k[0:8]), decodeInt64(k[8:16]), true
}
