// Package profile holds the run-level knobs that shape a crawl's
// concurrency and pacing, ported from lib-lopez/src/cli.rs's Profile
// struct — everything a Module's `set` statements do not already cover,
// because it describes how hard this particular machine should push
// rather than what the crawl itself means.
package profile

import "time"

// Profile is immutable for the lifetime of one crawl run.
type Profile struct {
	// Workers is the number of worker shards the master dispatches to.
	Workers int
	// MaxTasksPerWorker bounds in-flight concurrent fetches per worker.
	MaxTasksPerWorker int
	// BackendsPerWorker is the number of WorkerBackend connections each
	// worker opens, round-robined across its in-flight tasks.
	BackendsPerWorker int
	// BatchSize is how many queue entries Master.Fetch requests per round.
	BatchSize int
	// MaxQuota caps the crawl regardless of a directive's own `quota`; nil
	// means no machine-imposed ceiling.
	MaxQuota *int
	// LogStatsInterval is how often Master logs throughput stats.
	LogStatsInterval time.Duration
}

// Default returns the profile the CLI falls back to when no override
// flags are given, matching the original's hard-coded CLI defaults.
func Default() *Profile {
	return &Profile{
		Workers:           4,
		MaxTasksPerWorker: 8,
		BackendsPerWorker: 2,
		BatchSize:         256,
		MaxQuota:          nil,
		LogStatsInterval:  10 * time.Second,
	}
}
