// Package counter tracks in-flight and terminal task counts shared between
// every worker shard and the master dispatch loop, ported from
// lib-lopez/src/crawler/counter.rs's atomic Counter + its periodic
// log_stats task.
package counter

import (
	"context"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Counter holds lock-free running totals, safe for concurrent use by every
// worker goroutine and the master's stats logger.
type Counter struct {
	active int64
	open   int64
	closed int64
	errors int64
}

func (c *Counter) IncActive()       { atomic.AddInt64(&c.active, 1) }
func (c *Counter) DecActive()       { atomic.AddInt64(&c.active, -1) }
func (c *Counter) RegisterOpen()    { atomic.AddInt64(&c.open, 1) }
func (c *Counter) RegisterClosed()  { atomic.AddInt64(&c.closed, 1) }
func (c *Counter) RegisterError()   { atomic.AddInt64(&c.errors, 1) }

func (c *Counter) NActive() int64 { return atomic.LoadInt64(&c.active) }
func (c *Counter) NOpen() int64   { return atomic.LoadInt64(&c.open) }
func (c *Counter) NClosed() int64 { return atomic.LoadInt64(&c.closed) }
func (c *Counter) NErrors() int64 { return atomic.LoadInt64(&c.errors) }

// LogStats periodically logs throughput against effectiveQuota until ctx
// is canceled, the Go port of counter.rs's log_stats future: a humanized
// "done/quota (rate/s)" progress line.
func LogStats(ctx context.Context, c *Counter, consumed, effectiveQuota int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := c.NClosed()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			closed := c.NClosed()
			elapsed := now.Sub(lastAt).Seconds()
			rate := float64(closed-last) / elapsed
			logrus.WithFields(logrus.Fields{
				"done":    humanize.Comma(int64(consumed) + closed),
				"quota":   humanize.Comma(int64(effectiveQuota)),
				"active":  c.NActive(),
				"errors":  c.NErrors(),
				"rate_hz": rate,
			}).Info("crawl progress")
			last = closed
			lastAt = now
		}
	}
}
