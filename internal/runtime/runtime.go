// Package runtime provides the cancellation handshake and goroutine
// supervision the worker and master loops run under, ported from
// lib-lopez/src/cli.rs's `spawn_onto_thread` and lib-lopez/src/cancel.rs's
// two-signal cancellation. The original spawns each loop onto a dedicated
// OS thread; Go's M:N scheduler already multiplexes goroutines onto OS
// threads, so a goroutine stands in directly for that dedicated thread
// with no `runtime.LockOSThread` required.
package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Canceler supervises one long-running loop spawned by SpawnOntoThread. A
// caller holding a *Canceler can request a cooperative stop and then wait
// for the loop to actually exit, the same two-step shutdown
// lib-lopez/src/cancel.rs's `Canceler` exposes, here over a context
// cancel function and a done channel instead of an `AtomicBool` + `Condvar`.
type Canceler struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

// Stop requests the loop to exit and does not block on it finishing; call
// Wait afterwards to block until it has.
func (c *Canceler) Stop() {
	c.once.Do(c.cancel)
}

// Wait blocks until the spawned function has returned, then reports its
// error (nil on a clean stop).
func (c *Canceler) Wait() error {
	<-c.done
	return c.err
}

// Name returns the loop's diagnostic name, as passed to SpawnOntoThread.
func (c *Canceler) Name() string { return c.name }

// SpawnOntoThread runs f on its own goroutine, derived from a context that
// Stop cancels, and returns a Canceler to supervise it. A panic inside f is
// recovered, logged with RecoverAndLog, and surfaces through Wait as an
// error rather than crashing the process — the Go equivalent of
// lib-lopez/src/panic.rs's global panic hook, applied per-goroutine since
// Go has no process-wide hook to install one.
func SpawnOntoThread(parent context.Context, name string, f func(context.Context) error) *Canceler {
	ctx, cancel := context.WithCancel(parent)
	c := &Canceler{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		defer RecoverAndLog(name, &c.err)
		c.err = f(ctx)
	}()
	return c
}

// RecoverAndLog recovers a panic in the current goroutine, logs its value
// and stack trace tagged with name, and stores a non-nil error in *errOut
// so the caller's Wait observes the failure instead of silently losing it.
// Deferred directly (not wrapped) so `recover` sees the panicking frame.
func RecoverAndLog(name string, errOut *error) {
	if r := recover(); r != nil {
		logrus.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("recovered panic in spawned goroutine")
		if errOut != nil {
			*errOut = panicError{name: name, value: r}
		}
	}
}

// panicError wraps a recovered panic value as an error so Canceler.Wait's
// caller can distinguish "loop panicked" from "loop returned an error".
type panicError struct {
	name  string
	value any
}

func (p panicError) Error() string {
	return "runtime: goroutine " + p.name + " panicked: " + errString(p.value)
}

func errString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", v)
}
