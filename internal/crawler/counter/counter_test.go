package counter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCounterRegisterAndRead(t *testing.T) {
	c := &Counter{}
	c.IncActive()
	c.IncActive()
	c.RegisterOpen()
	c.RegisterClosed()
	c.RegisterError()
	c.DecActive()

	require.Equal(t, int64(1), c.NActive())
	require.Equal(t, int64(1), c.NOpen())
	require.Equal(t, int64(1), c.NClosed())
	require.Equal(t, int64(1), c.NErrors())
}

func TestLogStatsStopsOnCancel(t *testing.T) {
	c := &Counter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		LogStats(ctx, c, 0, 100, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogStats did not return after context cancellation")
	}
}
