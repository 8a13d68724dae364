package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnOntoThreadStopWaitsForExit(t *testing.T) {
	started := make(chan struct{})
	c := SpawnOntoThread(context.Background(), "test-loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	<-started
	c.Stop()
	require.NoError(t, c.Wait())
	require.Equal(t, "test-loop", c.Name())
}

func TestSpawnOntoThreadSurfacesError(t *testing.T) {
	wantErr := errors.New("boom")
	c := SpawnOntoThread(context.Background(), "erroring-loop", func(ctx context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, c.Wait(), wantErr)
}

func TestSpawnOntoThreadRecoversPanic(t *testing.T) {
	c := SpawnOntoThread(context.Background(), "panicking-loop", func(ctx context.Context) error {
		panic("something went wrong")
	})

	err := c.Wait()
	require.Error(t, err)
	require.Contains(t, err.Error(), "panicking-loop")
	require.Contains(t, err.Error(), "something went wrong")
}

func TestStopIsIdempotent(t *testing.T) {
	c := SpawnOntoThread(context.Background(), "idempotent-loop", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	c.Stop()
	c.Stop()
	require.NoError(t, c.Wait())
}

func TestCancelerWaitBlocksUntilDone(t *testing.T) {
	release := make(chan struct{})
	c := SpawnOntoThread(context.Background(), "blocking-loop", func(ctx context.Context) error {
		<-release
		return nil
	})

	resultCh := make(chan error, 1)
	go func() { resultCh <- c.Wait() }()

	select {
	case <-resultCh:
		t.Fatal("Wait returned before the loop finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-resultCh)
}
