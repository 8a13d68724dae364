package origin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryLazyLoadsOncePerHost(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
	}))
	defer srv.Close()

	reg := NewRegistry(srv.Client(), "test-agent", 10)
	host := srv.Listener.Addr().String()

	done := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := reg.Get(context.Background(), "http", host)
			require.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	require.Equal(t, 1, calls)
}

func TestOriginAllowsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
	}))
	defer srv.Close()

	reg := NewRegistry(srv.Client(), "test-agent", 10)
	o, err := reg.Get(context.Background(), "http", srv.Listener.Addr().String())
	require.NoError(t, err)
	require.True(t, o.Allows("/index"))
	require.False(t, o.Allows("/admin/x"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, o.Block(ctx))
}
