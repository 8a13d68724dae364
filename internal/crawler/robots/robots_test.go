package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchWildcardAndAnchor(t *testing.T) {
	m := NewMatch("/private/*/edit$")
	require.True(t, m.Matches("/private/42/edit"))
	require.False(t, m.Matches("/private/42/edit/more"))
	require.False(t, m.Matches("/other/42/edit"))
}

func TestMatchUnanchoredPrefix(t *testing.T) {
	m := NewMatch("/private")
	require.True(t, m.Matches("/private"))
	require.True(t, m.Matches("/private/sub"))
	require.False(t, m.Matches("/public"))
}

func TestExclusionAllowsAndDelay(t *testing.T) {
	body := []byte("User-agent: *\nDisallow: /admin\nCrawl-delay: 2\n")
	ex, err := NewExclusion(body, "test-agent")
	require.NoError(t, err)
	require.True(t, ex.Allows("/index.html"))
	require.False(t, ex.Allows("/admin/panel"))
	require.Equal(t, int64(2), ex.CrawlDelay().Milliseconds()/1000)
}

func TestDoFetchRobotsEmptyDisallowAllowsEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer srv.Close()

	ex, err := doFetchRobots(context.Background(), srv.Client(), "test-agent", "http", srv.Listener.Addr().String())
	require.NoError(t, err)
	require.True(t, ex.Allows("/anything"))
}
