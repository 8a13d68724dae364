package download

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	d := NewHTTPDownloader("test-agent", 5*time.Second)
	got, err := d.Download(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	require.Equal(t, KindPage, got.Kind)
	require.Equal(t, "hello world", string(got.Content))
}

func TestDownloadTruncatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	d := NewHTTPDownloader("test-agent", 5*time.Second)
	got, err := d.Download(context.Background(), srv.URL, 4)
	require.NoError(t, err)
	require.Equal(t, "0123", string(got.Content))
}

func TestDownloadSurfacesRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/target")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	d := NewHTTPDownloader("test-agent", 5*time.Second)
	got, err := d.Download(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	require.Equal(t, KindRedirect, got.Kind)
	require.Equal(t, "/target", got.Location)
}

func TestDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewHTTPDownloader("test-agent", 5*time.Second)
	got, err := d.Download(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	require.Equal(t, KindBadStatus, got.Kind)
	require.Equal(t, 404, got.StatusCode)
}

func TestDownloadDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		gw.Write([]byte("compressed content"))
		gw.Close()
	}))
	defer srv.Close()

	d := NewHTTPDownloader("test-agent", 5*time.Second)
	got, err := d.Download(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	require.Equal(t, "compressed content", string(got.Content))
}
