// Package download fetches pages and classifies the response the way
// lib-lopez/src/crawler/downloader.rs's Downloaded enum does: a successful
// page body, a bad status code, or a redirect surfaced to the caller
// instead of being followed transparently (spec.md §4.4).
package download

import "context"

// Kind discriminates the Downloaded sum type's cases.
type Kind int

const (
	// KindPage is a successfully fetched, decoded page body.
	KindPage Kind = iota
	// KindBadStatus is any non-2xx, non-3xx response.
	KindBadStatus
	// KindRedirect is a 3xx response, surfaced rather than followed.
	KindRedirect
)

// Downloaded is the result of a single download attempt.
type Downloaded struct {
	Kind        Kind
	Content     []byte
	ContentType string // the response's raw Content-Type header, for charset sniffing
	StatusCode  int
	Location    string
}

// Downloader fetches a single URL and classifies the response, enforcing
// maxBodySize as a hard truncation point on the decoded body.
type Downloader interface {
	Download(ctx context.Context, rawURL string, maxBodySize int64) (Downloaded, error)
}
