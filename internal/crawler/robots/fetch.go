package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxRedirects = 5

// FetchRobots retrieves and parses the robots.txt for host, following up to
// maxRedirects redirects. If the fetch fails or the response is not a 2xx,
// it strips the leftmost DNS label from host and retries, the same
// parent-domain fallback walk as lib-lopez/src/robots.rs's get_robots. It
// stops once host is reduced to a single label (a bare TLD) and returns
// (nil, nil) — "no exclusion data available" — at that point.
func FetchRobots(ctx context.Context, client *http.Client, userAgent, scheme, host string) (*Exclusion, error) {
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	for {
		ex, err := doFetchRobots(ctx, &noFollow, userAgent, scheme, host)
		if err == nil {
			return ex, nil
		}
		labels := strings.Split(host, ".")
		if len(labels) <= 1 {
			return nil, nil
		}
		host = strings.Join(labels[1:], ".")
	}
}

func doFetchRobots(ctx context.Context, client *http.Client, userAgent, scheme, host string) (*Exclusion, error) {
	target := &url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}
	for redirects := 0; ; redirects++ {
		if redirects > maxRedirects {
			return nil, errTooManyRedirects
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return nil, errNoLocation
			}
			next, err := target.Parse(loc)
			if err != nil {
				return nil, err
			}
			target = next
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, errBadStatus
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return NewExclusion(body, userAgent)
	}
}
