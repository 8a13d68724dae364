package download

import (
	"context"
	"fmt"
)

// WebDriverDownloader is the pluggable headless-browser downloader variant
// named in spec.md §4.4, grounded on
// lib-lopez/src/crawler/downloader/web_driver.rs's WebDriverDownloader: it
// implements the same Downloader interface as HTTPDownloader. Nothing in
// the directive model selects it per page: a worker uses whichever single
// Downloader it was built with.
//
// No headless-browser automation library appears anywhere in the
// retrieval pack (no chromedp, no fantoccini-equivalent), so this is
// wired as an interface-conforming stub that reports the capability is
// unavailable rather than silently downloading unrendered HTML under a
// misleading label.
type WebDriverDownloader struct {
	Endpoint string
}

// Download implements Downloader.
func (d *WebDriverDownloader) Download(ctx context.Context, rawURL string, maxBodySize int64) (Downloaded, error) {
	return Downloaded{}, fmt.Errorf("download: webdriver downloader not configured (endpoint %q); wire a remote browser session to enable %s", d.Endpoint, rawURL)
}
