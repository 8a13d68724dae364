package robots

import "errors"

var (
	errTooManyRedirects = errors.New("robots: too many redirects fetching robots.txt")
	errNoLocation       = errors.New("robots: redirect response had no Location header")
	errBadStatus        = errors.New("robots: non-2xx response fetching robots.txt")
)
