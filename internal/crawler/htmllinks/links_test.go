package htmllinks

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepr/crawlwave/internal/crawler/reason"
)

func TestExtractLinksAhrefAndCanonical(t *testing.T) {
	base, err := url.Parse("https://example.com/foo")
	require.NoError(t, err)

	html := `
	<head><link rel="canonical" href="https://example.com/canonical-page/" /></head>
	<body><a href="bar/baz">link</a></body>`

	links, err := ExtractLinks(base, strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, links, 2)

	require.Equal(t, "https://example.com/canonical-page/", links[0].URL.String())
	require.Equal(t, reason.Canonical, links[0].Reason)

	require.Equal(t, "https://example.com/bar/baz", links[1].URL.String())
	require.Equal(t, reason.Ahref, links[1].Reason)
}

func TestExtractLinksSkipsUnresolvable(t *testing.T) {
	base, err := url.Parse("https://example.com/foo")
	require.NoError(t, err)
	html := `<a href="mailto:foo@example.com">mail</a><a href="#frag">frag</a>`
	links, err := ExtractLinks(base, strings.NewReader(html))
	require.NoError(t, err)
	require.Empty(t, links)
}
