package boundary

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCheckedJoinRejectsNonHTTPScheme(t *testing.T) {
	base := mustParse(t, "https://example.com/a/")
	ref := mustParse(t, "mailto:foo@example.com")
	_, err := CheckedJoin(base, ref)
	require.Error(t, err)
}

func TestCheckedJoinRejectsBareFragment(t *testing.T) {
	base := mustParse(t, "https://example.com/a/")
	ref := mustParse(t, "#section")
	_, err := CheckedJoin(base, ref)
	require.Error(t, err)
}

func TestCheckedJoinResolvesRelative(t *testing.T) {
	base := mustParse(t, "https://example.com/a/b")
	ref := mustParse(t, "../c")
	got, err := CheckedJoin(base, ref)
	require.NoError(t, err)
	require.Equal(t, "example.com", got.Host)
}

func TestBoundariesIsAllowed(t *testing.T) {
	b := &Boundaries{
		Disallow: regexp.MustCompile(`/admin`),
	}
	require.True(t, b.IsAllowed(mustParse(t, "https://example.com/page")))
	require.False(t, b.IsAllowed(mustParse(t, "https://example.com/admin/x")))
}

func TestFilterQueryParamsIgnoresListed(t *testing.T) {
	b := &Boundaries{IgnoreParams: map[string]bool{"utm_source": true}}
	u := mustParse(t, "https://example.com/p?utm_source=x&id=1")
	filtered := b.FilterQueryParams(u)
	require.Equal(t, "id=1", filtered.RawQuery)
}

func TestCleanLinksDedupsAndSorts(t *testing.T) {
	links := []*url.URL{
		mustParse(t, "https://example.com/b"),
		mustParse(t, "https://example.com/a"),
		mustParse(t, "https://example.com/a"),
	}
	cleaned := CleanLinks(links)
	require.Len(t, cleaned, 2)
	require.Equal(t, "https://example.com/a", cleaned[0].String())
	require.Equal(t, "https://example.com/b", cleaned[1].String())
}
