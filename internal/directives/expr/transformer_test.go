package expr

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpCaptureReturnsNullOnNoMatch(t *testing.T) {
	re := regexp.MustCompile(`(?P<year>\d{4})-(?P<month>\d{2})`)
	tr := Transformer{Op: OpCapture, Regex: re}

	require.Nil(t, tr.Eval("no digits here"))
}

func TestOpCaptureReturnsNamedGroups(t *testing.T) {
	re := regexp.MustCompile(`(?P<year>\d{4})-(?P<month>\d{2})`)
	tr := Transformer{Op: OpCapture, Regex: re}

	got := tr.Eval("published 2024-03")
	require.Equal(t, map[string]Value{"year": "2024", "month": "03"}, got)
}

func TestOpAllCapturesReturnsPerMatchGroups(t *testing.T) {
	re := regexp.MustCompile(`(?P<year>\d{4})-(?P<month>\d{2})`)
	tr := Transformer{Op: OpAllCaptures, Regex: re}

	got := tr.Eval("2024-03 then 2025-11")
	require.Equal(t, []Value{
		map[string]Value{"year": "2024", "month": "03"},
		map[string]Value{"year": "2025", "month": "11"},
	}, got)
}

func TestOpAllCapturesReturnsEmptyArrayOnNoMatch(t *testing.T) {
	re := regexp.MustCompile(`(?P<year>\d{4})-(?P<month>\d{2})`)
	tr := Transformer{Op: OpAllCaptures, Regex: re}

	got := tr.Eval("nothing to see here")
	require.Equal(t, []Value{}, got)
}
