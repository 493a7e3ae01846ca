package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinesIdenticalContent(t *testing.T) {
	t.Parallel()

	result := Lines([]byte("a\nb\n"), []byte("a\nb\n"), "old", "new")
	require.Equal(t, Result{}, result)
	require.False(t, result.Changed())
}

func TestLinesSingleChange(t *testing.T) {
	t.Parallel()

	result := Lines([]byte("line1\nline2\nline3\n"), []byte("line1\nmodified\nline3\n"), "releases/a/index.html", "releases/b/index.html")

	require.True(t, result.Changed())
	require.Equal(t, 1, result.Added)
	require.Equal(t, 1, result.Removed)
	require.Equal(t, "+1 -1", result.Summary())
	require.Contains(t, result.Unified, "--- releases/a/index.html\n+++ releases/b/index.html\n")
	require.Contains(t, result.Unified, "@@ -1,3 +1,3 @@")
	require.Contains(t, result.Unified, "-line2\n")
	require.Contains(t, result.Unified, "+modified\n")
	require.Contains(t, result.Unified, " line1\n")
}

func TestLinesFromEmpty(t *testing.T) {
	t.Parallel()

	result := Lines(nil, []byte("one\ntwo\n"), "old", "new")
	require.Equal(t, 2, result.Added)
	require.Zero(t, result.Removed)
}

func TestLinesTruncatesLargeDiffs(t *testing.T) {
	t.Parallel()

	var next strings.Builder
	for i := 0; i < maxDiffLines+10; i++ {
		next.WriteString("x\n")
	}
	result := Lines(nil, []byte(next.String()), "old", "new")
	require.True(t, strings.HasSuffix(result.Unified, truncateMessage+"\n"))
}
