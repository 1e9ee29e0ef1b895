package cleaner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"typologyrag/internal/llm"
	"typologyrag/internal/rag/errs"
)

func TestClean_SingleWindowSuccess(t *testing.T) {
	fake := &llm.FakeCompleter{Responses: []string{"condensed text"}}
	c := New(fake)

	res := c.Clean(context.Background(), "doc1", "some normalized lecture text")
	require.False(t, res.Degraded)
	require.Equal(t, "condensed text", res.Text)
	require.Len(t, fake.Calls, 1)
}

func TestClean_MultiWindowConcatenatedWithBlankLine(t *testing.T) {
	long := strings.Repeat("a", 6000) + "\n\n" + strings.Repeat("b", 6000)
	fake := &llm.FakeCompleter{Responses: []string{"first", "second"}}
	c := New(fake)

	res := c.Clean(context.Background(), "doc1", long)
	require.False(t, res.Degraded)
	require.Equal(t, "first\n\nsecond", res.Text)
	require.Len(t, fake.Calls, 2)
}

func TestClean_FallsBackOnPermanentError(t *testing.T) {
	fake := &llm.FakeCompleter{Err: fmt.Errorf("%w: bad request", errs.ErrPermanentExternal)}
	c := New(fake)

	res := c.Clean(context.Background(), "doc1", "some text")
	require.True(t, res.Degraded)
	require.Equal(t, "some text", res.Text)
	require.Len(t, fake.Calls, 1, "permanent error must not be retried")
}

func TestClean_RetriesTransientThenFallsBack(t *testing.T) {
	fake := &llm.FakeCompleter{Err: fmt.Errorf("%w: timeout", errs.ErrTransientExternal)}
	c := New(fake)

	res := c.Clean(context.Background(), "doc1", "some text")
	require.True(t, res.Degraded)
	require.Equal(t, "some text", res.Text)
	require.Len(t, fake.Calls, maxRetries+1, "transient error must be retried up to maxRetries")
}

func TestSplitWindows_ParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("x", 9000) + "\n\n" + strings.Repeat("y", 9000)
	windows := splitWindows(text, maxWindowChars)
	require.Len(t, windows, 2)
	for _, w := range windows {
		require.LessOrEqual(t, len(w), maxWindowChars)
	}
}

func TestSplitWindows_HardSplitsOversizedParagraph(t *testing.T) {
	text := strings.Repeat("z", 25000)
	windows := splitWindows(text, maxWindowChars)
	require.Greater(t, len(windows), 1)
	for _, w := range windows {
		require.LessOrEqual(t, len(w), maxWindowChars)
	}
}
