package batch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/MimeLyc/blueprint-sub-translator/internal/subtitle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLines(n int) []subtitle.Line {
	lines := make([]subtitle.Line, n)
	for i := range lines {
		lines[i] = subtitle.Line{Index: i + 1, Text: fmt.Sprintf("line %d", i+1)}
	}
	return lines
}

func TestPartition_CoversInputExactlyOnceInOrder(t *testing.T) {
	for _, tc := range []struct {
		n, w int
	}{
		{n: 0, w: 5},
		{n: 1, w: 1},
		{n: 5, w: 5},
		{n: 7, w: 3},
		{n: 10, w: 4},
		{n: 3, w: 50},
	} {
		t.Run(fmt.Sprintf("n=%d w=%d", tc.n, tc.w), func(t *testing.T) {
			batches := Partition(makeLines(tc.n), tc.w)

			wantBatches := (tc.n + tc.w - 1) / tc.w
			require.Len(t, batches, wantBatches)

			seen := 0
			for bi, b := range batches {
				if bi < len(batches)-1 {
					assert.Len(t, b, tc.w)
				} else {
					assert.NotEmpty(t, b)
					assert.LessOrEqual(t, len(b), tc.w)
				}
				for _, line := range b {
					seen++
					assert.Equal(t, seen, line.Index, "lines must stay in source order")
				}
			}
			assert.Equal(t, tc.n, seen)
		})
	}
}

func TestPartition_NonPositiveWindowFallsBack(t *testing.T) {
	batches := Partition(makeLines(DefaultWindowSize+1), 0)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], DefaultWindowSize)
	assert.Len(t, batches[1], 1)
}

func TestRollingContext(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", RollingContext(nil))
	})

	t.Run("fewer lines than window", func(t *testing.T) {
		assert.Equal(t, "a\nb", RollingContext([]string{"a", "b"}))
	})

	t.Run("takes the tail", func(t *testing.T) {
		got := RollingContext([]string{"one", "two", "three", "four", "five"})
		assert.Equal(t, "three\nfour\nfive", got)
	})

	t.Run("caps size keeping the tail", func(t *testing.T) {
		long := strings.Repeat("x", 600)
		got := RollingContext([]string{long, "ending"})
		assert.LessOrEqual(t, len(got), 480)
		assert.True(t, strings.HasSuffix(got, "ending"))
	})
}
