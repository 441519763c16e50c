// Package batch partitions subtitle lines into fixed-size windows and
// builds the rolling context carried between consecutive windows.
package batch

import (
	"strings"
	"unicode/utf8"

	"github.com/MimeLyc/blueprint-sub-translator/internal/subtitle"
)

// DefaultWindowSize is the batch width used when configuration does not
// supply one.
const DefaultWindowSize = 20

const (
	// rollingContextLines is how many trailing lines of the previous
	// batch's reviewed output feed the next batch's prompt.
	rollingContextLines = 3

	// rollingContextMaxBytes bounds the carried context; the tail is
	// kept when truncating.
	rollingContextMaxBytes = 480
)

// Partition splits lines into contiguous, ordered windows of size
// windowSize, covering the input exactly once. The last window may be
// shorter. A non-positive windowSize falls back to DefaultWindowSize.
func Partition(lines []subtitle.Line, windowSize int) [][]subtitle.Line {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	if len(lines) == 0 {
		return nil
	}

	batches := make([][]subtitle.Line, 0, (len(lines)+windowSize-1)/windowSize)
	for start := 0; start < len(lines); start += windowSize {
		end := min(start+windowSize, len(lines))
		batches = append(batches, lines[start:end])
	}
	return batches
}

// RollingContext summarizes a batch's translated output for the next
// batch's prompt: the last few lines, capped in size. It is prompt
// input only and never validated structurally.
func RollingContext(translated []string) string {
	if len(translated) == 0 {
		return ""
	}

	start := len(translated) - rollingContextLines
	if start < 0 {
		start = 0
	}
	ctx := strings.Join(translated[start:], "\n")

	if len(ctx) > rollingContextMaxBytes {
		cut := ctx[len(ctx)-rollingContextMaxBytes:]
		// don't start mid-rune
		for len(cut) > 0 && !utf8.RuneStart(cut[0]) {
			cut = cut[1:]
		}
		ctx = cut
	}
	return ctx
}
