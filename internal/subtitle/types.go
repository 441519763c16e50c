package subtitle

import (
	"time"

	"golang.org/x/text/language"
)

// Line represents a single subtitle cue
type Line struct {
	Index          int           // subtitle sequence number
	StartTime      time.Duration // start time
	EndTime        time.Duration // end time
	Text           string        // source text, HTML markup stripped
	TranslatedText string        // translated text
}

// DurationSeconds returns the on-screen duration of the line in seconds.
// Malformed cues (end before start) yield 0 rather than a negative value.
func (l Line) DurationSeconds() float64 {
	d := (l.EndTime - l.StartTime).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// File represents a parsed subtitle document
type File struct {
	Lines    []Line
	Language language.Tag
	Format   string // e.g. SRT
}
