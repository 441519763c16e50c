package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// Serialize renders a subtitle file back into SRT text.
// Translated text is preferred per line, falling back to the source text.
func Serialize(file *File) (string, error) {
	if file == nil || len(file.Lines) == 0 {
		return "", fmt.Errorf("subtitle data is empty")
	}

	var sb strings.Builder

	for _, line := range file.Lines {
		// write index
		fmt.Fprintf(&sb, "%d\n", line.Index)

		// write time
		startTime := FormatDuration(line.StartTime)
		endTime := FormatDuration(line.EndTime)
		fmt.Fprintf(&sb, "%s --> %s\n", startTime, endTime)

		// write text (use translated text, fallback to original if empty)
		text := line.TranslatedText
		if text == "" {
			text = line.Text
		}
		fmt.Fprintf(&sb, "%s\n\n", text)
	}

	return sb.String(), nil
}

// FormatDuration formats time.Duration to SRT time format
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
