package subtitle

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

var htmlTagPattern = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// Parse parses raw SRT text into a subtitle file.
// Cue indexes must be strictly increasing; markup tags are stripped from text.
func Parse(raw string) (*File, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("subtitle text is empty")
	}

	var lines []Line
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	currentLine := Line{}
	state := "index" // possible values: "index", "time", "text"
	var textLines []string
	lastIndex := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "\uFEFF")

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // skip non-index lines
			}
			if index <= lastIndex {
				return nil, fmt.Errorf("subtitle index %d is out of order (previous %d)", index, lastIndex)
			}
			currentLine.Index = index
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			startTime, endTime, err := parseSRTTime(line)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time for cue %d: %w", currentLine.Index, err)
			}
			currentLine.StartTime = startTime
			currentLine.EndTime = endTime
			state = "text"
			textLines = []string{}

		case "text":
			if line == "" {
				// subtitle text ends
				if len(textLines) > 0 {
					currentLine.Text = strings.Join(textLines, "\n")
					lastIndex = currentLine.Index
					lines = append(lines, currentLine)
					currentLine = Line{}
				}
				state = "index"
				textLines = []string{}
			} else {
				textLines = append(textLines, stripMarkup(line))
			}
		}
	}

	// handle last subtitle group
	if state == "text" && len(textLines) > 0 {
		currentLine.Text = strings.Join(textLines, "\n")
		lines = append(lines, currentLine)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan subtitle text: %w", err)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no subtitle cues found")
	}

	return &File{
		Lines:    lines,
		Language: detectLanguage(lines),
		Format:   "SRT",
	}, nil
}

// stripMarkup removes inline HTML-style tags such as <i> and <font>.
func stripMarkup(text string) string {
	return htmlTagPattern.ReplaceAllString(text, "")
}

// parseSRTTime parses SRT time format
func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	// SRT time format: 00:02:16,612 --> 00:02:19,376
	re := regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})`)
	matches := re.FindStringSubmatch(timeString)

	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) time.Duration {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond
	}

	startTime := parseTime(matches[1], matches[2], matches[3], matches[4])
	endTime := parseTime(matches[5], matches[6], matches[7], matches[8])

	return startTime, endTime, nil
}

// detectLanguage detects the dominant language across all cues
func detectLanguage(lines []Line) language.Tag {
	if len(lines) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)

	for _, line := range lines {
		lang := whatlanggo.DetectLang(line.Text).Iso6391()
		langMap[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	return language.Make(topLang)
}
