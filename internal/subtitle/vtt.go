package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Cue is a single timed span of subtitle text. Times are seconds from the
// start of the video.
type Cue struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var timestampRe = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}[.,]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[.,]\d{3})`)

// ParseVTT parses WebVTT content into cues. SRT-style comma timestamps are
// accepted too, so yt-dlp output in either format works.
func ParseVTT(content string) []Cue {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var cues []Cue
	var current *Cue
	index := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)

		// Skip WEBVTT header and empty lines
		if line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT ") || line == "" {
			if current != nil && current.Text != "" {
				cues = append(cues, *current)
				current = nil
			}
			continue
		}

		// Skip NOTE/STYLE blocks and header metadata lines
		if strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") ||
			strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}

		// Check for timestamp line
		if matches := timestampRe.FindStringSubmatch(line); len(matches) == 3 {
			if current != nil && current.Text != "" {
				cues = append(cues, *current)
			}
			index++
			current = &Cue{
				Index: index,
				Start: parseTimestamp(matches[1]),
				End:   parseTimestamp(matches[2]),
			}
			continue
		}

		// Skip cue index numbers (pure digits)
		if _, err := strconv.Atoi(line); err == nil && current == nil {
			continue
		}

		// Text line
		if current != nil {
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += stripTags(line)
		}
	}

	if current != nil && current.Text != "" {
		cues = append(cues, *current)
	}

	return cues
}

// CuesToVTT converts cues back to WebVTT format.
func CuesToVTT(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, cue := range cues {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", FormatTimestamp(cue.Start), FormatTimestamp(cue.End)))
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// tagRe matches inline VTT styling like <c.colorE5E5E5> or <00:00:01.500>.
var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(line string) string {
	return tagRe.ReplaceAllString(line, "")
}

func parseTimestamp(ts string) float64 {
	ts = strings.Replace(ts, ",", ".", 1)
	var h, m, s int
	var ms int
	fmt.Sscanf(ts, "%d:%d:%d.%d", &h, &m, &s, &ms)
	return float64(h*3600+m*60+s) + float64(ms)/1000.0
}

// FormatTimestamp renders seconds as an HH:MM:SS.mmm VTT timestamp.
func FormatTimestamp(seconds float64) string {
	totalMs := int(math.Round(seconds * 1000))
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
