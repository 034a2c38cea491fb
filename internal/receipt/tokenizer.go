package receipt

import (
	"regexp"
	"strings"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	lineBreakRe   = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|tr|li|h[1-6]|table)>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe    = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// Tokenize strips markup and noise from a raw document and yields candidate
// text lines in document order. Pure function; restartable by calling again.
//
// HTML mode drops script/style blocks wholesale, converts block-closing tags
// to line breaks so row boundaries survive tag stripping, removes remaining
// tags and collapses whitespace runs. Short lines are markup residue and are
// filtered by minLen. Plain mode splits on newlines and keeps any non-empty
// content.
func Tokenize(raw string, mode Mode, minLen int) []string {
	switch mode {
	case ModeHTML:
		return tokenizeHTML(raw, minLen)
	default:
		return tokenizePlain(raw)
	}
}

func tokenizeHTML(raw string, minLen int) []string {
	text := scriptStyleRe.ReplaceAllString(raw, "")
	text = lineBreakRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = spaceRunRe.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= minLen {
			lines = append(lines, line)
		}
	}
	return lines
}

func tokenizePlain(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
