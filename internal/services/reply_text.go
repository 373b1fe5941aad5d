package services

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MaxReplyRunes keeps replies under the Instagram comment length limit.
const MaxReplyRunes = 2000

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t]+`)
	blockEnds  = regexp.MustCompile(`(?i)</(p|li|h[1-6]|blockquote|pre)>|<br\s*/?>`)
)

// ReplyFormatter turns model output (often markdown) into the plain text that comment
// and message APIs display.
type ReplyFormatter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewReplyFormatter() *ReplyFormatter {
	return &ReplyFormatter{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.StrictPolicy(),
	}
}

// Format renders markdown, strips every tag and trims the result. It returns "" when
// nothing printable is left.
func (f *ReplyFormatter) Format(reply string) string {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := f.md.Convert([]byte(reply), &buf); err != nil {
		// fall back to sanitizing the raw text
		buf.Reset()
		buf.WriteString(reply)
	}

	// keep paragraph breaks before the tags go away
	withBreaks := blockEnds.ReplaceAllString(buf.String(), "$0\n")
	text := html.UnescapeString(f.policy.Sanitize(withBreaks))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	text = strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))

	return truncateRunes(text, MaxReplyRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
