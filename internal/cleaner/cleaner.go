// Package cleaner removes reference-system artifacts from extracted act text
// while keeping the line structure the parsers depend on.
package cleaner

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Longest first, so the full notice goes before its parts.
	watermarks = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Документ предоставлен КонсультантПлюс`),
		regexp.MustCompile(`(?im)Дата сохранения:[^\n]*(?:\n|$)`),
		regexp.MustCompile(`(?i)www\.consultant\.ru`),
		regexp.MustCompile(`(?i)КонсультантПлюс`),
	}
	pageOfRe      = regexp.MustCompile(`Страница \d+ из \d+`)
	pageNumLineRe = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*$`)
	trailingRe    = regexp.MustCompile(`(?m)[ \t]+$`)
	spaceRunRe    = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe    = regexp.MustCompile(`\n{4,}`)
	spaceReplacer = strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		"\u00a0", " ",
		"\u2007", " ",
		"\u202f", " ",
		"\u00ad", "",
		"\ufeff", "",
	)
)

// Cleaner strips watermarks, page furniture and redundant whitespace.
// The zero value is not usable; create one with New.
type Cleaner struct {
	patterns []*regexp.Regexp
}

// New returns a Cleaner with the built-in watermark set plus extra regular
// expressions (matched case-insensitively) to delete.
func New(extra ...string) (*Cleaner, error) {
	c := &Cleaner{patterns: append([]*regexp.Regexp{}, watermarks...)}
	for _, p := range extra {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid cleaner pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// Clean returns the NFC-normalized, cleaned text. Line breaks between
// headers, parts and subparts are preserved.
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return ""
	}
	text = spaceReplacer.Replace(norm.NFC.String(text))
	for _, re := range c.patterns {
		text = re.ReplaceAllString(text, "")
	}
	text = pageOfRe.ReplaceAllString(text, "")
	text = pageNumLineRe.ReplaceAllString(text, "")
	text = trailingRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n\n")
	return strings.TrimSpace(text)
}

// Lines returns the non-empty trimmed lines of the cleaned text.
func (c *Cleaner) Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(c.Clean(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// CollapseWhitespace trims s and replaces every whitespace run with one space.
// It flattens text for indexing and single-line display.
func CollapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	wasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
