package ocr

import "strings"

// Normalize collapses runs of blanks inside lines and runs of empty lines,
// and unifies line endings. Form feeds and digits pass through untouched.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseBlanks(line)
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// collapseBlanks turns tabs and no-break spaces into single spaces and drops
// trailing blanks.
func collapseBlanks(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	pending := false
	for _, r := range line {
		switch r {
		case ' ', '\t', '\u00a0':
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(r)
	}
	return b.String()
}
