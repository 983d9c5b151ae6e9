package textnorm

import (
	"strconv"
	"strings"
	"unicode"
)

// StripMarkup drops every <...> sequence from s. It is a heuristic, not an
// HTML parser: a '>' inside an attribute value ends the tag early.
func StripMarkup(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseSpace replaces runs of space, tab, CR and LF with one space and
// trims the ends.
func CollapseSpace(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	seen := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !seen {
				b.WriteByte(' ')
				seen = true
			}
		default:
			b.WriteRune(r)
			seen = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Integers returns every run of decimal digits in s. ok is false when a run
// does not fit an int64.
func Integers(s string) (out []int64, ok bool) {
	start := -1
	flush := func(end int) bool {
		if start < 0 {
			return true
		}
		run := s[start:end]
		start = -1
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			return false
		}
		out = append(out, n)
		return true
	}
	for i, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if !flush(i) {
			return nil, false
		}
	}
	if !flush(len(s)) {
		return nil, false
	}
	return out, true
}

// Between returns the text after the first start and before the next end.
// An empty start means the beginning of s, an empty end its end. ok is false
// when a marker is missing or the span is empty.
func Between(s, start, end string) (string, bool) {
	from := 0
	if start != "" {
		i := strings.Index(s, start)
		if i < 0 {
			return "", false
		}
		from = i + len(start)
	}
	to := len(s)
	if end != "" {
		i := strings.Index(s[from:], end)
		if i < 0 {
			return "", false
		}
		to = from + i
	}
	if from >= to {
		return "", false
	}
	return s[from:to], true
}
