// Package textutil holds Cyrillic-aware text folding and snippet helpers
// shared by the parsers and classifiers.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var spaceRun = regexp.MustCompile(`\s+`)

// Normalize folds text for rule matching: NFKC, lowercase, ё→е,
// whitespace runs collapsed to one space, trimmed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ё", "е")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CollapseSpace collapses whitespace runs without changing case.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Snippet returns up to radius runes on each side of the byte range
// [start,end) of s, whitespace-collapsed and capped at maxRunes (0 = no cap).
func Snippet(s string, start, end, radius, maxRunes int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}

	from := start
	for i := 0; i < radius && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:from])
		from -= size
	}
	to := end
	for i := 0; i < radius && to < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[to:])
		to += size
	}

	out := CollapseSpace(s[from:to])
	if maxRunes > 0 {
		out = TruncateRunes(out, maxRunes)
	}
	return out
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// RuneWindow returns the substring of s starting at byte offset start and
// spanning at most n runes.
func RuneWindow(s string, start, n int) string {
	if start < 0 {
		start = 0
	}
	if start >= len(s) {
		return ""
	}
	return TruncateRunes(s[start:], n)
}
