package utils

import (
	"strings"
	"unicode"
)

// Word list is intentionally small; the masking transform is best-effort and
// must never block a send.
var profaneWords = []string{
	"shit",
	"fuck",
	"bitch",
	"asshole",
	"bastard",
	"dick",
	"cunt",
}

// MaskProfanity replaces every occurrence of a listed word with asterisks,
// case-insensitively, leaving the rest of the content untouched. Matching runs
// over runes: whole-string lowercasing can change byte length (U+212A lowers
// to an ASCII k), so byte offsets into the original must never be reused.
func MaskProfanity(content string) string {
	if content == "" {
		return content
	}

	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	var b strings.Builder
	i := 0
	for i < len(runes) {
		matched := 0
		for _, w := range profaneWords {
			if hasRunePrefix(lower[i:], w) {
				// listed words are ASCII, one rune per byte
				matched = len(w)
				break
			}
		}
		if matched > 0 {
			b.WriteString(strings.Repeat("*", matched))
			i += matched
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

func hasRunePrefix(s []rune, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if s[i] != rune(prefix[i]) {
			return false
		}
	}
	return true
}
