package utils

import (
	"os"
	"strings"
	"unicode/utf8"
)

// Character helpers count runes, not bytes, so multi-byte text is never split mid-rune.

func CharLen(s string) int {
	return utf8.RuneCountInString(s)
}

// LastChars returns the last n characters of s (all of s if shorter).
func LastChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= n {
		return s
	}
	skip := total - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}

// DropChars returns s without its first n characters.
func DropChars(s string, n int) string {
	if n <= 0 {
		return s
	}
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}

// WordCount counts whitespace-delimited words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// FileExists true if path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
