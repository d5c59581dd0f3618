package utils

import "testing"

func TestLastChars(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello world", 5, "world"},
		{"short", 128, "short"},
		{"héllo", 4, "éllo"},
		{"abc", 0, ""},
		{"", 3, ""},
	}
	for _, c := range cases {
		if got := LastChars(c.in, c.n); got != c.want {
			t.Fatalf("LastChars(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestDropChars(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"prompt and more", 6, " and more"},
		{"prompt", 6, ""},
		{"pro", 6, ""},
		{"naïve text", 5, " text"},
		{"keep", 0, "keep"},
	}
	for _, c := range cases {
		if got := DropChars(c.in, c.n); got != c.want {
			t.Fatalf("DropChars(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestWordCount(t *testing.T) {
	if n := WordCount("  one two\tthree\nfour  "); n != 4 {
		t.Fatalf("WordCount = %d, want 4", n)
	}
	if n := WordCount(""); n != 0 {
		t.Fatalf("WordCount(\"\") = %d", n)
	}
}
