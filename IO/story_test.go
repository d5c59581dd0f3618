package IO

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoryFileMissing(t *testing.T) {
	s := StoryFile{Path: filepath.Join(t.TempDir(), "story.txt")}
	n, err := s.Length()
	if err != nil || n != 0 {
		t.Fatalf("Length = %d, %v; want 0, nil", n, err)
	}
	text, err := s.Read()
	if err != nil || text != "" {
		t.Fatalf("Read = %q, %v", text, err)
	}
}

func TestStoryFileAppend(t *testing.T) {
	s := StoryFile{Path: filepath.Join(t.TempDir(), "out", "story.txt")}
	segments := []string{"Once upon a time", "", "the café closed."}
	for _, seg := range segments {
		if err := s.Append(seg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	text, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := "Once upon a time\n\nthe café closed.\n"
	if text != want {
		t.Fatalf("Read = %q, want %q", text, want)
	}
	n, _ := s.Length()
	if n != len([]rune(want)) {
		t.Fatalf("Length = %d, want %d characters", n, len([]rune(want)))
	}
}

func TestExportHTML(t *testing.T) {
	dir := t.TempDir()
	s := StoryFile{Path: filepath.Join(dir, "story.txt")}
	if err := s.Append("# Chapter one\n\nIt was a *dark* night."); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "site", "story.html")
	if err := ExportHTML(s, out, "Tales <1>"); err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	page := string(raw)
	for _, want := range []string{"<h1>Chapter one</h1>", "<em>dark</em>", "<title>Tales &lt;1&gt;</title>"} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}
}

func TestLoadTokenizerNothingAvailable(t *testing.T) {
	_, err := LoadTokenizer(filepath.Join(t.TempDir(), "tokenizer.json"), "")
	if !errors.Is(err, ErrNoTokenizer) {
		t.Fatalf("err = %v, want ErrNoTokenizer", err)
	}
}
