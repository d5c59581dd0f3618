package IO

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/manningwu07/storyforge/utils"
)

// StoryFile is the append-only output text. Every call opens and closes the
// file; the process is its only writer.
type StoryFile struct {
	Path string
}

// Read returns the whole file, or "" if it does not exist yet.
func (s StoryFile) Read() (string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(b), nil
}

// Length is measured in characters.
func (s StoryFile) Length() (int, error) {
	text, err := s.Read()
	if err != nil {
		return 0, err
	}
	return utils.CharLen(text), nil
}

// Append writes segment followed by a newline.
func (s StoryFile) Append(segment string) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(segment + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
