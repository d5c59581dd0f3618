package IO

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/manningwu07/storyforge/utils"
)

// FindDataset returns path if it exists. Otherwise it walks path's directory for
// the first .txt file whose name contains "train", and returns "" if there is none.
func FindDataset(path string) string {
	if utils.FileExists(path) {
		return path
	}
	root := filepath.Dir(path)
	var first string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || first != "" {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !d.IsDir() && strings.HasSuffix(name, ".txt") && strings.Contains(name, "train") {
			first = p
			return fs.SkipAll
		}
		return nil
	})
	return first
}
