package IO

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
)

const htmlTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`

// RenderHTML converts story text (treated as markdown) to an HTML fragment.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportHTML renders the story file into a standalone HTML page.
func ExportHTML(story StoryFile, htmlPath, title string) error {
	text, err := story.Read()
	if err != nil {
		return err
	}
	body, err := RenderHTML(text)
	if err != nil {
		return fmt.Errorf("render %s: %w", story.Path, err)
	}
	if err := os.MkdirAll(filepath.Dir(htmlPath), 0o755); err != nil {
		return err
	}
	page := fmt.Sprintf(htmlTemplate, html.EscapeString(title), body)
	return os.WriteFile(htmlPath, []byte(page), 0o644)
}
