// Package export renders Waystations as Markdown and HTML documents.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/waystation"
)

// Format selects the exported document type.
type Format string

// Supported formats.
const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// Markdown renders w as a Markdown document.
func Markdown(w models.Waystation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Marks\n", w.Name)
	for i, m := range w.Marks {
		writeMark(&b, i, m)
	}
	fmt.Fprintf(&b, "\n\n*Tags*\n[%s]\n", strings.Join(w.Tags, ","))
	return b.String()
}

func writeMark(b *strings.Builder, i int, m models.Mark) {
	fmt.Fprintf(b, "### %d) %s\n\n", i+1, m.Name)
	fmt.Fprintf(b, "`%s`\n\n", waystation.MarkWithPath(m))
	fmt.Fprintf(b, "> %s\n\n", m.Body)
	if len(m.Resources) > 0 {
		b.WriteString("#### Resources")
	}
	b.WriteByte('\n')
	for j, r := range m.Resources {
		if j > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(b, "##### %s  \n```\n%s\n```\n", r.Name, r.Body)
	}
	b.WriteString("\n---\n")
}

var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// HTML renders w as an HTML fragment. Raw HTML in mark and resource text is
// escaped.
func HTML(w models.Waystation) ([]byte, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(Markdown(w)), &buf); err != nil {
		return nil, fmt.Errorf("export: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// Render returns w in format f.
func Render(w models.Waystation, f Format) ([]byte, error) {
	switch f {
	case FormatHTML:
		return HTML(w)
	case FormatMarkdown, "":
		return []byte(Markdown(w)), nil
	default:
		return nil, fmt.Errorf("export: unknown format %q", f)
	}
}

// WriteFile renders w into dir/<id>.<format>, creating dir on demand, and
// returns the written path.
func WriteFile(dir string, w models.Waystation, f Format) (string, error) {
	if f == "" {
		f = FormatMarkdown
	}
	data, err := Render(w, f)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir: %w", err)
	}
	path := filepath.Join(dir, w.ID+"."+string(f))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write: %w", err)
	}
	return path, nil
}
