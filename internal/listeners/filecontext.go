package listeners

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/notify"
	"github.com/starford/waystation/internal/waystation"
)

// FileContextName names the note that carries the lines around a mark.
const FileContextName = "File Context"

// DefaultContextLines is the radius used when FileContext.Lines is zero.
const DefaultContextLines = 3

// FileContext attaches the lines surrounding a mark's line as a note.
type FileContext struct {
	Engine *waystation.Engine
	Lines  int
}

// Enrich replaces the File Context note of ev.Mark with fresh lines from
// its file. Marks without a line, or whose file cannot be read, end up
// without the note.
func (f FileContext) Enrich(_ context.Context, w models.Waystation, ev notify.Event) (models.Waystation, error) {
	if ev.Mark == nil || (ev.Kind != notify.NewMark && ev.Kind != notify.EditMark) {
		return w, nil
	}
	index := waystation.FindMark(w, ev.Mark.ID)
	if index < 0 {
		return w, nil
	}
	mark := w.Marks[index]

	out, err := f.Engine.RemoveResourceByName(w, mark, FileContextName)
	if err != nil {
		return w, err
	}
	if mark.Line <= 0 || mark.Path == "" {
		return out, nil
	}
	radius := f.Lines
	if radius == 0 {
		radius = DefaultContextLines
	}
	text, err := ReadContext(mark.Path, mark.Line, radius)
	if err != nil || text == "" {
		return out, nil
	}
	return f.Engine.NewResource(out, mark, models.ResourceNote, text, FileContextName)
}

// ReadContext returns the 1-based lines line-radius through line+radius of
// the file at path, each terminated by a newline.
func ReadContext(path string, line, radius int) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("listeners: open %s: %w", path, err)
	}
	defer file.Close()

	first, last := line-radius, line+radius
	var b strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if n < first {
			continue
		}
		if n > last {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("listeners: read %s: %w", path, err)
	}
	return b.String(), nil
}
