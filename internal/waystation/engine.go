// Package waystation implements the pure mutation operations over Waystation
// values.
//
// Every operation leaves its inputs untouched and returns a new value that has
// been normalised and validated by the schema package. Lookups that miss (a
// stale mark, an out-of-range index) are silent no-ops that return the
// unchanged aggregate; only schema failures and unknown mark fields are
// reported as errors.
package waystation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/pathparse"
	"github.com/starford/waystation/internal/schema"
)

// Engine carries the explicit configuration the operations depend on.
// The zero value is not usable; construct with New.
type Engine struct {
	newID       func() string
	directory   string
	resolvePath func(string) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithDefaultDirectory sets the configuration.directory given to new and
// incomplete Waystations.
func WithDefaultDirectory(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.directory = dir
		}
	}
}

// WithPathResolver sets the function applied to parsed mark paths, e.g. to
// make file paths absolute. The default keeps paths as given.
func WithPathResolver(fn func(string) string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.resolvePath = fn
		}
	}
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		newID:       uuid.NewString,
		directory:   models.DefaultDirectory,
		resolvePath: func(p string) string { return p },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults returns the schema defaults used by the engine.
func (e *Engine) Defaults() schema.Defaults {
	return schema.Defaults{Directory: e.directory}
}

// Validate normalises w against the schema.
func (e *Engine) Validate(w models.Waystation) (models.Waystation, error) {
	return schema.Parse(w, e.Defaults())
}

// Create returns a fresh Waystation with a new id and no marks or tags.
func (e *Engine) Create(name string) (models.Waystation, error) {
	return e.Validate(models.Waystation{
		ID:            e.newID(),
		Name:          name,
		Marks:         []models.Mark{},
		Tags:          []string{},
		Configuration: models.Configuration{Directory: e.directory},
	})
}

// MakeMark builds a Mark with a fresh id from free-form input.
func (e *Engine) MakeMark(input string) models.Mark {
	parts := pathparse.Parse(input)
	path := parts.Path
	if path != "" {
		path = e.resolvePath(path)
	}
	return models.Mark{
		ID:        e.newID(),
		Name:      parts.Name,
		Path:      path,
		Line:      parts.Line,
		Column:    parts.Column,
		Body:      parts.Body,
		Resources: []models.Resource{},
	}
}

// AddMark appends mark to w.
func (e *Engine) AddMark(w models.Waystation, mark models.Mark) (models.Waystation, error) {
	out := w.Clone()
	out.Marks = append(out.Marks, mark.Clone())
	return e.Validate(out)
}

// NewMark parses input into a new Mark and appends it.
func (e *Engine) NewMark(w models.Waystation, input string) (models.Waystation, error) {
	return e.AddMark(w, e.MakeMark(input))
}

// ReplaceMark substitutes the mark at index. Out-of-range indexes leave the
// marks unchanged.
func (e *Engine) ReplaceMark(w models.Waystation, index int, mark models.Mark) (models.Waystation, error) {
	out := w.Clone()
	if index >= 0 && index < len(out.Marks) {
		out.Marks[index] = mark.Clone()
	}
	return e.Validate(out)
}

// EditMark replaces one field of the mark whose id matches mark.ID.
// A mark that is no longer present is a no-op.
func (e *Engine) EditMark(w models.Waystation, mark models.Mark, field MarkField, value any) (models.Waystation, error) {
	if !field.Valid() {
		return models.Waystation{}, fmt.Errorf("%w: %s", apperr.ErrUnknownField, field)
	}
	index := FindMark(w, mark.ID)
	if index < 0 {
		return e.Validate(w)
	}
	updated, err := field.apply(w.Marks[index], value)
	if err != nil {
		return models.Waystation{}, schema.Invalid(fmt.Sprintf("marks.%d.%s", index, field), err.Error())
	}
	return e.ReplaceMark(w, index, updated)
}

// ReorderMarks moves the mark at from to position to. Destinations outside
// the sequence, and sources outside it, leave the order unchanged.
func (e *Engine) ReorderMarks(w models.Waystation, from, to int) (models.Waystation, error) {
	n := len(w.Marks)
	if to < 0 || to >= n || from < 0 || from >= n {
		return e.Validate(w)
	}
	out := w.Clone()
	out.Marks = reorder(w.Marks, from, to)
	return e.Validate(out)
}

// reorder rebuilds marks in a single pass: the element at from is skipped
// where it stands and re-inserted when the pass reaches to, after the current
// element when moving down and before it when moving up.
func reorder(marks []models.Mark, from, to int) []models.Mark {
	out := make([]models.Mark, 0, len(marks))
	for i, m := range marks {
		if from == to {
			out = append(out, m.Clone())
			continue
		}
		if i == from {
			continue
		}
		if from < to {
			out = append(out, m.Clone())
		}
		if i == to {
			out = append(out, marks[from].Clone())
		}
		if from > to {
			out = append(out, m.Clone())
		}
	}
	return out
}

// MoveMarkUp moves mark one position towards the start.
func (e *Engine) MoveMarkUp(w models.Waystation, mark models.Mark) (models.Waystation, error) {
	index := FindMark(w, mark.ID)
	if index < 0 {
		return e.Validate(w)
	}
	return e.ReorderMarks(w, index, index-1)
}

// MoveMarkDown moves mark one position towards the end.
func (e *Engine) MoveMarkDown(w models.Waystation, mark models.Mark) (models.Waystation, error) {
	index := FindMark(w, mark.ID)
	if index < 0 {
		return e.Validate(w)
	}
	return e.ReorderMarks(w, index, index+1)
}

// RemoveMarkByIndex drops the mark at index.
func (e *Engine) RemoveMarkByIndex(w models.Waystation, index int) (models.Waystation, error) {
	out := w.Clone()
	marks := make([]models.Mark, 0, len(out.Marks))
	for i, m := range out.Marks {
		if i != index {
			marks = append(marks, m)
		}
	}
	out.Marks = marks
	return e.Validate(out)
}

// MakeResource builds a Resource with a fresh id.
func (e *Engine) MakeResource(t models.ResourceType, body, name string) models.Resource {
	return models.Resource{
		Type: t,
		ID:   e.newID(),
		Name: name,
		Body: body,
	}
}

// NewResource appends a resource to the mark whose id matches mark.ID.
func (e *Engine) NewResource(w models.Waystation, mark models.Mark, t models.ResourceType, body, name string) (models.Waystation, error) {
	index := FindMark(w, mark.ID)
	if index < 0 {
		return e.Validate(w)
	}
	updated := w.Marks[index].Clone()
	updated.Resources = append(updated.Resources, e.MakeResource(t, body, name))
	return e.ReplaceMark(w, index, updated)
}

// RemoveResourceByName drops every resource named name from the mark.
func (e *Engine) RemoveResourceByName(w models.Waystation, mark models.Mark, name string) (models.Waystation, error) {
	index := FindMark(w, mark.ID)
	if index < 0 {
		return e.Validate(w)
	}
	updated := w.Marks[index].Clone()
	kept := make([]models.Resource, 0, len(updated.Resources))
	for _, r := range updated.Resources {
		if r.Name != name {
			kept = append(kept, r)
		}
	}
	updated.Resources = kept
	return e.ReplaceMark(w, index, updated)
}

// AddTag appends tag. Empty tags are ignored; duplicates are kept.
func (e *Engine) AddTag(w models.Waystation, tag string) (models.Waystation, error) {
	out := w.Clone()
	if tag != "" {
		out.Tags = append(out.Tags, tag)
	}
	return e.Validate(out)
}

// Rename sets the display name of w.
func (e *Engine) Rename(w models.Waystation, name string) (models.Waystation, error) {
	out := w.Clone()
	out.Name = name
	return e.Validate(out)
}

// FindMark returns the index of the mark with id, or -1.
func FindMark(w models.Waystation, id string) int {
	for i, m := range w.Marks {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// MarkAt returns the mark at index.
func MarkAt(w models.Waystation, index int) (models.Mark, bool) {
	if index < 0 || index >= len(w.Marks) {
		return models.Mark{}, false
	}
	return w.Marks[index], true
}

// LastMark returns the most recently appended mark.
func LastMark(w models.Waystation) (models.Mark, bool) {
	return MarkAt(w, len(w.Marks)-1)
}

// MarkWithPath renders the canonical "path:line:column" key of a mark.
func MarkWithPath(m models.Mark) string {
	return fmt.Sprintf("%s:%d:%d", m.Path, m.Line, m.Column)
}
