// Package models defines the domain types for Waystation.
package models

// DefaultDirectory is the storage location hint given to Waystations that do
// not carry one.
const DefaultDirectory = "~/.waystation/"

// ResourceType enumerates the kinds of content a Mark can carry.
type ResourceType string

// Resource types.
const (
	ResourceNote       ResourceType = "note"
	ResourceURL        ResourceType = "url"
	ResourceWaystation ResourceType = "waystation"
	ResourcePath       ResourceType = "path"
)

// ResourceTypes lists every accepted ResourceType in declaration order.
var ResourceTypes = []ResourceType{ResourceNote, ResourceURL, ResourceWaystation, ResourcePath}

// Waystation is the root aggregate: a named, persisted, ordered collection of marks.
type Waystation struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Marks         []Mark        `json:"marks"`
	Tags          []string      `json:"tags"`
	Configuration Configuration `json:"configuration"`
}

// Configuration holds per-Waystation settings.
type Configuration struct {
	Directory string `json:"directory"`
}

// Mark is one bookmark within a Waystation.
type Mark struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Line      int        `json:"line"`
	Column    int        `json:"column"`
	Body      string     `json:"body"`
	Resources []Resource `json:"resources"`
}

// Resource is supplementary content attached to a Mark.
type Resource struct {
	Type ResourceType `json:"type"`
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Body string       `json:"body"`
}

// Clone returns a deep copy of w. Slices of the copy never alias w.
func (w Waystation) Clone() Waystation {
	out := w
	out.Tags = cloneSlice(w.Tags)
	if w.Marks != nil {
		out.Marks = make([]Mark, len(w.Marks))
		for i, m := range w.Marks {
			out.Marks[i] = m.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Mark) Clone() Mark {
	out := m
	out.Resources = cloneSlice(m.Resources)
	return out
}

// DisplayName returns the name, falling back to the id.
func (w Waystation) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.ID
}

// DisplayName returns the name, falling back to the id.
func (m Mark) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// CountResources returns how many resources of type t the mark carries.
func (m Mark) CountResources(t ResourceType) int {
	n := 0
	for _, r := range m.Resources {
		if r.Type == t {
			n++
		}
	}
	return n
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
