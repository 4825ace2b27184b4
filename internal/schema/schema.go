// Package schema normalises and validates Waystation documents.
//
// Parse is used after every engine mutation on typed values. Decode and
// Attempt accept arbitrary JSON-decoded data (for import and update paths):
// the value is first checked against the Waystation JSON Schema, then decoded,
// defaulted and validated like a typed value.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/waystation/internal/models"
)

// ErrInvalid identifies schema failures; every *Error unwraps to it.
var ErrInvalid = errors.New("waystation schema invalid")

//go:embed waystation.schema.json
var documentSchema []byte

// Document returns the JSON Schema describing a stored Waystation.
func Document() []byte {
	out := make([]byte, len(documentSchema))
	copy(out, documentSchema)
	return out
}

var compiled = mustCompile()

func mustCompile() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("waystation.schema.json", bytes.NewReader(documentSchema)); err != nil {
		panic(fmt.Sprintf("schema: add resource: %v", err))
	}
	s, err := compiler.Compile("waystation.schema.json")
	if err != nil {
		panic(fmt.Sprintf("schema: compile: %v", err))
	}
	return s
}

// Issue is one validation failure. Path is dot separated ("marks.0.line");
// the empty path refers to the document itself.
type Issue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Error is the structured validation failure returned by Parse and Decode.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		loc := issue.Path
		if loc == "" {
			loc = "(root)"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", loc, issue.Reason))
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Issues extracts the issues carried by err, or nil if err is not a schema error.
func Issues(err error) []Issue {
	var se *Error
	if errors.As(err, &se) {
		return se.Issues
	}
	return nil
}

// Invalid builds a single-issue Error.
func Invalid(path, reason string) *Error {
	return &Error{Issues: []Issue{{Path: path, Reason: reason}}}
}

// Defaults are the values filled into absent fields.
type Defaults struct {
	Directory string
}

func (d Defaults) directory() string {
	if d.Directory == "" {
		return models.DefaultDirectory
	}
	return d.Directory
}

// Parse fills defaults into w and validates the result. The input is not
// modified; the returned value never aliases its slices.
func Parse(w models.Waystation, d Defaults) (models.Waystation, error) {
	out := normalize(w.Clone(), d)
	if err := out.Validate(); err != nil {
		return models.Waystation{}, fromValidation(err)
	}
	return out, nil
}

// Decode validates an arbitrary JSON-decoded value (as produced by
// json.Unmarshal into an any) and converts it into a Waystation.
func Decode(v any, d Defaults) (models.Waystation, error) {
	if err := compiled.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return models.Waystation{}, &Error{Issues: collectIssues(ve)}
		}
		return models.Waystation{}, fmt.Errorf("schema: validate: %w", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return models.Waystation{}, fmt.Errorf("schema: re-encode: %w", err)
	}
	var w models.Waystation
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Waystation{}, Invalid("", err.Error())
	}
	return Parse(w, d)
}

// DecodeJSON decodes raw JSON text and validates it with Decode.
func DecodeJSON(data []byte, d Defaults) (models.Waystation, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return models.Waystation{}, Invalid("", "invalid JSON: "+err.Error())
	}
	return Decode(v, d)
}

// Result is the outcome of Attempt.
type Result struct {
	Success bool               `json:"success"`
	Data    *models.Waystation `json:"data,omitempty"`
	Issues  []Issue            `json:"issues,omitempty"`
}

// Attempt is Decode reporting failures as a Result value.
func Attempt(v any, d Defaults) Result {
	w, err := Decode(v, d)
	if err != nil {
		issues := Issues(err)
		if issues == nil {
			issues = []Issue{{Reason: err.Error()}}
		}
		return Result{Issues: issues}
	}
	return Result{Success: true, Data: &w}
}

// AttemptJSON is Attempt over raw JSON text.
func AttemptJSON(data []byte, d Defaults) Result {
	w, err := DecodeJSON(data, d)
	if err != nil {
		issues := Issues(err)
		if issues == nil {
			issues = []Issue{{Reason: err.Error()}}
		}
		return Result{Issues: issues}
	}
	return Result{Success: true, Data: &w}
}

func normalize(w models.Waystation, d Defaults) models.Waystation {
	if w.Marks == nil {
		w.Marks = []models.Mark{}
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	if w.Configuration.Directory == "" {
		w.Configuration.Directory = d.directory()
	}
	for i := range w.Marks {
		if w.Marks[i].Resources == nil {
			w.Marks[i].Resources = []models.Resource{}
		}
	}
	return w
}

// fromValidation flattens nested ozzo errors into dotted issue paths.
func fromValidation(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		var ie validation.InternalError
		if errors.As(err, &ie) {
			return fmt.Errorf("schema: %w", err)
		}
		return Invalid("", err.Error())
	}
	var issues []Issue
	flatten("", errs, &issues)
	sort.Slice(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return &Error{Issues: issues}
}

func flatten(prefix string, errs validation.Errors, out *[]Issue) {
	for key, err := range errs {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(path, nested, out)
			continue
		}
		*out = append(*out, Issue{Path: path, Reason: err.Error()})
	}
}

func collectIssues(ve *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Path:   pointerToPath(node.InstanceLocation),
				Reason: strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return issues
}

// pointerToPath turns a JSON pointer ("/marks/0/line") into "marks.0.line".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimSpace(ptr), "/")
	if ptr == "" {
		return ""
	}
	segments := strings.Split(ptr, "/")
	for i, s := range segments {
		s = strings.ReplaceAll(s, "~1", "/")
		segments[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return strings.Join(segments, ".")
}
