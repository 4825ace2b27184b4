package waystation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/schema"
)

const (
	basicPath             = "/some/path.ts"
	pathWithLine          = "/some/path.ts:123"
	pathWithLineAndColumn = "/some/path.ts:123:123"
	grepMatchPath         = "/some/path.ts:123:123: someMatchingLine(){"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testEngine() *Engine {
	return New(WithIDGenerator(sequentialIDs()))
}

// must fails the test on error, e.g. w := must(t)(e.Create("")).
func must(t *testing.T) func(models.Waystation, error) models.Waystation {
	t.Helper()
	return func(w models.Waystation, err error) models.Waystation {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return w
	}
}

func withMarks(t *testing.T, e *Engine, inputs ...string) models.Waystation {
	t.Helper()
	w := must(t)(e.Create(""))
	for _, in := range inputs {
		w = must(t)(e.NewMark(w, in))
	}
	return w
}

func ids(w models.Waystation) []string {
	out := make([]string, len(w.Marks))
	for i, m := range w.Marks {
		out[i] = m.ID
	}
	return out
}

func TestCreate_Empty(t *testing.T) {
	w := must(t)(testEngine().Create(""))
	if w.ID == "" {
		t.Fatal("id should be set")
	}
	if len(w.Marks) != 0 || len(w.Tags) != 0 {
		t.Errorf("marks/tags should be empty: %+v", w)
	}
	if w.Configuration.Directory != models.DefaultDirectory {
		t.Errorf("directory = %q", w.Configuration.Directory)
	}
}

func TestCreate_WithName(t *testing.T) {
	w := must(t)(testEngine().Create("waystation naming"))
	if w.Name != "waystation naming" {
		t.Errorf("name = %q", w.Name)
	}
}

func TestCreate_UniqueIDs(t *testing.T) {
	e := New()
	a := must(t)(e.Create(""))
	b := must(t)(e.Create(""))
	if a.ID == b.ID {
		t.Errorf("ids collide: %s", a.ID)
	}
}

func TestCreate_DefaultDirectoryOption(t *testing.T) {
	w := must(t)(New(WithDefaultDirectory("/tmp/ws")).Create(""))
	if w.Configuration.Directory != "/tmp/ws" {
		t.Errorf("directory = %q", w.Configuration.Directory)
	}
}

func TestNewMark_SimplePath(t *testing.T) {
	w := withMarks(t, testEngine(), basicPath)
	if w.Marks[0].Path != basicPath {
		t.Errorf("path = %q", w.Marks[0].Path)
	}
}

func TestNewMark_UniqueIDs(t *testing.T) {
	w := withMarks(t, testEngine(), basicPath, basicPath)
	if w.Marks[0].ID == "" || w.Marks[0].ID == w.Marks[1].ID {
		t.Errorf("mark ids = %v", ids(w))
	}
}

func TestNewMark_LineAndColumn(t *testing.T) {
	w := withMarks(t, testEngine(), pathWithLineAndColumn)
	m := w.Marks[0]
	if m.Line != 123 || m.Column != 123 {
		t.Errorf("line/column = %d/%d", m.Line, m.Column)
	}
	if m.Path != basicPath {
		t.Errorf("path = %q, want suffix stripped", m.Path)
	}
}

func TestNewMark_LineOnly(t *testing.T) {
	m := withMarks(t, testEngine(), pathWithLine).Marks[0]
	if m.Line != 123 || m.Column != 0 {
		t.Errorf("line/column = %d/%d", m.Line, m.Column)
	}
}

func TestNewMark_GrepLine(t *testing.T) {
	m := withMarks(t, testEngine(), grepMatchPath).Marks[0]
	if m.Path != basicPath || m.Line != 123 || m.Column != 123 {
		t.Errorf("mark = %+v", m)
	}
	if strings.Contains(m.Path, "someMatchingLine") {
		t.Errorf("snippet leaked into path: %q", m.Path)
	}
}

func TestNewMark_ScenarioA(t *testing.T) {
	m := withMarks(t, testEngine(), "/a/b.ts:10:4:foo(){").Marks[0]
	if m.Path != "/a/b.ts" || m.Line != 10 || m.Column != 4 || m.Body != "foo(){" {
		t.Errorf("mark = %+v", m)
	}
}

func TestNewMark_PathResolver(t *testing.T) {
	e := New(WithPathResolver(func(p string) string { return "/root/" + p }))
	w := must(t)(e.Create(""))
	w = must(t)(e.NewMark(w, "main.go:3"))
	if w.Marks[0].Path != "/root/main.go" {
		t.Errorf("path = %q", w.Marks[0].Path)
	}
}

func TestNewMark_InputUnchanged(t *testing.T) {
	e := testEngine()
	before := must(t)(e.Create(""))
	after := must(t)(e.NewMark(before, basicPath))
	if len(before.Marks) != 0 {
		t.Errorf("input waystation gained marks: %d", len(before.Marks))
	}
	if len(after.Marks) != 1 {
		t.Errorf("len(after.Marks) = %d", len(after.Marks))
	}
}

func TestReplaceMark(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	m := w.Marks[0]
	m.Body = "very descriptive"
	w2 := must(t)(e.ReplaceMark(w, 0, m))
	if w2.Marks[0].Body != "very descriptive" {
		t.Errorf("body = %q", w2.Marks[0].Body)
	}
	if w.Marks[0].Body == "very descriptive" {
		t.Error("previous value was modified")
	}
}

func TestReplaceMark_OutOfRange(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	w2 := must(t)(e.ReplaceMark(w, 5, models.Mark{ID: "other", Path: "x"}))
	if !reflect.DeepEqual(w, w2) {
		t.Errorf("out-of-range replace changed the waystation")
	}
}

func TestEditMark(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	w2 := must(t)(e.EditMark(w, w.Marks[0], FieldBody, "very descriptive"))
	if w2.Marks[0].Body != "very descriptive" {
		t.Errorf("body = %q", w2.Marks[0].Body)
	}
	if w2.Marks[0].ID != w.Marks[0].ID {
		t.Error("mark id changed on edit")
	}
}

func TestEditMark_IntegerFields(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	w = must(t)(e.EditMark(w, w.Marks[0], FieldLine, 42))
	w = must(t)(e.EditMark(w, w.Marks[0], FieldColumn, "7"))
	if w.Marks[0].Line != 42 || w.Marks[0].Column != 7 {
		t.Errorf("line/column = %d/%d", w.Marks[0].Line, w.Marks[0].Column)
	}
}

func TestEditMark_WrongKindIsSchemaError(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	_, err := e.EditMark(w, w.Marks[0], FieldLine, "ten")
	if !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("err = %v, want schema error", err)
	}
	issues := schema.Issues(err)
	if len(issues) != 1 || issues[0].Path != "marks.0.line" {
		t.Errorf("issues = %+v", issues)
	}
}

func TestEditMark_NegativeLineRejectedBySchema(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	_, err := e.EditMark(w, w.Marks[0], FieldLine, -3)
	if !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("err = %v, want schema error", err)
	}
}

func TestEditMark_UnknownField(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	_, err := e.EditMark(w, w.Marks[0], MarkField(99), "x")
	if !errors.Is(err, apperr.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestEditMark_MissingMarkIsNoop(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	w2 := must(t)(e.EditMark(w, models.Mark{ID: "stale"}, FieldName, "x"))
	if !reflect.DeepEqual(w, w2) {
		t.Error("editing a missing mark changed the waystation")
	}
}

func TestParseMarkField(t *testing.T) {
	for _, f := range MarkFields {
		got, err := ParseMarkField(strings.ToUpper(f.String()))
		if err != nil || got != f {
			t.Errorf("ParseMarkField(%q) = %v, %v", f.String(), got, err)
		}
	}
	for _, name := range []string{"id", "resources", "description", ""} {
		if _, err := ParseMarkField(name); !errors.Is(err, apperr.ErrUnknownField) {
			t.Errorf("ParseMarkField(%q) err = %v, want ErrUnknownField", name, err)
		}
	}
}

func TestReorderMarks_FirstToLast(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath, pathWithLineAndColumn, pathWithLine)
	first := w.Marks[0].ID
	w = must(t)(e.ReorderMarks(w, 0, len(w.Marks)-1))
	if w.Marks[len(w.Marks)-1].ID != first {
		t.Errorf("order = %v", ids(w))
	}
}

func TestReorderMarks_Permutations(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, "a", "b", "c", "d")
	a, b, c, d := w.Marks[0].ID, w.Marks[1].ID, w.Marks[2].ID, w.Marks[3].ID

	cases := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{b, c, a, d}},
		{3, 1, []string{a, d, b, c}},
		{1, 1, []string{a, b, c, d}},
		{2, 3, []string{a, b, d, c}},
		{3, 0, []string{d, a, b, c}},
	}
	for _, tc := range cases {
		got := ids(must(t)(e.ReorderMarks(w, tc.from, tc.to)))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("reorder(%d, %d) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestReorderMarks_InverseRestoresOrder(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, "a", "b", "c", "d", "e")
	original := ids(w)
	for from := 0; from < len(original); from++ {
		for to := 0; to < len(original); to++ {
			if from == to {
				continue
			}
			moved := must(t)(e.ReorderMarks(w, from, to))
			back := must(t)(e.ReorderMarks(moved, to, from))
			if !reflect.DeepEqual(ids(back), original) {
				t.Errorf("reorder(%d,%d) then (%d,%d) = %v, want %v", from, to, to, from, ids(back), original)
			}
		}
	}
}

func TestReorderMarks_KeepsMultiset(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, "a", "b", "c")
	seen := map[string]int{}
	for _, id := range ids(must(t)(e.ReorderMarks(w, 2, 0))) {
		seen[id]++
	}
	for _, id := range ids(w) {
		if seen[id] != 1 {
			t.Errorf("id %s appears %d times", id, seen[id])
		}
	}
}

func TestReorderMarks_OutOfRange(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	for _, to := range []int{-1, 1, 10} {
		got := must(t)(e.ReorderMarks(w, 0, to))
		if !reflect.DeepEqual(ids(got), ids(w)) {
			t.Errorf("reorder(0, %d) = %v", to, ids(got))
		}
	}
	got := must(t)(e.ReorderMarks(w, -1, 0))
	if !reflect.DeepEqual(ids(got), ids(w)) {
		t.Errorf("reorder(-1, 0) = %v", ids(got))
	}
}

func TestMoveMarkUp(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath, pathWithLine)
	m := w.Marks[1]
	w = must(t)(e.MoveMarkUp(w, m))
	if w.Marks[0].ID != m.ID {
		t.Errorf("order = %v", ids(w))
	}
}

func TestMoveMarkDown_ScenarioB(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath, pathWithLine)
	m0, m1 := w.Marks[0], w.Marks[1]
	w = must(t)(e.MoveMarkDown(w, m0))
	if w.Marks[1].ID != m0.ID || w.Marks[0].ID != m1.ID {
		t.Errorf("order = %v", ids(w))
	}
}

func TestMoveMark_Edges(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, "a", "b")
	up := must(t)(e.MoveMarkUp(w, w.Marks[0]))
	down := must(t)(e.MoveMarkDown(w, w.Marks[1]))
	stale := must(t)(e.MoveMarkDown(w, models.Mark{ID: "stale"}))
	for _, got := range []models.Waystation{up, down, stale} {
		if !reflect.DeepEqual(ids(got), ids(w)) {
			t.Errorf("order = %v, want %v", ids(got), ids(w))
		}
	}
}

func TestRemoveMarkByIndex(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	w = must(t)(e.RemoveMarkByIndex(w, 0))
	if len(w.Marks) != 0 {
		t.Errorf("len = %d", len(w.Marks))
	}
}

func TestRemoveMarkByIndex_IDsNotReused(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	removed := w.Marks[0].ID
	w = must(t)(e.RemoveMarkByIndex(w, 0))
	w = must(t)(e.NewMark(w, basicPath))
	if w.Marks[0].ID == removed {
		t.Errorf("re-added mark reused id %s", removed)
	}
}

func TestMarkWithPath(t *testing.T) {
	w := withMarks(t, testEngine(), pathWithLineAndColumn, basicPath)
	if got := MarkWithPath(w.Marks[0]); got != pathWithLineAndColumn {
		t.Errorf("MarkWithPath = %q", got)
	}
	if got := MarkWithPath(w.Marks[1]); got != basicPath+":0:0" {
		t.Errorf("MarkWithPath = %q", got)
	}
}

func TestLastMark(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, pathWithLineAndColumn, basicPath)
	m, ok := LastMark(w)
	if !ok || m.Path != basicPath {
		t.Errorf("LastMark = %+v, %v", m, ok)
	}
	if _, ok := LastMark(must(t)(e.Create(""))); ok {
		t.Error("empty waystation should have no last mark")
	}
}

func TestNewResource(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, pathWithLineAndColumn)
	mark, _ := LastMark(w)
	w = must(t)(e.NewResource(w, mark, models.ResourceNote, "some text", ""))
	updated, _ := LastMark(w)
	if len(updated.Resources) != 1 || updated.Resources[0].Body != "some text" {
		t.Errorf("resources = %+v", updated.Resources)
	}
	if updated.Resources[0].ID == "" {
		t.Error("resource id should be set")
	}
}

func TestNewResource_MissingMarkIsNoop(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	w2 := must(t)(e.NewResource(w, models.Mark{ID: "stale"}, models.ResourceNote, "x", ""))
	if !reflect.DeepEqual(w, w2) {
		t.Error("adding to a missing mark changed the waystation")
	}
}

func TestNewResource_InvalidType(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	_, err := e.NewResource(w, w.Marks[0], models.ResourceType("video"), "x", "")
	if !errors.Is(err, schema.ErrInvalid) {
		t.Errorf("err = %v, want schema error", err)
	}
}

func TestRemoveResourceByName_ScenarioC(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, pathWithLineAndColumn)
	mark, _ := LastMark(w)
	before := len(mark.Resources)

	w = must(t)(e.NewResource(w, mark, models.ResourceNote, "hello", "Note #1"))
	if got, _ := LastMark(w); len(got.Resources) != before+1 {
		t.Fatalf("resources = %d", len(got.Resources))
	}
	w = must(t)(e.RemoveResourceByName(w, mark, "Note #1"))
	if got, _ := LastMark(w); len(got.Resources) != before {
		t.Errorf("resources = %d, want %d", len(got.Resources), before)
	}
}

func TestRemoveResourceByName_RemovesAllWithName(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, basicPath)
	m := w.Marks[0]
	w = must(t)(e.NewResource(w, m, models.ResourceNote, "a", "File Context"))
	w = must(t)(e.NewResource(w, m, models.ResourceURL, "https://x.dev", "Url #1"))
	w = must(t)(e.NewResource(w, m, models.ResourceNote, "b", "File Context"))
	w = must(t)(e.RemoveResourceByName(w, m, "File Context"))
	res := w.Marks[0].Resources
	if len(res) != 1 || res[0].Name != "Url #1" {
		t.Errorf("resources = %+v", res)
	}
}

func TestAddTag(t *testing.T) {
	e := testEngine()
	w := must(t)(e.Create(""))
	w = must(t)(e.AddTag(w, "deno"))
	w = must(t)(e.AddTag(w, "deno"))
	if !reflect.DeepEqual(w.Tags, []string{"deno", "deno"}) {
		t.Errorf("tags = %v", w.Tags)
	}
}

func TestAddTag_Empty(t *testing.T) {
	e := testEngine()
	w := must(t)(e.Create(""))
	w = must(t)(e.AddTag(w, ""))
	if len(w.Tags) != 0 {
		t.Errorf("tags = %v", w.Tags)
	}
}

func TestRename(t *testing.T) {
	e := testEngine()
	w := must(t)(e.Create("old"))
	w2 := must(t)(e.Rename(w, "new"))
	if w2.Name != "new" || w.Name != "old" {
		t.Errorf("names = %q / %q", w.Name, w2.Name)
	}
}

func TestOperations_DoNotMutatePreviousValues(t *testing.T) {
	e := testEngine()
	w := withMarks(t, e, "a", "b", "c")
	w = must(t)(e.NewResource(w, w.Marks[0], models.ResourceNote, "n", "Note #1"))
	w = must(t)(e.AddTag(w, "keep"))
	snapshot := w.Clone()

	_, _ = e.ReorderMarks(w, 0, 2)
	_, _ = e.RemoveMarkByIndex(w, 1)
	_, _ = e.EditMark(w, w.Marks[0], FieldName, "changed")
	_, _ = e.RemoveResourceByName(w, w.Marks[0], "Note #1")
	_, _ = e.AddTag(w, "more")
	_, _ = e.NewResource(w, w.Marks[0], models.ResourceURL, "https://a.b", "Url #1")

	if !reflect.DeepEqual(w, snapshot) {
		t.Error("an operation modified a previously returned value")
	}
}
