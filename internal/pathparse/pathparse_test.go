package pathparse

import "testing"

const basicPath = "/some/path.ts"

func TestParse_Empty(t *testing.T) {
	got := Parse("")
	if got != (Parts{}) {
		t.Errorf("Parse(\"\") = %+v, want zero value", got)
	}
}

func TestParse_FreeText(t *testing.T) {
	in := "random string"
	got := Parse(in)
	if got.Name != in || got.Body != in || got.Path != in {
		t.Errorf("free text not kept verbatim: %+v", got)
	}
	if got.Line != 0 || got.Column != 0 {
		t.Errorf("line/column = %d/%d, want 0/0", got.Line, got.Column)
	}
}

func TestParse_BasicPath(t *testing.T) {
	got := Parse(basicPath)
	if got.Path != basicPath || got.Name != basicPath || got.Body != basicPath {
		t.Errorf("basic path = %+v", got)
	}
}

func TestParse_PathWithLine(t *testing.T) {
	got := Parse(basicPath + ":123")
	if got.Path != basicPath {
		t.Errorf("path = %q, want %q", got.Path, basicPath)
	}
	if got.Line != 123 || got.Column != 0 {
		t.Errorf("line/column = %d/%d, want 123/0", got.Line, got.Column)
	}
	if got.Name != basicPath || got.Body != basicPath {
		t.Errorf("name/body should fall back to path: %+v", got)
	}
}

func TestParse_PathWithLineAndColumn(t *testing.T) {
	got := Parse(basicPath + ":123:45")
	if got.Path != basicPath || got.Line != 123 || got.Column != 45 {
		t.Errorf("got %+v", got)
	}
}

func TestParse_GrepSnippet(t *testing.T) {
	got := Parse("/a/b.ts:10:4:foo(){")
	if got.Path != "/a/b.ts" || got.Line != 10 || got.Column != 4 {
		t.Errorf("got %+v", got)
	}
	if got.Body != "foo(){" || got.Name != "foo(){" {
		t.Errorf("snippet not used as name/body: %+v", got)
	}
}

func TestParse_SnippetKeepsLeadingSpace(t *testing.T) {
	got := Parse(basicPath + ":123:123: someMatchingLine(){")
	if got.Body != " someMatchingLine(){" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestParse_SnippetWithoutColumn(t *testing.T) {
	got := Parse("main.go:7:func main() {")
	if got.Path != "main.go" || got.Line != 7 || got.Column != 0 {
		t.Errorf("got %+v", got)
	}
	if got.Body != "func main() {" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestParse_MalformedFallsBack(t *testing.T) {
	cases := []string{
		basicPath + ": someMatchingLine(){",
		basicPath + ":123 someMatchingLine(){",
		"my file.go:12",
		"C:\\code\\main.go:3",
		"https://example.com:8080",
	}
	for _, in := range cases {
		got := Parse(in)
		if got.Name != in || got.Body != in || got.Path != in {
			t.Errorf("Parse(%q) = %+v, want verbatim fallback", in, got)
		}
		if got.Line != 0 || got.Column != 0 {
			t.Errorf("Parse(%q) line/column = %d/%d", in, got.Line, got.Column)
		}
	}
}
