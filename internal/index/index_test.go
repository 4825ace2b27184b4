package index

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/waystation/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "waystation-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleWaystation() models.Waystation {
	return models.Waystation{
		ID:   "w1",
		Name: "auth refactor",
		Marks: []models.Mark{{
			ID: "m1", Name: "login handler", Path: "/src/login.go", Line: 12, Column: 4,
			Body: "func Login(", Resources: []models.Resource{
				{Type: models.ResourceNote, ID: "r1", Name: "Note #1", Body: "uniqueword lives here"},
			},
		}},
		Tags:          []string{"go", "auth"},
		Configuration: models.Configuration{Directory: "~/.waystation/"},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM waystations`).Scan(&count); err != nil {
		t.Fatalf("waystations table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM projects`).Scan(&count); err != nil {
		t.Fatalf("projects table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := Row{
		ID:        "w1",
		Name:      "Hello",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertWaystation(row, "a body"); err != nil {
		t.Fatalf("UpsertWaystation: %v", err)
	}
	cs, err := db.GetChecksum("w1")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertWaystation(Row{ID: "up", Name: "Old", Checksum: "1"}, "old body")
	_ = db.UpsertWaystation(Row{ID: "up", Name: "New", Checksum: "2", Tags: []string{"new"}}, "new body")

	cs, _ := db.GetChecksum("up")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	all, _ := db.AllChecksums()
	if len(all) != 1 {
		t.Errorf("rows = %d, want 1", len(all))
	}
}

func TestDeleteWaystation(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertWaystation(Row{ID: "del", Checksum: "x"}, "body")

	if err := db.DeleteWaystation("del"); err != nil {
		t.Fatalf("DeleteWaystation: %v", err)
	}
	cs, _ := db.GetChecksum("del")
	if cs != "" {
		t.Errorf("deleted waystation still has checksum %q", cs)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertWaystation(Row{ID: "a", Checksum: "1"}, "")
	_ = db.UpsertWaystation(Row{ID: "b", Checksum: "2"}, "")
	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if all["a"] != "1" || all["b"] != "2" || len(all) != 2 {
		t.Errorf("all = %v", all)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	if err := Put(db, sampleWaystation()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "w1" || results[0].Name != "auth refactor" {
		t.Errorf("search results = %+v, want 1 hit for w1", results)
	}
}

func TestPut_ChecksumMatchesStoredEncoding(t *testing.T) {
	db := testDB(t)
	w := sampleWaystation()
	_ = Put(db, w)
	first, _ := db.GetChecksum("w1")
	w.Name = "renamed"
	_ = Put(db, w)
	second, _ := db.GetChecksum("w1")
	if first == "" || first == second {
		t.Errorf("checksums = %q, %q", first, second)
	}
}

func TestBody(t *testing.T) {
	body := Body(sampleWaystation())
	for _, want := range []string{"login handler", "/src/login.go:12:4", "func Login(", "Note #1", "uniqueword"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestAssociate(t *testing.T) {
	db := testDB(t)
	if err := db.Associate("/work/api", "w1"); err != nil {
		t.Fatalf("Associate: %v", err)
	}
	_ = db.Associate("/work/api/", "w2")
	_ = db.Associate("/work/web", "w3")
	_ = db.Associate("/work/api", "w1")

	ids, err := db.ProjectWaystations("/work/api")
	if err != nil {
		t.Fatalf("ProjectWaystations: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2 entries", ids)
	}
	if ids[0] != "w1" {
		t.Errorf("most recent association first: %v", ids)
	}
	none, _ := db.ProjectWaystations("/elsewhere")
	if len(none) != 0 {
		t.Errorf("unexpected ids %v", none)
	}
}

func TestDeleteKeepsAssociation(t *testing.T) {
	db := testDB(t)
	_ = Put(db, sampleWaystation())
	_ = db.Associate("/p", "w1")
	_ = db.DeleteWaystation("w1")
	ids, _ := db.ProjectWaystations("/p")
	if len(ids) != 1 {
		t.Errorf("association dropped: %v", ids)
	}
}
