package reconcile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kism/backup-ivs/internal/directory"
)

// 1700000000 is 2023-11-14 UTC.
const createdAt = 1700000000

func testRec(id int64, name string) directory.Recording {
	return directory.Recording{ID: id, Name: name, CreatedAt: createdAt, AuthorID: 1, CameraCount: 2}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func TestEnsureHierarchy(t *testing.T) {
	home := t.TempDir()
	bucket, err := EnsureHierarchy(home, "Varsity", "2023")
	if err != nil {
		t.Fatalf("EnsureHierarchy: %v", err)
	}
	if bucket != filepath.Join(home, "Varsity", "2023") {
		t.Errorf("bucket = %s", bucket)
	}
	if fi, err := os.Stat(bucket); err != nil || !fi.IsDir() {
		t.Errorf("bucket not created: %v", err)
	}
}

func TestEnsureHierarchyFailure(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "Varsity"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureHierarchy(home, "Varsity", "2023"); err == nil {
		t.Fatal("want error when a file blocks the team directory")
	}
}

func TestReconcileCreatesCanonicalFolder(t *testing.T) {
	bucket := filepath.Join(t.TempDir(), "Varsity", "2023")
	res, err := New(nil).Reconcile(bucket, testRec(42, "Scrimmage"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := filepath.Join(bucket, "2023-11-14 42 Scrimmage")
	if res.Path != want {
		t.Errorf("Path = %s, want %s", res.Path, want)
	}
	if fi, err := os.Stat(want); err != nil || !fi.IsDir() {
		t.Errorf("canonical folder missing: %v", err)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	bucket := t.TempDir()
	r := New(nil)
	first, err := r.Reconcile(bucket, testRec(42, "Scrimmage"))
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	second, err := r.Reconcile(bucket, testRec(42, "Scrimmage"))
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if second.Path != first.Path || second.RenamedFrom != "" || second.Skipped {
		t.Errorf("second pass should be a no-op: %+v", second)
	}
}

func TestReconcileRenamesAfterUpstreamRename(t *testing.T) {
	bucket := t.TempDir()
	mustMkdir(t, filepath.Join(bucket, "2023-11-14 42 Old Title"))

	res, err := New(nil).Reconcile(bucket, testRec(42, "New Title"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.RenamedFrom != "2023-11-14 42 Old Title" {
		t.Errorf("RenamedFrom = %q", res.RenamedFrom)
	}
	if _, err := os.Stat(filepath.Join(bucket, "2023-11-14 42 New Title")); err != nil {
		t.Errorf("canonical folder missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bucket, "2023-11-14 42 Old Title")); !os.IsNotExist(err) {
		t.Error("old folder should be gone")
	}
}

func TestReconcileLegacySkips(t *testing.T) {
	bucket := t.TempDir()
	mustMkdir(t, filepath.Join(bucket, "2023-11-14 9001 Scrimmage"))

	res, err := New(nil).Reconcile(bucket, testRec(42, "Scrimmage"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Skipped || res.Legacy != "2023-11-14 9001 Scrimmage" {
		t.Fatalf("want legacy skip, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(bucket, "2023-11-14 42 Scrimmage")); !os.IsNotExist(err) {
		t.Error("no canonical folder may appear next to a legacy one")
	}
}

func TestReconcileDifferentDateIsNotLegacy(t *testing.T) {
	bucket := t.TempDir()
	mustMkdir(t, filepath.Join(bucket, "2023-11-13 9001 Scrimmage"))

	res, err := New(nil).Reconcile(bucket, testRec(42, "Scrimmage"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Skipped {
		t.Fatal("folder from another day must not count as legacy")
	}
}

func TestReconcileDuplicateIdsKeepFreshest(t *testing.T) {
	bucket := t.TempDir()
	fresh := filepath.Join(bucket, "2023-11-14 42 Fresh")
	stale := filepath.Join(bucket, "2023-11-13 42 Stale")
	mustMkdir(t, fresh)
	mustMkdir(t, stale)
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	res, err := New(nil).Reconcile(bucket, testRec(42, "Scrimmage"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.RenamedFrom != "2023-11-14 42 Fresh" {
		t.Errorf("survivor = %q, want the freshest folder", res.RenamedFrom)
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0] != "2023-11-13 42 Stale" {
		t.Errorf("Duplicates = %v, want the losing folder listed", res.Duplicates)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Errorf("losing duplicate must stay untouched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bucket, "2023-11-14 42 Scrimmage")); err != nil {
		t.Errorf("canonical folder missing: %v", err)
	}
}

func TestIsLegacy(t *testing.T) {
	r := testRec(42, "Team A: Review?")
	cases := []struct {
		name string
		want bool
	}{
		{"2023-11-14 7 Team A- Review-", true},
		{"2023-11-14 42 Team A- Review-", false}, // canonical, not legacy
		{"2023-11-13 7 Team A- Review-", false},  // wrong date
		{"2023-11-14 7 Other Title", false},
		{"random stuff", false},
	}
	for _, tc := range cases {
		if got := IsLegacy(tc.name, r); got != tc.want {
			t.Errorf("IsLegacy(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
