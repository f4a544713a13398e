package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/jobs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	return New(filepath.Join(base, "raw"), filepath.Join(base, "processed"), zap.NewNop())
}

func TestStageAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	batch := []jobs.RawPosting{
		{"job_title": "Engineer", "employer_name": "Acme"},
		{"job_title": "Analyst", "employer_name": "Globex"},
	}

	path, err := store.StageRaw("jsearch", batch)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}

	loaded, err := store.LoadRaw()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(loaded))
	}
	if got := loaded[0].GetString("job_title"); got != "Engineer" {
		t.Fatalf("unexpected first posting: %q", got)
	}
}

func TestStageFileNameCarriesSourceAndTimestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 42, time.UTC)
	original := now
	now = func() time.Time { return fixed }
	defer func() { now = original }()

	store := newTestStore(t)

	path, err := store.StageRaw("jsearch", nil)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	want := "jsearch-1772366400000000042.json"
	if got := filepath.Base(path); got != want {
		t.Fatalf("expected file name %q, got %q", want, got)
	}
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	store := newTestStore(t)
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	if _, err := store.StageRaw("jsearch", []jobs.RawPosting{{"job_title": "Engineer"}}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	corrupt := filepath.Join(store.rawDir, "jsearch-0.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	loaded, err := store.LoadRaw()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected the valid batch only, got %d postings", len(loaded))
	}
}

func TestLoadEmptyDirIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadProcessed()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no postings, got %d", len(loaded))
	}
}

func TestStageProcessedWritesOneFilePerRecord(t *testing.T) {
	store := newTestStore(t)

	paths, err := store.StageProcessed("transformed", []jobs.RawPosting{
		{"title": "data engineer", "company": "acme"},
		{"title": "ml engineer", "company": "globex"},
		{"title": "analyst", "company": "initech"},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d", len(paths))
	}

	loaded, err := store.LoadProcessed()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 records back, got %d", len(loaded))
	}
}

func TestStageProcessedSurvivesTimestampCollisions(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := now
	now = func() time.Time { return fixed }
	defer func() { now = original }()

	store := newTestStore(t)

	paths, err := store.StageProcessed("transformed", []jobs.RawPosting{
		{"title": "a"},
		{"title": "b"},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(paths) != 2 || paths[0] == paths[1] {
		t.Fatalf("expected two distinct files, got %v", paths)
	}

	loaded, err := store.LoadProcessed()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected both records to survive, got %d", len(loaded))
	}
}

func TestLoadProcessedSkipsMalformedRecordOnly(t *testing.T) {
	store := newTestStore(t)

	paths, err := store.StageProcessed("transformed", []jobs.RawPosting{
		{"title": "data engineer", "company": "acme"},
		{"title": "ml engineer", "company": "globex"},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	if err := os.WriteFile(paths[0], []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	loaded, err := store.LoadProcessed()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected the intact record only, got %d", len(loaded))
	}
	if got := loaded[0].GetString("title"); got != "ml engineer" {
		t.Fatalf("unexpected surviving record: %q", got)
	}
}

func TestClearRemovesStagedFiles(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.StageProcessed("transformed", []jobs.RawPosting{
		{"title": "x"}, {"title": "y"}, {"title": "z"},
	}); err != nil {
		t.Fatalf("stage: %v", err)
	}

	if err := store.ClearProcessed(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	loaded, err := store.LoadProcessed()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty staging after clear, got %d postings", len(loaded))
	}
}
