package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/jobs"
	"github.com/jobhunter/jobhunter/internal/staging"
)

// memStore is an in-memory JobStore keyed like the real table.
type memStore struct {
	rows    map[string]*jobs.PersistedJob
	inserts int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*jobs.PersistedJob)}
}

func (m *memStore) Exists(_ context.Context, primaryKey string) (bool, error) {
	_, ok := m.rows[primaryKey]
	return ok, nil
}

func (m *memStore) Insert(_ context.Context, job *jobs.PersistedJob) error {
	m.inserts++
	if _, ok := m.rows[job.PrimaryKey]; ok {
		return nil
	}
	m.rows[job.PrimaryKey] = job
	return nil
}

func (m *memStore) Close() error { return nil }

type stubProvider struct {
	vec []float32
	err error
}

func (s *stubProvider) Embed(context.Context, string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubProvider) Dimensions() int { return len(s.vec) }

func newTestLoader(t *testing.T, store JobStore, provider *stubProvider) (*Loader, *staging.Store) {
	t.Helper()
	base := t.TempDir()
	stage := staging.New(filepath.Join(base, "raw"), filepath.Join(base, "processed"), zap.NewNop())
	return NewLoader(store, stage, provider, zap.NewNop()), stage
}

func stageProcessed(t *testing.T, stage *staging.Store, postings []jobs.RawPosting) {
	t.Helper()
	if _, err := stage.StageProcessed("transformed", postings); err != nil {
		t.Fatalf("stage processed: %v", err)
	}
}

func TestLoadInsertsNewPostings(t *testing.T) {
	mem := newMemStore()
	loader, stage := newTestLoader(t, mem, &stubProvider{vec: []float32{0.1, 0.2}})

	stageProcessed(t, stage, []jobs.RawPosting{
		{
			"primary_key": "acme - data engineer",
			"title":       "data engineer",
			"company":     "acme",
			"description": "build pipelines",
		},
		{
			"primary_key": "globex - ml engineer",
			"title":       "ml engineer",
			"company":     "globex",
			"description": "train models",
		},
	})

	inserted, skipped, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if inserted != 2 || skipped != 0 {
		t.Fatalf("expected 2 inserted / 0 skipped, got %d / %d", inserted, skipped)
	}

	row := mem.rows["acme - data engineer"]
	if row == nil {
		t.Fatal("expected row for acme - data engineer")
	}
	if len(row.Embedding) != 2 {
		t.Fatalf("expected cached embedding, got %v", row.Embedding)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	mem := newMemStore()
	loader, stage := newTestLoader(t, mem, &stubProvider{vec: []float32{0.1}})

	batch := []jobs.RawPosting{
		{
			"primary_key": "acme - data engineer",
			"title":       "data engineer",
			"company":     "acme",
			"description": "build pipelines",
		},
	}
	stageProcessed(t, stage, batch)

	if _, _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}

	inserted, skipped, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if inserted != 0 || skipped != 1 {
		t.Fatalf("expected 0 inserted / 1 skipped on re-run, got %d / %d", inserted, skipped)
	}
	if mem.inserts != 1 {
		t.Fatalf("expected exactly 1 insert across both runs, got %d", mem.inserts)
	}
}

func TestLoadFirstWriteWins(t *testing.T) {
	mem := newMemStore()
	loader, stage := newTestLoader(t, mem, &stubProvider{})

	stageProcessed(t, stage, []jobs.RawPosting{
		{
			"primary_key": "acme - data engineer",
			"title":       "data engineer",
			"company":     "acme",
			"description": "original description",
		},
	})
	if _, _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}

	if err := stage.ClearProcessed(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stageProcessed(t, stage, []jobs.RawPosting{
		{
			"primary_key": "acme - data engineer",
			"title":       "data engineer",
			"company":     "acme",
			"description": "changed description",
		},
	})
	if _, _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := mem.rows["acme - data engineer"].Description; got != "original description" {
		t.Fatalf("expected first write to win, got %q", got)
	}
}

func TestLoadSkipsRecordsWithoutIdentity(t *testing.T) {
	mem := newMemStore()
	loader, stage := newTestLoader(t, mem, &stubProvider{})

	stageProcessed(t, stage, []jobs.RawPosting{
		{"title": "data engineer", "description": "no company"},
		{"company": "acme", "description": "no title"},
		{
			"title":       "ml engineer",
			"company":     "globex",
			"description": "complete record",
		},
	})

	inserted, skipped, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if inserted != 1 || skipped != 2 {
		t.Fatalf("expected 1 inserted / 2 skipped, got %d / %d", inserted, skipped)
	}
	if _, ok := mem.rows["globex - ml engineer"]; !ok {
		t.Fatal("expected derived primary key for complete record")
	}
}

func TestLoadKeepsProviderSizedVectors(t *testing.T) {
	mem := newMemStore()
	provider := &stubProvider{vec: make([]float32, 768)}
	loader, stage := newTestLoader(t, mem, provider)

	stageProcessed(t, stage, []jobs.RawPosting{
		{
			"primary_key": "acme - data engineer",
			"title":       "data engineer",
			"company":     "acme",
			"description": "build pipelines",
		},
	})

	if _, _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	row := mem.rows["acme - data engineer"]
	if row == nil {
		t.Fatal("expected a stored row")
	}
	if len(row.Embedding) != provider.Dimensions() {
		t.Fatalf("stored vector length %d does not match provider dimensions %d",
			len(row.Embedding), provider.Dimensions())
	}
}

func TestLoadEmbeddingFailureStoresWithoutVector(t *testing.T) {
	mem := newMemStore()
	loader, stage := newTestLoader(t, mem, &stubProvider{err: errors.New("provider down")})

	stageProcessed(t, stage, []jobs.RawPosting{
		{
			"primary_key": "acme - data engineer",
			"title":       "data engineer",
			"company":     "acme",
			"description": "build pipelines",
		},
	})

	inserted, _, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected the record stored despite embedding failure, got %d", inserted)
	}
	if vec := mem.rows["acme - data engineer"].Embedding; vec != nil {
		t.Fatalf("expected no embedding, got %v", vec)
	}
}
