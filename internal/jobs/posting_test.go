package jobs

import (
	"testing"
)

func TestFingerprintStableAcrossKeyOrder(t *testing.T) {
	a := RawPosting{
		"title":   "Engineer",
		"company": "Acme",
		"nested":  map[string]any{"b": 2, "a": 1},
		"tags":    []any{"go", "etl"},
	}
	b := RawPosting{
		"tags":    []any{"go", "etl"},
		"nested":  map[string]any{"a": 1, "b": 2},
		"company": "Acme",
		"title":   "Engineer",
	}

	fpA, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint a: %v", err)
	}
	fpB, err := b.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint b: %v", err)
	}

	if fpA != fpB {
		t.Fatalf("structurally equal postings fingerprint differently: %s vs %s", fpA, fpB)
	}
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	a := RawPosting{"title": "Engineer"}
	b := RawPosting{"title": "Analyst"}

	fpA, _ := a.Fingerprint()
	fpB, _ := b.Fingerprint()
	if fpA == fpB {
		t.Fatal("different postings share a fingerprint")
	}
}

func TestRenameMovesSourceKeys(t *testing.T) {
	p := RawPosting{
		"job_title":       "Engineer",
		"employer_name":   "Acme",
		"job_description": "Build things.",
		"job_is_remote":   true,
		"unrelated":       "kept",
	}

	p.Rename()

	if got := p.GetString("title"); got != "Engineer" {
		t.Fatalf("expected renamed title, got %q", got)
	}
	if _, stale := p["job_title"]; stale {
		t.Fatal("source key job_title survived")
	}
	if v, ok := p["job_is_remote"].(bool); !ok || !v {
		t.Fatal("identity-mapped key job_is_remote lost")
	}
	if got := p.GetString("unrelated"); got != "kept" {
		t.Fatal("unmapped key dropped by rename")
	}
}

func TestDropNoise(t *testing.T) {
	p := RawPosting{
		"job_id":        "abc",
		"employer_logo": "logo.png",
		"job_title":     "Engineer",
	}

	p.DropNoise()

	if _, ok := p["job_id"]; ok {
		t.Fatal("job_id survived")
	}
	if _, ok := p["job_title"]; !ok {
		t.Fatal("job_title dropped")
	}
}

func TestPrimaryKey(t *testing.T) {
	if got := PrimaryKey("acme", "data engineer"); got != "acme - data engineer" {
		t.Fatalf("unexpected primary key: %q", got)
	}
}

func TestDecodeWeaklyTyped(t *testing.T) {
	p := RawPosting{
		"primary_key":       "acme - engineer",
		"title":             "engineer",
		"company":           "acme",
		"salary_low":        float64(90000),
		"salary_high":       "120000",
		"resume_similarity": 0.42,
		"job_is_remote":     true,
	}

	record, err := Decode(p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if record.SalaryLow == nil || *record.SalaryLow != 90000 {
		t.Fatalf("unexpected salary_low: %v", record.SalaryLow)
	}
	if record.SalaryHigh == nil || *record.SalaryHigh != 120000 {
		t.Fatalf("expected string salary coerced, got %v", record.SalaryHigh)
	}
	if record.ResumeSimilarity == nil || *record.ResumeSimilarity != 0.42 {
		t.Fatalf("unexpected similarity: %v", record.ResumeSimilarity)
	}
	if !record.JobIsRemote {
		t.Fatal("job_is_remote lost in decode")
	}
}

func TestDecodeAbsentFieldsStayNil(t *testing.T) {
	record, err := Decode(RawPosting{"title": "engineer", "company": "acme"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.SalaryLow != nil || record.SalaryHigh != nil || record.ResumeSimilarity != nil {
		t.Fatal("expected absent numeric fields to stay nil")
	}
}

func TestToRawRoundTrip(t *testing.T) {
	low := 90000.0
	n := &NormalizedPosting{
		PrimaryKey: "acme - engineer",
		Title:      "engineer",
		Company:    "acme",
		SalaryLow:  &low,
	}

	raw, err := n.ToRaw()
	if err != nil {
		t.Fatalf("to raw: %v", err)
	}

	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.PrimaryKey != n.PrimaryKey || back.SalaryLow == nil || *back.SalaryLow != low {
		t.Fatalf("round trip lost data: %+v", back)
	}
}
