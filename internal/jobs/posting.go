package jobs

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RawPosting is one untyped record as returned by the search API. Fields vary
// by source; at minimum a URL, title, company and location are expected. A raw
// posting is written once to staging and never mutated afterwards.
type RawPosting map[string]any

// Canonical returns a stable byte representation of the posting. Map keys are
// serialized in sorted order at every nesting level, so two structurally equal
// postings always canonicalize to the same bytes even when a field value is
// itself a list or object.
func (p RawPosting) Canonical() ([]byte, error) {
	return json.Marshal(map[string]any(p))
}

// Fingerprint hashes the canonical form. Used as the structural dedup key.
func (p RawPosting) Fingerprint() (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", fmt.Errorf("canonicalize posting: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", sum[:]), nil
}

// GetString returns the value under key when it is a plain string.
func (p RawPosting) GetString(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// NormalizedPosting is the fixed-shape record derived from raw postings. The
// pointer fields distinguish "absent" from a legitimate zero.
type NormalizedPosting struct {
	PrimaryKey       string   `json:"primary_key" mapstructure:"primary_key"`
	Date             string   `json:"date,omitempty" mapstructure:"date"`
	Title            string   `json:"title,omitempty" mapstructure:"title"`
	Company          string   `json:"company,omitempty" mapstructure:"company"`
	CompanyURL       string   `json:"company_url,omitempty" mapstructure:"company_url"`
	Location         string   `json:"location,omitempty" mapstructure:"location"`
	Description      string   `json:"description" mapstructure:"description"`
	SalaryLow        *float64 `json:"salary_low,omitempty" mapstructure:"salary_low"`
	SalaryHigh       *float64 `json:"salary_high,omitempty" mapstructure:"salary_high"`
	ResumeSimilarity *float64 `json:"resume_similarity,omitempty" mapstructure:"resume_similarity"`
	JobURL           string   `json:"job_url,omitempty" mapstructure:"job_url"`
	JobType          string   `json:"job_type,omitempty" mapstructure:"job_type"`
	JobIsRemote      bool     `json:"job_is_remote,omitempty" mapstructure:"job_is_remote"`
	JobBenefits      string   `json:"job_benefits,omitempty" mapstructure:"job_benefits"`
	ApplyLink        string   `json:"apply_link,omitempty" mapstructure:"apply_link"`
}

// PersistedJob is the stored, queryable record: a normalized posting plus a
// surrogate id and the embedding vector cached to avoid recomputation.
type PersistedJob struct {
	ID int64
	NormalizedPosting
	Embedding []float32
}

// PrimaryKey derives the natural dedup/upsert key for a posting. The key is
// stable for the lifetime of the record.
func PrimaryKey(company, title string) string {
	return fmt.Sprintf("%s - %s", company, title)
}

// RenameMap maps source-specific field names onto the normalized schema.
var RenameMap = map[string]string{
	"job_posted_at_datetime_utc": "date",
	"job_title":                  "title",
	"employer_name":              "company",
	"employer_website":           "company_url",
	"job_location":               "location",
	"job_employment_type":        "job_type",
	"job_is_remote":              "job_is_remote",
	"job_benefits":               "job_benefits",
	"job_apply_link":             "apply_link",
	"job_description":            "description",
	"job_min_salary":             "salary_low",
	"job_max_salary":             "salary_high",
}

// noiseKeys are raw source fields used only for joining during extraction.
var noiseKeys = []string{"job_id", "employer_logo", "job_publisher", "job_google_link"}

// DropNoise removes volatile fields not needed downstream.
func (p RawPosting) DropNoise() {
	for _, key := range noiseKeys {
		delete(p, key)
	}
}

// Rename moves values from source-specific keys to their normalized names.
func (p RawPosting) Rename() {
	for from, to := range RenameMap {
		if from == to {
			continue
		}
		if v, ok := p[from]; ok {
			p[to] = v
			delete(p, from)
		}
	}
}

// LowercaseFields lower-cases the given string fields in place for consistent
// matching downstream.
func (p RawPosting) LowercaseFields(keys ...string) {
	for _, key := range keys {
		if v, ok := p[key].(string); ok {
			p[key] = strings.ToLower(v)
		}
	}
}

// Decode converts a normalized raw record into its fixed-shape form.
func Decode(p RawPosting) (*NormalizedPosting, error) {
	var out NormalizedPosting

	cfg := &mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]any(p)); err != nil {
		return nil, fmt.Errorf("decode posting: %w", err)
	}

	return &out, nil
}

// ToRaw converts a normalized posting back into the generic map form used by
// the staging store.
func (n *NormalizedPosting) ToRaw() (RawPosting, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}

	var out RawPosting
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
