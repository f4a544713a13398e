// Package staging persists intermediate pipeline records as JSON files on
// disk. Each fetched page lands as one array file in the raw directory; the
// transform stage reads every raw file and writes each normalized record as
// its own object file in the processed directory; the load stage drains
// processed files into the database. The files survive process restarts, so
// a failed stage can be re-run without repeating the stages before it.
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jobhunter/jobhunter/internal/jobs"
)

// now is swapped out in tests to make file names deterministic.
var now = time.Now

// Store reads and writes staged posting batches under a pair of directories.
type Store struct {
	rawDir       string
	processedDir string
	logger       *zap.Logger
}

func New(rawDir, processedDir string, logger *zap.Logger) *Store {
	return &Store{
		rawDir:       rawDir,
		processedDir: processedDir,
		logger:       logger,
	}
}

// EnsureDirs creates both staging directories if they do not exist yet.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.rawDir, s.processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create staging dir %s: %w", dir, err)
		}
	}
	return nil
}

// StageRaw writes one fetched page of raw postings as a single array file in
// the raw directory and returns its path.
func (s *Store) StageRaw(source string, postings []jobs.RawPosting) (string, error) {
	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir %s: %w", s.rawDir, err)
	}

	data, err := json.MarshalIndent(postings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal staged batch: %w", err)
	}

	path, err := s.write(s.rawDir, source, data)
	if err != nil {
		return "", err
	}

	s.logger.Debug("staged batch",
		zap.String("path", path),
		zap.Int("postings", len(postings)),
	)

	return path, nil
}

// StageProcessed writes each transformed posting as its own object file in
// the processed directory, so one corrupt file later costs one record, not
// the batch. Returns the written paths.
func (s *Store) StageProcessed(source string, postings []jobs.RawPosting) ([]string, error) {
	if err := os.MkdirAll(s.processedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", s.processedDir, err)
	}

	paths := make([]string, 0, len(postings))
	for _, posting := range postings {
		data, err := json.MarshalIndent(posting, "", "  ")
		if err != nil {
			return paths, fmt.Errorf("marshal staged posting: %w", err)
		}

		path, err := s.write(s.processedDir, source, data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	s.logger.Debug("staged records",
		zap.String("dir", s.processedDir),
		zap.Int("postings", len(postings)),
	)

	return paths, nil
}

// write creates {source}-{timestamp}.json with a nanosecond timestamp. The
// exclusive create catches a timestamp collision; the clock is bumped until
// the name is free, so rapid sequential writes never overwrite each other.
func (s *Store) write(dir, source string, data []byte) (string, error) {
	for ts := now().UnixNano(); ; ts++ {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.json", source, ts))

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create staged file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write staged file: %w", err)
		}
		return path, f.Close()
	}
}

// LoadRaw reads every staged page file in the raw directory. A file that
// fails to parse is logged and skipped rather than aborting the whole stage:
// one corrupt page should not hold the rest of the run hostage.
func (s *Store) LoadRaw() ([]jobs.RawPosting, error) {
	paths, err := filepath.Glob(filepath.Join(s.rawDir, "*.json"))
	if err != nil {
		return nil, err
	}

	var all []jobs.RawPosting
	for _, path := range paths {
		data, err := s.read(path)
		if err != nil {
			continue
		}

		var batch []jobs.RawPosting
		if err := json.Unmarshal(data, &batch); err != nil {
			s.logger.Warn("skipping malformed staged file",
				zap.String("path", path), zap.Error(err))
			continue
		}

		all = append(all, batch...)
	}

	return all, nil
}

// LoadProcessed reads every staged record file in the processed directory,
// skipping malformed files with a warning so one corrupt record never costs
// the rest of the batch.
func (s *Store) LoadProcessed() ([]jobs.RawPosting, error) {
	paths, err := filepath.Glob(filepath.Join(s.processedDir, "*.json"))
	if err != nil {
		return nil, err
	}

	var all []jobs.RawPosting
	for _, path := range paths {
		data, err := s.read(path)
		if err != nil {
			continue
		}

		var record jobs.RawPosting
		if err := json.Unmarshal(data, &record); err != nil {
			s.logger.Warn("skipping malformed staged file",
				zap.String("path", path), zap.Error(err))
			continue
		}

		all = append(all, record)
	}

	return all, nil
}

func (s *Store) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("skipping unreadable staged file",
			zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// ClearRaw deletes every staged file in the raw directory.
func (s *Store) ClearRaw() error {
	return s.clear(s.rawDir)
}

// ClearProcessed deletes every staged file in the processed directory.
func (s *Store) ClearProcessed() error {
	return s.clear(s.processedDir)
}

func (s *Store) clear(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove staged file %s: %w", path, err)
		}
	}

	s.logger.Debug("cleared staging dir",
		zap.String("dir", dir),
		zap.Int("removed", len(paths)),
	)

	return nil
}
