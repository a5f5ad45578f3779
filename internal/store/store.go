// Package store persists benchmark runs in a single JSON results file that
// grows across invocations.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/torosent/flybench/internal/benchmark"
)

// ErrCorrupt marks a results file that exists but cannot be used: invalid
// JSON or no "results" array. Load replaces it with a fresh file. Individual
// entries or header values that fail to decode do not make a file corrupt.
var ErrCorrupt = errors.New("results file is corrupt")

const lockRetryDelay = 50 * time.Millisecond

// ResultsFile is the persisted document.
type ResultsFile struct {
	BenchmarkTimestamp benchmark.Timestamp `json:"benchmark_timestamp" yaml:"benchmark_timestamp"`
	BaseURL            string              `json:"base_url" yaml:"base_url"`
	TestImage          string              `json:"test_image" yaml:"test_image"`
	Results            []benchmark.Run     `json:"results" yaml:"results"`

	// Values read from disk that do not decode into the fields above. They are
	// written back verbatim.
	skipped []skippedRun
	extra   map[string]json.RawMessage
}

type skippedRun struct {
	index int // position in the results array as read
	raw   json.RawMessage
}

var headerKeys = []string{"benchmark_timestamp", "base_url", "test_image"}

// Skipped reports how many stored results could not be decoded as runs.
func (f *ResultsFile) Skipped() int {
	return len(f.skipped)
}

// Meta is the header written when a file is created.
type Meta struct {
	BaseURL   string
	TestImage string
}

// New returns an empty results file stamped with now.
func New(meta Meta, now time.Time) *ResultsFile {
	return &ResultsFile{
		BenchmarkTimestamp: benchmark.NewTimestamp(now),
		BaseURL:            meta.BaseURL,
		TestImage:          meta.TestImage,
		Results:            []benchmark.Run{},
	}
}

// Load reads path, creating a fresh file from meta when it does not exist.
// When the file is corrupt the fresh file is returned together with an error
// wrapping ErrCorrupt; callers should warn and carry on with it.
func Load(path string, meta Meta) (*ResultsFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(meta, time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := decode(data)
	if err != nil {
		return New(meta, time.Now()), fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return f, nil
}

// ReadFile reads an existing results file and fails on anything unusable.
func ReadFile(path string) (*ResultsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return f, nil
}

func decode(data []byte) (*ResultsFile, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	raw, ok := doc["results"]
	if !ok || json.Unmarshal(raw, &entries) != nil || entries == nil {
		return nil, errors.New(`missing "results" array`)
	}

	f := &ResultsFile{Results: make([]benchmark.Run, 0, len(entries))}
	for i, entry := range entries {
		var run benchmark.Run
		if err := json.Unmarshal(entry, &run); err != nil {
			f.skipped = append(f.skipped, skippedRun{index: i, raw: entry})
			continue
		}
		f.Results = append(f.Results, run)
	}

	headers := map[string]any{
		"benchmark_timestamp": &f.BenchmarkTimestamp,
		"base_url":            &f.BaseURL,
		"test_image":          &f.TestImage,
	}
	for key, value := range doc {
		if key == "results" {
			continue
		}
		if dst, ok := headers[key]; ok && json.Unmarshal(value, dst) == nil {
			continue
		}
		if f.extra == nil {
			f.extra = make(map[string]json.RawMessage)
		}
		f.extra[key] = value
	}
	return f, nil
}

// MarshalJSON writes the header, then any unrecognised top-level fields, then
// results. Values that failed to decode on load are emitted unchanged, and
// skipped results keep their original positions.
func (f ResultsFile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	field := func(key string, value []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}

	typed := map[string]any{
		"benchmark_timestamp": f.BenchmarkTimestamp,
		"base_url":            f.BaseURL,
		"test_image":          f.TestImage,
	}
	for _, key := range headerKeys {
		if raw, ok := f.extra[key]; ok {
			field(key, raw)
			continue
		}
		value, err := json.Marshal(typed[key])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		field(key, value)
	}

	var others []string
	for key := range f.extra {
		if _, isHeader := typed[key]; !isHeader {
			others = append(others, key)
		}
	}
	sort.Strings(others)
	for _, key := range others {
		field(key, f.extra[key])
	}

	results, err := f.encodeResults()
	if err != nil {
		return nil, err
	}
	field("results", results)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f ResultsFile) encodeResults() ([]byte, error) {
	entries := make([]json.RawMessage, 0, len(f.Results)+len(f.skipped))
	next := 0
	flush := func(all bool) {
		for next < len(f.skipped) && (all || f.skipped[next].index <= len(entries)) {
			entries = append(entries, f.skipped[next].raw)
			next++
		}
	}
	for _, run := range f.Results {
		flush(false)
		raw, err := json.Marshal(run)
		if err != nil {
			return nil, fmt.Errorf("encode run %q: %w", run.ConfigName, err)
		}
		entries = append(entries, raw)
	}
	flush(true)
	return json.Marshal(entries)
}

// Append adds runs after the existing ones. Metrics are rounded for storage.
func (f *ResultsFile) Append(runs ...benchmark.Run) {
	for _, r := range runs {
		r.Metrics = r.Metrics.Rounded()
		f.Results = append(f.Results, r)
	}
}

// Save writes the file as indented JSON through a temporary file and rename,
// so readers never observe a partial document.
func (f *ResultsFile) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Store appends runs to one results file, serialising writers across
// processes with an advisory lock next to the file.
type Store struct {
	path string
	meta Meta
	log  logrus.FieldLogger
}

// Open returns a Store for path. A nil logger discards warnings.
func Open(path string, meta Meta, log logrus.FieldLogger) *Store {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Store{path: path, meta: meta, log: log}
}

// Path returns the results file location.
func (s *Store) Path() string {
	return s.path
}

// Append loads the file, appends runs and saves it while holding the lock.
// A corrupt file is logged and replaced.
func (s *Store) Append(ctx context.Context, runs ...benchmark.Run) (*ResultsFile, error) {
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", s.path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.WithError(err).Warn("release results file lock")
		}
	}()

	f, err := Load(s.path, s.meta)
	if errors.Is(err, ErrCorrupt) {
		s.log.WithError(err).Warn("existing results file unusable; starting a new one")
	} else if err != nil {
		return nil, err
	}

	if n := f.Skipped(); n > 0 {
		s.log.WithFields(logrus.Fields{"path": s.path, "entries": n}).Warn("keeping undecodable results unchanged")
	}

	f.Append(runs...)
	if err := f.Save(s.path); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"path":  s.path,
		"added": len(runs),
		"total": len(f.Results),
	}).Debug("results saved")
	return f, nil
}
