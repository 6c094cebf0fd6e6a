package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/silabo/internal/models"
)

const recordExt = ".json"

// JSONRepository keeps one "{course_id}_{nrc}.json" file per course in a directory.
type JSONRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewJSONRepository opens dir, creating it if needed.
func NewJSONRepository(dir string) (*JSONRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONRepository{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (r *JSONRepository) Dir() string {
	return r.dir
}

func (r *JSONRepository) path(key string) string {
	return filepath.Join(r.dir, key+recordExt)
}

// Save writes the record to a temporary file and renames it over the previous one.
func (r *JSONRepository) Save(_ context.Context, record *models.CourseRecord) error {
	data, err := encodeJSON(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", record.Key(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeFileAtomic(r.path(record.Key()), data)
}

func (r *JSONRepository) FindByKey(_ context.Context, key string) (*models.CourseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return readRecord(r.path(key))
}

func (r *JSONRepository) FindByID(ctx context.Context, courseID string) (*models.CourseRecord, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.Metadata.CourseID == courseID {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("course %s: %w", courseID, ErrNotFound)
}

func (r *JSONRepository) FindByPeriod(ctx context.Context, period string) ([]*models.CourseRecord, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []*models.CourseRecord{}
	for _, rec := range all {
		if rec.Metadata.Period == period {
			out = append(out, rec)
		}
	}
	return out, nil
}

// List decodes every record file in the directory. A file that is not a course
// record fails the whole listing.
func (r *JSONRepository) List(_ context.Context) ([]*models.CourseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names, err := r.recordFiles()
	if err != nil {
		return nil, err
	}
	out := make([]*models.CourseRecord, 0, len(names))
	for _, name := range names {
		rec, err := readRecord(filepath.Join(r.dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (r *JSONRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names, err := r.recordFiles()
	return len(names), err
}

func (r *JSONRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (r *JSONRepository) Close() error { return nil }

func (r *JSONRepository) recordFiles() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), recordExt) && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func readRecord(path string) (*models.CourseRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec models.CourseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// WriteAggregate writes all records as one JSON array sorted by course key.
func WriteAggregate(path string, records []*models.CourseRecord) error {
	sorted := make([]*models.CourseRecord, len(records))
	copy(sorted, records)
	sortRecords(sorted)
	data, err := encodeJSON(sorted)
	if err != nil {
		return fmt.Errorf("failed to encode aggregate: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create aggregate directory: %w", err)
		}
	}
	return writeFileAtomic(path, data)
}

func sortRecords(records []*models.CourseRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Key() < records[j].Key() })
}

// encodeJSON indents with two spaces and leaves non-ASCII and HTML characters unescaped.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
