// Package storage persists processed course records.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/silabo/internal/models"
)

// ErrNotFound is returned when a course or source is not stored.
var ErrNotFound = errors.New("not found")

// Repository stores course records by key ("{course_id}_{nrc}").
type Repository interface {
	// Save inserts or replaces the record with the same key.
	Save(ctx context.Context, record *models.CourseRecord) error
	// FindByID returns the first record, in key order, whose course id matches.
	FindByID(ctx context.Context, courseID string) (*models.CourseRecord, error)
	FindByKey(ctx context.Context, key string) (*models.CourseRecord, error)
	FindByPeriod(ctx context.Context, period string) ([]*models.CourseRecord, error)
	// List returns all records sorted by key.
	List(ctx context.Context) ([]*models.CourseRecord, error)
	Count(ctx context.Context) (int, error)
	// Delete removes the record with key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// SourceState is what was last seen of a syllabus file that produced a course.
type SourceState struct {
	Path        string
	ModTime     time.Time
	Size        int64
	Digest      string // content digest, "" when unknown
	CourseKey   string
	ProcessedAt time.Time
}

// Unchanged reports whether a file with the given mtime and size is the one recorded.
func (s *SourceState) Unchanged(modTime time.Time, size int64) bool {
	return s.ModTime.Equal(modTime) && s.Size == size
}

// SourceTracker remembers which source file produced which course.
type SourceTracker interface {
	GetSource(ctx context.Context, path string) (*SourceState, error)
	PutSource(ctx context.Context, state SourceState) error
	DeleteSource(ctx context.Context, path string) error
}

// Fanout writes to every repository and reads from the first one.
type Fanout struct {
	repos []Repository
}

// NewFanout returns a Repository over repos. primary serves all reads.
func NewFanout(primary Repository, mirrors ...Repository) *Fanout {
	return &Fanout{repos: append([]Repository{primary}, mirrors...)}
}

func (f *Fanout) Save(ctx context.Context, record *models.CourseRecord) error {
	for _, r := range f.repos {
		if err := r.Save(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fanout) FindByID(ctx context.Context, courseID string) (*models.CourseRecord, error) {
	return f.repos[0].FindByID(ctx, courseID)
}

func (f *Fanout) FindByKey(ctx context.Context, key string) (*models.CourseRecord, error) {
	return f.repos[0].FindByKey(ctx, key)
}

func (f *Fanout) FindByPeriod(ctx context.Context, period string) ([]*models.CourseRecord, error) {
	return f.repos[0].FindByPeriod(ctx, period)
}

func (f *Fanout) List(ctx context.Context) ([]*models.CourseRecord, error) {
	return f.repos[0].List(ctx)
}

func (f *Fanout) Count(ctx context.Context) (int, error) {
	return f.repos[0].Count(ctx)
}

func (f *Fanout) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, r := range f.repos {
		errs = append(errs, r.Delete(ctx, key))
	}
	return errors.Join(errs...)
}

// Close closes every repository.
func (f *Fanout) Close() error {
	var errs []error
	for _, r := range f.repos {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// Tracker returns the first repository that tracks sources, or nil.
func (f *Fanout) Tracker() SourceTracker {
	for _, r := range f.repos {
		if t, ok := r.(SourceTracker); ok {
			return t
		}
	}
	return nil
}
