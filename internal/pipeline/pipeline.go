// Package pipeline runs syllabus documents through extraction, parsing, date
// resolution and persistence, one document at a time or as a batch.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/calendar"
	"github.com/hyperjump/silabo/internal/extract"
	"github.com/hyperjump/silabo/internal/fileid"
	"github.com/hyperjump/silabo/internal/keyword"
	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/internal/storage"
	"github.com/hyperjump/silabo/internal/syllabus"
)

// FailureKind classifies why a document produced no course.
type FailureKind string

const (
	FailureFilename     FailureKind = "filename"
	FailureExtraction   FailureKind = "extraction"
	FailureStructure    FailureKind = "structure"
	FailurePeriodLookup FailureKind = "period_lookup"
	FailurePersist      FailureKind = "persist"
)

// Failure is a per-document failure. It never aborts a batch.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// MarshalJSON renders the failure as {"kind": ..., "reason": ...}.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   FailureKind `json:"kind"`
		Reason string      `json:"reason"`
	}{f.Kind, f.Err.Error()})
}

// Result is the outcome of processing one document. Exactly one of Course and
// Failure is set, except that a skipped document may carry the stored course.
type Result struct {
	Path     string               `json:"path"`
	Course   *models.CourseRecord `json:"course,omitempty"`
	Warnings []syllabus.Warning   `json:"warnings"`
	Skipped  bool                 `json:"skipped,omitempty"`
	Failure  *Failure             `json:"failure,omitempty"`
}

// Pipeline processes syllabus files into course records.
type Pipeline struct {
	extractor     extract.Extractor
	resolver      *calendar.Resolver
	repo          storage.Repository
	tracker       storage.SourceTracker
	index         keyword.CourseIndex
	logger        *zap.Logger
	workers       int
	skipUnchanged bool
	recursive     bool
	extensions    []string
	aggregatePath string
	calendarPath  string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for per-document events and warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRepository persists every processed course to repo.
func WithRepository(repo storage.Repository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithSourceTracker records which file produced which course, enabling
// skip-unchanged and removal by source path.
func WithSourceTracker(t storage.SourceTracker) Option {
	return func(p *Pipeline) { p.tracker = t }
}

// WithIndex keeps idx in sync with processed and removed courses.
func WithIndex(idx keyword.CourseIndex) Option {
	return func(p *Pipeline) { p.index = idx }
}

// WithWorkers bounds the number of documents processed at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithSkipUnchanged skips files whose path, mtime and size match the last successful run.
func WithSkipUnchanged(enabled bool) Option {
	return func(p *Pipeline) { p.skipUnchanged = enabled }
}

// WithRecursive controls whether directories are walked recursively.
func WithRecursive(enabled bool) Option {
	return func(p *Pipeline) { p.recursive = enabled }
}

// WithExtensions sets the file extensions picked up by discovery.
func WithExtensions(exts []string) Option {
	return func(p *Pipeline) { p.extensions = exts }
}

// WithAggregatePath writes all courses of a run to one JSON file.
func WithAggregatePath(path string) Option {
	return func(p *Pipeline) { p.aggregatePath = path }
}

// WithCalendarPath writes the weekly calendar workbook after a run.
func WithCalendarPath(path string) Option {
	return func(p *Pipeline) { p.calendarPath = path }
}

// New returns a pipeline that extracts with extractor and resolves dates with resolver.
func New(extractor extract.Extractor, resolver *calendar.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:  extractor,
		resolver:   resolver,
		logger:     zap.NewNop(),
		recursive:  true,
		extensions: []string{".pdf"},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func fail(res *Result, kind FailureKind, err error) *Result {
	res.Failure = &Failure{Kind: kind, Err: err}
	return res
}

// ProcessFile runs one document through the whole pipeline. Failures are
// reported in the result and logged; they are never returned as errors.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) *Result {
	res := p.processFile(ctx, path)
	p.logResult(res)
	return res
}

func (p *Pipeline) processFile(ctx context.Context, path string) *Result {
	res := &Result{Path: path, Warnings: []syllabus.Warning{}}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fail(res, FailureExtraction, fmt.Errorf("absolute path: %w", err))
	}
	res.Path = absPath

	meta, err := syllabus.ParseFilename(absPath)
	if err != nil {
		return fail(res, FailureFilename, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fail(res, FailureExtraction, fmt.Errorf("stat file: %w", err))
	}
	if !info.Mode().IsRegular() {
		return fail(res, FailureExtraction, fmt.Errorf("not a regular file: %s", absPath))
	}

	if rec := p.unchanged(ctx, absPath, info); rec != nil {
		res.Skipped = true
		res.Course = rec
		return res
	}

	pages, err := p.extractor.Extract(ctx, absPath)
	if err != nil {
		return fail(res, FailureExtraction, err)
	}

	course, warnings, err := syllabus.ParseDocument(meta, pages)
	if warnings != nil {
		res.Warnings = warnings
	}
	if err != nil {
		return fail(res, FailureStructure, err)
	}

	rec, err := calendar.ToRecord(course, p.resolver, filepath.Base(absPath))
	if err != nil {
		return fail(res, FailurePeriodLookup, err)
	}

	if err := p.persist(ctx, absPath, info, rec); err != nil {
		return fail(res, FailurePersist, err)
	}
	res.Course = rec
	return res
}

// unchanged returns the stored course when skip-unchanged applies to the file.
func (p *Pipeline) unchanged(ctx context.Context, absPath string, info os.FileInfo) *models.CourseRecord {
	if !p.skipUnchanged || p.tracker == nil || p.repo == nil {
		return nil
	}
	st, err := p.tracker.GetSource(ctx, absPath)
	if err != nil {
		return nil
	}
	if !st.Unchanged(info.ModTime(), info.Size()) {
		// A touched file with the same content is still unchanged.
		if st.Digest == "" || st.Size != info.Size() {
			return nil
		}
		digest, err := fileid.Digest(absPath)
		if err != nil || digest != st.Digest {
			return nil
		}
		st.ModTime = info.ModTime()
		if err := p.tracker.PutSource(ctx, *st); err != nil {
			p.logger.Warn("failed to refresh source state", zap.String("document", filepath.Base(absPath)), zap.Error(err))
		}
	}
	rec, err := p.repo.FindByKey(ctx, st.CourseKey)
	if err != nil {
		return nil
	}
	// Repopulates an index that was opened empty.
	if p.index != nil {
		if err := p.index.Index(ctx, rec); err != nil {
			p.logger.Warn("failed to re-index unchanged course", zap.String("key", rec.Key()), zap.Error(err))
		}
	}
	return rec
}

func (p *Pipeline) persist(ctx context.Context, absPath string, info os.FileInfo, rec *models.CourseRecord) error {
	var previous string
	if p.tracker != nil {
		if st, err := p.tracker.GetSource(ctx, absPath); err == nil {
			previous = st.CourseKey
		}
	}
	if p.repo != nil {
		if err := p.repo.Save(ctx, rec); err != nil {
			return fmt.Errorf("save course: %w", err)
		}
	}
	if p.index != nil {
		if err := p.index.Index(ctx, rec); err != nil {
			return fmt.Errorf("index course: %w", err)
		}
	}
	if p.tracker != nil {
		// The same file now yields a different course: drop the stale one.
		if previous != "" && previous != rec.Key() {
			if err := p.deleteCourse(ctx, previous); err != nil {
				return err
			}
		}
		digest, err := fileid.Digest(absPath)
		if err != nil {
			return fmt.Errorf("digest source: %w", err)
		}
		if err := p.tracker.PutSource(ctx, storage.SourceState{
			Path: absPath, ModTime: info.ModTime(), Size: info.Size(), Digest: digest, CourseKey: rec.Key(),
		}); err != nil {
			return fmt.Errorf("track source: %w", err)
		}
	}
	return nil
}

// Remove deletes the course produced from the source file at path. Without a
// source tracker the course key is derived from the file name.
// It returns the removed key, or "" when nothing was known about path.
func (p *Pipeline) Remove(ctx context.Context, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	var key string
	if p.tracker != nil {
		st, err := p.tracker.GetSource(ctx, absPath)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return "", err
		default:
			key = st.CourseKey
		}
	}
	if key == "" {
		meta, err := syllabus.ParseFilename(absPath)
		if err != nil {
			return "", nil
		}
		key = meta.Key()
	}
	if err := p.deleteCourse(ctx, key); err != nil {
		return "", err
	}
	if p.tracker != nil {
		if err := p.tracker.DeleteSource(ctx, absPath); err != nil {
			return "", fmt.Errorf("untrack source: %w", err)
		}
	}
	p.logger.Info("course removed", zap.String("document", filepath.Base(absPath)), zap.String("key", key))
	return key, nil
}

func (p *Pipeline) deleteCourse(ctx context.Context, key string) error {
	if p.index != nil {
		if err := p.index.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete from index: %w", err)
		}
	}
	if p.repo != nil {
		if err := p.repo.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) logResult(res *Result) {
	doc := filepath.Base(res.Path)
	logWarnings(p.logger, doc, res.Warnings)
	switch {
	case res.Failure != nil:
		fields := []zap.Field{
			zap.String("document", doc),
			zap.String("kind", string(res.Failure.Kind)),
			zap.Error(res.Failure.Err),
		}
		var se *syllabus.StructureError
		if errors.As(res.Failure.Err, &se) {
			fields = append(fields, zap.Int("unit", se.Unit), zap.Stringer("expected", se.Expected), zap.Int("row", se.Row))
		}
		p.logger.Error("document failed", fields...)
	case res.Skipped:
		p.logger.Debug("document unchanged, skipped", zap.String("document", doc))
	default:
		p.logger.Info("course processed",
			zap.String("document", doc),
			zap.String("key", res.Course.Key()),
			zap.Stringer("course", res.Course),
			zap.Int("units", len(res.Course.Units)),
			zap.Int("assessments", len(res.Course.Assessments)),
			zap.Int("warnings", len(res.Warnings)),
		)
	}
}

// logWarnings logs each warning at WARN with the document and the offending value.
func logWarnings(logger *zap.Logger, doc string, warnings []syllabus.Warning) {
	for _, w := range warnings {
		fields := []zap.Field{
			zap.String("document", doc),
			zap.String("code", w.Code),
			zap.String("field", w.Field),
			zap.String("value", w.Value),
		}
		if w.Subject != "" {
			fields = append(fields, zap.String(subjectKey(w.Code), w.Subject))
		}
		logger.Warn(w.Message, fields...)
	}
}

func subjectKey(code string) string {
	switch code {
	case syllabus.WarnAssessmentDropped, syllabus.WarnWeightDefaulted:
		return "assessment"
	case syllabus.WarnUnitExtraWeekRow:
		return "unit"
	}
	return "subject"
}
