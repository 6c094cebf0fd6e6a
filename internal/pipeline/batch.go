package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/calendar"
	"github.com/hyperjump/silabo/internal/concurrency"
	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/internal/storage"
)

// Discover returns the files under root whose extension is in exts
// (case-insensitive), sorted by path. Subdirectories are walked only when
// recursive is set. File names are not checked against the syllabus pattern
// here; mismatches surface as filename failures when processed.
func Discover(root string, recursive bool, exts []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absRoot && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), exts) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// ProcessDirectory discovers syllabi under every root and processes them on
// the worker pool. Per-document failures are collected in the summary; only an
// unreadable root or a failure writing the run outputs is returned as an error.
// When ctx is cancelled, documents not yet started are left out of the summary
// and ctx.Err() is returned with it.
func (p *Pipeline) ProcessDirectory(ctx context.Context, roots ...string) (*models.BatchSummary, error) {
	var paths []string
	for _, root := range roots {
		found, err := Discover(root, p.recursive, p.extensions)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return p.ProcessBatch(ctx, paths)
}

// ProcessBatch processes the given files as one run, with the same summary,
// cancellation and output rules as ProcessDirectory.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) (*models.BatchSummary, error) {
	startedAt := time.Now()
	runID := uuid.New().String()
	p.logger.Info("batch started", zap.String("run_id", runID), zap.Int("documents", len(paths)))

	results, started := concurrency.ProcessParallel(ctx, paths, concurrency.Options{MaxWorkers: p.workers},
		func(ctx context.Context, _ int, path string) *Result {
			return p.ProcessFile(ctx, path)
		})

	summary := Summarize(results, started)
	summary.RunID = runID
	summary.Found = len(paths)
	summary.StartedAt = startedAt
	summary.FinishedAt = time.Now()

	p.logger.Info("batch finished",
		zap.String("run_id", runID),
		zap.Int("found", summary.Found),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.FinishedAt.Sub(startedAt)),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if err := p.WriteOutputs(summary.Courses); err != nil {
		return summary, err
	}
	return summary, nil
}

// Summarize tallies the results of the documents that were started.
func Summarize(results []*Result, started []bool) *models.BatchSummary {
	s := &models.BatchSummary{Found: len(results), Courses: []*models.CourseRecord{}}
	for i, res := range results {
		if !started[i] || res == nil {
			continue
		}
		switch {
		case res.Failure != nil:
			s.Failed++
			s.Failures = append(s.Failures, models.DocumentFailure{
				Path:   res.Path,
				Kind:   string(res.Failure.Kind),
				Reason: res.Failure.Err.Error(),
			})
		case res.Skipped:
			s.Skipped++
			s.Courses = append(s.Courses, res.Course)
		default:
			s.Processed++
			s.Courses = append(s.Courses, res.Course)
		}
	}
	return s
}

// WriteOutputs writes the aggregate record and the calendar workbook, when configured.
func (p *Pipeline) WriteOutputs(records []*models.CourseRecord) error {
	if p.aggregatePath != "" {
		if err := storage.WriteAggregate(p.aggregatePath, records); err != nil {
			return fmt.Errorf("write aggregate: %w", err)
		}
		p.logger.Info("aggregate written", zap.String("path", p.aggregatePath), zap.Int("courses", len(records)))
	}
	if p.calendarPath != "" {
		if err := calendar.WriteWorkbook(p.calendarPath, records, p.resolver); err != nil {
			return fmt.Errorf("write calendar: %w", err)
		}
		p.logger.Info("calendar written", zap.String("path", p.calendarPath), zap.Int("courses", len(records)))
	}
	return nil
}

// RefreshOutputs rewrites the run outputs from every course in the repository.
func (p *Pipeline) RefreshOutputs(ctx context.Context) error {
	if p.repo == nil || (p.aggregatePath == "" && p.calendarPath == "") {
		return nil
	}
	records, err := p.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	return p.WriteOutputs(records)
}
