package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/silabo/internal/models"
)

// SQLiteRepository stores course records and source-file state in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		key TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		nrc TEXT NOT NULL,
		period TEXT NOT NULL,
		name TEXT,
		record TEXT NOT NULL,
		source_file TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_courses_course_id ON courses(course_id);
	CREATE INDEX IF NOT EXISTS idx_courses_period ON courses(period);

	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		mtime INTEGER NOT NULL,
		size INTEGER NOT NULL,
		digest TEXT NOT NULL DEFAULT '',
		course_key TEXT NOT NULL,
		processed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sources_course_key ON sources(course_key);
	`
	_, err := db.Exec(schema)
	return err
}

// Save inserts the record or replaces the stored one with the same key, keeping created_at.
func (s *SQLiteRepository) Save(ctx context.Context, record *models.CourseRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal course: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO courses (key, course_id, nrc, period, name, record, source_file, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   course_id = excluded.course_id, nrc = excluded.nrc, period = excluded.period,
		   name = excluded.name, record = excluded.record, source_file = excluded.source_file,
		   updated_at = excluded.updated_at`,
		record.Key(), record.Metadata.CourseID, record.Metadata.NRC, record.Metadata.Period,
		record.Name, string(data), record.SourceFile, now, now,
	)
	return err
}

func (s *SQLiteRepository) FindByKey(ctx context.Context, key string) (*models.CourseRecord, error) {
	return s.queryOne(ctx, `SELECT record FROM courses WHERE key = ?`, key)
}

func (s *SQLiteRepository) FindByID(ctx context.Context, courseID string) (*models.CourseRecord, error) {
	return s.queryOne(ctx, `SELECT record FROM courses WHERE course_id = ? ORDER BY key LIMIT 1`, courseID)
}

func (s *SQLiteRepository) FindByPeriod(ctx context.Context, period string) ([]*models.CourseRecord, error) {
	return s.queryMany(ctx, `SELECT record FROM courses WHERE period = ? ORDER BY key`, period)
}

func (s *SQLiteRepository) List(ctx context.Context) ([]*models.CourseRecord, error) {
	return s.queryMany(ctx, `SELECT record FROM courses ORDER BY key`)
}

func (s *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count)
	return count, err
}

func (s *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE key = ?`, key)
	return err
}

func (s *SQLiteRepository) queryOne(ctx context.Context, query string, arg string) (*models.CourseRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func (s *SQLiteRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.CourseRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.CourseRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeRecord(data string) (*models.CourseRecord, error) {
	var rec models.CourseRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal course: %w", err)
	}
	return &rec, nil
}

// GetSource returns the recorded state of path.
func (s *SQLiteRepository) GetSource(ctx context.Context, path string) (*SourceState, error) {
	var (
		st    SourceState
		mtime int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT path, mtime, size, digest, course_key, processed_at FROM sources WHERE path = ?`, path,
	).Scan(&st.Path, &mtime, &st.Size, &st.Digest, &st.CourseKey, &st.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	// Stored as UnixNano so the comparison does not depend on timestamp formatting.
	st.ModTime = time.Unix(0, mtime)
	return &st, nil
}

// PutSource records state, replacing any previous state for the same path.
func (s *SQLiteRepository) PutSource(ctx context.Context, state SourceState) error {
	if state.ProcessedAt.IsZero() {
		state.ProcessedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sources (path, mtime, size, digest, course_key, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		state.Path, state.ModTime.UnixNano(), state.Size, state.Digest, state.CourseKey, state.ProcessedAt,
	)
	return err
}

func (s *SQLiteRepository) DeleteSource(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, path)
	return err
}

// CountSources returns the number of tracked source files.
func (s *SQLiteRepository) CountSources(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}
