package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/silabo/internal/models"
)

func sampleRecord(courseID, nrc, period string) *models.CourseRecord {
	weeks := 16
	return &models.CourseRecord{
		Metadata:       models.CourseMetadata{CourseID: courseID, NRC: nrc, Period: period},
		SourceMetadata: models.CourseMetadata{CourseID: courseID, NRC: nrc, Period: period},
		Name:           "Cálculo " + courseID,
		Faculty:        []string{"Ana Pérez"},
		TotalWeeks:     &weeks,
		Areas:          []string{"Ciencias"},
		Units: []models.UnitRecord{{
			Number: 1, Title: "Límites", InitialWeek: 1, LastWeek: 4,
			InitialDate: "2025-08-11", LastDate: "2025-09-06",
			Syllabus: []string{"Límites laterales"}, Activities: []string{}, Exams: []string{}, Bibliography: []string{},
		}},
		Assessments: []models.AssessmentRecord{{
			Name: "Examen Parcial", Code: "EP", Weight: 30, Week: 8,
			InitialDate: "2025-10-06", LastDate: "2025-10-11",
		}},
		SourceFile: courseID + "_" + nrc + "_" + period + ".pdf",
	}
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	dir := t.TempDir()
	jsonRepo, err := NewJSONRepository(filepath.Join(dir, "json"))
	require.NoError(t, err)
	sqliteRepo, err := NewSQLiteRepository(filepath.Join(dir, "db", "courses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	fanJSON, err := NewJSONRepository(filepath.Join(dir, "fan-json"))
	require.NoError(t, err)
	fanSQLite, err := NewSQLiteRepository(filepath.Join(dir, "fan.db"))
	require.NoError(t, err)
	fan := NewFanout(fanSQLite, fanJSON)
	t.Cleanup(func() { _ = fan.Close() })

	return map[string]Repository{"json": jsonRepo, "sqlite": sqliteRepo, "fanout": fan}
}

func TestRepository_Contract(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, repo.Save(ctx, sampleRecord("MAT101", "2002", "2025-2")))
			require.NoError(t, repo.Save(ctx, sampleRecord("MAT101", "1001", "2025-2")))
			require.NoError(t, repo.Save(ctx, sampleRecord("FIS200", "3003", "2026-1")))

			n, err = repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			got, err := repo.FindByKey(ctx, "FIS200_3003")
			require.NoError(t, err)
			assert.Equal(t, sampleRecord("FIS200", "3003", "2026-1"), got)

			first, err := repo.FindByID(ctx, "MAT101")
			require.NoError(t, err)
			assert.Equal(t, "1001", first.Metadata.NRC, "first match in key order")

			inPeriod, err := repo.FindByPeriod(ctx, "2025-2")
			require.NoError(t, err)
			require.Len(t, inPeriod, 2)
			assert.Equal(t, "MAT101_1001", inPeriod[0].Key())

			none, err := repo.FindByPeriod(ctx, "1999-1")
			require.NoError(t, err)
			assert.Empty(t, none)
			assert.NotNil(t, none)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"FIS200_3003", "MAT101_1001", "MAT101_2002"},
				[]string{all[0].Key(), all[1].Key(), all[2].Key()})

			updated := sampleRecord("FIS200", "3003", "2026-1")
			updated.Name = "Física"
			require.NoError(t, repo.Save(ctx, updated))
			got, err = repo.FindByKey(ctx, "FIS200_3003")
			require.NoError(t, err)
			assert.Equal(t, "Física", got.Name)
			n, _ = repo.Count(ctx)
			assert.Equal(t, 3, n, "save replaces by key")

			require.NoError(t, repo.Delete(ctx, "FIS200_3003"))
			require.NoError(t, repo.Delete(ctx, "FIS200_3003"), "delete is idempotent")
			_, err = repo.FindByKey(ctx, "FIS200_3003")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = repo.FindByID(ctx, "FIS200")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestJSONRepository_FileLayout(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewJSONRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), sampleRecord("MAT101", "1001", "2025-2")))

	data, err := os.ReadFile(filepath.Join(dir, "MAT101_1001.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Cálculo MAT101"`, "non-ASCII stays readable")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"metadata", "source_metadata", "name", "faculty", "credits", "total_weeks", "areas", "units", "assessments", "source_file"} {
		assert.Contains(t, raw, key)
	}
	unit := raw["units"].([]any)[0].(map[string]any)
	for _, key := range []string{"number", "title", "achievement", "initial_week", "last_week", "initial_date", "last_date", "syllabus", "activities", "exams", "bibliography"} {
		assert.Contains(t, unit, key)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestJSONRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewJSONRepository(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD_1.json"), []byte("{"), 0644))

	_, err = repo.List(context.Background())
	assert.ErrorContains(t, err, "BAD_1.json")
}

func TestWriteAggregate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "courses.json")
	records := []*models.CourseRecord{
		sampleRecord("MAT101", "2002", "2025-2"),
		sampleRecord("FIS200", "3003", "2026-1"),
	}
	require.NoError(t, WriteAggregate(path, records))
	assert.Equal(t, "MAT101_2002", records[0].Key(), "input order untouched")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []*models.CourseRecord
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "FIS200_3003", got[0].Key())
	assert.Equal(t, "MAT101_2002", got[1].Key())
}

func TestSQLiteRepository_Sources(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "courses.db"))
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	_, err = repo.GetSource(ctx, "/in/MAT101_1001_2025-2.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	mtime := time.Date(2025, 8, 1, 10, 30, 0, 123456789, time.UTC)
	require.NoError(t, repo.PutSource(ctx, SourceState{
		Path: "/in/MAT101_1001_2025-2.pdf", ModTime: mtime, Size: 2048, Digest: "sha256:ab12", CourseKey: "MAT101_1001",
	}))

	st, err := repo.GetSource(ctx, "/in/MAT101_1001_2025-2.pdf")
	require.NoError(t, err)
	assert.Equal(t, "MAT101_1001", st.CourseKey)
	assert.Equal(t, "sha256:ab12", st.Digest)
	assert.True(t, st.Unchanged(mtime, 2048))
	assert.False(t, st.Unchanged(mtime, 2049))
	assert.False(t, st.Unchanged(mtime.Add(time.Second), 2048))
	assert.False(t, st.ProcessedAt.IsZero())

	n, err := repo.CountSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteSource(ctx, "/in/MAT101_1001_2025-2.pdf"))
	_, err = repo.GetSource(ctx, "/in/MAT101_1001_2025-2.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFanout_Tracker(t *testing.T) {
	dir := t.TempDir()
	jsonRepo, err := NewJSONRepository(filepath.Join(dir, "json"))
	require.NoError(t, err)
	assert.Nil(t, NewFanout(jsonRepo).Tracker())

	sqliteRepo, err := NewSQLiteRepository(filepath.Join(dir, "courses.db"))
	require.NoError(t, err)
	fan := NewFanout(jsonRepo, sqliteRepo)
	defer fan.Close()
	assert.Same(t, sqliteRepo, fan.Tracker())
}
