package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/keyword"
	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/internal/server"
	"github.com/hyperjump/silabo/internal/storage"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"circuitos"}, "circuitos"},
		{"multiple words", []string{"circuitos", "electricos"}, "circuitos electricos"},
		{"quoted phrase", []string{"análisis de circuitos"}, "análisis de circuitos"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildSearchQuery(tt.args))
		})
	}
}

func TestCollectPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/UG-202520_1AEL0244-8281.pdf", "a/b/UG-202520_1MAT0101-1001.PDF", "a/notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	single := filepath.Join(dir, "a", "notes.txt")

	paths, err := collectPaths([]string{filepath.Join(dir, "a"), single}, true, []string{".pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "UG-202520_1AEL0244-8281.pdf"),
		filepath.Join(dir, "a", "b", "UG-202520_1MAT0101-1001.PDF"),
		single,
	}, paths)

	paths, err = collectPaths([]string{filepath.Join(dir, "a")}, false, []string{".pdf"})
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	_, err = collectPaths([]string{filepath.Join(dir, "missing")}, true, nil)
	assert.True(t, os.IsNotExist(err))
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `
output:
  json_dir: ./cursos_json
storage:
  database_path: ./data/courses.db
  bleve_index_path: ./data/bleve
periods:
  "2025-2":
    start_date: "2025-08-18"
    end_date: "2025-12-01"
  "2025-1":
    start_date: "2025-03-17"
    end_date: "2025-07-12"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_prefersWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(resolved))
	assert.Len(t, cfg.Periods, 2)
}

func TestLoadConfig_invalidPeriod(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("periods:\n  \"2025\":\n    start_date: \"2025-08-18\"\n    end_date: \"2025-12-01\"\n"), 0644))
	_, _, err := loadConfig(path)
	assert.Error(t, err)
}

func TestInitializeComponents_localStatus(t *testing.T) {
	dir := t.TempDir()
	cfg, _, err := loadConfig(writeTestConfig(t, dir))
	require.NoError(t, err)

	c, err := initializeComponents(cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	rec := &models.CourseRecord{
		Metadata: models.CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"},
		Name:     "Análisis de Circuitos Eléctricos",
	}
	require.NoError(t, c.Repo.Save(ctx, rec))
	require.NoError(t, c.Index.Index(ctx, rec))

	_, err = os.Stat(filepath.Join(dir, "cursos_json", "1AEL0244_8281.json"))
	assert.NoError(t, err, "the JSON directory mirrors the database")

	status, err := localStatus(ctx, cfg, c)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Courses)
	assert.EqualValues(t, 1, status.Indexed)
	require.NotNil(t, status.Sources)
	assert.Equal(t, 0, *status.Sources)
	assert.Equal(t, []string{"2025-1", "2025-2"}, status.Periods)
	assert.Greater(t, status.DiskUsageBytes, int64(0))

	var buf bytes.Buffer
	writeStatusText(&buf, status)
	assert.Contains(t, buf.String(), "Courses:     1")
	assert.Contains(t, buf.String(), "2025-1, 2025-2")
}

func TestSearchViaHTTP(t *testing.T) {
	repo, err := storage.NewJSONRepository(t.TempDir())
	require.NoError(t, err)
	idx, err := keyword.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()
	rec := &models.CourseRecord{
		Metadata: models.CourseMetadata{CourseID: "1MAT0101", NRC: "1001", Period: "2025-1"},
		Name:     "Cálculo Diferencial",
	}
	require.NoError(t, idx.Index(context.Background(), rec))

	ts := httptest.NewServer(server.NewServer(repo, idx, nil, nil, nil).Router())
	defer ts.Close()

	resp, err := searchViaHTTP(ts.URL+"/", &models.SearchQuery{Query: "calculo", Limit: 5})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "1MAT0101_1001", resp.Results[0].Key)

	var status statusResponse
	require.NoError(t, getJSON(ts.URL+"/api/v1/status", &status))
	assert.EqualValues(t, 1, status.Indexed)
	assert.NotNil(t, status.UptimeSeconds)

	_, err = searchViaHTTP(ts.URL, &models.SearchQuery{Query: ""})
	assert.ErrorContains(t, err, "400")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2<<20))
}
