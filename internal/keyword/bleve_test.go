package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/silabo/internal/models"
)

func course(id, nrc, period, name string) *models.CourseRecord {
	return &models.CourseRecord{
		Metadata: models.CourseMetadata{CourseID: id, NRC: nrc, Period: period},
		Name:     name,
		Faculty:  []string{"Ana Pérez", "Luis Gómez"},
		Areas:    []string{"Ingeniería"},
		Units: []models.UnitRecord{
			{Number: 1, Title: "Límites y continuidad", Achievement: "Calcula límites de funciones"},
		},
		Assessments: []models.AssessmentRecord{{Name: "Examen Parcial", Code: "EP1"}},
	}
}

func seeded(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, course("MAT101", "1001", "2025-2", "Cálculo Diferencial")))
	require.NoError(t, idx.Index(ctx, course("FIS200", "2002", "2025-2", "Física Mecánica")))
	require.NoError(t, idx.Index(ctx, course("MAT101", "3003", "2026-1", "Cálculo Diferencial")))
	return idx
}

func TestBleveIndex_SearchIgnoresAccents(t *testing.T) {
	idx := seeded(t)
	for _, q := range []string{"calculo", "Cálculo", "CALCULO"} {
		res, err := idx.Search(context.Background(), &models.SearchQuery{Query: q})
		require.NoError(t, err, q)
		require.Len(t, res.Results, 2, q)
		assert.Equal(t, "Cálculo Diferencial", res.Results[0].Name, "display name keeps accents")
		assert.Equal(t, "MAT101", res.Results[0].CourseID)
		assert.Equal(t, 1, res.Results[0].Rank)
		assert.False(t, res.AutoFuzzy)
	}
}

func TestBleveIndex_SearchFields(t *testing.T) {
	idx := seeded(t)
	tests := []struct {
		query string
		want  int
	}{
		{"fis200", 1},
		{"2002", 1},
		{"gomez", 3},
		{"ingenieria", 3},
		{"continuidad", 3},
		{"ep1", 3},
		{"mecanica", 1},
	}
	for _, tt := range tests {
		res, err := idx.Search(context.Background(), &models.SearchQuery{Query: tt.query})
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.want, res.Total, tt.query)
	}
}

func TestBleveIndex_PeriodFilter(t *testing.T) {
	idx := seeded(t)
	res, err := idx.Search(context.Background(), &models.SearchQuery{Query: "calculo", Period: "2026-1"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "MAT101_3003", res.Results[0].Key)
	assert.Equal(t, "2026-1", res.Results[0].Period)
}

func TestBleveIndex_AutoFuzzy(t *testing.T) {
	idx := seeded(t)
	res, err := idx.Search(context.Background(), &models.SearchQuery{Query: "fisica mecanika"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Results, "exact search matches fisica")
	assert.False(t, res.AutoFuzzy)

	res, err = idx.Search(context.Background(), &models.SearchQuery{Query: "mecanika"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.True(t, res.AutoFuzzy)
	assert.Equal(t, "FIS200_2002", res.Results[0].Key)
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx := seeded(t)
	_, err := idx.Search(context.Background(), &models.SearchQuery{})
	assert.Error(t, err)
}

func TestBleveIndex_DeleteAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, course("MAT101", "1001", "2025-2", "Cálculo")))
	require.NoError(t, idx.Index(ctx, course("FIS200", "2002", "2025-2", "Física")))
	require.NoError(t, idx.Delete(ctx, "FIS200_2002"))
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, idx.Close())

	reopened, err := NewBleveIndex(path)
	require.NoError(t, err)
	defer reopened.Close()
	n, err = reopened.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	res, err := reopened.Search(ctx, &models.SearchQuery{Query: "calculo"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "MAT101_1001", res.Results[0].Key)
}
