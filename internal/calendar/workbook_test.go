package calendar

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/silabo/internal/models"
)

func TestWriteWorkbook(t *testing.T) {
	r := testResolver()
	rec, err := ToRecord(sampleCourse("2025-2"), r, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "calendario.xlsx")
	require.NoError(t, WriteWorkbook(path, []*models.CourseRecord{rec}, r))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	assert.Equal(t, []string{"2025-2", AssessmentsSheet}, f.GetSheetList())

	rows, err := f.GetRows("2025-2")
	require.NoError(t, err)
	require.Len(t, rows, 17)
	assert.Equal(t, []string{"Semana", "Inicio", "Fin", "1AEL0244 (8281)"}, rows[0])
	assert.Equal(t, "2025-08-18", rows[1][1])
	assert.Equal(t, "U1: Transitorios\nEP1 (20%)", rows[8][3])

	list, err := f.GetRows(AssessmentsSheet)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Examen Parcial", list[1][3])
	assert.Equal(t, "No", list[1][9])
}

func TestWeekCell(t *testing.T) {
	rec := &models.CourseRecord{
		Units: []models.UnitRecord{
			{Number: 1, Title: "A", InitialWeek: 1, LastWeek: 4},
			{Number: 2, Title: "B", InitialWeek: 4, LastWeek: 8},
		},
		Assessments: []models.AssessmentRecord{{Name: "Participación", Weight: 12.5, Week: 4}},
	}
	assert.Equal(t, "U1: A\nU2: B\nParticipación (12.5%)", weekCell(rec, 4))
	assert.Equal(t, "", weekCell(rec, 9))
}
