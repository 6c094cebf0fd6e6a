package syllabus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/silabo/internal/models"
)

var assessmentHeaderRow = Row{"TIPO", "COMPETENCIA", "PESO", "SEMANA", "OBSERVACIÓN", "RECUPERABLE"}

func TestParseAssessments_Row(t *testing.T) {
	got, warnings := ParseAssessments([]Row{{"Examen Parcial-EP1", "C1", "20%", "8", "", "No"}})
	assert.Empty(t, warnings)
	require.Len(t, got, 1)
	assert.Equal(t, models.Assessment{
		Name:          "Examen Parcial",
		Code:          "EP1",
		Weight:        20.0,
		Week:          8,
		IsRecoverable: false,
	}, got[0])
}

func TestParseAssessments_SkipsRepeatedHeaders(t *testing.T) {
	rows := []Row{
		assessmentHeaderRow,
		{"Práctica Calificada-PC1", "C1", "15%", "4", "", "Sí"},
		assessmentHeaderRow,
		{"Observación\nSemana", "", "", "", "", ""},
		{"Evaluación Final-EF", "C1", "40%", "16", "", "SI"},
	}
	got, warnings := ParseAssessments(rows)

	require.Len(t, got, 2)
	assert.Equal(t, "PC1", got[0].Code)
	assert.True(t, got[0].IsRecoverable)
	assert.Equal(t, "EF", got[1].Code)
	assert.True(t, got[1].IsRecoverable)

	// The stray caption row has no week and is reported.
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnAssessmentDropped, warnings[0].Code)
}

func TestParseAssessments_BadWeekIsDroppedAndParsingContinues(t *testing.T) {
	rows := []Row{
		{"Tarea Académica-TA1", "C1", "10%", "ocho", "", "No"},
		{"Tarea Académica-TA2", "C1", "10%", "12", "", "No"},
	}
	got, warnings := ParseAssessments(rows)

	require.Len(t, got, 1)
	assert.Equal(t, "TA2", got[0].Code)
	assert.Equal(t, 12, got[0].Week)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnAssessmentDropped, warnings[0].Code)
	assert.Equal(t, "week", warnings[0].Field)
	assert.Equal(t, "ocho", warnings[0].Value)
	assert.Equal(t, "Tarea Académica-TA1", warnings[0].Subject)
}

func TestParseAssessments_BadWeightDefaultsToZero(t *testing.T) {
	got, warnings := ParseAssessments([]Row{{"Participación-PA", "C2", "variable", "10", "", "No"}})

	require.Len(t, got, 1)
	assert.Zero(t, got[0].Weight)
	assert.Equal(t, 10, got[0].Week)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnWeightDefaulted, warnings[0].Code)
	assert.Equal(t, "variable", warnings[0].Value)
}

func TestParseAssessments_Fields(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want models.Assessment
	}{
		{
			name: "no code",
			row:  Row{"Exposición", "C1", "5%", "6", "", ""},
			want: models.Assessment{Name: "Exposición", Weight: 5, Week: 6},
		},
		{
			name: "decimal comma",
			row:  Row{"Laboratorio-LB", "C1", "12,5 %", "9", "", "no"},
			want: models.Assessment{Name: "Laboratorio", Code: "LB", Weight: 12.5, Week: 9},
		},
		{
			name: "split on first dash only",
			row:  Row{"Trabajo Final-TF-1", "C1", "25", "15", "", "sí, una vez"},
			want: models.Assessment{Name: "Trabajo Final", Code: "TF-1", Weight: 25, Week: 15, IsRecoverable: true},
		},
		{
			name: "missing recoverable column",
			row:  Row{"Control-C", "C1", "5%", "3"},
			want: models.Assessment{Name: "Control", Code: "C", Weight: 5, Week: 3},
		},
		{
			name: "word containing si is not affirmative",
			row:  Row{"Quiz-Q", "C1", "5%", "2", "", "Sin recuperación"},
			want: models.Assessment{Name: "Quiz", Code: "Q", Weight: 5, Week: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := ParseAssessments([]Row{tt.row})
			assert.Empty(t, warnings)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestParseAssessments_OutOfRangeWeight(t *testing.T) {
	got, warnings := ParseAssessments([]Row{{"Examen-EX", "C1", "120%", "8", "", "No"}})
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Weight)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnWeightDefaulted, warnings[0].Code)
}

func TestParseAssessments_ShortRow(t *testing.T) {
	got, warnings := ParseAssessments([]Row{{"Examen-EX", "C1"}})
	assert.Empty(t, got)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnAssessmentDropped, warnings[0].Code)
}
