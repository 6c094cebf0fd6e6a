package syllabus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/silabo/internal/models"
)

func TestAssemble_ContentIdentityWins(t *testing.T) {
	source := models.CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"}

	same, warnings := Assemble(source, GeneralInfo{CourseID: "1AEL0244", NRC: "8281", Name: "Circuitos"}, nil, nil)
	assert.Empty(t, warnings)
	assert.Equal(t, source, same.Metadata)

	other, warnings := Assemble(source, GeneralInfo{CourseID: "1AEL0245", NRC: "8281", Name: "Circuitos II"}, nil, nil)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnIdentityMismatch, warnings[0].Code)
	assert.Equal(t, FieldCourseID, warnings[0].Field)
	assert.Contains(t, warnings[0].Message, "1AEL0244")
	assert.Contains(t, warnings[0].Message, "1AEL0245")

	assert.Equal(t, "1AEL0245", other.Metadata.CourseID)
	assert.Equal(t, "2025-2", other.Metadata.Period)
	assert.Equal(t, source, other.Source)
	assert.Equal(t, "1AEL0245-Circuitos II (NRC: 8281)", other.String())
}

func TestAssemble_FilenameFillsMissingIdentity(t *testing.T) {
	source := models.CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"}
	course, warnings := Assemble(source, GeneralInfo{}, nil, nil)
	assert.Empty(t, warnings)
	assert.Equal(t, source, course.Metadata)
	assert.Equal(t, []string{}, course.Faculty)
	assert.Equal(t, []models.Unit{}, course.Units)
}

func TestAssemble_WeightSum(t *testing.T) {
	source := models.CourseMetadata{CourseID: "X", NRC: "1", Period: "2025-1"}

	_, warnings := Assemble(source, GeneralInfo{}, nil, []models.Assessment{{Weight: 40, Week: 1}, {Weight: 60, Week: 2}})
	assert.Empty(t, warnings)

	_, warnings = Assemble(source, GeneralInfo{}, nil, []models.Assessment{{Weight: 20, Week: 1}, {Weight: 30, Week: 2}})
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnWeightSum, warnings[0].Code)
	assert.Equal(t, "50.00", warnings[0].Value)
}

func TestParseDocument(t *testing.T) {
	source := models.CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"}
	unitRows := unitBlockRows(1, "LEYES DE KIRCHHOFF", "Semana 1 - 8")
	unitRows = append(unitRows, unitBlockRows(2, "TEOREMAS", "Semana 9 - 16")...)

	pages := []Page{
		{Number: 1, Text: "Sílabo de Curso\n" + SectionGeneralInfo + "\n" + generalInfoSample},
		{Number: 2, Text: SectionUnits + "\n" + strings.Join(unitRows[0], " "), Table: unitRows[:7]},
		{Number: 3, Text: "Unidad n. 2 continúa", Table: unitRows[7:]},
		{Number: 4, Text: SectionEvaluation + "\nTIPO COMPETENCIA PESO SEMANA OBSERVACIÓN RECUPERABLE", Table: []Row{
			assessmentHeaderRow,
			{"Examen Parcial-EP", "C1", "40%", "8", "", "No"},
			{"Examen Final-EF", "C1", "60%", "16", "", "No"},
		}},
	}

	course, warnings, err := ParseDocument(source, pages)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "Análisis de Circuitos Eléctricos 2", course.Name)
	assert.Equal(t, source, course.Metadata)
	require.Len(t, course.Units, 2)
	assert.Equal(t, "TEOREMAS", course.Units[1].Title)
	require.Len(t, course.Assessments, 2)
	assert.Equal(t, 100.0, course.TotalWeight())
}

func TestParseDocument_StructureFailure(t *testing.T) {
	source := models.CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"}
	rows := unitBlockRows(1, "T", "Semana 1 - 4")[:3]
	pages := []Page{
		{Number: 1, Text: SectionUnits + "\n" + rows[0][0], Table: rows},
	}
	course, _, err := ParseDocument(source, pages)
	require.ErrorIs(t, err, ErrStructure)
	assert.Nil(t, course)
}
