package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *SearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty query", &SearchQuery{Query: ""}, true, 0},
		{"valid query", &SearchQuery{Query: "circuitos", Limit: 5}, false, 5},
		{"sets default limit", &SearchQuery{Query: "x", Limit: 0}, false, 10},
		{"caps limit at 100", &SearchQuery{Query: "x", Limit: 200}, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantLimit, tt.query.Limit)
		})
	}
}

func TestCourseMetadata_KeyAndEquality(t *testing.T) {
	a := CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"}
	b := CourseMetadata{CourseID: "1AEL0244", NRC: "8281", Period: "2025-2"}
	assert.Equal(t, "1AEL0244_8281", a.Key())
	assert.True(t, a == b)
	b.NRC = "8282"
	assert.False(t, a == b)
}

func TestCourse_StringAndTotalWeight(t *testing.T) {
	c := &Course{
		Metadata: CourseMetadata{CourseID: "1AEL0244", NRC: "8281"},
		Name:     "Análisis de Circuitos Eléctricos 2",
		Assessments: []Assessment{
			{Name: "Examen Parcial", Weight: 20},
			{Name: "Examen Final", Weight: 30.5},
		},
	}
	assert.Equal(t, "1AEL0244-Análisis de Circuitos Eléctricos 2 (NRC: 8281)", c.String())
	assert.InDelta(t, 50.5, c.TotalWeight(), 1e-9)
}

func TestCourseRecord_KeyAndString(t *testing.T) {
	r := &CourseRecord{
		Metadata: CourseMetadata{CourseID: "1MAT0101", NRC: "1001", Period: "2025-1"},
		Name:     "Cálculo Diferencial",
	}
	assert.Equal(t, "1MAT0101_1001", r.Key())
	assert.Equal(t, "1MAT0101-Cálculo Diferencial (NRC: 1001)", r.String())
}
