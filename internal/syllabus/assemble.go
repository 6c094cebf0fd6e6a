package syllabus

import (
	"fmt"
	"math"

	"github.com/hyperjump/silabo/internal/models"
)

// weightSumTolerance is how far the assessment weights may stray from 100
// before the advisory weight_sum warning is raised.
const weightSumTolerance = 0.5

// Assemble combines filename metadata with the parsed content of a syllabus.
// Content-derived identity fields win over the filename; every disagreement is
// reported as a warning, never as an error.
func Assemble(source models.CourseMetadata, info GeneralInfo, units []models.Unit, assessments []models.Assessment) (*models.Course, []Warning) {
	var warnings []Warning
	resolved := source

	if info.CourseID != "" {
		if info.CourseID != source.CourseID {
			warnings = append(warnings, mismatch(FieldCourseID, info.CourseID, source.CourseID))
		}
		resolved.CourseID = info.CourseID
	}
	if info.NRC != "" {
		if info.NRC != source.NRC {
			warnings = append(warnings, mismatch(FieldNRC, info.NRC, source.NRC))
		}
		resolved.NRC = info.NRC
	}

	if units == nil {
		units = []models.Unit{}
	}
	if assessments == nil {
		assessments = []models.Assessment{}
	}
	course := &models.Course{
		Metadata:    resolved,
		Source:      source,
		Name:        info.Name,
		PeriodLabel: info.PeriodLabel,
		Faculty:     nonNil(info.Faculty),
		Credits:     info.Credits,
		TotalWeeks:  info.TotalWeeks,
		Areas:       nonNil(info.Areas),
		Units:       units,
		Assessments: assessments,
	}

	if len(assessments) > 0 {
		if total := course.TotalWeight(); math.Abs(total-100) > weightSumTolerance {
			warnings = append(warnings, Warning{
				Code: WarnWeightSum, Field: "weight", Value: fmt.Sprintf("%.2f", total),
				Message: "assessment weights do not add up to 100",
			})
		}
	}
	return course, warnings
}

func mismatch(field, content, filename string) Warning {
	return Warning{
		Code:    WarnIdentityMismatch,
		Field:   field,
		Value:   content,
		Message: fmt.Sprintf("content value %q differs from filename value %q, using content", content, filename),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ParseDocument runs segmentation, field extraction and table reconstruction over
// the extracted pages of one syllabus and assembles the course. Only a structural
// failure of the unit table is returned as an error; everything else is a warning.
func ParseDocument(source models.CourseMetadata, pages []Page) (*models.Course, []Warning, error) {
	doc := Segment(pages)

	general, err := doc.Text(SectionGeneralInfo)
	if err != nil {
		return nil, nil, err
	}
	info, warnings := ParseGeneralInfo(general)

	units, unitWarnings, err := ParseUnits(doc.UnitRows())
	warnings = append(warnings, unitWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	assessments, assessmentWarnings := ParseAssessments(doc.AssessmentRows())
	warnings = append(warnings, assessmentWarnings...)

	course, assembleWarnings := Assemble(source, info, units, assessments)
	return course, append(warnings, assembleWarnings...), nil
}
