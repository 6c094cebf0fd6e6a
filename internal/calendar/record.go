package calendar

import (
	"fmt"

	"github.com/hyperjump/silabo/internal/models"
)

// ToRecord resolves the unit and assessment dates of course and returns its
// persisted form. A period without configured dates fails with ErrUnknownPeriod;
// no date is ever guessed.
func ToRecord(course *models.Course, r *Resolver, sourceFile string) (*models.CourseRecord, error) {
	period := course.Metadata.Period
	if !r.Has(period) {
		return nil, fmt.Errorf("%s: %w: %q", course.Metadata.Key(), ErrUnknownPeriod, period)
	}

	units := make([]models.UnitRecord, 0, len(course.Units))
	for _, u := range course.Units {
		start, end, err := r.Range(period, u.Weeks.Start, u.Weeks.End)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", u.Number, err)
		}
		units = append(units, models.UnitRecord{
			Number:       u.Number,
			Title:        u.Title,
			Achievement:  u.Achievement,
			InitialWeek:  u.Weeks.Start,
			LastWeek:     u.Weeks.End,
			InitialDate:  start.Format(DateLayout),
			LastDate:     end.Format(DateLayout),
			Syllabus:     u.Syllabus,
			Activities:   u.Activities,
			Exams:        u.Exams,
			Bibliography: u.Bibliography,
		})
	}

	assessments := make([]models.AssessmentRecord, 0, len(course.Assessments))
	for _, a := range course.Assessments {
		start, end, err := r.Week(period, a.Week)
		if err != nil {
			return nil, fmt.Errorf("assessment %s: %w", a.Name, err)
		}
		assessments = append(assessments, models.AssessmentRecord{
			Name:          a.Name,
			Code:          a.Code,
			Weight:        a.Weight,
			Week:          a.Week,
			IsRecoverable: a.IsRecoverable,
			InitialDate:   start.Format(DateLayout),
			LastDate:      end.Format(DateLayout),
		})
	}

	return &models.CourseRecord{
		Metadata:       course.Metadata,
		SourceMetadata: course.Source,
		Name:           course.Name,
		PeriodLabel:    course.PeriodLabel,
		Faculty:        course.Faculty,
		Credits:        course.Credits,
		TotalWeeks:     course.TotalWeeks,
		Areas:          course.Areas,
		Units:          units,
		Assessments:    assessments,
		SourceFile:     sourceFile,
	}, nil
}
