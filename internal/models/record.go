package models

import (
	"fmt"
	"time"
)

// CourseRecord is the persisted, date-resolved form of a Course.
type CourseRecord struct {
	Metadata       CourseMetadata     `json:"metadata"`
	SourceMetadata CourseMetadata     `json:"source_metadata"`
	Name           string             `json:"name"`
	PeriodLabel    string             `json:"period_label,omitempty"`
	Faculty        []string           `json:"faculty"`
	Credits        *int               `json:"credits"`
	TotalWeeks     *int               `json:"total_weeks"`
	Areas          []string           `json:"areas"`
	Units          []UnitRecord       `json:"units"`
	Assessments    []AssessmentRecord `json:"assessments"`
	SourceFile     string             `json:"source_file,omitempty"`
}

// UnitRecord is a Unit with resolved calendar dates.
type UnitRecord struct {
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Achievement  string   `json:"achievement"`
	InitialWeek  int      `json:"initial_week"`
	LastWeek     int      `json:"last_week"`
	InitialDate  string   `json:"initial_date"`
	LastDate     string   `json:"last_date"`
	Syllabus     []string `json:"syllabus"`
	Activities   []string `json:"activities"`
	Exams        []string `json:"exams"`
	Bibliography []string `json:"bibliography"`
}

// AssessmentRecord is an Assessment with resolved calendar dates.
type AssessmentRecord struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Weight        float64 `json:"weight"`
	Week          int     `json:"week"`
	IsRecoverable bool    `json:"is_recoverable"`
	InitialDate   string  `json:"initial_date"`
	LastDate      string  `json:"last_date"`
}

// Key returns the storage identity of the record.
func (r *CourseRecord) Key() string {
	return r.Metadata.Key()
}

func (r *CourseRecord) String() string {
	return fmt.Sprintf("%s-%s (NRC: %s)", r.Metadata.CourseID, r.Name, r.Metadata.NRC)
}

// DocumentFailure describes a document that could not be turned into a course.
type DocumentFailure struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// BatchSummary reports the outcome of processing a set of syllabi.
type BatchSummary struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Found      int               `json:"found"`
	Processed  int               `json:"processed"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Failures   []DocumentFailure `json:"failures,omitempty"`
	Courses    []*CourseRecord   `json:"courses,omitempty"`
}
