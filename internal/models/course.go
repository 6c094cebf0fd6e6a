// Package models defines the course data model produced from syllabus documents
// and the records written to storage.
package models

import "fmt"

// CourseMetadata identifies one course offering. It is a value object: compare with ==.
type CourseMetadata struct {
	CourseID string `json:"course_id"`
	NRC      string `json:"nrc"`
	Period   string `json:"period"`
}

// Key returns the storage identity of the offering, "{course_id}_{nrc}".
func (m CourseMetadata) Key() string {
	return m.CourseID + "_" + m.NRC
}

// WeekRange is an inclusive range of teaching weeks.
type WeekRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Unit is one learning unit reconstructed from the unit schedule table.
type Unit struct {
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Achievement  string    `json:"achievement"`
	Weeks        WeekRange `json:"week_range"`
	Syllabus     []string  `json:"syllabus"`
	Activities   []string  `json:"activities"`
	Exams        []string  `json:"exams"`
	Bibliography []string  `json:"bibliography"`
}

// Assessment is one graded evaluation from the assessment table.
type Assessment struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Weight        float64 `json:"weight"`
	Week          int     `json:"week"`
	IsRecoverable bool    `json:"is_recoverable"`
}

// Course is the structured record assembled from one syllabus.
// Metadata holds the resolved identity (content wins over filename);
// Source holds the identity decoded from the filename.
type Course struct {
	Metadata    CourseMetadata
	Source      CourseMetadata
	Name        string
	PeriodLabel string
	Faculty     []string
	Credits     *int
	TotalWeeks  *int
	Areas       []string
	Units       []Unit
	Assessments []Assessment
}

// String returns "{course_id}-{name} (NRC: {nrc})".
func (c *Course) String() string {
	return fmt.Sprintf("%s-%s (NRC: %s)", c.Metadata.CourseID, c.Name, c.Metadata.NRC)
}

// TotalWeight sums assessment weights.
func (c *Course) TotalWeight() float64 {
	var total float64
	for _, a := range c.Assessments {
		total += a.Weight
	}
	return total
}
