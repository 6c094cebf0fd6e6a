package syllabus

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperjump/silabo/internal/models"
)

// assessmentHeader is the column header the renderer repeats on every printed page.
var assessmentHeader = []string{"TIPO", "COMPETENCIA", "PESO", "SEMANA", "OBSERVACIÓN", "RECUPERABLE"}

// Assessment table columns.
const (
	colName = iota
	colCompetency
	colWeight
	colWeek
	_ // observation
	colRecoverable
)

func isAssessmentHeader(cells []string) bool {
	n := 0
	for _, c := range cells {
		if c == "" {
			continue
		}
		if n >= len(assessmentHeader) || strings.ToUpper(c) != assessmentHeader[n] {
			return false
		}
		n++
	}
	return n >= 4
}

// ParseAssessments parses the assessment table in order. Header rows are skipped,
// a row whose week is not a positive integer is dropped with a warning, and a row
// whose weight cannot be read keeps weight 0 with a warning.
func ParseAssessments(rows []Row) ([]models.Assessment, []Warning) {
	var (
		out      []models.Assessment
		warnings []Warning
	)
	for _, raw := range rows {
		cells := normalizeCells(raw)
		if isBlank(cells) || isAssessmentHeader(cells) {
			continue
		}
		name, code := splitNameCode(cellAt(cells, colName))
		subject := name
		if code != "" {
			subject = name + "-" + code
		}
		if len(cells) <= colWeek {
			warnings = append(warnings, Warning{
				Code: WarnAssessmentDropped, Field: "row", Value: strings.Join(cells, " | "),
				Subject: subject, Message: "row has too few cells",
			})
			continue
		}

		weekCell := cellAt(cells, colWeek)
		week, err := strconv.Atoi(weekCell)
		if err != nil || week < 1 {
			warnings = append(warnings, Warning{
				Code: WarnAssessmentDropped, Field: "week", Value: weekCell,
				Subject: subject, Message: "week is not a positive integer, assessment dropped",
			})
			continue
		}

		weightCell := cellAt(cells, colWeight)
		weight, ok := parseWeight(weightCell)
		if !ok {
			warnings = append(warnings, Warning{
				Code: WarnWeightDefaulted, Field: "weight", Value: weightCell,
				Subject: subject, Message: "weight unreadable, using 0",
			})
		}

		out = append(out, models.Assessment{
			Name:          name,
			Code:          code,
			Weight:        weight,
			Week:          week,
			IsRecoverable: isAffirmative(cellAt(cells, colRecoverable)),
		})
	}
	return out, warnings
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// splitNameCode splits "Examen Parcial-EP1" on the first dash.
func splitNameCode(cell string) (string, string) {
	name, code, found := strings.Cut(cell, "-")
	if !found {
		return strings.TrimSpace(cell), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(code)
}

// parseWeight reads "20%", "20", "12,5 %" as a percentage in [0, 100].
func parseWeight(cell string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cell), "%"))
	s = strings.ReplaceAll(s, ",", ".")
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || w < 0 || w > 100 {
		return 0, false
	}
	return w, true
}

// isAffirmative reports whether cell holds the word "sí" or "si", in any case.
func isAffirmative(cell string) bool {
	words := strings.FieldsFunc(strings.ToLower(cell), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if w == "si" || w == "sí" {
			return true
		}
	}
	return false
}
