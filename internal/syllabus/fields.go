package syllabus

import (
	"regexp"
	"strconv"
	"strings"
)

// ValueKind selects how a labelled value is interpreted.
type ValueKind int

const (
	KindText ValueKind = iota
	KindInt
	KindDigits // first run of digits, kept as a string
	KindBulletList
	KindCommaList
)

// Field names of the general-information block.
const (
	FieldName     = "name"
	FieldCourseID = "course_id"
	FieldPeriod   = "period"
	FieldFaculty  = "faculty"
	FieldCredits  = "credits"
	FieldWeeks    = "weeks"
	FieldAreas    = "areas"
	FieldNRC      = "nrc"
)

// DefaultTotalWeeks is used when the weeks field is present but unusable.
const DefaultTotalWeeks = 16

// FieldSpec declares one labelled field: its label synonyms, tried in order, and its kind.
type FieldSpec struct {
	Name   string
	Labels []string
	Kind   ValueKind
}

// FieldValue is one extracted field.
type FieldValue struct {
	Raw  string
	Text string
	Int  int
	List []string
}

// FieldTable interprets a set of FieldSpecs against free text.
type FieldTable struct {
	specs    []FieldSpec
	patterns [][]*regexp.Regexp
}

// NewFieldTable compiles the label patterns of specs.
func NewFieldTable(specs ...FieldSpec) *FieldTable {
	t := &FieldTable{specs: specs, patterns: make([][]*regexp.Regexp, len(specs))}
	for i, spec := range specs {
		for _, label := range spec.Labels {
			t.patterns[i] = append(t.patterns[i], labelPattern(label))
		}
	}
	return t
}

// labelPattern matches "<label>[ (note)] <:|-> <value>" on one line, case-insensitively.
func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*` + regexp.QuoteMeta(label) +
		`(?:[ \t]*\([^)\n]*\))?[ \t]*[:\-][ \t]*(\S.*?)[ \t]*$`)
}

// GeneralInfoTable is the field table of the "I. INFORMACIÓN GENERAL" section.
var GeneralInfoTable = NewFieldTable(
	FieldSpec{Name: FieldName, Labels: []string{"Nombre del Curso", "Nombre"}, Kind: KindText},
	FieldSpec{Name: FieldCourseID, Labels: []string{"Código del curso", "Código"}, Kind: KindText},
	FieldSpec{Name: FieldPeriod, Labels: []string{"Periodo", "Período"}, Kind: KindText},
	FieldSpec{Name: FieldFaculty, Labels: []string{"Cuerpo académico", "Docentes", "Docente"}, Kind: KindBulletList},
	FieldSpec{Name: FieldCredits, Labels: []string{"Créditos"}, Kind: KindInt},
	FieldSpec{Name: FieldWeeks, Labels: []string{"Semanas"}, Kind: KindInt},
	FieldSpec{Name: FieldAreas, Labels: []string{"Área o programa", "Área"}, Kind: KindCommaList},
	FieldSpec{Name: FieldNRC, Labels: []string{"NRC"}, Kind: KindDigits},
)

var digitsPattern = regexp.MustCompile(`\d+`)

// Extract returns the fields found in text. Fields whose label is missing are
// absent from the map; fields whose value cannot be interpreted are absent too
// and reported as warnings.
func (t *FieldTable) Extract(text string) (map[string]FieldValue, []Warning) {
	out := make(map[string]FieldValue)
	var warnings []Warning
	for i, spec := range t.specs {
		raw, ok := findLabelled(text, t.patterns[i], spec.Kind)
		if !ok {
			continue
		}
		v := FieldValue{Raw: raw}
		switch spec.Kind {
		case KindText:
			v.Text = raw
		case KindInt, KindDigits:
			digits := digitsPattern.FindString(raw)
			if digits == "" {
				warnings = append(warnings, Warning{
					Code: WarnFieldUnparseable, Field: spec.Name, Value: raw,
					Message: "value has no digits",
				})
				continue
			}
			v.Text = digits
			if spec.Kind == KindInt {
				n, err := strconv.Atoi(digits)
				if err != nil {
					warnings = append(warnings, Warning{
						Code: WarnFieldUnparseable, Field: spec.Name, Value: raw,
						Message: "value is not an integer",
					})
					continue
				}
				v.Int = n
			}
		case KindBulletList:
			v.List = ParseBullets(raw)
		case KindCommaList:
			v.List = parseCommaList(raw)
		}
		out[spec.Name] = v
	}
	return out, warnings
}

// findLabelled returns the value of the first synonym that matches. List values
// continue on following lines that start with a bullet.
func findLabelled(text string, patterns []*regexp.Regexp, kind ValueKind) (string, bool) {
	for _, re := range patterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		value := text[loc[2]:loc[3]]
		if kind == KindBulletList || kind == KindCommaList {
			value = appendBulletContinuation(value, text[loc[1]:])
		}
		return value, true
	}
	return "", false
}

func appendBulletContinuation(value, rest string) string {
	lines := strings.Split(rest, "\n")
	// lines[0] is the remainder of the matched line.
	for _, l := range lines[1:] {
		trimmed := strings.TrimSpace(l)
		r := []rune(trimmed)
		if len(r) == 0 || !strings.ContainsRune(bulletGlyphs, r[0]) {
			break
		}
		value += " " + trimmed
	}
	return value
}

// GeneralInfo is the typed content of the general-information section.
type GeneralInfo struct {
	Name        string
	CourseID    string
	PeriodLabel string
	NRC         string
	Faculty     []string
	Areas       []string
	Credits     *int
	TotalWeeks  *int
}

// ParseGeneralInfo applies GeneralInfoTable to the section text. An unparseable
// credits value is omitted; an unparseable or zero weeks value becomes DefaultTotalWeeks.
func ParseGeneralInfo(text string) (GeneralInfo, []Warning) {
	fields, warnings := GeneralInfoTable.Extract(text)
	info := GeneralInfo{
		Name:        fields[FieldName].Text,
		CourseID:    fields[FieldCourseID].Text,
		PeriodLabel: fields[FieldPeriod].Text,
		NRC:         fields[FieldNRC].Text,
		Faculty:     fields[FieldFaculty].List,
		Areas:       fields[FieldAreas].List,
	}
	if v, ok := fields[FieldCredits]; ok {
		n := v.Int
		info.Credits = &n
	}
	if v, ok := fields[FieldWeeks]; ok && v.Int >= 1 {
		n := v.Int
		info.TotalWeeks = &n
	} else if ok || hasWarning(warnings, FieldWeeks) {
		if ok {
			warnings = append(warnings, Warning{
				Code: WarnFieldUnparseable, Field: FieldWeeks, Value: v.Raw,
				Message: "weeks must be at least 1",
			})
		}
		n := DefaultTotalWeeks
		info.TotalWeeks = &n
	}
	return info, warnings
}

func hasWarning(warnings []Warning, field string) bool {
	for _, w := range warnings {
		if w.Field == field {
			return true
		}
	}
	return false
}
