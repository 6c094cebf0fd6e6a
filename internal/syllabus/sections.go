// Package syllabus turns the extracted pages of an institutional syllabus PDF into a
// structured course: it segments page text into the fixed section vocabulary, rebuilds
// the unit and assessment tables that the renderer splits across pages, and recovers
// typed fields from the general-information block.
package syllabus

import (
	"fmt"
	"strings"
)

// Section titles, in document order.
const (
	SectionGeneralInfo  = "I. INFORMACIÓN GENERAL"
	SectionMission      = "II. MISIÓN Y VISIÓN DE LA UPC"
	SectionIntroduction = "III. INTRODUCCIÓN"
	SectionAchievement  = "IV. LOGRO (S) DEL CURSO"
	SectionCompetencies = "V. COMPETENCIAS (S) DEL CURSO"
	SectionUnits        = "VI. UNIDADES DE APRENDIZAJE"
	SectionMethodology  = "VII. METODOLOGÍA"
	SectionEvaluation   = "VIII. EVALUACIÓN"
	SectionBibliography = "IX. BIBLIOGRAFÍA DEL CURSO"
	SectionResources    = "X. RECURSOS TECNOLÓGICOS"
	SectionAnnexes      = "XI. Anexos"
)

// Sections is the ordered section vocabulary.
var Sections = []string{
	SectionGeneralInfo,
	SectionMission,
	SectionIntroduction,
	SectionAchievement,
	SectionCompetencies,
	SectionUnits,
	SectionMethodology,
	SectionEvaluation,
	SectionBibliography,
	SectionResources,
	SectionAnnexes,
}

var sectionSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Sections))
	for _, s := range Sections {
		m[s] = struct{}{}
	}
	return m
}()

// IsSection reports whether line is exactly one of the section titles.
func IsSection(line string) bool {
	_, ok := sectionSet[strings.TrimSpace(line)]
	return ok
}

// Row is one physical table row as extracted from a page. Absent cells are "".
type Row []string

// Page is the extractor's view of one page: its plain text and at most one table.
type Page struct {
	Number int
	Text   string
	Table  []Row
}

// Line is a page line labelled with the section it belongs to.
// Section is "" for cover lines that precede the first title.
type Line struct {
	Page    int
	Text    string
	Section string
	Title   bool
}

// SegmentState is carried from one page to the next.
type SegmentState struct {
	Section string // section active at the end of the last page
	Pages   int    // pages consumed so far
}

// PageSegments is the per-page output of SegmentPage.
type PageSegments struct {
	Lines        []Line
	Table        []Row
	TableSection string // section the page table is attributed to
}

// SegmentPage labels the lines of one page and attributes its table.
// The first page starts on the cover; every later page continues the section
// that was active at the end of the previous page until a title line appears.
func SegmentPage(state SegmentState, page Page) (SegmentState, PageSegments) {
	active := ""
	if state.Pages > 0 {
		active = state.Section
	}
	var out PageSegments
	for _, raw := range pageLines(page.Text) {
		if IsSection(raw) {
			active = strings.TrimSpace(raw)
			out.Lines = append(out.Lines, Line{Page: page.Number, Text: active, Section: active, Title: true})
			continue
		}
		out.Lines = append(out.Lines, Line{Page: page.Number, Text: raw, Section: active})
	}
	if len(page.Table) > 0 {
		out.Table = page.Table
		out.TableSection = tableSection(out.Lines, page.Table, active)
	}
	return SegmentState{Section: active, Pages: state.Pages + 1}, out
}

func pageLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// tableSection finds the line where the table starts and returns the section active there.
// When the table's first cell cannot be located in the page text the table belongs to the
// section active at the end of the page.
func tableSection(lines []Line, table []Row, endOfPage string) string {
	anchor := tableAnchor(table)
	if anchor == "" {
		return endOfPage
	}
	for _, l := range lines {
		if !l.Title && strings.Contains(l.Text, anchor) {
			return l.Section
		}
	}
	return endOfPage
}

func tableAnchor(table []Row) string {
	for _, row := range table {
		for _, cell := range row {
			first, _, _ := strings.Cut(strings.TrimSpace(cell), "\n")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	return ""
}

// Document is a segmented syllabus: labelled lines plus the table rows
// accumulated per section across pages.
type Document struct {
	Lines  []Line
	Tables map[string][]Row
}

// Segment folds SegmentPage over pages in order.
func Segment(pages []Page) *Document {
	doc := &Document{Tables: make(map[string][]Row)}
	var state SegmentState
	for _, p := range pages {
		var seg PageSegments
		state, seg = SegmentPage(state, p)
		doc.Lines = append(doc.Lines, seg.Lines...)
		if len(seg.Table) > 0 && seg.TableSection != "" {
			doc.Tables[seg.TableSection] = append(doc.Tables[seg.TableSection], seg.Table...)
		}
	}
	return doc
}

// Text returns the lines of section joined with "\n". A section that never
// appears yields "". Asking for a title outside the vocabulary is an error.
func (d *Document) Text(section string) (string, error) {
	if _, ok := sectionSet[section]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return d.collect(section), nil
}

// Cover returns the lines that precede the first section title.
func (d *Document) Cover() string {
	return d.collect("")
}

func (d *Document) collect(section string) string {
	var parts []string
	for _, l := range d.Lines {
		if !l.Title && l.Section == section {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// UnitRows returns the unit schedule table accumulated across pages.
func (d *Document) UnitRows() []Row {
	return d.Tables[SectionUnits]
}

// AssessmentRows returns the assessment table accumulated across pages.
func (d *Document) AssessmentRows() []Row {
	return d.Tables[SectionEvaluation]
}
