package syllabus

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/silabo/internal/models"
)

// RowKind classifies a physical row of the unit schedule table by its first cell.
type RowKind int

const (
	RowTitle RowKind = iota
	RowCompetency
	RowAchievement
	RowHeader
	RowWeek
	RowFragment // anything else: a soft-wrapped piece of the previous row
)

func (k RowKind) String() string {
	switch k {
	case RowTitle:
		return "title row"
	case RowCompetency:
		return "competency row"
	case RowAchievement:
		return "achievement row"
	case RowHeader:
		return "header row"
	case RowWeek:
		return "week row"
	default:
		return "fragment"
	}
}

var (
	titlePattern = regexp.MustCompile(`^Unidad n\.\s*(\d+)\s*:\s*(.*\S)`)
	weekPattern  = regexp.MustCompile(`^Semana[\s,]*(\d+)[\s,]*-[\s,]*(\d+)`)
)

const achievementLabel = "LOGRO DE LA UNIDAD"

// ClassifyRow returns the kind of row whose first cell is first.
func ClassifyRow(first string) RowKind {
	upper := strings.ToUpper(first)
	switch {
	case strings.HasPrefix(first, "Unidad n."):
		return RowTitle
	case strings.HasPrefix(upper, "COMPETENCIA"):
		return RowCompetency
	case strings.HasPrefix(upper, achievementLabel):
		return RowAchievement
	case upper == "SEMANA" || upper == "SEMANAS":
		return RowHeader
	case strings.HasPrefix(first, "Semana"):
		return RowWeek
	}
	return RowFragment
}

// tableRow is a logical row: one or more physical rows merged cell-wise.
type tableRow struct {
	index int // index of the first physical row
	cells []string
}

func (r *tableRow) merge(fragment []string) {
	for i, cell := range fragment {
		if i >= len(r.cells) {
			r.cells = append(r.cells, cell)
			continue
		}
		r.cells[i] = joinNonEmpty(r.cells[i], cell)
	}
}

func (r *tableRow) cell(i int) string {
	if i < len(r.cells) {
		return r.cells[i]
	}
	return ""
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// normalizeCells collapses every run of whitespace, line breaks included, into one space.
func normalizeCells(row Row) []string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.Join(strings.Fields(c), " ")
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// unitBlock collects the logical rows of one unit while the table is scanned.
type unitBlock struct {
	title       *tableRow
	competency  *tableRow
	achievement *tableRow
	header      *tableRow
	week        *tableRow
	extraWeeks  int
}

// unitAutomaton walks the table expecting Title, Competency, Achievement, Header
// and Week rows in turn. A row of any other kind is merged into the last accepted
// row. Once a unit has its week row, a title row starts the next unit.
type unitAutomaton struct {
	expected RowKind
	current  *unitBlock
	last     *tableRow // merge target for fragments, nil before the first title
	blocks   []*unitBlock
	warnings []Warning
	skipped  int
}

func (a *unitAutomaton) step(index int, cells []string) {
	kind := ClassifyRow(cells[0])
	row := &tableRow{index: index, cells: cells}

	if a.current != nil && a.current.week != nil {
		switch kind {
		case RowTitle:
			a.open(row)
			return
		case RowWeek:
			// Only the first week row is used; later ones keep absorbing their own fragments.
			a.current.extraWeeks++
			a.warnings = append(a.warnings, Warning{
				Code: WarnUnitExtraWeekRow, Field: "week_range", Value: cells[0],
				Subject: a.current.subject(), Message: "additional week row ignored",
			})
			a.last = row
			return
		}
		a.last.merge(cells)
		return
	}

	if kind == a.expected {
		switch kind {
		case RowTitle:
			a.open(row)
			return
		case RowCompetency:
			a.current.competency = row
			a.expected = RowAchievement
		case RowAchievement:
			a.current.achievement = row
			a.expected = RowHeader
		case RowHeader:
			a.current.header = row
			a.expected = RowWeek
		case RowWeek:
			a.current.week = row
		}
		a.last = row
		return
	}

	if a.last == nil {
		a.skipped++
		return
	}
	a.last.merge(cells)
}

func (a *unitAutomaton) open(row *tableRow) {
	a.current = &unitBlock{title: row}
	a.blocks = append(a.blocks, a.current)
	a.expected = RowCompetency
	a.last = row
}

func (b *unitBlock) subject() string {
	if n, _, ok := parseTitle(b.title.cell(0)); ok {
		return fmt.Sprintf("unit %d", n)
	}
	return "unit"
}

func (b *unitBlock) number() int {
	n, _, _ := parseTitle(b.title.cell(0))
	return n
}

func parseTitle(cell string) (int, string, bool) {
	m := titlePattern.FindStringSubmatch(cell)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, "", false
	}
	return n, strings.TrimSpace(m[2]), true
}

// ParseUnits rebuilds the unit schedule table and parses one Unit per block.
// Rows before the first title row are discarded with a warning. Any grammar
// violation is returned as a *StructureError.
func ParseUnits(rows []Row) ([]models.Unit, []Warning, error) {
	a := &unitAutomaton{expected: RowTitle}
	for i, raw := range rows {
		cells := normalizeCells(raw)
		if isBlank(cells) {
			continue
		}
		a.step(i, cells)
	}
	if a.skipped > 0 {
		a.warnings = append(a.warnings, Warning{
			Code: WarnUnitRowsDiscarded, Field: "units", Value: strconv.Itoa(a.skipped),
			Message: "rows before the first unit title discarded",
		})
	}
	if a.current != nil && a.current.week == nil {
		return nil, a.warnings, &StructureError{
			Unit: a.current.number(), Expected: a.expected, Row: -1,
			Reason: "table ended before the unit was complete",
		}
	}

	units := make([]models.Unit, 0, len(a.blocks))
	seen := make(map[int]bool, len(a.blocks))
	for _, b := range a.blocks {
		u, err := b.build()
		if err != nil {
			return nil, a.warnings, err
		}
		if seen[u.Number] {
			return nil, a.warnings, &StructureError{
				Unit: u.Number, Expected: RowTitle, Row: b.title.index,
				Reason: "duplicate unit number",
			}
		}
		seen[u.Number] = true
		units = append(units, u)
	}
	sort.SliceStable(units, func(i, j int) bool { return units[i].Number < units[j].Number })
	return units, a.warnings, nil
}

func (b *unitBlock) build() (models.Unit, error) {
	n, title, ok := parseTitle(b.title.cell(0))
	if !ok {
		return models.Unit{}, &StructureError{
			Expected: RowTitle, Row: b.title.index,
			Reason: fmt.Sprintf("cannot parse %q as \"Unidad n. <number>: <title>\"", b.title.cell(0)),
		}
	}

	m := weekPattern.FindStringSubmatch(b.week.cell(0))
	if m == nil {
		return models.Unit{}, &StructureError{
			Unit: n, Expected: RowWeek, Row: b.week.index,
			Reason: fmt.Sprintf("cannot parse %q as \"Semana <start> - <end>\"", b.week.cell(0)),
		}
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if start < 1 || start > end {
		return models.Unit{}, &StructureError{
			Unit: n, Expected: RowWeek, Row: b.week.index,
			Reason: fmt.Sprintf("invalid week range %d-%d", start, end),
		}
	}

	return models.Unit{
		Number:       n,
		Title:        title,
		Achievement:  achievementText(b.achievement),
		Weeks:        models.WeekRange{Start: start, End: end},
		Syllabus:     bulletCell(b.week, 1),
		Activities:   bulletCell(b.week, 2),
		Exams:        bulletCell(b.week, 3),
		Bibliography: bulletCell(b.week, 4),
	}, nil
}

// achievementText strips the "LOGRO DE LA UNIDAD:" label and joins the remaining cells.
func achievementText(r *tableRow) string {
	first := r.cell(0)
	rest := first[len(achievementLabel):]
	rest = strings.TrimLeft(rest, " :")
	text := rest
	for _, c := range r.cells[1:] {
		text = joinNonEmpty(text, c)
	}
	return strings.TrimSpace(text)
}

func bulletCell(r *tableRow, i int) []string {
	return ParseBullets(r.cell(i))
}
