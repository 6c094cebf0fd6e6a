package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/silabo/internal/models"
)

// AssessmentsSheet is the name of the flat assessment list sheet.
const AssessmentsSheet = "Evaluaciones"

const defaultSheet = "Sheet1"

// WriteWorkbook renders the weekly calendar of records to an .xlsx file at path.
// Each period gets a sheet with one row per teaching week and one column per
// course, listing the units in progress and the assessments due that week.
func WriteWorkbook(path string, records []*models.CourseRecord, r *Resolver) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("cell style: %w", err)
	}

	byPeriod := groupByPeriod(records)
	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	w := &workbook{file: f, header: header, wrap: wrap}
	for _, p := range periods {
		if err := w.periodSheet(p, byPeriod[p], r); err != nil {
			return err
		}
	}
	if err := w.assessmentSheet(periods, byPeriod); err != nil {
		return err
	}
	f.DeleteSheet(defaultSheet)
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create calendar directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save calendar workbook: %w", err)
	}
	return nil
}

type workbook struct {
	file   *excelize.File
	header int
	wrap   int
}

func groupByPeriod(records []*models.CourseRecord) map[string][]*models.CourseRecord {
	out := make(map[string][]*models.CourseRecord)
	for _, rec := range records {
		out[rec.Metadata.Period] = append(out[rec.Metadata.Period], rec)
	}
	for _, recs := range out {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Key() < recs[j].Key() })
	}
	return out
}

func (w *workbook) periodSheet(period string, records []*models.CourseRecord, r *Resolver) error {
	if _, err := w.file.NewSheet(period); err != nil {
		return fmt.Errorf("create sheet %s: %w", period, err)
	}

	head := []interface{}{"Semana", "Inicio", "Fin"}
	for _, rec := range records {
		head = append(head, fmt.Sprintf("%s (%s)", rec.Metadata.CourseID, rec.Metadata.NRC))
	}
	if err := w.row(period, 1, head, w.header); err != nil {
		return err
	}

	weeks := teachingWeeks(records)
	for wk := 1; wk <= weeks; wk++ {
		values := []interface{}{wk, "", ""}
		if start, end, err := r.Week(period, wk); err == nil {
			values[1] = start.Format(DateLayout)
			values[2] = end.Format(DateLayout)
		}
		for _, rec := range records {
			values = append(values, weekCell(rec, wk))
		}
		if err := w.row(period, wk+1, values, w.wrap); err != nil {
			return err
		}
	}

	if len(records) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(head))
	if err != nil {
		return err
	}
	if err := w.file.SetColWidth(period, "D", lastCol, 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func (w *workbook) assessmentSheet(periods []string, byPeriod map[string][]*models.CourseRecord) error {
	if _, err := w.file.NewSheet(AssessmentsSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", AssessmentsSheet, err)
	}
	head := []interface{}{"Curso", "NRC", "Periodo", "Evaluación", "Código", "Peso", "Semana", "Inicio", "Fin", "Recuperable"}
	if err := w.row(AssessmentsSheet, 1, head, w.header); err != nil {
		return err
	}
	n := 2
	for _, p := range periods {
		for _, rec := range byPeriod[p] {
			for _, a := range rec.Assessments {
				recoverable := "No"
				if a.IsRecoverable {
					recoverable = "Sí"
				}
				values := []interface{}{
					rec.Metadata.CourseID, rec.Metadata.NRC, p,
					a.Name, a.Code, a.Weight, a.Week, a.InitialDate, a.LastDate, recoverable,
				}
				if err := w.row(AssessmentsSheet, n, values, 0); err != nil {
					return err
				}
				n++
			}
		}
	}
	return nil
}

func (w *workbook) row(sheet string, n int, values []interface{}, style int) error {
	first, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, first, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
	if style == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(values), n)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, first, last, style)
}

// teachingWeeks is the longest schedule among records, at least DefaultWeeks.
func teachingWeeks(records []*models.CourseRecord) int {
	n := DefaultWeeks
	for _, rec := range records {
		if rec.TotalWeeks != nil && *rec.TotalWeeks > n {
			n = *rec.TotalWeeks
		}
		for _, u := range rec.Units {
			if u.LastWeek > n {
				n = u.LastWeek
			}
		}
		for _, a := range rec.Assessments {
			if a.Week > n {
				n = a.Week
			}
		}
	}
	return n
}

// DefaultWeeks is the minimum number of week rows in a period sheet.
const DefaultWeeks = 16

// weekCell lists the units in progress and the assessments due in week wk.
func weekCell(rec *models.CourseRecord, wk int) string {
	var lines []string
	for _, u := range rec.Units {
		if u.InitialWeek <= wk && wk <= u.LastWeek {
			lines = append(lines, fmt.Sprintf("U%d: %s", u.Number, u.Title))
		}
	}
	for _, a := range rec.Assessments {
		if a.Week != wk {
			continue
		}
		label := a.Name
		if a.Code != "" {
			label = a.Code
		}
		lines = append(lines, label+" ("+strconv.FormatFloat(a.Weight, 'f', -1, 64)+"%)")
	}
	return strings.Join(lines, "\n")
}
