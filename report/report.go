// Package report renders the per-student result sheet and the two export
// bundles built from it: a zip of single-sheet workbooks and one workbook
// with a sheet per student. Both modes go through the same renderer.
package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"fitnesstest-server-go/models"
	"fitnesstest-server-go/scoring"
)

// componentRow describes one body row group of the template.
type componentRow struct {
	key   string
	label string
}

// Body order below the grip block. Grip itself is rendered as its own
// three-row block first.
var bodyRows = []componentRow{
	{models.SitUps, "Sit-ups"},
	{models.SeatedToeTouch, "Seated Toe Touch"},
	{models.SideSteps, "Side Steps"},
	{models.ShuttleRuns, "20m Shuttle Runs"},
	{models.Sprint50m, "50m Sprint"},
	{models.LongJump, "Standing Long Jump"},
	{models.SoftballThrow, "Softball Throwing"},
}

// Unit returns the fixed unit label for a component.
func Unit(component string) string {
	switch component {
	case models.Sprint50m:
		return "seconds"
	case models.LongJump, models.SeatedToeTouch:
		return "cm"
	case models.SoftballThrow:
		return "m"
	default:
		return "times"
	}
}

// Fixed column widths for the template, columns A through G.
var columnWidths = []float64{18, 10, 10, 9, 10, 9, 8}

// WorkbookFileName is the download name for the sheet-per-student export,
// named by the grade sliced from the class section.
func WorkbookFileName(classSection string) string {
	return fmt.Sprintf("Grade_%s_Reports.xlsx", models.GradePrefix(classSection))
}

// ArchiveFileName is the download name for the zip export.
func ArchiveFileName(classSection string) string {
	return fmt.Sprintf("Grade_%s_Reports.zip", models.GradePrefix(classSection))
}

// StudentFileName names one student's workbook inside the archive.
func StudentFileName(slot int, rec models.StudentRecord) string {
	return fmt.Sprintf("%d %s.xlsx", slot, rec.EnName)
}

// sheetName keeps per-student sheet names unique and inside the 31-char
// sheet name limit.
func sheetName(slot int, rec models.StudentRecord) string {
	name := fmt.Sprintf("%d %s", slot, rec.EnName)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// renderStudentSheet lays one student's report onto the named sheet. Shared
// by both export modes so the template only exists once.
func renderStudentSheet(f *excelize.File, sheet string, slot int, rec models.StudentRecord) error {
	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	type cell struct {
		ref   string
		value interface{}
	}
	type merge struct {
		from, to string
	}
	var cells []cell
	var merges []merge

	set := func(ref string, value interface{}) {
		cells = append(cells, cell{ref, value})
	}
	span := func(from, to string) {
		merges = append(merges, merge{from, to})
	}

	sheetData := scoring.Sheet(rec)

	// Title row across the full template width.
	set("A1", "Physical Fitness Test Record")
	span("A1", "G1")

	// Header block: grade and section sliced from the class string, then
	// ordinal and English name.
	set("A2", "Grade")
	set("B2", models.GradePrefix(rec.ClassSection))
	set("C2", "Class")
	set("D2", models.SectionLetter(rec.ClassSection))
	span("E2", "G2")
	set("A3", "No.")
	set("B3", slot)
	set("C3", "Name")
	set("D3", rec.EnName)
	span("D3", "G3")

	// Column header row.
	set("A4", "Component")
	span("A4", "B4")
	set("C4", "Record")
	span("C4", "F4")
	set("G4", "Score")

	// Grip block: rows 5-7 show R, L and the display-only average; the
	// single grip score spans all three rows.
	gripUnit := Unit(models.AveGrip)
	set("A5", "Grip Strength")
	span("A5", "A7")
	set("B5", "R")
	set("C5", rec.Trial1[models.GripR])
	set("D5", gripUnit)
	set("E5", rec.Trial2[models.GripR])
	set("F5", gripUnit)
	set("B6", "L")
	set("C6", rec.Trial1[models.GripL])
	set("D6", gripUnit)
	set("E6", rec.Trial2[models.GripL])
	set("F6", gripUnit)
	set("B7", "Average")
	set("C7", gripAverage(rec))
	set("D7", gripUnit)
	span("E7", "F7")
	set("G5", sheetData.Components[models.AveGrip])
	span("G5", "G7")

	row := 8
	for _, body := range bodyRows {
		a := fmt.Sprintf("A%d", row)
		set(a, body.label)
		span(a, fmt.Sprintf("B%d", row))
		set(fmt.Sprintf("C%d", row), rec.Trial1[body.key])
		set(fmt.Sprintf("D%d", row), Unit(body.key))
		if singleTrialRow(body.key) {
			// One value and unit only; the second-trial pair collapses.
			span(fmt.Sprintf("E%d", row), fmt.Sprintf("F%d", row))
		} else {
			set(fmt.Sprintf("E%d", row), rec.Trial2[body.key])
			set(fmt.Sprintf("F%d", row), Unit(body.key))
		}
		set(fmt.Sprintf("G%d", row), sheetData.Components[body.key])
		row++
	}

	set(fmt.Sprintf("A%d", row), "Total Score")
	span(fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row))
	set(fmt.Sprintf("G%d", row), sheetData.Total)
	row++
	set(fmt.Sprintf("A%d", row), "Grade")
	span(fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row))
	set(fmt.Sprintf("G%d", row), sheetData.Grade)

	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.ref, c.value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", c.ref, err)
		}
	}
	for _, m := range merges {
		if err := f.MergeCell(sheet, m.from, m.to); err != nil {
			return fmt.Errorf("failed to merge %s:%s: %w", m.from, m.to, err)
		}
	}
	return nil
}

// singleTrialRow reports whether the template shows only one value for the
// component. These match the single-attempt scoring rule.
func singleTrialRow(component string) bool {
	switch component {
	case models.SitUps, models.Sprint50m, models.ShuttleRuns:
		return true
	}
	return false
}

// gripAverage is the displayed mean of each hand's better attempt. It never
// feeds the score.
func gripAverage(rec models.StudentRecord) float64 {
	left := rec.Trial1[models.GripL]
	if rec.Trial2[models.GripL] > left {
		left = rec.Trial2[models.GripL]
	}
	right := rec.Trial1[models.GripR]
	if rec.Trial2[models.GripR] > right {
		right = rec.Trial2[models.GripR]
	}
	return (left + right) / 2
}

// BuildClassWorkbook renders every student as a sheet of one workbook.
func BuildClassWorkbook(entries []models.RosterEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	for i, entry := range entries {
		name := sheetName(entry.Slot, entry.Record)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("failed to rename first sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
			}
		}
		if err := renderStudentSheet(f, name, entry.Slot, entry.Record); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// BuildClassArchive renders one single-sheet workbook per student and
// bundles them into a zip.
func BuildClassArchive(entries []models.RosterEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		if err := renderStudentSheet(f, sheet, entry.Slot, entry.Record); err != nil {
			closeFile(f)
			return nil, err
		}
		book, err := f.WriteToBuffer()
		closeFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to encode workbook for slot %d: %w", entry.Slot, err)
		}
		w, err := zw.Create(StudentFileName(entry.Slot, entry.Record))
		if err != nil {
			return nil, fmt.Errorf("failed to add archive entry for slot %d: %w", entry.Slot, err)
		}
		if _, err := w.Write(book.Bytes()); err != nil {
			return nil, fmt.Errorf("failed to write archive entry for slot %d: %w", entry.Slot, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func closeFile(f *excelize.File) {
	if err := f.Close(); err != nil {
		log.Printf("Error closing workbook: %v", err)
	}
}
