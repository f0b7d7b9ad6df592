// Package report renders course gradebooks as Excel workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SheetGradebook = "Gradebook"
	SheetSummary   = "Summary"
	dateLayout     = "2006-01-02 15:04"
)

// Gradebook is one course's per-learner progress table.
type Gradebook struct {
	CourseID    string
	CourseTitle string
	Modules     []ModuleColumn
	Rows        []Row
	GeneratedAt time.Time
}

// ModuleColumn identifies the module behind a quiz column.
type ModuleColumn struct {
	ID    string
	Title string
}

// Row is one enrolled learner.
type Row struct {
	UserID            string
	Name              string
	Email             string
	EnrolledAt        time.Time
	Percent           int
	ModulesPassed     int
	PointsDone        int
	PointsTotal       int
	Quizzes           []QuizCell // aligned with Gradebook.Modules
	CompletedAt       *time.Time
	CertificateSerial string
}

// QuizCell summarises a learner's attempts on one module quiz.
type QuizCell struct {
	BestPercent int
	Attempts    int
	Passed      bool
	Exhausted   bool
}

func (q QuizCell) String() string {
	switch {
	case q.Attempts == 0:
		return "-"
	case q.Passed:
		return fmt.Sprintf("%d%% ✓", q.BestPercent)
	case q.Exhausted:
		return fmt.Sprintf("%d%% ✗ (%d)", q.BestPercent, q.Attempts)
	default:
		return fmt.Sprintf("%d%% (%d)", q.BestPercent, q.Attempts)
	}
}

// Completed returns how many rows finished the course.
func (g Gradebook) Completed() int {
	n := 0
	for _, r := range g.Rows {
		if r.CompletedAt != nil {
			n++
		}
	}
	return n
}

// WriteXLSX writes the gradebook as an .xlsx workbook with a gradebook sheet and a summary sheet.
func WriteXLSX(w io.Writer, g Gradebook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetGradebook); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRows(f, g); err != nil {
		return err
	}
	if err := writeSummary(f, g); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Header returns the gradebook sheet header row.
func Header(g Gradebook) []any {
	header := []any{"শিক্ষার্থী", "ইমেইল", "ভর্তি", "অগ্রগতি %", "উত্তীর্ণ মডিউল", "পাঠ"}
	for _, m := range g.Modules {
		header = append(header, "কুইজ: "+m.Title)
	}
	return append(header, "সম্পন্ন", "সনদ")
}

func writeRows(f *excelize.File, g Gradebook) error {
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := Header(g)
	if err := f.SetSheetRow(SheetGradebook, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetGradebook, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range g.Rows {
		row := []any{
			r.Name,
			r.Email,
			r.EnrolledAt.UTC().Format(dateLayout),
			r.Percent,
			fmt.Sprintf("%d/%d", r.ModulesPassed, len(g.Modules)),
			fmt.Sprintf("%d/%d", r.PointsDone, r.PointsTotal),
		}
		for _, q := range r.Quizzes {
			row = append(row, q.String())
		}
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.UTC().Format(dateLayout)
		}
		row = append(row, completed, r.CertificateSerial)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetGradebook, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetGradebook, "A", lastCol, 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return f.SetPanes(SheetGradebook, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, g Gradebook) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	rows := [][]any{
		{"কোর্স", g.CourseTitle},
		{"কোর্স আইডি", g.CourseID},
		{"শিক্ষার্থী", len(g.Rows)},
		{"সম্পন্ন", g.Completed()},
		{"তৈরির সময়", g.GeneratedAt.UTC().Format(dateLayout)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 24)
}
