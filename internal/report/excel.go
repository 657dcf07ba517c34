package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	borrowingsSheet = "Выдачи"
	summarySheet    = "Сводка"
)

var statusFill = map[models.Status]string{
	models.StatusPending:  "#FFEB9C",
	models.StatusDueSoon:  "#FCE4D6",
	models.StatusOverdue:  "#FFC7CE",
	models.StatusReturned: "#C6EFCE",
}

// ExcelWriter stores borrowing reports as xlsx files in a directory.
type ExcelWriter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExcelWriter(dir string, logger *zerolog.Logger) *ExcelWriter {
	return &ExcelWriter{dir: dir, logger: logger}
}

// WriteBorrowings saves a report file named after generatedAt.
func (e *ExcelWriter) WriteBorrowings(_ context.Context, views []models.BorrowingView, generatedAt time.Time) error {
	_, err := e.Save(views, generatedAt)
	return err
}

// Save writes the report and returns the file path.
func (e *ExcelWriter) Save(views []models.BorrowingView, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := Build(views, generatedAt)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("borrowings_%s.xlsx", generatedAt.Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	if e.logger != nil {
		e.logger.Info().Str("file_path", filePath).Int("rows", len(views)).Msg("Excel report created")
	}
	return filePath, nil
}

// WriteTo streams the report to w.
func WriteTo(w io.Writer, views []models.BorrowingView, generatedAt time.Time) error {
	f, err := Build(views, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Build creates the workbook: one row per view plus a summary sheet.
func Build(views []models.BorrowingView, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(borrowingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(borrowingsSheet, "A1", Title(generatedAt))
	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	_ = f.MergeCell(borrowingsSheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(borrowingsSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(borrowingsSheet, cell, h)
	}
	_ = f.SetCellStyle(borrowingsSheet, "A2", lastCol+"2", headerStyle)

	styles := make(map[models.Status]int)
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			styles[status] = id
		}
	}

	for i, v := range views {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := Row(v)
		if err := f.SetSheetRow(borrowingsSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[v.Derived.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(7, row)
			_ = f.SetCellStyle(borrowingsSheet, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(borrowingsSheet, "A", "A", 8)
	_ = f.SetColWidth(borrowingsSheet, "B", "C", 30)
	_ = f.SetColWidth(borrowingsSheet, "D", lastCol, 16)

	if err := writeSummary(f, borrowing.Summarize(views)); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeSummary(f *excelize.File, s borrowing.Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	rows := [][]any{
		{"Всего", s.Total},
		{"Ожидают", s.Pending},
		{"Выдано", s.Issued},
		{"Активные", s.Active},
		{"Скоро срок", s.DueSoon},
		{"Просрочены", s.Overdue},
		{"Возвращены", s.Returned},
		{"Прочие", s.Other},
		{"Неоплаченные штрафы", s.UnpaidFines},
		{"Начисленные штрафы", s.CollectedFines},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("error writing summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 25)
	return nil
}
