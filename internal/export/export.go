// Package export writes ledger snapshots to spreadsheet-style sinks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ledger/internal/core"
)

// Sink receives a full, non-empty ledger snapshot.
type Sink interface {
	WriteRecords(records []core.Record) error
}

var header = []string{"description", "category", "amount", "date"}

// CSVSink writes records as comma separated values with a header row.
type CSVSink struct {
	w io.Writer
}

func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: w}
}

func (s *CSVSink) WriteRecords(records []core.Record) error {
	cw := csv.NewWriter(s.w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Description, r.Category, r.Amount.StringFixed(2), r.Date.String()}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSXSink writes records into a single worksheet.
type XLSXSink struct {
	w     io.Writer
	sheet string
}

const defaultSheet = "Ledger"

func NewXLSXSink(w io.Writer) *XLSXSink {
	return &XLSXSink{w: w, sheet: defaultSheet}
}

func (s *XLSXSink) WriteRecords(records []core.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(s.sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(s.sheet); err == nil {
		f.SetActiveSheet(index)
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(s.sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for idx, r := range records {
		row := idx + 2
		amount, _ := r.Amount.Float64()
		values := []any{r.Description, r.Category, amount, r.Date.String()}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(s.sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	f.SetColWidth(s.sheet, "A", "A", 30)
	f.SetColWidth(s.sheet, "B", "B", 15)
	f.SetColWidth(s.sheet, "C", "C", 12)
	f.SetColWidth(s.sheet, "D", "D", 12)

	if err := f.Write(s.w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
