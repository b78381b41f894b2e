package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX returns an XLSX workbook (as bytes) with the same
// classified rows as the XML export. The workbook is a report, not the
// archival hand-off, so it never purges the store.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Faktury"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Numer",
		"Typ",
		"Sprzedawca",
		"Nabywca",
		"Netto",
		"VAT",
		"Brutto",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Fields.Number)
		write(2, r.Type)
		write(3, r.Fields.Seller)
		write(4, r.Fields.Buyer)
		write(5, r.Fields.Net)
		write(6, r.Fields.VAT)
		write(7, r.Fields.Gross)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 22) // number
	_ = f.SetColWidth(sheet, "B", "B", 12) // type
	_ = f.SetColWidth(sheet, "C", "D", 36) // counterparties
	_ = f.SetColWidth(sheet, "E", "G", 14) // amounts

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
