package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"staybook/internal/app/dto"
)

const (
	summarySheet = "Summary"
	maxSheetName = 31
)

var headers = []string{"Customer", "Email", "Arrival", "Departure", "Total price", "Amount paid", "Currency"}

// Workbook writes the accounting report as xlsx: one sheet per apartment plus a summary.
type Workbook struct{}

func (Workbook) WriteAccounting(w io.Writer, report dto.AccountingReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := writeRow(f, summarySheet, 1, "Apartment", "Stays", "Total paid", "Currency"); err != nil {
		return err
	}

	var order []string
	groups := make(map[string][]dto.AccountingRow)
	for _, row := range report.Rows {
		if _, ok := groups[row.Apartment]; !ok {
			order = append(order, row.Apartment)
		}
		groups[row.Apartment] = append(groups[row.Apartment], row)
	}

	used := map[string]bool{summarySheet: true}
	for i, apartment := range order {
		rows := groups[apartment]
		sheet := sheetName(apartment, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("export: add sheet %q: %w", sheet, err)
		}
		if err := writeHeader(f, sheet); err != nil {
			return err
		}
		var paid int64
		for j, r := range rows {
			paid += r.TotalPaid.Amount
			if err := writeRow(f, sheet, j+2,
				r.Customer, r.Email, r.StartDate, r.EndDate,
				major(r.TotalPrice.Amount), major(r.TotalPaid.Amount), r.TotalPaid.Currency,
			); err != nil {
				return err
			}
		}
		currency := ""
		if len(rows) > 0 {
			currency = rows[0].TotalPaid.Currency
		}
		if err := writeRow(f, summarySheet, i+2, apartment, len(rows), major(paid), currency); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 30); err != nil {
		return fmt.Errorf("export: col width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("export: header %s: %w", cell, err)
		}
	}
	return f.SetColWidth(sheet, "A", "B", 28)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("export: %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func major(cents int64) float64 {
	return float64(cents) / 100
}

// sheetName strips characters Excel refuses and keeps names unique.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Apartment"
	}
	if runes := []rune(clean); len(runes) > maxSheetName {
		clean = string(runes[:maxSheetName])
	}
	candidate := clean
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(clean)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[candidate] = true
	return candidate
}
