package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"staybook/internal/app/dto"
)

func row(apartment, customer string, cents int64) dto.AccountingRow {
	m := dto.MoneyDTO{Amount: cents, Currency: "EUR"}
	return dto.AccountingRow{Apartment: apartment, Customer: customer, Email: customer + "@example.com", StartDate: "2026-01-03", EndDate: "2026-01-10", TotalPaid: m, TotalPrice: m}
}

func TestWriteAccountingGroupsByApartment(t *testing.T) {
	report := dto.AccountingReport{Rows: []dto.AccountingRow{
		row("Garden", "ada", 100000),
		row("Garden", "bob", 150000),
		row("Sea View", "cy", 80000),
	}}
	var buf bytes.Buffer
	require.NoError(t, Workbook{}.WriteAccounting(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Garden", "Sea View"}, f.GetSheetList())

	v, err := f.GetCellValue("Summary", "C2")
	require.NoError(t, err)
	assert.Equal(t, "2500", v)
	v, err = f.GetCellValue("Garden", "A3")
	require.NoError(t, err)
	assert.Equal(t, "bob", v)
	v, err = f.GetCellValue("Sea View", "E2")
	require.NoError(t, err)
	assert.Equal(t, "800", v)
}

func TestSheetNameSanitizes(t *testing.T) {
	used := map[string]bool{"Summary": true}
	assert.Equal(t, "Loft - Old town", sheetName("Loft / Old town", used))
	assert.Equal(t, "Loft - Old town (2)", sheetName("Loft / Old town", used))
	long := sheetName("A very long apartment name that overflows", used)
	assert.Len(t, []rune(long), maxSheetName)
}
