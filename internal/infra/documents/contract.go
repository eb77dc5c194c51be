package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"staybook/internal/app/policies"
	"staybook/internal/domain/shared/daterange"
)

const displayDate = "02/01/2006"

// ContractRenderer lays out the rental contract as a single A4 PDF.
type ContractRenderer struct {
	Landlord string
	Clock    func() time.Time
}

func (r ContractRenderer) Render(in policies.ContractInput) ([]byte, error) {
	if in.Booking == nil || in.Apartment == nil {
		return nil, fmt.Errorf("documents: booking and apartment are required")
	}
	b, apt := in.Booking, in.Apartment

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rental contract "+string(b.ID), true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("Seasonal rental contract"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Reference %s  |  issued %s", b.ID, r.now().Format(displayDate))), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.Ln(1)
	}
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		pdf.CellFormat(45, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 7, tr(value), "", "L", false)
	}

	section("Parties")
	line("Landlord", r.Landlord)
	line("Tenant", b.Customer.Name)
	line("Email", b.Customer.Email)
	line("Phone", b.Customer.Phone)
	line("Address", b.Customer.Address)
	line("Date of birth", b.Customer.DateOfBirth)
	pdf.Ln(4)

	section("Property and stay")
	line("Apartment", apt.Name)
	line("Arrival", b.Range.Start.Format(displayDate))
	line("Departure", b.Range.End.Format(displayDate))
	line("Nights", fmt.Sprintf("%d", b.Range.Nights()))
	pdf.Ln(4)

	section("Price")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, tr("Week starting"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, tr("Rate"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Amount"), "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, w := range in.Price.Weeks {
		rate := "standard"
		if w.Seasonal {
			rate = "seasonal"
		}
		pdf.CellFormat(60, 7, daterange.Format(w.WeekStart), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, rate, "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(w.Amount.String()), "1", 1, "R", false, 0, "")
	}
	if in.Price.ParkingWeeks > 0 {
		pdf.CellFormat(100, 7, tr(fmt.Sprintf("Parking, %d week(s)", in.Price.ParkingWeeks)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(in.Price.Parking.String()), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(100, 8, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr(in.Price.Total.String()), "1", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, tr("The tenant undertakes to occupy the premises peaceably and to leave them in the state found at arrival. "+
		"Arrival and departure take place on the changeover day stated above."), "", "L", false)
	if in.Revision != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, tr("Revision: "+in.Revision), "", 1, "L", false, 0, "")
	}
	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(85, 6, tr("Landlord signature"), "T", 0, "L", false, 0, "")
	pdf.CellFormat(10, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(85, 6, tr("Tenant signature"), "T", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("documents: render contract: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("documents: write contract: %w", err)
	}
	return buf.Bytes(), nil
}

func (r ContractRenderer) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}
