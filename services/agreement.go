package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

// AgreementData is everything the rendered rental agreement shows.
type AgreementData struct {
	Reference    string
	ListingTitle string
	OwnerName    string
	RenterName   string
	StartDate    time.Time
	EndDate      time.Time
	Days         int
	PricePerDay  float64
	TotalPrice   float64
	Currency     string
	IssuedAt     time.Time
}

// RenderAgreementPDF produces the rental agreement document for a booking.
func RenderAgreementPDF(d AgreementData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rental Agreement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RENTAL AGREEMENT")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Reference: %s", d.Reference))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Item            : %s", d.ListingTitle),
		fmt.Sprintf("Owner           : %s", d.OwnerName),
		fmt.Sprintf("Renter          : %s", d.RenterName),
		fmt.Sprintf("Rental period   : %s to %s (%d days)",
			d.StartDate.Format("Jan 2, 2006"), d.EndDate.Format("Jan 2, 2006"), d.Days),
		fmt.Sprintf("Daily rate      : %.2f %s", d.PricePerDay, d.Currency),
		fmt.Sprintf("Total price     : %.2f %s", d.TotalPrice, d.Currency),
	}
	for _, line := range lines {
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, "The renter agrees to return the item in the condition received. "+
		"The owner agrees to hand over the item at the start of the rental period. "+
		"Cancellations follow the booking's status rules; completed and cancelled "+
		"bookings are final.", "", "L", false)

	pdf.Ln(8)
	pdf.Cell(0, 6, fmt.Sprintf("Issued %s", d.IssuedAt.Format("Jan 2, 2006 15:04 MST")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("agreement: render: %w", err)
	}
	return buf.Bytes(), nil
}
