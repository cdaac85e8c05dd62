package services

import (
	"bytes"
	"testing"
	"time"
)

func TestRenderAgreementPDF(t *testing.T) {
	data := AgreementData{
		Reference:    "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		ListingTitle: "Cordless Drill",
		OwnerName:    "Ada Lovelace",
		RenterName:   "Grace Hopper",
		StartDate:    date(2024, 1, 1),
		EndDate:      date(2024, 1, 4),
		Days:         3,
		PricePerDay:  20,
		TotalPrice:   60,
		Currency:     "USD",
		IssuedAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	out, err := RenderAgreementPDF(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("empty document")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF: %q", out[:8])
	}
}
