package routes

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/services"
	"rentloop-server/utils"
)

// AgreementHandler renders the rental agreement PDF for a booking.
type AgreementHandler struct {
	DB *gorm.DB
}

func NewAgreementHandler(db *gorm.DB) *AgreementHandler {
	return &AgreementHandler{DB: db}
}

// DownloadAgreement serves the PDF. Only a party to a confirmed, active or
// completed booking may fetch it; the agreement reference is issued once and
// reused on later downloads.
func (h *AgreementHandler) DownloadAgreement(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid booking id")
		return
	}

	var booking models.Booking
	if err := h.DB.Preload("Listing").Preload("Listing.Owner").Preload("Renter").First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if claims.ID != booking.RenterID && claims.ID != booking.OwnerID {
		utils.CreateForbidden(ctx)
		return
	}

	switch booking.Status {
	case services.BookingStatusConfirmed, services.BookingStatusActive, services.BookingStatusCompleted:
	default:
		utils.Error(ctx, iris.StatusConflict, "Conflict",
			fmt.Sprintf("no agreement exists for a %s booking", booking.Status))
		return
	}

	var agreement models.Agreement
	err = h.DB.Where("booking_id = ?", booking.ID).First(&agreement).Error
	if err != nil {
		agreement = models.Agreement{
			BookingID: booking.ID,
			Reference: uuid.NewString(),
		}
		if err := h.DB.Create(&agreement).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	pricePerDay := 0.0
	currency := "USD"
	listingTitle := ""
	ownerName := ""
	if booking.Listing != nil {
		pricePerDay = booking.Listing.PricePerDay
		currency = booking.Listing.Currency
		listingTitle = booking.Listing.Title
		if booking.Listing.Owner.ID > 0 {
			ownerName = booking.Listing.Owner.FirstName + " " + booking.Listing.Owner.LastName
		}
	}
	renterName := ""
	if booking.Renter != nil {
		renterName = booking.Renter.FirstName + " " + booking.Renter.LastName
	}

	pdf, err := services.RenderAgreementPDF(services.AgreementData{
		Reference:    agreement.Reference,
		ListingTitle: listingTitle,
		OwnerName:    ownerName,
		RenterName:   renterName,
		StartDate:    booking.StartDate,
		EndDate:      booking.EndDate,
		Days:         services.RentalDays(booking.StartDate, booking.EndDate),
		PricePerDay:  pricePerDay,
		TotalPrice:   booking.TotalPrice,
		Currency:     currency,
		IssuedAt:     time.Now(),
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.ContentType("application/pdf")
	ctx.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=rental-agreement-%s.pdf", agreement.Reference))
	ctx.Write(pdf)
}
