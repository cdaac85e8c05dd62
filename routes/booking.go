package routes

import (
	"errors"
	"fmt"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/services"
	"rentloop-server/utils"
)

// BookingHandler owns the booking lifecycle: creation against a free date
// range, status transitions, and pending-phase date edits.
type BookingHandler struct {
	DB       *gorm.DB
	Bookings *services.BookingService
	Events   *services.Emitter
	Log      *logrus.Logger
}

func NewBookingHandler(db *gorm.DB, bookings *services.BookingService, events *services.Emitter, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{DB: db, Bookings: bookings, Events: events, Log: log}
}

type CreateBookingInput struct {
	ListingID  uint    `json:"listingID" validate:"required"`
	StartDate  string  `json:"startDate" validate:"required"`
	EndDate    string  `json:"endDate" validate:"required"`
	TotalPrice float64 `json:"totalPrice" validate:"required,gt=0"`
	Note       string  `json:"note" validate:"max=1024"`
}

func (h *BookingHandler) CreateBooking(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	start, end, err := parseDateRange(input.StartDate, input.EndDate)
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Validation Error", err.Error())
		return
	}

	var listing models.Listing
	if err := h.DB.First(&listing, input.ListingID).Error; err != nil {
		utils.Error(ctx, iris.StatusNotFound, "Not Found", "listing not found")
		return
	}

	if listing.Status != models.ListingStatusActive {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "listing is not open for booking")
		return
	}
	if listing.OwnerID == claims.ID {
		utils.Error(ctx, iris.StatusForbidden, "Forbidden", "you cannot book your own listing")
		return
	}

	conflict, err := h.Bookings.HasConflict(listing.ID, start, end, 0)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if conflict {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "the requested dates overlap an existing booking")
		return
	}

	quote := services.QuotePrice(start, end, listing.PricePerDay)
	if err := quote.ValidateTotal(input.TotalPrice); err != nil {
		var mismatch *services.PriceMismatchError
		if errors.As(err, &mismatch) {
			utils.ErrorDetail(ctx, iris.StatusBadRequest, "Validation Error", mismatch.Error(), mismatch)
			return
		}
		utils.Error(ctx, iris.StatusBadRequest, "Validation Error", err.Error())
		return
	}

	booking := models.Booking{
		ListingID:  listing.ID,
		RenterID:   claims.ID,
		OwnerID:    listing.OwnerID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: input.TotalPrice,
		Status:     services.BookingStatusPending,
		Note:       input.Note,
	}

	if err := h.DB.Create(&booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	booking.Listing = &listing

	h.Events.Emit(services.Event{
		Type:      services.EventBookingRequested,
		UserID:    listing.OwnerID,
		ActorID:   claims.ID,
		ListingID: listing.ID,
		BookingID: booking.ID,
		Message: fmt.Sprintf("New booking request for %s from %s to %s",
			listing.Title, booking.StartDate.Format("Jan 2, 2006"), booking.EndDate.Format("Jan 2, 2006")),
	})

	ctx.StatusCode(iris.StatusCreated)
	utils.Success(ctx, newBookingResponse(&booking))
}

// GetBookings lists bookings the caller participates in. ?role=renter|owner
// narrows to one side.
func (h *BookingHandler) GetBookings(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	q := h.DB.Preload("Listing").Order("created_at DESC")
	switch ctx.URLParamDefault("role", "") {
	case "renter":
		q = q.Where("renter_id = ?", claims.ID)
	case "owner":
		q = q.Where("owner_id = ?", claims.ID)
	default:
		q = q.Where("renter_id = ? OR owner_id = ?", claims.ID, claims.ID)
	}
	if status := ctx.URLParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		data = append(data, newBookingResponse(&bookings[i]))
	}
	utils.Success(ctx, data)
}

func (h *BookingHandler) GetBooking(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	booking, _, ok := h.loadBookingForParty(ctx, claims.ID)
	if !ok {
		return
	}

	utils.Success(ctx, newBookingResponse(booking))
}

type UpdateBookingInput struct {
	Status     *string  `json:"status" validate:"omitempty,oneof=pending confirmed active completed cancelled"`
	StartDate  *string  `json:"startDate"`
	EndDate    *string  `json:"endDate"`
	TotalPrice *float64 `json:"totalPrice" validate:"omitempty,gt=0"`
}

// UpdateBooking applies a status transition and/or a pending-phase date edit.
func (h *BookingHandler) UpdateBooking(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	booking, role, ok := h.loadBookingForParty(ctx, claims.ID)
	if !ok {
		return
	}

	var input UpdateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.TotalPrice != nil && input.StartDate == nil && input.EndDate == nil {
		utils.Error(ctx, iris.StatusBadRequest, "Validation Error",
			"totalPrice can only change together with the booking dates")
		return
	}

	if input.StartDate != nil || input.EndDate != nil {
		if !h.applyDateEdit(ctx, booking, role, input) {
			return
		}
	}

	if input.Status != nil && *input.Status != booking.Status {
		if err := services.ValidateTransition(booking.Status, *input.Status, role); err != nil {
			var forbidden *services.ForbiddenTransitionError
			if errors.As(err, &forbidden) {
				utils.Error(ctx, iris.StatusForbidden, "Forbidden", forbidden.Error())
				return
			}
			utils.Error(ctx, iris.StatusConflict, "Conflict", err.Error())
			return
		}
		booking.Status = *input.Status
	}

	if err := h.DB.Save(booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if input.Status != nil {
		h.notifyStatusChange(booking, claims.ID)
	}

	utils.Success(ctx, newBookingResponse(booking))
}

// applyDateEdit re-runs conflict and price validation for the new range,
// excluding the booking being edited. Only the renter may move a pending
// booking.
func (h *BookingHandler) applyDateEdit(ctx iris.Context, booking *models.Booking, role services.BookingRole, input UpdateBookingInput) bool {
	if booking.Status != services.BookingStatusPending {
		utils.Error(ctx, iris.StatusConflict, "Conflict",
			fmt.Sprintf("dates can only change while the booking is pending, current status is %q", booking.Status))
		return false
	}
	if role != services.RoleRenter {
		utils.Error(ctx, iris.StatusForbidden, "Forbidden", "only the renter may change booking dates")
		return false
	}

	startStr := booking.StartDate.Format(dateLayout)
	endStr := booking.EndDate.Format(dateLayout)
	if input.StartDate != nil {
		startStr = *input.StartDate
	}
	if input.EndDate != nil {
		endStr = *input.EndDate
	}

	start, end, err := parseDateRange(startStr, endStr)
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Validation Error", err.Error())
		return false
	}

	conflict, err := h.Bookings.HasConflict(booking.ListingID, start, end, booking.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return false
	}
	if conflict {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "the requested dates overlap an existing booking")
		return false
	}

	var listing models.Listing
	if err := h.DB.First(&listing, booking.ListingID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return false
	}

	quote := services.QuotePrice(start, end, listing.PricePerDay)
	if input.TotalPrice != nil {
		if err := quote.ValidateTotal(*input.TotalPrice); err != nil {
			var mismatch *services.PriceMismatchError
			if errors.As(err, &mismatch) {
				utils.ErrorDetail(ctx, iris.StatusBadRequest, "Validation Error", mismatch.Error(), mismatch)
				return false
			}
			utils.Error(ctx, iris.StatusBadRequest, "Validation Error", err.Error())
			return false
		}
		booking.TotalPrice = *input.TotalPrice
	} else {
		booking.TotalPrice = quote.Expected
	}

	booking.StartDate = start
	booking.EndDate = end
	return true
}

// CancelBooking routes DELETE through the state machine; bookings are never
// hard-deleted.
func (h *BookingHandler) CancelBooking(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	booking, role, ok := h.loadBookingForParty(ctx, claims.ID)
	if !ok {
		return
	}

	if err := services.ValidateTransition(booking.Status, services.BookingStatusCancelled, role); err != nil {
		var forbidden *services.ForbiddenTransitionError
		if errors.As(err, &forbidden) {
			utils.Error(ctx, iris.StatusForbidden, "Forbidden", forbidden.Error())
			return
		}
		utils.Error(ctx, iris.StatusConflict, "Conflict", err.Error())
		return
	}

	booking.Status = services.BookingStatusCancelled
	if err := h.DB.Save(booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.notifyStatusChange(booking, claims.ID)

	utils.SuccessMessage(ctx, newBookingResponse(booking), "booking cancelled")
}

// loadBookingForParty fetches the booking and resolves the caller's role.
// Writes the error response itself when the booking is missing or the caller
// is neither party.
func (h *BookingHandler) loadBookingForParty(ctx iris.Context, userID uint) (*models.Booking, services.BookingRole, bool) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid booking id")
		return nil, "", false
	}

	var booking models.Booking
	if err := h.DB.Preload("Listing").First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return nil, "", false
	}

	switch userID {
	case booking.RenterID:
		return &booking, services.RoleRenter, true
	case booking.OwnerID:
		return &booking, services.RoleOwner, true
	default:
		utils.CreateForbidden(ctx)
		return nil, "", false
	}
}

// notifyStatusChange informs the other party; best-effort.
func (h *BookingHandler) notifyStatusChange(booking *models.Booking, actorID uint) {
	recipient := booking.RenterID
	if actorID == booking.RenterID {
		recipient = booking.OwnerID
	}

	title := ""
	if booking.Listing != nil {
		title = booking.Listing.Title
	}

	h.Events.Emit(services.Event{
		Type:      services.EventBookingStatusChange,
		UserID:    recipient,
		ActorID:   actorID,
		ListingID: booking.ListingID,
		BookingID: booking.ID,
		Message:   fmt.Sprintf("Booking for %s is now %s", title, booking.Status),
	})
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate must be YYYY-MM-DD")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate must not be after endDate")
	}
	return start, end, nil
}
