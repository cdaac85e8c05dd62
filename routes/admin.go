package routes

import (
	"github.com/kataras/iris/v12"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/services"
	"rentloop-server/utils"
)

// AdminHandler is the moderation surface. All routes are gated by
// utils.AdminOnlyMiddleware in main.
type AdminHandler struct {
	DB     *gorm.DB
	Events *services.Emitter
	Log    *logrus.Logger
}

func NewAdminHandler(db *gorm.DB, events *services.Emitter, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{DB: db, Events: events, Log: log}
}

func (h *AdminHandler) ListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var users []models.User
	err := h.DB.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]UserResponse, 0, len(users))
	for i := range users {
		data = append(data, newUserResponse(&users[i]))
	}
	utils.JSONPage(ctx, data, page, perPage, total)
}

func (h *AdminHandler) ListListings(ctx iris.Context) {
	q := h.DB.Model(&models.Listing{}).Preload("Category")
	if status := ctx.URLParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var listings []models.Listing
	if err := q.Order("created_at DESC").Limit(200).Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		data = append(data, newListingResponse(&listings[i]))
	}
	utils.Success(ctx, data)
}

type AdminListingStatusInput struct {
	Status string `json:"status" validate:"required,oneof=active archived pending"`
}

func (h *AdminHandler) UpdateListingStatus(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid listing id")
		return
	}

	var input AdminListingStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var listing models.Listing
	if err := h.DB.First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	listing.Status = input.Status
	if err := h.DB.Save(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.Log.WithFields(logrus.Fields{"listingID": listing.ID, "status": listing.Status}).
		Info("admin changed listing status")
	utils.Success(ctx, newListingResponse(&listing))
}

func (h *AdminHandler) ListBookings(ctx iris.Context) {
	q := h.DB.Preload("Listing")
	if status := ctx.URLParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := q.Order("created_at DESC").Limit(200).Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		data = append(data, newBookingResponse(&bookings[i]))
	}
	utils.Success(ctx, data)
}

// CancelBooking is the moderation override: it cancels any non-terminal
// booking regardless of party roles, and notifies both parties.
func (h *AdminHandler) CancelBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid booking id")
		return
	}

	var booking models.Booking
	if err := h.DB.Preload("Listing").First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if services.IsTerminalBookingStatus(booking.Status) {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "booking is already in a terminal status")
		return
	}

	booking.Status = services.BookingStatusCancelled
	if err := h.DB.Save(&booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	title := ""
	if booking.Listing != nil {
		title = booking.Listing.Title
	}
	for _, userID := range []uint{booking.RenterID, booking.OwnerID} {
		h.Events.Emit(services.Event{
			Type:      services.EventBookingStatusChange,
			UserID:    userID,
			ListingID: booking.ListingID,
			BookingID: booking.ID,
			Message:   "Booking for " + title + " was cancelled by moderation",
		})
	}

	utils.SuccessMessage(ctx, newBookingResponse(&booking), "booking cancelled")
}
