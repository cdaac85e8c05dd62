package routes

import (
	"fmt"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/services"
	"rentloop-server/utils"
)

type ReviewHandler struct {
	DB     *gorm.DB
	Events *services.Emitter
}

func NewReviewHandler(db *gorm.DB, events *services.Emitter) *ReviewHandler {
	return &ReviewHandler{DB: db, Events: events}
}

// GetListingReviews lists the visible reviews for a listing.
func (h *ReviewHandler) GetListingReviews(ctx iris.Context) {
	listingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid listing id")
		return
	}

	var reviews []models.Review
	res := h.DB.Preload("User").
		Where("listing_id = ? AND is_visible = ?", listingID, true).
		Order("created_at DESC").
		Find(&reviews)
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		data = append(data, newReviewResponse(&reviews[i]))
	}
	utils.Success(ctx, data)
}

type CreateReviewInput struct {
	Title string `json:"title" validate:"max=100"`
	Body  string `json:"body" validate:"required,max=4096"`
	Stars int    `json:"stars" validate:"required,gte=1,lte=5"`
}

// CreateReview requires a completed booking by the caller on the listing.
func (h *ReviewHandler) CreateReview(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	listingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid listing id")
		return
	}

	var input CreateReviewInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var listing models.Listing
	if err := h.DB.First(&listing, listingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var completed models.Booking
	err = h.DB.Where("listing_id = ? AND renter_id = ? AND status = ?",
		listingID, claims.ID, services.BookingStatusCompleted).
		Order("created_at DESC").
		First(&completed).Error
	if err != nil {
		utils.Error(ctx, iris.StatusForbidden, "Forbidden", "you can only review a listing after a completed booking")
		return
	}

	var already int64
	h.DB.Model(&models.Review{}).
		Where("listing_id = ? AND user_id = ? AND booking_id = ?", listingID, claims.ID, completed.ID).
		Count(&already)
	if already > 0 {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "you already reviewed this booking")
		return
	}

	review := models.Review{
		UserID:     claims.ID,
		ListingID:  uint(listingID),
		BookingID:  &completed.ID,
		Title:      input.Title,
		Body:       input.Body,
		Stars:      input.Stars,
		IsVisible:  true,
		IsVerified: true,
	}

	if err := h.DB.Create(&review).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.recalculateRating(uint(listingID))

	h.Events.Emit(services.Event{
		Type:      services.EventReviewPosted,
		UserID:    listing.OwnerID,
		ActorID:   claims.ID,
		ListingID: listing.ID,
		Message:   fmt.Sprintf("%s received a new %d-star review", listing.Title, input.Stars),
	})

	ctx.StatusCode(iris.StatusCreated)
	utils.Success(ctx, newReviewResponse(&review))
}

// recalculateRating rolls the mean of visible reviews into the listing row.
func (h *ReviewHandler) recalculateRating(listingID uint) {
	var avg float64
	row := h.DB.Model(&models.Review{}).
		Where("listing_id = ? AND is_visible = ?", listingID, true).
		Select("COALESCE(AVG(stars), 0)").
		Row()
	if err := row.Scan(&avg); err != nil {
		return
	}
	h.DB.Model(&models.Listing{}).Where("id = ?", listingID).UpdateColumn("rating", avg)
}
