package routes

import (
	"encoding/json"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/services"
	"rentloop-server/utils"
)

// ListingHandler owns listing CRUD. Deletion archives when blocking bookings
// exist so reservations are never orphaned.
type ListingHandler struct {
	DB       *gorm.DB
	Bookings *services.BookingService
	Events   *services.Emitter
	Log      *logrus.Logger
}

func NewListingHandler(db *gorm.DB, bookings *services.BookingService, events *services.Emitter, log *logrus.Logger) *ListingHandler {
	return &ListingHandler{DB: db, Bookings: bookings, Events: events, Log: log}
}

type CreateListingInput struct {
	Title         string   `json:"title" validate:"required,max=256"`
	Description   string   `json:"description" validate:"max=4096"`
	Tags          []string `json:"tags" validate:"max=20"`
	PricePerDay   float64  `json:"pricePerDay" validate:"required,gt=0"`
	PricePerWeek  float64  `json:"pricePerWeek" validate:"min=0"`
	PricePerMonth float64  `json:"pricePerMonth" validate:"min=0"`
	Currency      string   `json:"currency" validate:"omitempty,len=3"`
	Lat           float64  `json:"lat"`
	Lng           float64  `json:"lng"`
	// Location accepts the alternate point encodings: WKT "POINT(lng lat)"
	// or GeoJSON {"coordinates":[lng,lat]}. Overrides lat/lng when present.
	Location   string   `json:"location"`
	CategoryID *uint    `json:"categoryID"`
	Images     []string `json:"images" validate:"max=20"`
}

func (h *ListingHandler) CreateListing(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateListingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	lat, lng := input.Lat, input.Lng
	if input.Location != "" {
		parsedLat, parsedLng, err := services.ParsePoint(input.Location)
		if err != nil {
			utils.Error(ctx, iris.StatusBadRequest, "Validation Error", "location: "+err.Error())
			return
		}
		lat, lng = parsedLat, parsedLng
	}

	if input.CategoryID != nil {
		var category models.Category
		if err := h.DB.First(&category, *input.CategoryID).Error; err != nil {
			utils.Error(ctx, iris.StatusNotFound, "Not Found", "category not found")
			return
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	listing := models.Listing{
		OwnerID:       claims.ID,
		Title:         input.Title,
		Description:   input.Description,
		Tags:          encodeTags(input.Tags),
		PricePerDay:   input.PricePerDay,
		PricePerWeek:  input.PricePerWeek,
		PricePerMonth: input.PricePerMonth,
		Currency:      currency,
		Lat:           lat,
		Lng:           lng,
		CategoryID:    input.CategoryID,
		Images:        encodeImages(input.Images),
		Status:        models.ListingStatusActive,
	}

	if err := h.DB.Create(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	utils.Success(ctx, newListingResponse(&listing))
}

func (h *ListingHandler) GetListing(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid listing id")
		return
	}

	var listing models.Listing
	if err := h.DB.Preload("Category").First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	// View counting is best-effort and never blocks the response.
	h.Events.Emit(services.Event{Type: services.EventListingViewed, ListingID: listing.ID})

	utils.Success(ctx, newListingResponse(&listing))
}

func (h *ListingHandler) GetListings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	q := h.DB.Model(&models.Listing{}).
		Preload("Category").
		Where("status = ?", models.ListingStatusActive)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var listings []models.Listing
	err := q.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&listings).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		data = append(data, newListingResponse(&listings[i]))
	}

	utils.JSONPage(ctx, data, page, perPage, total)
}

func (h *ListingHandler) GetListingsByUser(ctx iris.Context) {
	userID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	var listings []models.Listing
	res := h.DB.Preload("Category").
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&listings)
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	data := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		data = append(data, newListingResponse(&listings[i]))
	}
	utils.Success(ctx, data)
}

type UpdateListingInput struct {
	Title         *string   `json:"title" validate:"omitempty,max=256"`
	Description   *string   `json:"description" validate:"omitempty,max=4096"`
	Tags          *[]string `json:"tags"`
	PricePerDay   *float64  `json:"pricePerDay" validate:"omitempty,gt=0"`
	PricePerWeek  *float64  `json:"pricePerWeek" validate:"omitempty,min=0"`
	PricePerMonth *float64  `json:"pricePerMonth" validate:"omitempty,min=0"`
	CategoryID    *uint     `json:"categoryID"`
	Images        *[]string `json:"images"`
	Status        *string   `json:"status" validate:"omitempty,oneof=active archived"`
}

func (h *ListingHandler) UpdateListing(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid listing id")
		return
	}

	var listing models.Listing
	if err := h.DB.First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if listing.OwnerID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateListingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Title != nil {
		listing.Title = *input.Title
	}
	if input.Description != nil {
		listing.Description = *input.Description
	}
	if input.Tags != nil {
		listing.Tags = encodeTags(*input.Tags)
	}
	if input.PricePerDay != nil {
		listing.PricePerDay = *input.PricePerDay
	}
	if input.PricePerWeek != nil {
		listing.PricePerWeek = *input.PricePerWeek
	}
	if input.PricePerMonth != nil {
		listing.PricePerMonth = *input.PricePerMonth
	}
	if input.CategoryID != nil {
		var category models.Category
		if err := h.DB.First(&category, *input.CategoryID).Error; err != nil {
			utils.Error(ctx, iris.StatusNotFound, "Not Found", "category not found")
			return
		}
		listing.CategoryID = input.CategoryID
	}
	if input.Images != nil {
		listing.Images = encodeImages(*input.Images)
	}
	if input.Status != nil {
		listing.Status = *input.Status
	}

	if err := h.DB.Save(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Success(ctx, newListingResponse(&listing))
}

// DeleteListing archives the listing when confirmed or active bookings still
// reference it; otherwise it soft-deletes.
func (h *ListingHandler) DeleteListing(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid listing id")
		return
	}

	var listing models.Listing
	if err := h.DB.First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if listing.OwnerID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	blocking, err := h.Bookings.HasBlockingBookings(listing.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if blocking {
		listing.Status = models.ListingStatusArchived
		if err := h.DB.Save(&listing).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		utils.SuccessMessage(ctx, newListingResponse(&listing), "listing archived; active bookings reference it")
		return
	}

	if err := h.DB.Delete(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.SuccessMessage(ctx, nil, "listing deleted")
}

func encodeTags(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func encodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeImages(raw string) []string {
	if raw == "" {
		return nil
	}
	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil
	}
	return images
}
