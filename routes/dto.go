package routes

import (
	"time"

	"rentloop-server/models"
)

// Response DTOs are built field-by-field from loaded records so the wire
// shape stays decoupled from the storage shape.

const dateLayout = "2006-01-02"

type UserResponse struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarURL,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type ListingResponse struct {
	ID            uint      `json:"id"`
	OwnerID       uint      `json:"ownerID"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	PricePerDay   float64   `json:"pricePerDay"`
	PricePerWeek  float64   `json:"pricePerWeek,omitempty"`
	PricePerMonth float64   `json:"pricePerMonth,omitempty"`
	Currency      string    `json:"currency"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	CategoryID    *uint     `json:"categoryID,omitempty"`
	CategoryName  string    `json:"categoryName,omitempty"`
	Images        []string  `json:"images"`
	Status        string    `json:"status"`
	ViewCount     int64     `json:"viewCount"`
	Rating        float64   `json:"rating"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newListingResponse(l *models.Listing) ListingResponse {
	resp := ListingResponse{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Description:   l.Description,
		Tags:          l.TagList(),
		PricePerDay:   l.PricePerDay,
		PricePerWeek:  l.PricePerWeek,
		PricePerMonth: l.PricePerMonth,
		Currency:      l.Currency,
		Lat:           l.Lat,
		Lng:           l.Lng,
		CategoryID:    l.CategoryID,
		Images:        []string{},
		Status:        l.Status,
		ViewCount:     l.ViewCount,
		Rating:        l.Rating,
		CreatedAt:     l.CreatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if l.Category != nil {
		resp.CategoryName = l.Category.Name
	}
	if imgs := decodeImages(l.Images); imgs != nil {
		resp.Images = imgs
	}
	return resp
}

type BookingResponse struct {
	ID           uint      `json:"id"`
	ListingID    uint      `json:"listingID"`
	ListingTitle string    `json:"listingTitle,omitempty"`
	RenterID     uint      `json:"renterID"`
	OwnerID      uint      `json:"ownerID"`
	StartDate    string    `json:"startDate"`
	EndDate      string    `json:"endDate"`
	TotalPrice   float64   `json:"totalPrice"`
	Status       string    `json:"status"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:         b.ID,
		ListingID:  b.ListingID,
		RenterID:   b.RenterID,
		OwnerID:    b.OwnerID,
		StartDate:  b.StartDate.Format(dateLayout),
		EndDate:    b.EndDate.Format(dateLayout),
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
		Note:       b.Note,
		CreatedAt:  b.CreatedAt,
	}
	if b.Listing != nil {
		resp.ListingTitle = b.Listing.Title
	}
	return resp
}

type SearchResultResponse struct {
	Listing        ListingResponse `json:"listing"`
	Score          int             `json:"score,omitempty"`
	DistanceMeters *float64        `json:"distanceMeters,omitempty"`
}

type ReviewResponse struct {
	ID         uint      `json:"id"`
	ListingID  uint      `json:"listingID"`
	UserID     uint      `json:"userID"`
	UserName   string    `json:"userName,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Stars      int       `json:"stars"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newReviewResponse(r *models.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:         r.ID,
		ListingID:  r.ListingID,
		UserID:     r.UserID,
		Title:      r.Title,
		Body:       r.Body,
		Stars:      r.Stars,
		IsVerified: r.IsVerified,
		CreatedAt:  r.CreatedAt,
	}
	if r.User.ID > 0 {
		resp.UserName = r.User.FirstName + " " + r.User.LastName
	}
	return resp
}
