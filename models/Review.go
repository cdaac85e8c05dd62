package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	UserID     uint     `json:"userID" gorm:"not null;index"`
	ListingID  uint     `json:"listingID" gorm:"not null;index"`
	BookingID  *uint    `json:"bookingID" gorm:"index"` // link to the completed rental
	Booking    *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	User       User     `json:"user" gorm:"foreignKey:UserID"`
	Title      string   `json:"title"`
	Body       string   `json:"body" gorm:"type:text"`
	Stars      int      `json:"stars" gorm:"not null;check:stars >= 1 AND stars <= 5"`
	IsVisible  bool     `json:"isVisible" gorm:"default:true"`
	IsVerified bool     `json:"isVerified" gorm:"default:false"` // backed by a completed booking
}
