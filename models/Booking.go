package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking reserves a listing for an inclusive date-only range. Bookings are
// never hard-deleted; cancellation is a status change.
type Booking struct {
	gorm.Model
	ListingID  uint      `json:"listingID" gorm:"index"`
	RenterID   uint      `json:"renterID" gorm:"index"`
	OwnerID    uint      `json:"ownerID" gorm:"index"` // denormalized from the listing at create time
	StartDate  time.Time `json:"startDate" gorm:"type:date"`
	EndDate    time.Time `json:"endDate" gorm:"type:date"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Note       string    `json:"note"`

	Listing *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Renter  *User    `json:"renter,omitempty" gorm:"foreignKey:RenterID"`
}
