package models

import "gorm.io/gorm"

// Agreement records the rental agreement issued for a booking. The PDF itself
// is rendered on demand; only the reference and issue metadata persist.
type Agreement struct {
	gorm.Model
	BookingID uint     `json:"bookingID" gorm:"uniqueIndex"`
	Reference string   `json:"reference" gorm:"uniqueIndex;size:36"`
	Booking   *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
}
