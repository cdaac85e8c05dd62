package models

import "gorm.io/gorm"

// Notification rows are written best-effort off the request path; a dropped
// notification is never a request failure.
type Notification struct {
	gorm.Model
	UserID  uint   `json:"userID" gorm:"not null;index"`
	Title   string `json:"title" gorm:"size:100"`
	Message string `json:"message" gorm:"size:500"`
	Type    string `json:"type" gorm:"size:32;index"` // booking_request, booking_status, review
	RefType string `json:"refType" gorm:"size:32"`    // booking, listing, review
	RefID   uint   `json:"refID"`
	IsRead  bool   `json:"isRead" gorm:"default:false"`
}
