package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing statuses. Archived listings stay in the table so that bookings
// referencing them are never orphaned.
const (
	ListingStatusActive   = "active"
	ListingStatusArchived = "archived"
	ListingStatusPending  = "pending"
)

type Listing struct {
	gorm.Model
	OwnerID       uint           `json:"ownerID" gorm:"index"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Tags          datatypes.JSON `json:"tags" gorm:"type:jsonb"`
	PricePerDay   float64        `json:"pricePerDay"`
	PricePerWeek  float64        `json:"pricePerWeek"`
	PricePerMonth float64        `json:"pricePerMonth"`
	Currency      string         `json:"currency" gorm:"type:varchar(8);default:'USD'"`
	Lat           float64        `json:"lat"`
	Lng           float64        `json:"lng"`
	CategoryID    *uint          `json:"categoryID" gorm:"index"`
	Images        string         `json:"images"` // JSON array of URLs
	Status        string         `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ViewCount     int64          `json:"viewCount" gorm:"default:0"`
	Rating        float64        `json:"rating"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Owner    User      `json:"owner" gorm:"foreignKey:OwnerID;references:ID"`
	Bookings []Booking `json:"bookings,omitempty" gorm:"foreignKey:ListingID"`
	Reviews  []Review  `json:"reviews,omitempty" gorm:"foreignKey:ListingID"`
}

// Custom JSON marshaling to expose Tags and Images as arrays and to drop the
// circular owner -> listings reference.
func (l *Listing) MarshalJSON() ([]byte, error) {
	type Alias Listing
	aux := &struct {
		Tags   []string `json:"tags"`
		Images []string `json:"images"`
		Owner  *User    `json:"owner,omitempty"`
		*Alias
	}{
		Tags:   []string{},
		Images: []string{},
		Owner:  nil,
		Alias:  (*Alias)(l),
	}

	if l.Tags != nil {
		var tags []string
		if err := json.Unmarshal(l.Tags, &tags); err == nil {
			aux.Tags = tags
		}
	}

	if l.Images != "" {
		var images []string
		if err := json.Unmarshal([]byte(l.Images), &images); err == nil {
			aux.Images = images
		}
	}

	if l.Owner.ID > 0 {
		ownerCopy := l.Owner
		ownerCopy.Listings = nil
		aux.Owner = &ownerCopy
	}

	return json.Marshal(aux)
}

// TagList decodes the JSONB tags column; bad payloads read as no tags.
func (l *Listing) TagList() []string {
	if l.Tags == nil {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(l.Tags, &tags); err != nil {
		return nil
	}
	return tags
}
