package models

import (
	"gorm.io/gorm"
)

// Category groups listings for browsing and search relevance.
type Category struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex"`
	Icon        string `json:"icon"` // Phosphor icon name
	Description string `json:"description"`
	IsActive    bool   `json:"isActive" gorm:"default:true"`
	SortOrder   int    `json:"sortOrder" gorm:"default:0"`
}
