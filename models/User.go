package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email" gorm:"uniqueIndex"`
	Password            string         `json:"-"`
	AvatarURL           string         `json:"avatarURL"`
	Bio                 string         `json:"bio"`
	Listings            []Listing      `json:"listings,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
	Role                string         `json:"role" gorm:"type:varchar(20);default:user;index"` // user, admin
}

// Custom JSON marshaling to expose PushTokens as an array.
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		PushTokens []string `json:"pushTokens,omitempty"`
		*Alias
	}{
		PushTokens: []string{},
		Alias:      (*Alias)(u),
	}

	if u.PushTokens != nil {
		var tokens []string
		if err := json.Unmarshal(u.PushTokens, &tokens); err == nil {
			aux.PushTokens = tokens
		}
	}

	return json.Marshal(aux)
}
