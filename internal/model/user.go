package model

import (
	"strings"

	"gorm.io/datatypes"
)

// User is a player account keyed by normalised email.
type User struct {
	Email               string                      `gorm:"primaryKey;size:255" json:"email"`
	PasswordHash        string                      `json:"-"`
	Name                string                      `json:"name"`
	AvatarURL           string                      `json:"avatar_url"`
	Level               int                         `gorm:"default:1" json:"level"`
	TotalPoints         int                         `gorm:"default:0" json:"total_points"`
	Bio                 string                      `json:"bio"`
	PreferredCategories datatypes.JSONSlice[string] `json:"preferred_categories"`
	CreatedAt           NaiveTime                   `json:"created_at"`
	LastActive          NaiveTime                   `json:"last_active"`
}

// NormalizeEmail trims and lower-cases an email so it can be used as the user key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName falls back to the email local part when no name is set.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
