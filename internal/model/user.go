package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Username  string `gorm:"uniqueIndex;not null"`
	StoreName string `json:"store_name" gorm:"not null"`

	// Opsiyonel profil bilgileri (settings'den güncellenecek)
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Bio         string `json:"bio" gorm:"type:text"`
	WebsiteURL  string `json:"website_url"`
	PhoneNumber string `json:"phone_number"`
	Avatar      string `json:"avatar"`

	// Sistem bilgileri
	IsVerified bool `json:"is_verified" gorm:"default:false"`
	IsAdmin    bool `json:"is_admin" gorm:"default:false"`

	// İlişkiler
	Templates    []Template    `json:"-"`
	Subscription *Subscription `json:"-" gorm:"foreignKey:UserID"`
}

func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"username":    u.Username,
		"store_name":  u.StoreName,
		"full_name":   u.GetFullName(),
		"bio":         u.Bio,
		"website_url": u.WebsiteURL,
		"avatar":      u.Avatar,
		"is_verified": u.IsVerified,
	}
}
