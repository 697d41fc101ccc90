package model

import "gorm.io/gorm"

const (
	StatusOnline  = "ONLINE"
	StatusOffline = "OFFLINE"
)

// User struct
type User struct {
	gorm.Model
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Password   string `gorm:"not null" json:"-"`
	Name       string `json:"name"`
	Lastname   string `json:"lastname"`
	Bio        string `json:"bio"`
	Avatar     string `json:"avatar"`
	Role       string `json:"role"`
	Status     string `gorm:"not null;default:OFFLINE" json:"status"`
	IsVerified bool   `gorm:"not null;default:false" json:"isVerified"`

	Otp_enabled bool `gorm:"default:false;"`
	Otp_secret  string
}
