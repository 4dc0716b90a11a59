package models

import "time"

// CreditBalance is the running credit total for a user.
type CreditBalance struct {
	UserID    string    `gorm:"primaryKey;size:128" json:"userId"`
	Credits   int       `gorm:"not null;default:0" json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CreditBalance) TableName() string {
	return "user_credits"
}
