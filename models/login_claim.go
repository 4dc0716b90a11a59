package models

import "time"

// LoginClaim records one daily-login bonus claim. At most one row exists per
// (user_id, login_date); rows are never updated once written.
type LoginClaim struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:128;not null;uniqueIndex:idx_claim_user_date,priority:1" json:"userId"`
	LoginDate      string    `gorm:"size:10;not null;uniqueIndex:idx_claim_user_date,priority:2;index" json:"loginDate"` // YYYY-MM-DD in the reward timezone
	StreakCount    int       `gorm:"not null" json:"streakCount"`
	CreditsAwarded int       `gorm:"not null;default:0" json:"creditsAwarded"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (LoginClaim) TableName() string {
	return "daily_login_claims"
}
