package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/creditbonus/models"
)

// GetBalance returns the stored credits for userID.
func (s *Store) GetBalance(ctx context.Context, userID string) (int, bool, error) {
	var bal models.CreditBalance
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return bal.Credits, true, nil
}

// AddCredits upserts the balance with an in-database increment so concurrent
// award sources cannot lose updates, then reads the new total back.
func (s *Store) AddCredits(ctx context.Context, userID string, delta int) (int, error) {
	db := s.db.WithContext(ctx)
	now := time.Now()
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"credits":    gorm.Expr("user_credits.credits + ?", delta),
			"updated_at": now,
		}),
	}).Create(&models.CreditBalance{UserID: userID, Credits: delta, CreatedAt: now, UpdatedAt: now}).Error
	if err != nil {
		return 0, err
	}

	credits, _, err := s.GetBalance(ctx, userID)
	return credits, err
}
