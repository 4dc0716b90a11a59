package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/creditbonus/bonus"
	"github.com/cppla/creditbonus/models"
)

// FindClaim returns the claim for userID on date, or nil.
func (s *Store) FindClaim(ctx context.Context, userID, date string) (*models.LoginClaim, error) {
	var claim models.LoginClaim
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND login_date = ?", userID, date).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// InsertClaim creates a claim row relying on idx_claim_user_date for uniqueness.
func (s *Store) InsertClaim(ctx context.Context, claim *models.LoginClaim) error {
	err := s.db.WithContext(ctx).Create(claim).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKey(err) {
		return bonus.ErrDuplicateClaim
	}
	return err
}

// FindClaimsInRange lists claims whose login_date lies in [from, to].
func (s *Store) FindClaimsInRange(ctx context.Context, userID, from, to string, limit int, newestFirst bool) ([]models.LoginClaim, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if from != "" {
		q = q.Where("login_date >= ?", from)
	}
	if to != "" {
		q = q.Where("login_date <= ?", to)
	}
	if newestFirst {
		q = q.Order("login_date DESC")
	} else {
		q = q.Order("login_date ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var claims []models.LoginClaim
	if err := q.Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}
