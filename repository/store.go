package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/creditbonus/bonus"
)

// Store implements bonus.TxStore on top of gorm.
type Store struct {
	db *gorm.DB
}

// New wraps db. Open db with gorm.Config{TranslateError: true} so unique
// violations arrive as gorm.ErrDuplicatedKey; driver messages are matched as a
// fallback.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ bonus.TxStore = (*Store)(nil)

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(bonus.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "duplicate entry") || // mysql
		strings.Contains(msg, "unique constraint failed") // sqlite
}
