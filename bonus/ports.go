package bonus

import (
	"context"

	"github.com/cppla/creditbonus/models"
)

// ClaimStore persists LoginClaim rows.
type ClaimStore interface {
	// FindClaim returns the claim for userID on date, or nil when none exists.
	FindClaim(ctx context.Context, userID, date string) (*models.LoginClaim, error)
	// InsertClaim writes a new claim. It returns ErrDuplicateClaim when a claim
	// for the same (user, date) already exists.
	InsertClaim(ctx context.Context, claim *models.LoginClaim) error
	// FindClaimsInRange lists claims with from <= login_date <= to. An empty
	// bound is open. limit <= 0 means no limit.
	FindClaimsInRange(ctx context.Context, userID, from, to string, limit int, newestFirst bool) ([]models.LoginClaim, error)
}

// BalanceStore persists per-user credit totals.
type BalanceStore interface {
	// GetBalance returns the user's credits and whether a balance row exists.
	GetBalance(ctx context.Context, userID string) (int, bool, error)
	// AddCredits increments the balance by delta, creating the row when absent,
	// and returns the new total.
	AddCredits(ctx context.Context, userID string, delta int) (int, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	ClaimStore
	BalanceStore
}

// TxStore is a Store that can run a unit of work atomically. fn receives a
// Store bound to the transaction; returning an error rolls it back.
type TxStore interface {
	Store
	InTx(ctx context.Context, fn func(Store) error) error
}

// Notifier delivers real-time events. Delivery is best-effort.
type Notifier interface {
	Emit(ctx context.Context, event string, payload any) error
}

type nopNotifier struct{}

func (nopNotifier) Emit(context.Context, string, any) error { return nil }
