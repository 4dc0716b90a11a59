package bonus

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/creditbonus/models"
)

const maxUserIDLen = 128

// ClaimResult is the outcome of a claim attempt.
type ClaimResult struct {
	AlreadyClaimed bool   `json:"alreadyClaimed"`
	CreditsAwarded int    `json:"creditsAwarded"`
	StreakCount    int    `json:"streakCount"`
	BaseCredits    int    `json:"baseCredits,omitempty"`
	StreakBonus    int    `json:"streakBonus,omitempty"`
	StreakReset    bool   `json:"streakReset,omitempty"`
	Balance        int    `json:"totalCredits,omitempty"`
	LoginDate      string `json:"loginDate"`
}

// Status summarises a user's daily bonus state without mutating anything.
type Status struct {
	Today         string    `json:"today"`
	ClaimedToday  bool      `json:"claimedToday"`
	StreakCount   int       `json:"streakCount"`
	NextReward    int       `json:"nextReward"`
	Balance       int       `json:"balance"`
	LastClaimDate string    `json:"lastClaimDate,omitempty"`
	ResetsAt      time.Time `json:"resetsAt"`
}

// CreditsUpdated is the notification payload sent after an award.
type CreditsUpdated struct {
	UserID         string `json:"userId"`
	CreditsAwarded int    `json:"creditsAwarded"`
	Source         string `json:"source"`
	StreakCount    int    `json:"streakCount"`
	TotalCredits   int    `json:"totalCredits"`
}

// Engine computes and records daily login bonuses. It holds no per-user state;
// everything lives in the injected Store.
type Engine struct {
	store    Store
	notifier Notifier
	policy   Policy
	now      func() time.Time
	log      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the real-time notifier. The default drops events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine over store using policy.
func NewEngine(store Store, policy Policy, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("bonus: store is required")
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.Source == "" {
		policy.Source = DefaultSource
	}
	e := &Engine{
		store:    store,
		notifier: nopNotifier{},
		policy:   policy,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the engine's effective policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Today returns the current calendar date in the reward timezone.
func (e *Engine) Today() string {
	return DayKey(e.now(), e.policy.Location)
}

// Claim collects today's bonus for userID. Repeated calls on the same day
// return AlreadyClaimed with zero credits.
func (e *Engine) Claim(ctx context.Context, userID string) (ClaimResult, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return ClaimResult{}, err
	}
	today := e.Today()

	existing, err := e.store.FindClaim(ctx, userID, today)
	if err != nil {
		return ClaimResult{}, persistenceErr("find today's claim", err)
	}
	if existing != nil {
		return alreadyClaimed(existing), nil
	}

	streak, reset, err := e.streakFor(ctx, userID, today)
	if err != nil {
		return ClaimResult{}, err
	}
	base, streakBonus, total := e.policy.RewardFor(streak)

	claim := &models.LoginClaim{
		UserID:         userID,
		LoginDate:      today,
		StreakCount:    streak,
		CreditsAwarded: total,
	}
	balance, err := e.award(ctx, claim)
	if errors.Is(err, ErrDuplicateClaim) {
		e.log.Info("concurrent daily claim lost the race",
			zap.String("user_id", userID), zap.String("date", today))
		return e.settleRace(ctx, userID, today)
	}
	if err != nil {
		return ClaimResult{}, err
	}

	e.log.Info("daily bonus claimed",
		zap.String("user_id", userID),
		zap.String("date", today),
		zap.Int("streak", streak),
		zap.Int("credits", total),
		zap.Bool("streak_reset", reset),
	)

	e.emit(ctx, CreditsUpdated{
		UserID:         userID,
		CreditsAwarded: total,
		Source:         e.policy.Source,
		StreakCount:    streak,
		TotalCredits:   balance,
	})

	return ClaimResult{
		CreditsAwarded: total,
		StreakCount:    streak,
		BaseCredits:    base,
		StreakBonus:    streakBonus,
		StreakReset:    reset,
		Balance:        balance,
		LoginDate:      today,
	}, nil
}

// streakFor derives the streak a claim on today would reach.
func (e *Engine) streakFor(ctx context.Context, userID, today string) (streak int, reset bool, err error) {
	prev, err := e.store.FindClaim(ctx, userID, shiftDay(today, -1))
	if err != nil {
		return 0, false, persistenceErr("find yesterday's claim", err)
	}
	if prev != nil {
		return prev.StreakCount + 1, false, nil
	}

	from := shiftDay(today, -e.policy.StreakWindowDays)
	to := shiftDay(today, -2)
	recent, err := e.store.FindClaimsInRange(ctx, userID, from, to, 1, true)
	if err != nil {
		return 0, false, persistenceErr("find recent claims", err)
	}
	return 1, len(recent) > 0, nil
}

// award writes the claim row and then credits the balance. The claim is
// always confirmed before the balance moves.
func (e *Engine) award(ctx context.Context, claim *models.LoginClaim) (int, error) {
	write := func(s Store) (int, error) {
		if err := s.InsertClaim(ctx, claim); err != nil {
			if errors.Is(err, ErrDuplicateClaim) {
				return 0, ErrDuplicateClaim
			}
			return 0, persistenceErr("insert claim", err)
		}
		balance, err := s.AddCredits(ctx, claim.UserID, claim.CreditsAwarded)
		if err != nil {
			return 0, persistenceErr("credit balance", err)
		}
		return balance, nil
	}

	txs, ok := e.store.(TxStore)
	if !ok || !e.policy.Atomic {
		return write(e.store)
	}

	var balance int
	err := txs.InTx(ctx, func(s Store) error {
		b, err := write(s)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, ErrDuplicateClaim), errors.Is(err, ErrPersistence):
		return 0, err
	default:
		return 0, persistenceErr("commit award", err)
	}
}

// settleRace re-reads today's claim after losing an insert race.
func (e *Engine) settleRace(ctx context.Context, userID, today string) (ClaimResult, error) {
	winner, err := e.store.FindClaim(ctx, userID, today)
	if err != nil {
		return ClaimResult{}, persistenceErr("reload today's claim", err)
	}
	if winner == nil {
		return ClaimResult{}, persistenceErr("reload today's claim", errors.New("conflicting claim not found"))
	}
	return alreadyClaimed(winner), nil
}

func (e *Engine) emit(ctx context.Context, ev CreditsUpdated) {
	if err := e.notifier.Emit(ctx, EventCreditsUpdated, ev); err != nil {
		e.log.Warn("credits-updated notification failed",
			zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

// Status reports whether userID has claimed today and what the next claim pays.
func (e *Engine) Status(ctx context.Context, userID string) (Status, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return Status{}, err
	}
	now := e.now()
	today := DayKey(now, e.policy.Location)
	st := Status{Today: today, ResetsAt: endOfDay(now, e.policy.Location)}

	claim, err := e.store.FindClaim(ctx, userID, today)
	if err != nil {
		return Status{}, persistenceErr("find today's claim", err)
	}
	if claim != nil {
		st.ClaimedToday = true
		st.StreakCount = claim.StreakCount
		st.LastClaimDate = claim.LoginDate
	} else {
		last, err := e.store.FindClaimsInRange(ctx, userID, "", shiftDay(today, -1), 1, true)
		if err != nil {
			return Status{}, persistenceErr("find last claim", err)
		}
		if len(last) > 0 {
			st.LastClaimDate = last[0].LoginDate
			// A streak that ended yesterday is still alive until today closes.
			if last[0].LoginDate == shiftDay(today, -1) {
				st.StreakCount = last[0].StreakCount
			}
		}
	}
	_, _, st.NextReward = e.policy.RewardFor(st.StreakCount + 1)

	balance, _, err := e.store.GetBalance(ctx, userID)
	if err != nil {
		return Status{}, persistenceErr("get balance", err)
	}
	st.Balance = balance
	return st, nil
}

// History lists a user's claims newest first. limit is clamped to 1..100.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]models.LoginClaim, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 30
	}
	limit = min(limit, 100)
	claims, err := e.store.FindClaimsInRange(ctx, userID, "", "", limit, true)
	if err != nil {
		return nil, persistenceErr("list claims", err)
	}
	return claims, nil
}

// Balance returns the user's credits; a missing balance reads as zero.
func (e *Engine) Balance(ctx context.Context, userID string) (int, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return 0, err
	}
	balance, _, err := e.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, persistenceErr("get balance", err)
	}
	return balance, nil
}

func alreadyClaimed(c *models.LoginClaim) ClaimResult {
	return ClaimResult{
		AlreadyClaimed: true,
		StreakCount:    c.StreakCount,
		LoginDate:      c.LoginDate,
	}
}

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", validationErr("userId is required")
	}
	if len(userID) > maxUserIDLen {
		return "", validationErr("userId is too long")
	}
	return userID, nil
}
