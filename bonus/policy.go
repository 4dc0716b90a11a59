package bonus

import (
	"fmt"
	"time"
)

const (
	DefaultBaseCredits      = 3
	DefaultStreakBonusCap   = 10
	DefaultStreakWindowDays = 7
	DefaultSource           = "daily-login"

	// EventCreditsUpdated is emitted after every successful award.
	EventCreditsUpdated = "credits-updated"
)

// Policy holds the tunable reward rules.
type Policy struct {
	BaseCredits    int
	StreakBonusCap int
	// StreakWindowDays bounds how far back a broken streak still counts as a
	// reset (streakReset=true) rather than a fresh start.
	StreakWindowDays int
	// Location defines the calendar day boundary. Nil means UTC.
	Location *time.Location
	// Atomic runs the claim insert and balance credit in one transaction when
	// the store implements TxStore.
	Atomic bool
	Source string
}

// DefaultPolicy returns 3 base credits, +1 per streak day capped at +10, a
// seven day reset window and UTC day boundaries.
func DefaultPolicy() Policy {
	return Policy{
		BaseCredits:      DefaultBaseCredits,
		StreakBonusCap:   DefaultStreakBonusCap,
		StreakWindowDays: DefaultStreakWindowDays,
		Location:         time.UTC,
		Atomic:           true,
		Source:           DefaultSource,
	}
}

func (p Policy) validate() error {
	if p.BaseCredits < 0 {
		return fmt.Errorf("base credits must be >= 0, got %d", p.BaseCredits)
	}
	if p.StreakBonusCap < 0 {
		return fmt.Errorf("streak bonus cap must be >= 0, got %d", p.StreakBonusCap)
	}
	if p.StreakWindowDays < 2 {
		return fmt.Errorf("streak window must be >= 2 days, got %d", p.StreakWindowDays)
	}
	return nil
}

// RewardFor computes the award for a claim that reaches the given streak.
func (p Policy) RewardFor(streak int) (base, streakBonus, total int) {
	if streak < 1 {
		streak = 1
	}
	streakBonus = min(streak-1, p.StreakBonusCap)
	return p.BaseCredits, streakBonus, p.BaseCredits + streakBonus
}
