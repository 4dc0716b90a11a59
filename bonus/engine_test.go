package bonus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/creditbonus/models"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// faultyStore wraps MemoryStore with injectable failures and a call counter.
type faultyStore struct {
	*MemoryStore
	findErr   error
	insertErr error
	addErr    error
	calls     atomic.Int32
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: NewMemoryStore()}
}

func (f *faultyStore) FindClaim(ctx context.Context, userID, date string) (*models.LoginClaim, error) {
	f.calls.Add(1)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryStore.FindClaim(ctx, userID, date)
}

func (f *faultyStore) InsertClaim(ctx context.Context, claim *models.LoginClaim) error {
	f.calls.Add(1)
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.MemoryStore.InsertClaim(ctx, claim)
}

func (f *faultyStore) FindClaimsInRange(ctx context.Context, userID, from, to string, limit int, newestFirst bool) ([]models.LoginClaim, error) {
	f.calls.Add(1)
	return f.MemoryStore.FindClaimsInRange(ctx, userID, from, to, limit, newestFirst)
}

func (f *faultyStore) GetBalance(ctx context.Context, userID string) (int, bool, error) {
	f.calls.Add(1)
	return f.MemoryStore.GetBalance(ctx, userID)
}

func (f *faultyStore) AddCredits(ctx context.Context, userID string, delta int) (int, error) {
	f.calls.Add(1)
	if f.addErr != nil {
		return 0, f.addErr
	}
	return f.MemoryStore.AddCredits(ctx, userID, delta)
}

func (f *faultyStore) InTx(ctx context.Context, fn func(Store) error) error {
	return f.MemoryStore.InTx(ctx, func(Store) error { return fn(f) })
}

// racingStore holds the first two lookups of today's claim until both have
// observed "not claimed", forcing an insert race.
type racingStore struct {
	*MemoryStore
	today string
	gate  sync.WaitGroup
	seen  atomic.Int32
}

func (r *racingStore) FindClaim(ctx context.Context, userID, date string) (*models.LoginClaim, error) {
	c, err := r.MemoryStore.FindClaim(ctx, userID, date)
	if date == r.today && r.seen.Add(1) <= 2 {
		r.gate.Done()
		r.gate.Wait()
	}
	return c, err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []CreditsUpdated
	err    error
}

func (n *recordingNotifier) Emit(_ context.Context, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if event == EventCreditsUpdated {
		if ev, ok := payload.(CreditsUpdated); ok {
			n.events = append(n.events, ev)
		}
	}
	return n.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var day = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, store Store, opts ...Option) (*Engine, *testClock) {
	t.Helper()
	clock := &testClock{now: day}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	e, err := NewEngine(store, DefaultPolicy(), opts...)
	require.NoError(t, err)
	return e, clock
}

func seedClaim(t *testing.T, s Store, userID string, daysAgo, streak int) {
	t.Helper()
	_, _, total := DefaultPolicy().RewardFor(streak)
	require.NoError(t, s.InsertClaim(context.Background(), &models.LoginClaim{
		UserID:         userID,
		LoginDate:      DayKey(day.AddDate(0, 0, -daysAgo), time.UTC),
		StreakCount:    streak,
		CreditsAwarded: total,
	}))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestClaimFirstEver(t *testing.T) {
	store := NewMemoryStore()
	notifier := &recordingNotifier{}
	e, _ := newTestEngine(t, store, WithNotifier(notifier))

	res, err := e.Claim(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyClaimed)
	assert.Equal(t, 1, res.StreakCount)
	assert.Equal(t, 3, res.CreditsAwarded)
	assert.Equal(t, 3, res.BaseCredits)
	assert.Equal(t, 0, res.StreakBonus)
	assert.False(t, res.StreakReset)
	assert.Equal(t, 3, res.Balance)
	assert.Equal(t, "2026-03-10", res.LoginDate)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, CreditsUpdated{
		UserID:         "user-1",
		CreditsAwarded: 3,
		Source:         "daily-login",
		StreakCount:    1,
		TotalCredits:   3,
	}, notifier.events[0])
}

func TestClaimIsIdempotentPerDay(t *testing.T) {
	store := NewMemoryStore()
	notifier := &recordingNotifier{}
	e, clock := newTestEngine(t, store, WithNotifier(notifier))
	ctx := context.Background()

	_, err := e.Claim(ctx, "u")
	require.NoError(t, err)

	clock.advance(6 * time.Hour)
	again, err := e.Claim(ctx, "u")
	require.NoError(t, err)
	assert.True(t, again.AlreadyClaimed)
	assert.Equal(t, 0, again.CreditsAwarded)
	assert.Equal(t, 1, again.StreakCount)

	balance, err := e.Balance(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
	assert.Len(t, notifier.events, 1)
}

func TestClaimContinuesStreak(t *testing.T) {
	store := NewMemoryStore()
	seedClaim(t, store, "u", 1, 5)
	e, _ := newTestEngine(t, store)

	res, err := e.Claim(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 6, res.StreakCount)
	assert.Equal(t, 5, res.StreakBonus)
	assert.Equal(t, 8, res.CreditsAwarded)
	assert.False(t, res.StreakReset)
}

func TestClaimResetWithinWindow(t *testing.T) {
	for _, daysAgo := range []int{2, 4, 7} {
		store := NewMemoryStore()
		seedClaim(t, store, "u", daysAgo, 9)
		e, _ := newTestEngine(t, store)

		res, err := e.Claim(context.Background(), "u")
		require.NoError(t, err)
		assert.Equal(t, 1, res.StreakCount, "days ago %d", daysAgo)
		assert.True(t, res.StreakReset, "days ago %d", daysAgo)
		assert.Equal(t, 3, res.CreditsAwarded)
	}
}

func TestClaimAfterLongAbsence(t *testing.T) {
	store := NewMemoryStore()
	seedClaim(t, store, "u", 8, 9)
	e, _ := newTestEngine(t, store)

	res, err := e.Claim(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakCount)
	assert.False(t, res.StreakReset)
}

func TestClaimWindowIsConfigurable(t *testing.T) {
	store := NewMemoryStore()
	seedClaim(t, store, "u", 8, 9)
	policy := DefaultPolicy()
	policy.StreakWindowDays = 14
	e, err := NewEngine(store, policy, WithClock(func() time.Time { return day }))
	require.NoError(t, err)

	res, err := e.Claim(context.Background(), "u")
	require.NoError(t, err)
	assert.True(t, res.StreakReset)
}

func TestRewardCap(t *testing.T) {
	cases := []struct {
		streak int
		want   int
	}{
		{1, 3},
		{2, 4},
		{11, 13},
		{20, 13},
	}
	for _, tc := range cases {
		store := NewMemoryStore()
		if tc.streak > 1 {
			seedClaim(t, store, "u", 1, tc.streak-1)
		}
		e, _ := newTestEngine(t, store)

		res, err := e.Claim(context.Background(), "u")
		require.NoError(t, err)
		assert.Equal(t, tc.streak, res.StreakCount)
		assert.Equal(t, tc.want, res.CreditsAwarded, "streak %d", tc.streak)
	}
}

func TestBalanceAccumulatesAcrossDays(t *testing.T) {
	store := NewMemoryStore()
	e, clock := newTestEngine(t, store)
	ctx := context.Background()

	first, err := e.Claim(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Balance)

	clock.advance(24 * time.Hour)
	second, err := e.Claim(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, second.StreakCount)
	assert.Equal(t, 4, second.CreditsAwarded)
	assert.Equal(t, 7, second.Balance)

	balance, err := e.Balance(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 7, balance)
}

func TestConcurrentClaimRace(t *testing.T) {
	store := &racingStore{MemoryStore: NewMemoryStore(), today: DayKey(day, time.UTC)}
	store.gate.Add(2)
	notifier := &recordingNotifier{}
	e, _ := newTestEngine(t, store, WithNotifier(notifier))

	var wg sync.WaitGroup
	results := make([]ClaimResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Claim(context.Background(), "u")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	awarded := 0
	already := 0
	for _, r := range results {
		if r.AlreadyClaimed {
			already++
			assert.Equal(t, 0, r.CreditsAwarded)
			assert.Equal(t, 1, r.StreakCount)
		} else {
			awarded++
		}
	}
	assert.Equal(t, 1, awarded)
	assert.Equal(t, 1, already)

	claims, err := store.FindClaimsInRange(context.Background(), "u", "", "", 0, true)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
	balance, _, _ := store.GetBalance(context.Background(), "u")
	assert.Equal(t, 3, balance)
	assert.Len(t, notifier.events, 1)
}

func TestClaimRequiresUserID(t *testing.T) {
	store := newFaultyStore()
	e, _ := newTestEngine(t, store)

	for _, id := range []string{"", "   "} {
		_, err := e.Claim(context.Background(), id)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, int32(0), store.calls.Load())
}

func TestClaimRejectsOversizedUserID(t *testing.T) {
	e, _ := newTestEngine(t, NewMemoryStore())
	long := make([]byte, maxUserIDLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := e.Claim(context.Background(), string(long))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClaimPersistenceErrors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("lookup", func(t *testing.T) {
		store := newFaultyStore()
		store.findErr = boom
		e, _ := newTestEngine(t, store)
		_, err := e.Claim(context.Background(), "u")
		assert.ErrorIs(t, err, ErrPersistence)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("insert", func(t *testing.T) {
		store := newFaultyStore()
		store.insertErr = boom
		e, _ := newTestEngine(t, store)
		_, err := e.Claim(context.Background(), "u")
		assert.ErrorIs(t, err, ErrPersistence)
		_, found, _ := store.MemoryStore.GetBalance(context.Background(), "u")
		assert.False(t, found)
	})

	t.Run("balance in transaction rolls back claim", func(t *testing.T) {
		store := newFaultyStore()
		store.addErr = boom
		e, _ := newTestEngine(t, store)
		_, err := e.Claim(context.Background(), "u")
		assert.ErrorIs(t, err, ErrPersistence)
		c, _ := store.MemoryStore.FindClaim(context.Background(), "u", "2026-03-10")
		assert.Nil(t, c)
	})

	t.Run("balance without transaction keeps claim", func(t *testing.T) {
		store := newFaultyStore()
		store.addErr = boom
		policy := DefaultPolicy()
		policy.Atomic = false
		e, err := NewEngine(store, policy, WithClock(func() time.Time { return day }))
		require.NoError(t, err)

		_, err = e.Claim(context.Background(), "u")
		assert.ErrorIs(t, err, ErrPersistence)
		c, _ := store.MemoryStore.FindClaim(context.Background(), "u", "2026-03-10")
		require.NotNil(t, c)
		_, found, _ := store.MemoryStore.GetBalance(context.Background(), "u")
		assert.False(t, found)
	})
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("redis down")}
	e, _ := newTestEngine(t, NewMemoryStore(), WithNotifier(notifier))

	res, err := e.Claim(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 3, res.CreditsAwarded)
	assert.Len(t, notifier.events, 1)
}

func TestClaimUsesRewardTimezone(t *testing.T) {
	store := NewMemoryStore()
	policy := DefaultPolicy()
	policy.Location = time.FixedZone("UTC+9", 9*3600)
	late := time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC)
	e, err := NewEngine(store, policy, WithClock(func() time.Time { return late }))
	require.NoError(t, err)

	res, err := e.Claim(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", res.LoginDate)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("never claimed", func(t *testing.T) {
		e, _ := newTestEngine(t, NewMemoryStore())
		st, err := e.Status(ctx, "u")
		require.NoError(t, err)
		assert.False(t, st.ClaimedToday)
		assert.Equal(t, 0, st.StreakCount)
		assert.Equal(t, 3, st.NextReward)
		assert.Equal(t, 0, st.Balance)
		assert.Empty(t, st.LastClaimDate)
		assert.Equal(t, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC), st.ResetsAt)
	})

	t.Run("streak alive from yesterday", func(t *testing.T) {
		store := NewMemoryStore()
		seedClaim(t, store, "u", 1, 4)
		e, _ := newTestEngine(t, store)
		st, err := e.Status(ctx, "u")
		require.NoError(t, err)
		assert.False(t, st.ClaimedToday)
		assert.Equal(t, 4, st.StreakCount)
		assert.Equal(t, 7, st.NextReward)
		assert.Equal(t, "2026-03-09", st.LastClaimDate)
	})

	t.Run("broken streak", func(t *testing.T) {
		store := NewMemoryStore()
		seedClaim(t, store, "u", 3, 4)
		e, _ := newTestEngine(t, store)
		st, err := e.Status(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, 0, st.StreakCount)
		assert.Equal(t, "2026-03-07", st.LastClaimDate)
	})

	t.Run("claimed today", func(t *testing.T) {
		e, _ := newTestEngine(t, NewMemoryStore())
		_, err := e.Claim(ctx, "u")
		require.NoError(t, err)
		st, err := e.Status(ctx, "u")
		require.NoError(t, err)
		assert.True(t, st.ClaimedToday)
		assert.Equal(t, 1, st.StreakCount)
		assert.Equal(t, 4, st.NextReward)
		assert.Equal(t, 3, st.Balance)
	})
}

func TestHistoryNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	for i := 5; i >= 1; i-- {
		seedClaim(t, store, "u", i, 6-i)
	}
	e, _ := newTestEngine(t, store)

	claims, err := e.History(context.Background(), "u", 3)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	assert.Equal(t, "2026-03-09", claims[0].LoginDate)
	assert.Equal(t, "2026-03-07", claims[2].LoginDate)

	all, err := e.History(context.Background(), "u", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestNewEngineValidatesPolicy(t *testing.T) {
	_, err := NewEngine(nil, DefaultPolicy())
	assert.Error(t, err)

	p := DefaultPolicy()
	p.StreakWindowDays = 1
	_, err = NewEngine(NewMemoryStore(), p)
	assert.Error(t, err)

	p = DefaultPolicy()
	p.BaseCredits = -1
	_, err = NewEngine(NewMemoryStore(), p)
	assert.Error(t, err)
}
