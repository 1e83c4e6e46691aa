package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingBlockStore struct{}

func (failingBlockStore) Get(context.Context, string) (*BlockRecord, error) {
	return nil, errors.New("store unreachable")
}
func (failingBlockStore) Set(context.Context, string, BlockRecord) error {
	return errors.New("store unreachable")
}
func (failingBlockStore) Delete(context.Context, string) error {
	return errors.New("store unreachable")
}

func TestAbuseGuard_SlidingWindow(t *testing.T) {
	guard := NewAbuseGuard(NewMemoryBlockStore(), zap.NewNop())

	base := time.Now()
	now := base
	guard.now = func() time.Time { return now }

	// Shrink the register class for the test.
	orig := Limits[LimitRegister]
	Limits[LimitRegister] = Limit{Max: 3, Window: time.Minute, BlockDuration: 0}
	t.Cleanup(func() { Limits[LimitRegister] = orig })

	var results []bool
	for i := 0; i < 4; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		results = append(results, guard.Check("1.2.3.4", LimitRegister).Allowed)
	}
	assert.Equal(t, []bool{true, true, true, false}, results)

	denied := guard.Check("1.2.3.4", LimitRegister)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Greater(t, denied.RetryAfter, int64(0))
	assert.LessOrEqual(t, denied.RetryAfter, int64(61))

	// A different identity is unaffected.
	assert.True(t, guard.Check("5.6.7.8", LimitRegister).Allowed)

	// Past the window from the first request, the identity recovers.
	now = base.Add(time.Minute + time.Second)
	assert.True(t, guard.Check("1.2.3.4", LimitRegister).Allowed)
}

func TestAbuseGuard_RetryAfterRoundsUp(t *testing.T) {
	guard := NewAbuseGuard(NewMemoryBlockStore(), zap.NewNop())

	base := time.Now()
	now := base
	guard.now = func() time.Time { return now }

	orig := Limits[LimitLogin]
	Limits[LimitLogin] = Limit{Max: 1, Window: 10 * time.Second}
	t.Cleanup(func() { Limits[LimitLogin] = orig })

	require.True(t, guard.Check("1.2.3.4", LimitLogin).Allowed)

	// Exactly 6s left in the window: the hint is 6, not 7.
	now = base.Add(4 * time.Second)
	assert.Equal(t, int64(6), guard.Check("1.2.3.4", LimitLogin).RetryAfter)

	// A fractional remainder rounds up.
	now = base.Add(3500 * time.Millisecond)
	assert.Equal(t, int64(7), guard.Check("1.2.3.4", LimitLogin).RetryAfter)
}

func TestAbuseGuard_ClassesAreIndependent(t *testing.T) {
	guard := NewAbuseGuard(NewMemoryBlockStore(), zap.NewNop())

	orig := Limits[LimitRegister]
	Limits[LimitRegister] = Limit{Max: 1, Window: time.Minute}
	t.Cleanup(func() { Limits[LimitRegister] = orig })

	assert.True(t, guard.Check("1.2.3.4", LimitRegister).Allowed)
	assert.False(t, guard.Check("1.2.3.4", LimitRegister).Allowed)
	assert.True(t, guard.Check("1.2.3.4", LimitAPI).Allowed)
}

func TestAbuseGuard_ConcurrentChecksNeverExceedMax(t *testing.T) {
	guard := NewAbuseGuard(NewMemoryBlockStore(), zap.NewNop())

	orig := Limits[LimitAPI]
	Limits[LimitAPI] = Limit{Max: 50, Window: time.Minute}
	t.Cleanup(func() { Limits[LimitAPI] = orig })

	const workers = 200
	var allowed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.Check("1.2.3.4", LimitAPI).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed)
}

func TestAbuseGuard_Blocking(t *testing.T) {
	store := NewMemoryBlockStore()
	guard := NewAbuseGuard(store, zap.NewNop())
	ctx := context.Background()

	assert.False(t, guard.IsBlocked(ctx, "1.2.3.4"))

	require.NoError(t, guard.Block(ctx, "1.2.3.4", "Exceeded LOGIN rate limit", time.Minute))
	assert.True(t, guard.IsBlocked(ctx, "1.2.3.4"))
	assert.False(t, guard.IsBlocked(ctx, "5.6.7.8"))

	rec, err := store.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Exceeded LOGIN rate limit", rec.Reason)
}

func TestAbuseGuard_BlockExpiresLazily(t *testing.T) {
	store := NewMemoryBlockStore()
	base := time.Now()
	store.now = func() time.Time { return base }

	guard := NewAbuseGuard(store, zap.NewNop())
	guard.now = func() time.Time { return base }
	ctx := context.Background()

	require.NoError(t, guard.Block(ctx, "1.2.3.4", "test", time.Minute))
	assert.True(t, guard.IsBlocked(ctx, "1.2.3.4"))

	// No unblock call: the record past its expiry reads as absent.
	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.False(t, guard.IsBlocked(ctx, "1.2.3.4"))
}

func TestAbuseGuard_FailsOpenOnStoreError(t *testing.T) {
	guard := NewAbuseGuard(failingBlockStore{}, zap.NewNop())
	assert.False(t, guard.IsBlocked(context.Background(), "1.2.3.4"))
}

func TestMemoryBlockStore_Delete(t *testing.T) {
	store := NewMemoryBlockStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "1.2.3.4", BlockRecord{
		Reason:    "test",
		BlockedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Delete(ctx, "1.2.3.4"))

	rec, err := store.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
