package account_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/otp"
)

func hotpAccount() account.Account {
	a := validTOTP()
	a.Type = otp.TypeHOTP
	a.Period = 0

	return a
}

func TestMemoryStore_AddGetList(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()

	saved, err := store.Add(ctx, validTOTP())
	require.NoError(t, err)

	_, err = uuid.Parse(saved.ID)
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []account.Account{saved}, list)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestMemoryStore_AddRejectsInvalid(t *testing.T) {
	store := account.NewMemoryStore()

	a := validTOTP()
	a.Digits = 12

	_, err := store.Add(context.Background(), a)
	assert.ErrorIs(t, err, account.ErrValidation)
}

func TestMemoryStore_AdvanceCounter(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()

	saved, err := store.Add(ctx, hotpAccount())
	require.NoError(t, err)

	advanced, err := store.AdvanceCounter(ctx, saved.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), advanced.Counter)

	_, err = store.AdvanceCounter(ctx, saved.ID, 0)
	assert.ErrorIs(t, err, account.ErrStaleCounter)

	totp, err := store.Add(ctx, validTOTP())
	require.NoError(t, err)

	_, err = store.AdvanceCounter(ctx, totp.ID, 0)
	assert.ErrorIs(t, err, otp.ErrUnsupportedType)
}

func TestMemoryStore_AdvanceCounterSingleWriter(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()

	saved, err := store.Add(ctx, hotpAccount())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	// Every writer races for the same counter value; only one may win
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AdvanceCounter(ctx, saved.ID, 0); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Counter)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := account.NewMemoryStore().Add(ctx, validTOTP())
	assert.ErrorIs(t, err, context.Canceled)
}
