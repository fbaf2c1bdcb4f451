package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora-backend/internal/models"
)

func TestPlaceHoldDeductsBalanceImmediately(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 100)

	hold, err := env.ledger.PlaceHold(userID, models.GenerationVideo, 1, 40)
	require.NoError(t, err)

	assert.Equal(t, models.HoldOpen, hold.Status)
	assert.Equal(t, 40, hold.CreditsHeld)
	assert.Equal(t, 60, env.store.userCredits(userID))

	balance, held, err := env.ledger.Balance(userID)
	require.NoError(t, err)
	assert.Equal(t, 60, balance)
	assert.Equal(t, 40, held)
}

func TestPlaceHoldInsufficientCredits(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 30)

	_, err := env.ledger.PlaceHold(userID, models.GenerationVideo, 1, 52)

	var insufficient *models.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 52, insufficient.Required)
	assert.Equal(t, 30, insufficient.Available)
	assert.Equal(t, 22, insufficient.Shortfall())

	// Nothing moved.
	assert.Equal(t, 30, env.store.userCredits(userID))
	_, held, err := env.ledger.Balance(userID)
	require.NoError(t, err)
	assert.Zero(t, held)
}

func TestConfirmHoldKeepsBalance(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 100)

	hold, err := env.ledger.PlaceHold(userID, models.GenerationImage, 1, 16)
	require.NoError(t, err)

	confirmed, resolved, err := env.ledger.ConfirmHold(hold.ID)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, models.HoldConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	// Confirmation is finality only; the deduction already happened.
	assert.Equal(t, 84, env.store.userCredits(userID))
}

func TestReleaseHoldReturnsCredits(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 100)

	hold, err := env.ledger.PlaceHold(userID, models.GenerationVideo, 1, 55)
	require.NoError(t, err)
	assert.Equal(t, 45, env.store.userCredits(userID))

	released, resolved, err := env.ledger.ReleaseHold(hold.ID)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, models.HoldReleased, released.Status)
	assert.Equal(t, 100, env.store.userCredits(userID))
}

func TestResolvingHoldTwiceIsNoOp(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 100)

	hold, err := env.ledger.PlaceHold(userID, models.GenerationVideo, 1, 55)
	require.NoError(t, err)

	_, resolved, err := env.ledger.ReleaseHold(hold.ID)
	require.NoError(t, err)
	require.True(t, resolved)

	// Second release must not re-credit again.
	again, resolved, err := env.ledger.ReleaseHold(hold.ID)
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.Equal(t, models.HoldReleased, again.Status)
	assert.Equal(t, 100, env.store.userCredits(userID))

	// Confirming a released hold must not change its state either.
	after, resolved, err := env.ledger.ConfirmHold(hold.ID)
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.Equal(t, models.HoldReleased, after.Status)
}

func TestConfirmUnknownHold(t *testing.T) {
	env := newTestEnv()

	_, _, err := env.ledger.ConfirmHold(999)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestConcurrentHoldsNeverOverspend(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 100)

	const workers = 8
	const amount = 30

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.ledger.PlaceHold(userID, models.GenerationVideo, uint(i+1), amount)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *models.InsufficientCreditsError
		require.ErrorAs(t, err, &insufficient)
	}

	// 100 credits fit exactly three 30-credit holds.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 100-succeeded*amount, env.store.userCredits(userID))
}
