package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora-backend/internal/models"
)

func TestTopupPurchaseOpensCheckout(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 0)

	purchase, checkout, err := env.topups.Purchase(context.Background(), userID, models.CreateTopupRequest{Package: "medium"})
	require.NoError(t, err)

	assert.Equal(t, models.PurchasePending, purchase.Status)
	assert.Equal(t, 1150, purchase.TotalCredits)
	assert.True(t, purchase.Price.Equal(d("25.00")))
	assert.NotEmpty(t, checkout.RedirectURL)

	// Nothing granted before settlement.
	assert.Equal(t, 0, env.store.userCredits(userID))

	p := env.store.payment(checkout.PaymentID)
	assert.Equal(t, models.PaymentTopup, p.Kind)
	require.NotNil(t, p.CreditPurchaseID)
	assert.Equal(t, purchase.ID, *p.CreditPurchaseID)
}

func TestTopupUnknownPackage(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 0)

	_, _, err := env.topups.Purchase(context.Background(), userID, models.CreateTopupRequest{Package: "mega"})
	assert.ErrorIs(t, err, models.ErrInvalidPackage)
}

func TestTopupCreditsAccumulate(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 200)

	_, checkout1, err := env.topups.Purchase(context.Background(), userID, models.CreateTopupRequest{Package: "small"})
	require.NoError(t, err)
	_, err = env.payments.Complete(context.Background(), checkout1.PaymentID, "")
	require.NoError(t, err)
	assert.Equal(t, 650, env.store.userCredits(userID))

	// Unlike a subscription grant, a second top-up stacks on the first.
	_, checkout2, err := env.topups.Purchase(context.Background(), userID, models.CreateTopupRequest{Package: "large"})
	require.NoError(t, err)
	_, err = env.payments.Complete(context.Background(), checkout2.PaymentID, "")
	require.NoError(t, err)
	assert.Equal(t, 2850, env.store.userCredits(userID))
}

func TestTopupHistory(t *testing.T) {
	env := newTestEnv()
	userID := env.store.addUser("a@example.com", 0)

	_, _, err := env.topups.Purchase(context.Background(), userID, models.CreateTopupRequest{Package: "small"})
	require.NoError(t, err)
	_, _, err = env.topups.Purchase(context.Background(), userID, models.CreateTopupRequest{Package: "medium"})
	require.NoError(t, err)

	purchases, err := env.topups.History(userID)
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Equal(t, "medium", purchases[0].Package)
	assert.Equal(t, "small", purchases[1].Package)
}
