package services_test

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewaySecret = "whsec_test"

func TestPaymentVerifier_DuplicateWebhookConfirmsOnce(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	order := f.placeOnlineOrder(t, "order_gw_10", "")
	verifier := services.NewPaymentVerifier(gatewaySecret, f.store, f.svc, nil)

	sig := gateway.Sign(gatewaySecret, "order_gw_10", "pay_10")

	first, err := verifier.Verify(ctx, "order_gw_10", "pay_10", sig)
	require.NoError(t, err)
	assert.Equal(t, order.ID, first.ID)
	assert.Equal(t, models.StatusConfirmed, first.Status)

	second, err := verifier.Verify(ctx, "order_gw_10", "pay_10", sig)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, second.Status)
	assert.Equal(t, "pay_10", second.PaymentID)

	assert.Len(t, f.scheduler.Tasks(), 1)
}

func TestPaymentVerifier_SignatureMismatchLeavesOrderUntouched(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	order := f.placeOnlineOrder(t, "order_gw_11", "")
	verifier := services.NewPaymentVerifier(gatewaySecret, f.store, f.svc, nil)

	forged := gateway.Sign("wrong-secret", "order_gw_11", "pay_11")
	_, err := verifier.Verify(ctx, "order_gw_11", "pay_11", forged)
	assert.ErrorIs(t, err, services.ErrSignatureMismatch)

	_, err = verifier.Verify(ctx, "order_gw_11", "pay_11", "")
	assert.ErrorIs(t, err, services.ErrSignatureMismatch)

	// Signed for a different payment id.
	_, err = verifier.Verify(ctx, "order_gw_11", "pay_11", gateway.Sign(gatewaySecret, "order_gw_11", "pay_other"))
	assert.ErrorIs(t, err, services.ErrSignatureMismatch)

	stored, err := f.store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, stored.Status)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	_, err = f.store.Payments().FindConsumed(ctx, "pay_11")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.Empty(t, f.scheduler.Tasks())
}

func TestPaymentVerifier_PaymentReusedForAnotherOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.placeOnlineOrder(t, "order_gw_13", "")
	other := f.placeOnlineOrder(t, "order_gw_14", "")
	verifier := services.NewPaymentVerifier(gatewaySecret, f.store, f.svc, nil)

	_, err := verifier.Verify(ctx, "order_gw_13", "pay_13", gateway.Sign(gatewaySecret, "order_gw_13", "pay_13"))
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, "order_gw_14", "pay_13", gateway.Sign(gatewaySecret, "order_gw_14", "pay_13"))
	assert.ErrorIs(t, err, services.ErrPaymentConflict)

	stored, err := f.store.Orders().GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, stored.Status)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	assert.Len(t, f.scheduler.Tasks(), 1)
}

func TestPaymentVerifier_UnknownOrder(t *testing.T) {
	f := newOrderFixture(t)
	verifier := services.NewPaymentVerifier(gatewaySecret, f.store, f.svc, nil)

	_, err := verifier.Verify(context.Background(), "order_missing", "pay_1", gateway.Sign(gatewaySecret, "order_missing", "pay_1"))
	assert.ErrorIs(t, err, services.ErrUnknownOrder)
}

func TestPaymentVerifier_VerifyFailure(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.placeOnlineOrder(t, "order_gw_12", "")
	verifier := services.NewPaymentVerifier(gatewaySecret, f.store, f.svc, nil)

	got, err := verifier.VerifyFailure(ctx, "order_gw_12", "pay_12", gateway.Sign(gatewaySecret, "order_gw_12", "pay_12"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingPayment, got.Status)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)

	_, err = verifier.VerifyFailure(ctx, "order_gw_12", "pay_12", "deadbeef")
	assert.ErrorIs(t, err, services.ErrSignatureMismatch)
}
