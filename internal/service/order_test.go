package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickuporder/backend/internal/models"
)

func confirmOrder(t *testing.T, env *testEnv) *models.Order {
	t.Helper()
	ctx := context.Background()

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	order, err := env.Orders.ConfirmCheckout(ctx, env.UserID, sess.ID, "card")
	require.NoError(t, err)
	return order
}

// pinCreatedAt anchors the order's creation time to the test clock so
// window math can be exercised with advance.
func pinCreatedAt(t *testing.T, env *testEnv, orderID uuid.UUID) {
	t.Helper()
	require.NoError(t, env.Repo.DB.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("created_at", env.clock).Error)
}

func TestOrderService_ConfirmCheckout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	order := confirmOrder(t, env)

	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "card", order.PaymentMethod)
	assert.Len(t, order.Items, 2)
	assert.InDelta(t, 12.00, order.Subtotal, 1e-9)
	assert.InDelta(t, 15.20, order.Total, 1e-9)

	// the cart flipped to checked_out and is kept as history
	var cart models.Cart
	require.NoError(t, env.Repo.DB.First(&cart, "user_id = ?", env.UserID).Error)
	assert.Equal(t, models.CartStatusCheckedOut, cart.Status)

	// one history row for the initial status
	history, err := env.Repo.ListStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.OrderStatusPendingPayment, history[0].Status)
}

func TestOrderService_ConfirmCheckout_FrozenPricingSurvivesProductEdits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	order := confirmOrder(t, env)

	require.NoError(t, env.Repo.DB.Model(&models.Product{}).
		Where("1 = 1").
		Updates(map[string]any{"price": 99.99, "name": "Renamed"}).Error)

	got, err := env.Orders.GetOrder(ctx, order.ID, env.UserID, "")
	require.NoError(t, err)

	assert.InDelta(t, 12.00, got.Subtotal, 1e-9)
	assert.InDelta(t, 0.00, got.Discount, 1e-9)
	assert.InDelta(t, 1.20, got.Tax, 1e-9)
	assert.InDelta(t, 2.00, got.DeliveryFee, 1e-9)
	assert.InDelta(t, 15.20, got.Total, 1e-9)

	for _, it := range got.Items {
		assert.NotEqual(t, "Renamed", it.ProductName)
		assert.NotEqual(t, 99.99, it.UnitPrice)
	}
}

func TestOrderService_ConfirmCheckout_SessionDiscardedAndNotReusable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	_, err = env.Orders.ConfirmCheckout(ctx, env.UserID, sess.ID, "card")
	require.NoError(t, err)

	_, err = env.Orders.ConfirmCheckout(ctx, env.UserID, sess.ID, "card")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_ConfirmCheckout_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	_, err = env.Orders.ConfirmCheckout(ctx, env.UserID, sess.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	env.advance(testSessionTTL + time.Second)
	_, err = env.Orders.ConfirmCheckout(ctx, env.UserID, sess.ID, "card")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestOrderService_ConfirmCheckout_RedeemsCoupon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	promo := env.seedPromo(t, models.PromoCode{Code: "SAVE10", Type: models.PromoTypePercentage, Value: 10})

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)
	_, err = env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "SAVE10")
	require.NoError(t, err)

	order, err := env.Orders.ConfirmCheckout(ctx, env.UserID, sess.ID, "card")
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", order.PromoCode)
	assert.InDelta(t, 1.20, order.Discount, 1e-9)
	assert.InDelta(t, 14.88, order.Total, 1e-9)

	var usages int64
	require.NoError(t, env.Repo.DB.Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND user_id = ?", promo.ID, env.UserID).
		Count(&usages).Error)
	assert.EqualValues(t, 1, usages)

	var refreshed models.PromoCode
	require.NoError(t, env.Repo.DB.First(&refreshed, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, refreshed.UsedCount)
}

func TestOrderService_UpdateStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		from    models.OrderStatus
		to      models.OrderStatus
		allowed bool
	}{
		{models.OrderStatusPendingPayment, models.OrderStatusConfirmed, true},
		{models.OrderStatusPendingPayment, models.OrderStatusCancelled, true},
		{models.OrderStatusPendingPayment, models.OrderStatusReady, false},
		{models.OrderStatusConfirmed, models.OrderStatusPreparing, true},
		{models.OrderStatusConfirmed, models.OrderStatusPickedUp, false},
		{models.OrderStatusPreparing, models.OrderStatusReady, true},
		{models.OrderStatusReady, models.OrderStatusPickedUp, true},
		{models.OrderStatusReady, models.OrderStatusConfirmed, false},
		{models.OrderStatusPickedUp, models.OrderStatusCompleted, true},
		{models.OrderStatusPickedUp, models.OrderStatusCancelled, false},
		{models.OrderStatusCompleted, models.OrderStatusConfirmed, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			seedCheckoutCart(t, env)
			order := confirmOrder(t, env)

			require.NoError(t, env.Repo.DB.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("status", tt.from).Error)

			_, err := env.Orders.UpdateStatus(ctx, order.ID, tt.to, "admin-1", "")
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrConflict)
			}
		})
	}
}

func TestOrderService_UpdateStatus_TimestampsAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	order := confirmOrder(t, env)

	steps := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusPickedUp,
		models.OrderStatusCompleted,
	}
	var got *models.Order
	var err error
	for _, target := range steps {
		got, err = env.Orders.UpdateStatus(ctx, order.ID, target, "admin-1", "")
		require.NoError(t, err)
	}

	require.NotNil(t, got.ReadyAt)
	require.NotNil(t, got.PickedUpAt)
	require.NotNil(t, got.CompletedAt)
	assert.Nil(t, got.CancelledAt)

	history, err := env.Repo.ListStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	// initial pending_payment row plus one per transition
	assert.Len(t, history, len(steps)+1)
}

func TestOrderService_UpdateStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	order := confirmOrder(t, env)

	_, err := env.Orders.UpdateStatus(ctx, order.ID, "shipped", "admin-1", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_CancelOrder_WindowBoundaries(t *testing.T) {
	t.Run("inside window", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		seedCheckoutCart(t, env)
		order := confirmOrder(t, env)
		pinCreatedAt(t, env, order.ID)

		env.advance(4*time.Minute + 59*time.Second)

		got, err := env.Orders.CancelOrder(ctx, order.ID, env.UserID, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.Status)
		assert.Equal(t, "customer", got.CancelledBy)
		assert.Equal(t, "changed my mind", got.CancelReason)
		require.NotNil(t, got.CancelledAt)
	})

	t.Run("outside window", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		seedCheckoutCart(t, env)
		order := confirmOrder(t, env)
		pinCreatedAt(t, env, order.ID)

		env.advance(5*time.Minute + time.Second)

		_, err := env.Orders.CancelOrder(ctx, order.ID, env.UserID, "too late")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestOrderService_CancelOrder_GuardsAndRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	order := confirmOrder(t, env)

	_, err := env.Orders.CancelOrder(ctx, order.ID, uuid.New(), "not mine")
	assert.ErrorIs(t, err, ErrForbidden)

	// a paid order gets its refund marked pending for the full total
	require.NoError(t, env.Repo.DB.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_status", models.PaymentStatusPaid).Error)

	got, err := env.Orders.CancelOrder(ctx, order.ID, env.UserID, "refund me")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefundPending, got.PaymentStatus)
	assert.InDelta(t, got.Total, got.RefundAmount, 1e-9)

	_, err = env.Orders.CancelOrder(ctx, order.ID, env.UserID, "again")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestOrderService_AssignDriver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	order := confirmOrder(t, env)
	driverID := uuid.New()

	_, err := env.Orders.AssignDriver(ctx, order.ID, driverID)
	assert.ErrorIs(t, err, ErrConflict, "pending_payment must reject driver assignment")

	_, err = env.Orders.UpdateStatus(ctx, order.ID, models.OrderStatusConfirmed, "admin-1", "")
	require.NoError(t, err)

	got, err := env.Orders.AssignDriver(ctx, order.ID, driverID)
	require.NoError(t, err)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, driverID, *got.DriverID)

	steps := []models.OrderStatus{
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusPickedUp,
	}
	for _, target := range steps {
		_, err = env.Orders.UpdateStatus(ctx, order.ID, target, "admin-1", "")
		require.NoError(t, err)
	}

	_, err = env.Orders.AssignDriver(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, ErrConflict, "picked_up must reject driver assignment")
}

func TestOrderService_GetOrderAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	order := confirmOrder(t, env)

	_, err := env.Orders.GetOrder(ctx, uuid.New(), env.UserID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.Orders.GetOrder(ctx, order.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.Orders.GetOrder(ctx, order.ID, uuid.New(), RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	orders, err := env.Orders.ListOrders(ctx, env.UserID, 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}
