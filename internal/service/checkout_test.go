package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/transport"
)

// seedCheckoutCart builds the reference cart: $4.50 x 2 + $3.00 x 1 with a
// delivery address set, giving a $12.00 subtotal.
func seedCheckoutCart(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()

	p1 := env.seedProduct(t, env.Store.ID, "Falafel Wrap", 4.50)
	p2 := env.seedProduct(t, env.Store.ID, "Lemonade", 3.00)

	_, err := env.Carts.AddItem(ctx, env.UserID, transport.AddItemRequest{ProductID: p1.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = env.Carts.AddItem(ctx, env.UserID, transport.AddItemRequest{ProductID: p2.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = env.Carts.SetDeliveryAddress(ctx, env.UserID, env.AddressID)
	require.NoError(t, err)
}

func TestCheckoutService_CreateSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	assert.Equal(t, env.UserID, sess.UserID)
	assert.Len(t, sess.Items, 2)
	assert.InDelta(t, 12.00, sess.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 1.20, sess.Totals.Tax, 1e-9)
	assert.InDelta(t, 2.00, sess.Totals.DeliveryFee, 1e-9)
	assert.InDelta(t, 15.20, sess.Totals.Total, 1e-9)
	assert.Equal(t, env.clock.Add(testSessionTTL), sess.ExpiresAt)
	assert.NotEmpty(t, sess.Items[0].ProductName)
}

func TestCheckoutService_CreateSession_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("no cart", func(t *testing.T) {
		_, err := env.Checkout.CreateSession(ctx, env.UserID)
		assert.ErrorIs(t, err, ErrValidation)
	})

	p := env.seedProduct(t, env.Store.ID, "Falafel Wrap", 4.50)
	_, err := env.Carts.AddItem(ctx, env.UserID, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	t.Run("missing address", func(t *testing.T) {
		_, err := env.Checkout.CreateSession(ctx, env.UserID)
		assert.ErrorIs(t, err, ErrValidation)
	})

	_, err = env.Carts.SetDeliveryAddress(ctx, env.UserID, env.AddressID)
	require.NoError(t, err)

	t.Run("unavailable product blocks", func(t *testing.T) {
		require.NoError(t, env.Repo.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_available", false).Error)
		_, err := env.Checkout.CreateSession(ctx, env.UserID)
		assert.ErrorIs(t, err, ErrValidation)

		require.NoError(t, env.Repo.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_available", true).Error)
		_, err = env.Checkout.CreateSession(ctx, env.UserID)
		assert.NoError(t, err)
	})
}

func TestCheckoutService_GetSession_ExpiryBoundaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	env.advance(14*time.Minute + 59*time.Second)
	_, err = env.Checkout.GetSession(ctx, env.UserID, sess.ID)
	assert.NoError(t, err)

	env.advance(2 * time.Second)
	_, err = env.Checkout.GetSession(ctx, env.UserID, sess.ID)
	assert.ErrorIs(t, err, ErrExpired)

	// expiry on read also deletes the session
	_, err = env.Checkout.GetSession(ctx, env.UserID, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutService_GetSession_OwnershipAndAbsence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	_, err = env.Checkout.GetSession(ctx, uuid.New(), sess.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.Checkout.GetSession(ctx, env.UserID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutService_CreateSessionSweepsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	stale, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	env.advance(testSessionTTL + time.Minute)

	// the cart TTL is much longer, so the same cart backs the new session
	fresh, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)

	_, err = env.Sessions.Get(ctx, stale.ID)
	assert.Error(t, err)
}

func TestCheckoutService_ApplyCoupon_TenPercent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	env.seedPromo(t, models.PromoCode{Code: "SAVE10", Type: models.PromoTypePercentage, Value: 10})

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	sess, err = env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "save10")
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", sess.PromoCode)
	assert.InDelta(t, 12.00, sess.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 1.20, sess.Totals.Discount, 1e-9)
	assert.InDelta(t, 1.08, sess.Totals.Tax, 1e-9)
	assert.InDelta(t, 2.00, sess.Totals.DeliveryFee, 1e-9)
	assert.InDelta(t, 14.88, sess.Totals.Total, 1e-9)

	// the backing cart mirrors the discount
	cart, err := env.Carts.GetCart(ctx, env.UserID)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", cart.PromoCode)
	assert.InDelta(t, 1.20, cart.Discount, 1e-9)
	assert.InDelta(t, 14.88, cart.Total, 1e-9)
}

func TestCheckoutService_ApplyCoupon_Eligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	t.Run("unknown code", func(t *testing.T) {
		_, err := env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "NOPE")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("outside date window", func(t *testing.T) {
		env.seedPromo(t, models.PromoCode{
			Code: "FUTURE", Type: models.PromoTypePercentage, Value: 10,
			StartsAt: env.clock.Add(time.Hour), EndsAt: env.clock.Add(2 * time.Hour),
		})
		_, err := env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "FUTURE")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("global usage cap", func(t *testing.T) {
		env.seedPromo(t, models.PromoCode{Code: "SPENT", Type: models.PromoTypeFixed, Value: 1, UsageLimit: 5, UsedCount: 5})
		_, err := env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "SPENT")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("per-user cap", func(t *testing.T) {
		promo := env.seedPromo(t, models.PromoCode{Code: "ONCE", Type: models.PromoTypeFixed, Value: 1, PerUserLimit: 1})
		require.NoError(t, env.Repo.DB.Create(&models.PromoCodeUsage{
			PromoCodeID: promo.ID, UserID: env.UserID, OrderID: uuid.New(),
		}).Error)
		_, err := env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "ONCE")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("minimum order amount", func(t *testing.T) {
		env.seedPromo(t, models.PromoCode{Code: "BIG20", Type: models.PromoTypePercentage, Value: 20, MinOrderAmount: 20.00})
		_, err := env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "BIG20")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCheckoutService_ApplyCoupon_MaxDiscountCapAndReplace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	env.seedPromo(t, models.PromoCode{Code: "HALF", Type: models.PromoTypePercentage, Value: 50, MaxDiscount: 3.00})
	env.seedPromo(t, models.PromoCode{Code: "FLAT2", Type: models.PromoTypeFixed, Value: 2.00})

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	sess, err = env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "HALF")
	require.NoError(t, err)
	assert.InDelta(t, 3.00, sess.Totals.Discount, 1e-9)

	// a second coupon replaces the first, never stacks
	sess, err = env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "FLAT2")
	require.NoError(t, err)
	assert.Equal(t, "FLAT2", sess.PromoCode)
	assert.InDelta(t, 2.00, sess.Totals.Discount, 1e-9)
}

func TestCheckoutService_RemoveCoupon_RestoresTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCheckoutCart(t, env)
	env.seedPromo(t, models.PromoCode{Code: "SAVE10", Type: models.PromoTypePercentage, Value: 10})

	sess, err := env.Checkout.CreateSession(ctx, env.UserID)
	require.NoError(t, err)

	sess, err = env.Checkout.ApplyCoupon(ctx, env.UserID, sess.ID, "SAVE10")
	require.NoError(t, err)

	sess, err = env.Checkout.RemoveCoupon(ctx, env.UserID, sess.ID)
	require.NoError(t, err)

	assert.Empty(t, sess.PromoCode)
	assert.Zero(t, sess.Totals.Discount)
	assert.InDelta(t, sess.Totals.Subtotal+sess.Totals.Tax+sess.Totals.DeliveryFee, sess.Totals.Total, 1e-9)
	assert.InDelta(t, 15.20, sess.Totals.Total, 1e-9)

	cart, err := env.Carts.GetCart(ctx, env.UserID)
	require.NoError(t, err)
	assert.Empty(t, cart.PromoCode)
	assert.Zero(t, cart.Discount)
}
