package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/logging"
	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/pricing"
	"github.com/pickuporder/backend/internal/repo"
	"github.com/pickuporder/backend/internal/session"
)

// CheckoutService snapshots a validated cart into a time-boxed session and
// handles coupon apply/remove against that snapshot. Sessions live in the
// injected store; expiry is enforced on every read.
type CheckoutService struct {
	Repo       *repo.GormRepo
	Carts      *CartService
	Sessions   session.Store
	SessionTTL time.Duration

	now func() time.Time
}

func NewCheckoutService(r *repo.GormRepo, carts *CartService, sessions session.Store, ttl time.Duration) *CheckoutService {
	return &CheckoutService{
		Repo:       r,
		Carts:      carts,
		Sessions:   sessions,
		SessionTTL: ttl,
		now:        time.Now,
	}
}

func (s *CheckoutService) CreateSession(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	now := s.now()
	s.Sessions.Sweep(ctx, now)

	cart, err := s.Carts.loadActiveCart(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if cart.AddressID == nil {
		return nil, fmt.Errorf("%w: delivery address is required", ErrValidation)
	}

	issues, err := s.Carts.validateItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		if issue.Blocking() {
			return nil, fmt.Errorf("%w: %s", ErrValidation, issue.Message)
		}
	}

	items := make([]session.Item, 0, len(cart.Items))
	for _, it := range cart.Items {
		product, err := s.Repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, session.Item{
			ProductID:     it.ProductID,
			ProductName:   product.Name,
			ProductImage:  product.ImageURL,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
			Customization: it.Customization,
			AddOnIDs:      it.AddOnIDs,
			Note:          it.Note,
		})
	}

	totals := pricing.Compute(sessionLines(items), cart.Discount, pricing.TaxRate, s.Carts.DeliveryFee)

	sess := &session.Session{
		ID:        uuid.New(),
		UserID:    userID,
		CartID:    cart.ID,
		StoreID:   cart.StoreID,
		Items:     items,
		Totals:    totals,
		AddressID: *cart.AddressID,
		PromoCode: cart.PromoCode,
		CreatedAt: now,
		ExpiresAt: now.Add(s.SessionTTL),
	}

	if sess.PromoCode != "" {
		if promo, err := s.Repo.GetPromoByCode(ctx, sess.PromoCode); err == nil {
			sess.PromoCodeID = &promo.ID
		}
	}

	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("checkout session created",
		"session_id", sess.ID, "cart_id", cart.ID, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// GetSession enforces ownership and absolute expiry on every read; an
// expired session is deleted as a side effect.
func (s *CheckoutService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*session.Session, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: checkout session does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if sess.UserID != userID {
		return nil, fmt.Errorf("%w: session belongs to another user", ErrForbidden)
	}
	if sess.Expired(s.now()) {
		if err := s.Sessions.Delete(ctx, sessionID); err != nil {
			logging.FromContext(ctx).Warn("expired session cleanup failed", "session_id", sessionID, "error", err)
		}
		return nil, fmt.Errorf("%w: checkout session has expired", ErrExpired)
	}
	return sess, nil
}

// ApplyCoupon validates the code against the session snapshot and replaces
// any previously applied coupon. The backing cart mirrors the result so a
// page refresh shows the same discount.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, userID, sessionID uuid.UUID, code string) (*session.Session, error) {
	sess, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: promo code is required", ErrValidation)
	}

	promo, err := s.Repo.GetPromoByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: unknown promo code", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.Before(promo.StartsAt) || now.After(promo.EndsAt) {
		return nil, fmt.Errorf("%w: promo code is not active", ErrValidation)
	}
	if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return nil, fmt.Errorf("%w: promo code is fully redeemed", ErrValidation)
	}
	if promo.PerUserLimit > 0 {
		used, err := s.Repo.CountUserRedemptions(ctx, promo.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(promo.PerUserLimit) {
			return nil, fmt.Errorf("%w: promo code usage limit reached", ErrValidation)
		}
	}
	if sess.Totals.Subtotal < promo.MinOrderAmount {
		return nil, fmt.Errorf("%w: order does not meet the minimum amount of %.2f", ErrValidation, promo.MinOrderAmount)
	}

	var discount float64
	switch promo.Type {
	case models.PromoTypePercentage:
		discount = sess.Totals.Subtotal * promo.Value / 100
	case models.PromoTypeFixed:
		discount = promo.Value
	default:
		return nil, fmt.Errorf("%w: unsupported promo code type", ErrValidation)
	}
	if promo.MaxDiscount > 0 && discount > promo.MaxDiscount {
		discount = promo.MaxDiscount
	}

	return s.reprice(ctx, sess, promo.Code, &promo.ID, discount)
}

// RemoveCoupon resets the discount to zero and recomputes.
func (s *CheckoutService) RemoveCoupon(ctx context.Context, userID, sessionID uuid.UUID) (*session.Session, error) {
	sess, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.reprice(ctx, sess, "", nil, 0)
}

func (s *CheckoutService) reprice(ctx context.Context, sess *session.Session, code string, promoID *uuid.UUID, discount float64) (*session.Session, error) {
	totals := pricing.Compute(sessionLines(sess.Items), discount, pricing.TaxRate, s.Carts.DeliveryFee)

	sess.PromoCode = code
	sess.PromoCodeID = promoID
	sess.Totals = totals

	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateCartPricing(ctx, sess.CartID, code, totals); err != nil {
		return nil, err
	}
	return sess, nil
}

func sessionLines(items []session.Item) []pricing.LineItem {
	lines := make([]pricing.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.LineItem{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}
