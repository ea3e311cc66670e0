// Package session holds the short-lived checkout-session registry behind a
// keyed store interface, so the process-local default can be swapped for a
// shared TTL store in multi-instance deployments.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pickuporder/backend/internal/pricing"
)

var ErrNotFound = errors.New("session not found")

// Item is an immutable snapshot of one cart item at session-creation time.
type Item struct {
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	ProductImage  string    `json:"product_image"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unit_price"`
	TotalPrice    float64   `json:"total_price"`
	Customization string    `json:"customization,omitempty"`
	AddOnIDs      string    `json:"add_on_ids,omitempty"`
	Note          string    `json:"note,omitempty"`
}

// Session is the time-boxed snapshot of a validated cart. Only the coupon
// fields and the derived totals change after creation.
type Session struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	CartID      uuid.UUID      `json:"cart_id"`
	StoreID     uuid.UUID      `json:"store_id"`
	Items       []Item         `json:"items"`
	Totals      pricing.Totals `json:"totals"`
	AddressID   uuid.UUID      `json:"address_id"`
	PromoCode   string         `json:"promo_code,omitempty"`
	PromoCodeID *uuid.UUID     `json:"promo_code_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// Expired reports whether the session's absolute expiry has passed. Expiry
// is wall-clock and never sliding.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store is the session registry. Get returns ErrNotFound for unknown IDs;
// expiry is the caller's concern so that it is enforced on every read, not
// only by Sweep.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	Sweep(ctx context.Context, now time.Time)
}
