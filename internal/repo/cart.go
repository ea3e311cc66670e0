package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/pricing"
)

func (r *GormRepo) GetActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&cart, "user_id = ? AND status = ?", userID, models.CartStatusActive).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCartItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateCartWithItem creates the cart and its first item as one write. The
// in-transaction re-check plus the partial unique index close the window in
// which two concurrent adds could both create an active cart.
func (r *GormRepo) CreateCartWithItem(ctx context.Context, cart *models.Cart) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Cart{}).
			Where("user_id = ? AND status = ?", cart.UserID, models.CartStatusActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrActiveCartExists
		}
		return tx.Create(cart).Error
	})
}

// SaveItemWithTotals persists one mutated item together with the cart's
// recomputed totals, so a reader never sees items without matching totals.
func (r *GormRepo) SaveItemWithTotals(ctx context.Context, cartID uuid.UUID, item *models.CartItem, t pricing.Totals) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return applyTotals(tx, cartID, t)
	})
}

// RemoveItemWithTotals deletes one item and either refreshes the cart's
// totals or, when the last item goes, deletes the cart itself.
func (r *GormRepo) RemoveItemWithTotals(ctx context.Context, cartID, itemID uuid.UUID, t pricing.Totals, lastItem bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CartItem{}, "id = ? AND cart_id = ?", itemID, cartID).Error; err != nil {
			return err
		}
		if lastItem {
			return deleteCart(tx, cartID)
		}
		return applyTotals(tx, cartID, t)
	})
}

func (r *GormRepo) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteCart(tx, cartID)
	})
}

// UpdateCartPricing mirrors a coupon apply/remove onto the cart row.
func (r *GormRepo) UpdateCartPricing(ctx context.Context, cartID uuid.UUID, promoCode string, t pricing.Totals) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"promo_code":   promoCode,
			"subtotal":     t.Subtotal,
			"discount":     t.Discount,
			"tax":          t.Tax,
			"delivery_fee": t.DeliveryFee,
			"total":        t.Total,
		}).Error
}

func (r *GormRepo) SetCartAddress(ctx context.Context, cartID, addressID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("address_id", addressID).Error
}

func (r *GormRepo) SetCartNotes(ctx context.Context, cartID uuid.UUID, notes string) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("notes", notes).Error
}

func applyTotals(tx *gorm.DB, cartID uuid.UUID, t pricing.Totals) error {
	return tx.Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"subtotal":     t.Subtotal,
			"discount":     t.Discount,
			"tax":          t.Tax,
			"delivery_fee": t.DeliveryFee,
			"total":        t.Total,
		}).Error
}

func deleteCart(tx *gorm.DB, cartID uuid.UUID) error {
	if err := tx.Delete(&models.CartItem{}, "cart_id = ?", cartID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Cart{}, "id = ?", cartID).Error
}
