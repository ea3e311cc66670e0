package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/models"
)

// CreateOrder commits the order with its items, the initial status-history
// row, the cart flip to checked_out and, when a coupon was applied, the
// redemption bookkeeping — all in one transaction. Any failure rolls back
// every write.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order, cartID uuid.UUID, promoID *uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		history := models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  order.Status,
			ActorID: order.UserID.String(),
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Cart{}).
			Where("id = ? AND status = ?", cartID, models.CartStatusActive).
			Update("status", models.CartStatusCheckedOut)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCartNotActive
		}

		if promoID != nil {
			usage := models.PromoCodeUsage{
				PromoCodeID: *promoID,
				UserID:      order.UserID,
				OrderID:     order.ID,
			}
			if err := tx.Create(&usage).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.PromoCode{}).
				Where("id = ?", *promoID).
				UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder re-reads the order inside a transaction and applies mutate to
// the stored state, so guards always run against the current row rather
// than a cached copy. A non-nil history row returned by mutate is appended
// in the same transaction.
func (r *GormRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, mutate func(*models.Order) (*models.OrderStatusHistory, error)) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}

		history, err := mutate(&order)
		if err != nil {
			return err
		}

		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		if history != nil {
			history.OrderID = order.ID
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	if err := r.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
