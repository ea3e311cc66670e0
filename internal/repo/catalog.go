package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/pickuporder/backend/internal/models"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var s models.Store
	if err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetAddOns loads the requested add-ons of one product. Unknown IDs are
// simply absent from the result; the caller decides whether that matters.
func (r *GormRepo) GetAddOns(ctx context.Context, productID uuid.UUID, ids []uuid.UUID) ([]models.AddOn, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var addOns []models.AddOn
	if err := r.DB.WithContext(ctx).
		Where("product_id = ? AND id IN ?", productID, ids).
		Find(&addOns).Error; err != nil {
		return nil, err
	}
	return addOns, nil
}

func (r *GormRepo) GetAddress(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var a models.Address
	if err := r.DB.WithContext(ctx).
		First(&a, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
