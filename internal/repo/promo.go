package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/pickuporder/backend/internal/models"
)

func (r *GormRepo) GetPromoByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.DB.WithContext(ctx).
		First(&promo, "code = ? AND is_active = ?", code, true).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *GormRepo) CountUserRedemptions(ctx context.Context, promoID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND user_id = ?", promoID, userID).
		Count(&count).Error
	return count, err
}
