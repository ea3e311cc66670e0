package repo

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/models"
)

var (
	// ErrActiveCartExists is returned by CreateCartWithItem when the
	// check-then-create loses to a concurrent cart creation.
	ErrActiveCartExists = errors.New("active cart already exists")
	// ErrCartNotActive is returned by CreateOrder when the cart was
	// checked out or deleted between session creation and confirmation.
	ErrCartNotActive = errors.New("cart is not active")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) AutoMigrate() error {
	return r.DB.AutoMigrate(
		&models.Store{},
		&models.Product{},
		&models.AddOn{},
		&models.Address{},
		&models.Cart{},
		&models.CartItem{},
		&models.PromoCode{},
		&models.PromoCodeUsage{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	)
}
