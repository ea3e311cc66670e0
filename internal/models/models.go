package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CartStatusActive     = "active"
	CartStatusCheckedOut = "checked_out"
)

type Store struct {
	ID       uuid.UUID `gorm:"primaryKey"   json:"id"`
	Name     string    `gorm:"not null"     json:"name"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Store) TableName() string { return "stores" }

type Product struct {
	ID          uuid.UUID `gorm:"primaryKey"     json:"id"`
	StoreID     uuid.UUID `gorm:"index;not null" json:"store_id"`
	Name        string    `gorm:"not null"       json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Price       float64   `gorm:"not null"       json:"price"`
	IsAvailable bool      `gorm:"default:true"   json:"is_available"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string { return "products" }

// AddOn is an optional extra attached to a product; its price is folded
// into the captured unit price when the item is added to a cart.
type AddOn struct {
	ID        uuid.UUID `gorm:"primaryKey"     json:"id"`
	ProductID uuid.UUID `gorm:"index;not null" json:"product_id"`
	Name      string    `gorm:"not null"       json:"name"`
	Price     float64   `gorm:"not null"       json:"price"`
}

func (a *AddOn) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (AddOn) TableName() string { return "add_ons" }

type Address struct {
	ID     uuid.UUID `gorm:"primaryKey"     json:"id"`
	UserID uuid.UUID `gorm:"index;not null" json:"user_id"`
	Label  string    `json:"label"`
	Street string    `gorm:"not null"       json:"street"`
	City   string    `gorm:"not null"       json:"city"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (Address) TableName() string { return "addresses" }

// Cart is the single mutable aggregate per user. The partial unique index
// on user_id holds at most one active cart; checked-out carts stay as
// history.
type Cart struct {
	ID          uuid.UUID  `gorm:"primaryKey"                                                    json:"id"`
	UserID      uuid.UUID  `gorm:"not null;uniqueIndex:idx_active_cart,where:status = 'active'" json:"user_id"`
	StoreID     uuid.UUID  `gorm:"index;not null"                                               json:"store_id"`
	Subtotal    float64    `gorm:"not null;default:0"                                           json:"subtotal"`
	Discount    float64    `gorm:"not null;default:0"                                           json:"discount"`
	Tax         float64    `gorm:"not null;default:0"                                           json:"tax"`
	DeliveryFee float64    `gorm:"not null;default:0"                                           json:"delivery_fee"`
	Total       float64    `gorm:"not null;default:0"                                           json:"total"`
	AddressID   *uuid.UUID `json:"address_id,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	PromoCode   string     `json:"promo_code,omitempty"`
	Status      string     `gorm:"not null;default:'active'"                                    json:"status"`
	ExpiresAt   time.Time  `gorm:"not null"                                                     json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Items []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID            uuid.UUID `gorm:"primaryKey"                 json:"id"`
	CartID        uuid.UUID `gorm:"index;not null"             json:"cart_id"`
	ProductID     uuid.UUID `gorm:"not null"                   json:"product_id"`
	Quantity      int       `gorm:"default:1;check:quantity>0" json:"quantity"`
	UnitPrice     float64   `gorm:"not null"                   json:"unit_price"`
	TotalPrice    float64   `gorm:"not null"                   json:"total_price"`
	Customization string    `json:"customization,omitempty"`
	AddOnIDs      string    `json:"add_on_ids,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string { return "cart_items" }

const (
	PromoTypePercentage = "percentage"
	PromoTypeFixed      = "fixed"
)

type PromoCode struct {
	ID             uuid.UUID `gorm:"primaryKey"           json:"id"`
	Code           string    `gorm:"uniqueIndex;not null" json:"code"`
	Type           string    `gorm:"not null"             json:"type"`
	Value          float64   `gorm:"not null"             json:"value"`
	MaxDiscount    float64   `json:"max_discount"`
	MinOrderAmount float64   `json:"min_order_amount"`
	UsageLimit     int       `json:"usage_limit"`
	PerUserLimit   int       `json:"per_user_limit"`
	UsedCount      int       `gorm:"not null;default:0"   json:"used_count"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	IsActive       bool      `gorm:"default:true"         json:"is_active"`
}

func (p *PromoCode) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (PromoCode) TableName() string { return "promo_codes" }

// PromoCodeUsage records one successful redemption; per-user caps are
// counted against these rows.
type PromoCodeUsage struct {
	ID          uuid.UUID `gorm:"primaryKey"     json:"id"`
	PromoCodeID uuid.UUID `gorm:"index;not null" json:"promo_code_id"`
	UserID      uuid.UUID `gorm:"index;not null" json:"user_id"`
	OrderID     uuid.UUID `gorm:"not null"       json:"order_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *PromoCodeUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (PromoCodeUsage) TableName() string { return "promo_code_usages" }
