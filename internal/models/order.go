package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

const (
	PaymentStatusPending       = "pending"
	PaymentStatusPaid          = "paid"
	PaymentStatusRefundPending = "refund_pending"
	PaymentStatusRefunded      = "refunded"
)

// validTransitions is the full order state machine; terminal states map to
// an empty slice.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:          {OrderStatusPickedUp, OrderStatusCancelled},
	OrderStatusPickedUp:       {OrderStatusCompleted},
	OrderStatusCompleted:      {},
	OrderStatusCancelled:      {},
}

func (s OrderStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Order is created once per confirmed checkout. Its pricing columns are a
// frozen copy of the checkout session and never change afterwards.
type Order struct {
	ID            uuid.UUID   `gorm:"primaryKey"         json:"id"`
	UserID        uuid.UUID   `gorm:"index;not null"     json:"user_id"`
	StoreID       uuid.UUID   `gorm:"index;not null"     json:"store_id"`
	Status        OrderStatus `gorm:"not null"           json:"status"`
	PaymentStatus string      `gorm:"not null"           json:"payment_status"`
	PaymentMethod string      `gorm:"not null"           json:"payment_method"`
	Subtotal      float64     `gorm:"not null"           json:"subtotal"`
	Discount      float64     `gorm:"not null;default:0" json:"discount"`
	Tax           float64     `gorm:"not null"           json:"tax"`
	DeliveryFee   float64     `gorm:"not null"           json:"delivery_fee"`
	Total         float64     `gorm:"not null"           json:"total"`
	AddressID     *uuid.UUID  `json:"address_id,omitempty"`
	PromoCode     string      `json:"promo_code,omitempty"`
	DriverID      *uuid.UUID  `json:"driver_id,omitempty"`
	CancelReason  string      `json:"cancel_reason,omitempty"`
	CancelledBy   string      `json:"cancelled_by,omitempty"`
	RefundAmount  float64     `json:"refund_amount,omitempty"`
	AdminNotes    string      `json:"-"`
	ReadyAt       *time.Time  `json:"ready_at,omitempty"`
	PickedUpAt    *time.Time  `json:"picked_up_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots a cart item at confirmation time. Product name and
// image are copied by value so later catalog edits never touch history.
type OrderItem struct {
	ID            uuid.UUID `gorm:"primaryKey"     json:"id"`
	OrderID       uuid.UUID `gorm:"index;not null" json:"order_id"`
	ProductID     uuid.UUID `gorm:"not null"       json:"product_id"`
	ProductName   string    `gorm:"not null"       json:"product_name"`
	ProductImage  string    `json:"product_image"`
	Quantity      int       `gorm:"not null"       json:"quantity"`
	UnitPrice     float64   `gorm:"not null"       json:"unit_price"`
	TotalPrice    float64   `gorm:"not null"       json:"total_price"`
	Customization string    `json:"customization,omitempty"`
	AddOnIDs      string    `json:"add_on_ids,omitempty"`
	Note          string    `json:"note,omitempty"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (OrderItem) TableName() string { return "order_items" }

// OrderStatusHistory is append-only; one row per accepted transition.
type OrderStatusHistory struct {
	ID        uuid.UUID   `gorm:"primaryKey"     json:"id"`
	OrderID   uuid.UUID   `gorm:"index;not null" json:"order_id"`
	Status    OrderStatus `gorm:"not null"       json:"status"`
	ActorID   string      `json:"actor_id"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
