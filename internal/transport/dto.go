package transport

import "github.com/google/uuid"

type AddItemRequest struct {
	ProductID     uuid.UUID         `json:"product_id"`
	Quantity      int               `json:"quantity"`
	Customization map[string]string `json:"customization,omitempty"`
	AddOnIDs      []uuid.UUID       `json:"add_on_ids,omitempty"`
	Note          string            `json:"note,omitempty"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type SetAddressRequest struct {
	AddressID uuid.UUID `json:"address_id"`
}

type SetNotesRequest struct {
	Notes string `json:"notes"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type ConfirmCheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type AssignDriverRequest struct {
	DriverID uuid.UUID `json:"driver_id"`
}

const (
	IssueProductMissing     = "product_missing"
	IssueProductUnavailable = "product_unavailable"
	IssuePriceChanged       = "price_changed"
)

// CartIssue is a structured validation finding; price drift is a warning,
// the other kinds block checkout.
type CartIssue struct {
	ItemID        uuid.UUID `json:"item_id"`
	ProductID     uuid.UUID `json:"product_id"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	CurrentPrice  float64   `json:"current_price,omitempty"`
	CapturedPrice float64   `json:"captured_price,omitempty"`
}

func (i CartIssue) Blocking() bool {
	return i.Kind != IssuePriceChanged
}

type CartValidation struct {
	IsValid bool        `json:"is_valid"`
	Issues  []CartIssue `json:"issues"`
}
