// Package pricing computes cart and session totals. It is pure arithmetic:
// no I/O, no rounding. Money stays at full float precision through the
// pipeline; rounding to currency precision is a presentation concern.
package pricing

// TaxRate is the flat tax applied to the discounted subtotal.
const TaxRate = 0.10

type LineItem struct {
	UnitPrice float64
	Quantity  int
}

func (l LineItem) Total() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"delivery_fee"`
	Total       float64 `json:"total"`
}

// Compute derives totals from the line items and an already-validated
// discount. The discount is clamped so the discounted subtotal never goes
// negative; the delivery fee applies only to non-empty carts.
func Compute(items []LineItem, discount, taxRate, baseDeliveryFee float64) Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Total()
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	discounted := subtotal - discount
	tax := discounted * taxRate

	var fee float64
	if subtotal > 0 {
		fee = baseDeliveryFee
	}

	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       discounted + tax + fee,
	}
}
