package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/pricing"
	"github.com/pickuporder/backend/internal/repo"
	"github.com/pickuporder/backend/internal/transport"
)

// CartService owns the active cart and its items for a user. Every item
// mutation recomputes and persists the cached totals in the same write.
type CartService struct {
	Repo        *repo.GormRepo
	DeliveryFee float64
	CartTTL     time.Duration

	now func() time.Time
}

func NewCartService(r *repo.GormRepo, deliveryFee float64, cartTTL time.Duration) *CartService {
	return &CartService{
		Repo:        r,
		DeliveryFee: deliveryFee,
		CartTTL:     cartTTL,
		now:         time.Now,
	}
}

// GetCart returns the user's active cart, or an empty-cart shape when none
// exists. Reads never create a cart.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadActiveCart(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &models.Cart{
			UserID: userID,
			Status: models.CartStatusActive,
			Items:  []models.CartItem{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req transport.AddItemRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	product, err := s.Repo.GetProduct(ctx, req.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, fmt.Errorf("%w: product is not available", ErrValidation)
	}

	store, err := s.Repo.GetStore(ctx, product.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.IsActive {
		return nil, fmt.Errorf("%w: store is not active", ErrValidation)
	}

	unitPrice := product.Price
	var addOnIDs string
	if len(req.AddOnIDs) > 0 {
		addOns, err := s.Repo.GetAddOns(ctx, product.ID, req.AddOnIDs)
		if err != nil {
			return nil, err
		}
		if len(addOns) != len(req.AddOnIDs) {
			return nil, fmt.Errorf("%w: unknown add-on for product", ErrValidation)
		}
		for _, a := range addOns {
			unitPrice += a.Price
		}
		addOnIDs, err = marshalJSON(req.AddOnIDs)
		if err != nil {
			return nil, err
		}
	}

	var customization string
	if len(req.Customization) > 0 {
		customization, err = marshalJSON(req.Customization)
		if err != nil {
			return nil, err
		}
	}

	item := models.CartItem{
		ProductID:     product.ID,
		Quantity:      req.Quantity,
		UnitPrice:     unitPrice,
		TotalPrice:    unitPrice * float64(req.Quantity),
		Customization: customization,
		AddOnIDs:      addOnIDs,
		Note:          req.Note,
	}

	cart, err := s.loadActiveCart(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return s.createCart(ctx, userID, product.StoreID, item)
	}
	if err != nil {
		return nil, err
	}

	if cart.StoreID != product.StoreID {
		return nil, fmt.Errorf("%w: cart holds items from another store, clear it first", ErrConflict)
	}

	item.CartID = cart.ID
	lines := cartLines(append(cart.Items, item))
	totals := pricing.Compute(lines, cart.Discount, pricing.TaxRate, s.DeliveryFee)

	if err := s.Repo.SaveItemWithTotals(ctx, cart.ID, &item, totals); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, cart.ID)
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	cart, item, err := s.resolveItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.Repo.GetProduct(ctx, item.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product no longer exists", ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, fmt.Errorf("%w: product is no longer available", ErrValidation)
	}

	item.Quantity = quantity
	item.TotalPrice = item.UnitPrice * float64(quantity)

	lines := make([]pricing.LineItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.ID == item.ID {
			it = *item
		}
		lines = append(lines, pricing.LineItem{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	totals := pricing.Compute(lines, cart.Discount, pricing.TaxRate, s.DeliveryFee)

	if err := s.Repo.SaveItemWithTotals(ctx, cart.ID, item, totals); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, cart.ID)
}

// RemoveItem drops one line; removing the last line deletes the cart, since
// empty carts are never retained.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, item, err := s.resolveItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	remaining := make([]models.CartItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.ID != item.ID {
			remaining = append(remaining, it)
		}
	}

	lastItem := len(remaining) == 0
	totals := pricing.Compute(cartLines(remaining), cart.Discount, pricing.TaxRate, s.DeliveryFee)

	if err := s.Repo.RemoveItemWithTotals(ctx, cart.ID, item.ID, totals, lastItem); err != nil {
		return nil, err
	}
	if lastItem {
		return &models.Cart{
			UserID: userID,
			Status: models.CartStatusActive,
			Items:  []models.CartItem{},
		}, nil
	}
	return s.Repo.GetCart(ctx, cart.ID)
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.loadActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Repo.DeleteCart(ctx, cart.ID)
}

// ValidateCart reports availability and price-drift findings without
// touching the cart. Price drift is a warning; the rest block checkout.
func (s *CartService) ValidateCart(ctx context.Context, userID uuid.UUID) (*transport.CartValidation, error) {
	cart, err := s.loadActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	issues, err := s.validateItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	valid := true
	for _, issue := range issues {
		if issue.Blocking() {
			valid = false
			break
		}
	}
	return &transport.CartValidation{IsValid: valid, Issues: issues}, nil
}

func (s *CartService) SetNotes(ctx context.Context, userID uuid.UUID, notes string) (*models.Cart, error) {
	cart, err := s.loadActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetCartNotes(ctx, cart.ID, notes); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, cart.ID)
}

func (s *CartService) SetDeliveryAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetAddress(ctx, addressID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: address does not exist", ErrNotFound)
		}
		return nil, err
	}

	if err := s.Repo.SetCartAddress(ctx, cart.ID, addressID); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, cart.ID)
}

// loadActiveCart applies lazy expiry: a cart past its TTL is removed and
// reported as absent.
func (s *CartService) loadActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetActiveCart(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no active cart", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if s.now().After(cart.ExpiresAt) {
		if err := s.Repo.DeleteCart(ctx, cart.ID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no active cart", ErrNotFound)
	}
	return cart, nil
}

func (s *CartService) createCart(ctx context.Context, userID, storeID uuid.UUID, item models.CartItem) (*models.Cart, error) {
	totals := pricing.Compute(cartLines([]models.CartItem{item}), 0, pricing.TaxRate, s.DeliveryFee)
	cart := &models.Cart{
		UserID:      userID,
		StoreID:     storeID,
		Subtotal:    totals.Subtotal,
		Discount:    totals.Discount,
		Tax:         totals.Tax,
		DeliveryFee: totals.DeliveryFee,
		Total:       totals.Total,
		Status:      models.CartStatusActive,
		ExpiresAt:   s.now().Add(s.CartTTL),
		Items:       []models.CartItem{item},
	}

	if err := s.Repo.CreateCartWithItem(ctx, cart); err != nil {
		if errors.Is(err, repo.ErrActiveCartExists) {
			return nil, fmt.Errorf("%w: cart was created concurrently, retry", ErrConflict)
		}
		return nil, err
	}
	return s.Repo.GetCart(ctx, cart.ID)
}

func (s *CartService) resolveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	item, err := s.Repo.GetCartItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: cart item does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	cart, err := s.Repo.GetCart(ctx, item.CartID)
	if err != nil {
		return nil, nil, err
	}
	if cart.UserID != userID {
		return nil, nil, fmt.Errorf("%w: cart belongs to another user", ErrForbidden)
	}
	if cart.Status != models.CartStatusActive {
		return nil, nil, fmt.Errorf("%w: cart is no longer active", ErrConflict)
	}
	return cart, item, nil
}

func (s *CartService) validateItems(ctx context.Context, items []models.CartItem) ([]transport.CartIssue, error) {
	var issues []transport.CartIssue
	for _, it := range items {
		product, err := s.Repo.GetProduct(ctx, it.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			issues = append(issues, transport.CartIssue{
				ItemID:    it.ID,
				ProductID: it.ProductID,
				Kind:      transport.IssueProductMissing,
				Message:   "product no longer exists",
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		if !product.IsAvailable {
			issues = append(issues, transport.CartIssue{
				ItemID:    it.ID,
				ProductID: it.ProductID,
				Kind:      transport.IssueProductUnavailable,
				Message:   "product is currently unavailable",
			})
			continue
		}

		current, err := s.currentUnitPrice(ctx, product, it)
		if err != nil {
			return nil, err
		}
		if current != it.UnitPrice {
			issues = append(issues, transport.CartIssue{
				ItemID:        it.ID,
				ProductID:     it.ProductID,
				Kind:          transport.IssuePriceChanged,
				Message:       "price changed since the item was added",
				CurrentPrice:  current,
				CapturedPrice: it.UnitPrice,
			})
		}
	}
	return issues, nil
}

// currentUnitPrice rebuilds the price the item would capture today: base
// product price plus the item's selected add-ons at their current prices.
func (s *CartService) currentUnitPrice(ctx context.Context, product *models.Product, item models.CartItem) (float64, error) {
	price := product.Price
	if item.AddOnIDs == "" {
		return price, nil
	}

	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(item.AddOnIDs), &ids); err != nil {
		return 0, fmt.Errorf("decode add-on ids: %w", err)
	}
	addOns, err := s.Repo.GetAddOns(ctx, product.ID, ids)
	if err != nil {
		return 0, err
	}
	for _, a := range addOns {
		price += a.Price
	}
	return price, nil
}

func cartLines(items []models.CartItem) []pricing.LineItem {
	lines := make([]pricing.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.LineItem{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return string(data), nil
}
