package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/logging"
	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/notify"
	"github.com/pickuporder/backend/internal/repo"
	"github.com/pickuporder/backend/internal/session"
)

const (
	actorCustomer = "customer"
	RoleAdmin     = "admin"
)

// OrderService turns checkout sessions into persisted orders and drives the
// order status machine. Order creation is the one place with a true
// atomicity guarantee; status changes are always checked against the
// stored row at write time.
type OrderService struct {
	Repo         *repo.GormRepo
	Checkout     *CheckoutService
	Sessions     session.Store
	Producer     *notify.Producer
	CancelWindow time.Duration

	now func() time.Time
}

func NewOrderService(r *repo.GormRepo, checkout *CheckoutService, sessions session.Store, producer *notify.Producer, cancelWindow time.Duration) *OrderService {
	return &OrderService{
		Repo:         r,
		Checkout:     checkout,
		Sessions:     sessions,
		Producer:     producer,
		CancelWindow: cancelWindow,
		now:          time.Now,
	}
}

// ConfirmCheckout converts a live session into an Order with the session's
// frozen pricing. Order, order items, the initial history row and the cart
// flip commit or roll back together; the session is discarded on success.
func (s *OrderService) ConfirmCheckout(ctx context.Context, userID, sessionID uuid.UUID, paymentMethod string) (*models.Order, error) {
	if paymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
	}

	sess, err := s.Checkout.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	cart, err := s.Repo.GetCart(ctx, sess.CartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: cart no longer exists", ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	if cart.Status != models.CartStatusActive {
		return nil, fmt.Errorf("%w: cart was already checked out", ErrConflict)
	}

	items := make([]models.OrderItem, 0, len(sess.Items))
	for _, it := range sess.Items {
		items = append(items, models.OrderItem{
			ProductID:     it.ProductID,
			ProductName:   it.ProductName,
			ProductImage:  it.ProductImage,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
			Customization: it.Customization,
			AddOnIDs:      it.AddOnIDs,
			Note:          it.Note,
		})
	}

	addressID := sess.AddressID
	order := &models.Order{
		UserID:        userID,
		StoreID:       sess.StoreID,
		Status:        models.OrderStatusPendingPayment,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: paymentMethod,
		Subtotal:      sess.Totals.Subtotal,
		Discount:      sess.Totals.Discount,
		Tax:           sess.Totals.Tax,
		DeliveryFee:   sess.Totals.DeliveryFee,
		Total:         sess.Totals.Total,
		AddressID:     &addressID,
		PromoCode:     sess.PromoCode,
		Items:         items,
	}

	if err := s.Repo.CreateOrder(ctx, order, sess.CartID, sess.PromoCodeID); err != nil {
		if errors.Is(err, repo.ErrCartNotActive) {
			return nil, fmt.Errorf("%w: cart was already checked out", ErrConflict)
		}
		return nil, err
	}

	if err := s.Sessions.Delete(ctx, sess.ID); err != nil {
		logging.FromContext(ctx).Warn("session cleanup after confirm failed", "session_id", sess.ID, "error", err)
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  order.UserID,
		"store_id": order.StoreID,
		"total":    order.Total,
	})
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID, role string) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if role != RoleAdmin && order.UserID != userID {
		return nil, fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListOrders(ctx, userID, limit, offset)
}

// UpdateStatus applies one transition from the state machine, stamps the
// per-target timestamp and appends a history row, all against the current
// stored status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus, actorID, note string) (*models.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrValidation, target)
	}

	order, err := s.Repo.UpdateOrder(ctx, orderID, func(o *models.Order) (*models.OrderStatusHistory, error) {
		if !o.Status.CanTransitionTo(target) {
			return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrConflict, o.Status, target)
		}

		now := s.now()
		o.Status = target
		switch target {
		case models.OrderStatusReady:
			o.ReadyAt = &now
		case models.OrderStatusPickedUp:
			o.PickedUpAt = &now
		case models.OrderStatusCompleted:
			o.CompletedAt = &now
		case models.OrderStatusCancelled:
			o.CancelledAt = &now
			o.CancelledBy = actorID
		}

		return &models.OrderStatusHistory{Status: target, ActorID: actorID, Note: note}, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":     "order_status_changed",
		"order_id": order.ID,
		"status":   order.Status,
		"actor_id": actorID,
	})
	return order, nil
}

// CancelOrder handles customer-initiated cancellation: only within the
// cancellation window from creation, and only while the state machine still
// permits it. A paid order gets its refund marked pending.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.Repo.UpdateOrder(ctx, orderID, func(o *models.Order) (*models.OrderStatusHistory, error) {
		if o.UserID != userID {
			return nil, fmt.Errorf("%w: order belongs to another user", ErrForbidden)
		}
		if !o.Status.CanTransitionTo(models.OrderStatusCancelled) {
			return nil, fmt.Errorf("%w: order can no longer be cancelled", ErrConflict)
		}
		if s.now().Sub(o.CreatedAt) > s.CancelWindow {
			return nil, fmt.Errorf("%w: cancellation window has passed", ErrConflict)
		}

		now := s.now()
		o.Status = models.OrderStatusCancelled
		o.CancelledAt = &now
		o.CancelledBy = actorCustomer
		o.CancelReason = reason
		if o.PaymentStatus == models.PaymentStatusPaid {
			o.PaymentStatus = models.PaymentStatusRefundPending
			o.RefundAmount = o.Total
		}

		return &models.OrderStatusHistory{
			Status:  models.OrderStatusCancelled,
			ActorID: userID.String(),
			Note:    reason,
		}, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":     "order_cancelled",
		"order_id": order.ID,
		"reason":   reason,
	})
	return order, nil
}

// AssignDriver is only valid while the kitchen still has the order.
func (s *OrderService) AssignDriver(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.UpdateOrder(ctx, orderID, func(o *models.Order) (*models.OrderStatusHistory, error) {
		switch o.Status {
		case models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady:
		default:
			return nil, fmt.Errorf("%w: cannot assign driver while order is %s", ErrConflict, o.Status)
		}
		o.DriverID = &driverID
		return nil, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order does not exist", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":      "driver_assigned",
		"order_id":  order.ID,
		"driver_id": driverID,
	})
	return order, nil
}

func (s *OrderService) StatusHistory(ctx context.Context, orderID, userID uuid.UUID, role string) ([]models.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, orderID, userID, role); err != nil {
		return nil, err
	}
	return s.Repo.ListStatusHistory(ctx, orderID)
}

// publish is fire-and-forget: a broker outage must never fail the request.
func (s *OrderService) publish(ctx context.Context, key string, event map[string]any) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.Publish(ctx, key, event); err != nil {
		logging.FromContext(ctx).Warn("order event publish failed", "key", key, "error", err)
	}
}
