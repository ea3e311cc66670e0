package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pickuporder/backend/internal/logging"
	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/service"
	"github.com/pickuporder/backend/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) ConfirmCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.confirm_checkout")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.ConfirmCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.ConfirmCheckout(ctx, userID, sessionID, req.PaymentMethod)
	if err != nil {
		l.Warn("confirm_checkout_error", "session_id", sessionID, "error", err)
		return httpError(err)
	}

	l.Info("confirm_checkout_success", "order_id", order.ID, "total", order.Total)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, orderID, userID, getRole(c))
	if err != nil {
		logging.FromContext(ctx).Warn("get_order_error", "order_id", orderID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	orders, err := h.Svc.ListOrders(ctx, userID, limit, offset)
	if err != nil {
		logging.FromContext(ctx).Warn("list_orders_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.CancelOrder(ctx, orderID, userID, req.Reason)
	if err != nil {
		l.Warn("cancel_order_error", "order_id", orderID, "error", err)
		return httpError(err)
	}

	l.Info("cancel_order_success", "order_id", orderID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	actorID, err := getUserID(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, orderID, models.OrderStatus(req.Status), actorID.String(), req.Note)
	if err != nil {
		l.Warn("update_status_error", "order_id", orderID, "target", req.Status, "error", err)
		return httpError(err)
	}

	l.Info("update_status_success", "order_id", orderID, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) AssignDriver(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.assign_driver")

	if _, err := getUserID(c); err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.AssignDriverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.AssignDriver(ctx, orderID, req.DriverID)
	if err != nil {
		l.Warn("assign_driver_error", "order_id", orderID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) StatusHistory(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.Svc.StatusHistory(ctx, orderID, userID, getRole(c))
	if err != nil {
		logging.FromContext(ctx).Warn("status_history_error", "order_id", orderID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}
