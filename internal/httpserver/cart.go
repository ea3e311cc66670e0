package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pickuporder/backend/internal/logging"
	"github.com/pickuporder/backend/internal/service"
	"github.com/pickuporder/backend/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	cart, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Warn("get_cart_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cart, err := h.Svc.AddItem(ctx, userID, req)
	if err != nil {
		l.Warn("add_item_error", "error", err)
		return httpError(err)
	}

	l.Info("add_item_success", "cart_id", cart.ID, "product_id", req.ProductID)
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) UpdateItemQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}

	var req transport.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cart, err := h.Svc.UpdateItemQuantity(ctx, userID, itemID, req.Quantity)
	if err != nil {
		l.Warn("update_quantity_error", "item_id", itemID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}

	cart, err := h.Svc.RemoveItem(ctx, userID, itemID)
	if err != nil {
		l.Warn("remove_item_error", "item_id", itemID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.ClearCart(ctx, userID); err != nil {
		logging.FromContext(ctx).Warn("clear_cart_error", "error", err)
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) ValidateCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	report, err := h.Svc.ValidateCart(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Warn("validate_cart_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *CartHTTP) SetAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_address")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req transport.SetAddressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cart, err := h.Svc.SetDeliveryAddress(ctx, userID, req.AddressID)
	if err != nil {
		l.Warn("set_address_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) SetNotes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_notes")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req transport.SetNotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cart, err := h.Svc.SetNotes(ctx, userID, req.Notes)
	if err != nil {
		l.Warn("set_notes_error", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func parseIntQuery(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
