package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pickuporder/backend/internal/logging"
	"github.com/pickuporder/backend/internal/service"
	"github.com/pickuporder/backend/internal/transport"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create_session")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	sess, err := h.Svc.CreateSession(ctx, userID)
	if err != nil {
		l.Warn("create_session_error", "error", err)
		return httpError(err)
	}

	l.Info("create_session_success", "session_id", sess.ID)
	return c.JSON(http.StatusCreated, sess)
}

func (h *CheckoutHTTP) GetSession(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	sess, err := h.Svc.GetSession(ctx, userID, sessionID)
	if err != nil {
		logging.FromContext(ctx).Warn("get_session_error", "session_id", sessionID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *CheckoutHTTP) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.apply_coupon")

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.ApplyCoupon(ctx, userID, sessionID, req.Code)
	if err != nil {
		l.Warn("apply_coupon_error", "session_id", sessionID, "error", err)
		return httpError(err)
	}

	l.Info("apply_coupon_success", "session_id", sessionID, "code", sess.PromoCode)
	return c.JSON(http.StatusOK, sess)
}

func (h *CheckoutHTTP) RemoveCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	sess, err := h.Svc.RemoveCoupon(ctx, userID, sessionID)
	if err != nil {
		logging.FromContext(ctx).Warn("remove_coupon_error", "session_id", sessionID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}
