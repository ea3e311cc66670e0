package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pickuporder/backend/internal/middleware/auth"
)

type Deps struct {
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP
	OrderHandler    *OrderHTTP
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := auth.New(d.JWTSecret)

	v1 := e.Group("/api/v1", authMW.RequireLogin)

	cart := v1.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PATCH("/items/:itemId", d.CartHandler.UpdateItemQuantity)
	cart.DELETE("/items/:itemId", d.CartHandler.RemoveItem)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.GET("/validate", d.CartHandler.ValidateCart)
	cart.PUT("/address", d.CartHandler.SetAddress)
	cart.PUT("/notes", d.CartHandler.SetNotes)

	checkout := v1.Group("/checkout/session")
	checkout.POST("", d.CheckoutHandler.CreateSession)
	checkout.GET("/:id", d.CheckoutHandler.GetSession)
	checkout.POST("/:id/coupon", d.CheckoutHandler.ApplyCoupon)
	checkout.DELETE("/:id/coupon", d.CheckoutHandler.RemoveCoupon)
	checkout.POST("/:id/confirm", d.OrderHandler.ConfirmCheckout)

	orders := v1.Group("/orders")
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.GET("/:id/history", d.OrderHandler.StatusHistory)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)

	admin := orders.Group("", authMW.RequireAdmin)
	admin.PATCH("/:id/status", d.OrderHandler.UpdateStatus)
	admin.POST("/:id/driver", d.OrderHandler.AssignDriver)
}
