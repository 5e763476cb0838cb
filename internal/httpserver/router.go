package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/evocart/internal/notify"
	middleware "github.com/Skotchmaster/evocart/pkg/middleware/auth"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

type Deps struct {
	Auth    *AuthHTTP
	Catalog *CatalogHTTP
	Cart    *CartHTTP
	Orders  *OrderHTTP
	Users   *UsersHTTP

	AuthMW *middleware.AutoRefreshMiddleware
	Hub    *notify.Hub

	// Ready checks run on /health/ready; the first failure answers 503.
	Ready []func(context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx := c.Request().Context()
		for _, check := range d.Ready {
			if err := check(ctx); err != nil {
				logging.FromContext(ctx).Warn("readiness_failed", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.Auth.Register)
	v1.POST("/login", d.Auth.Login)
	v1.POST("/refresh", d.Auth.Refresh)
	v1.POST("/logout", d.Auth.Logout)

	v1.GET("/products", d.Catalog.GetProducts)
	v1.GET("/products/:id", d.Catalog.GetProduct)
	v1.GET("/search", d.Catalog.SearchProducts)

	user := v1.Group("", d.AuthMW.RequireAuth)

	user.GET("/cart", d.Cart.GetCart)
	user.POST("/cart/add", d.Cart.Add)
	user.POST("/cart/update", d.Cart.Update)
	user.POST("/cart/remove", d.Cart.Remove)
	user.POST("/cart/buy-now", d.Cart.BuyNow)
	user.DELETE("/cart", d.Cart.Clear)

	user.GET("/checkout", d.Orders.Checkout)
	user.POST("/checkout", d.Orders.CompletePayment)
	user.GET("/order-status", d.Orders.OrderStatus)
	user.GET("/orders/:id", d.Orders.GetOrder)

	admin := v1.Group("/admin", d.AuthMW.RequireAdmin)

	admin.POST("/order-status", d.Orders.AdminSetStatus)
	admin.GET("/orders", d.Orders.AdminListOrders)
	admin.GET("/orders/export", d.Orders.ExportOrders)

	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PUT("/products/:id", d.Catalog.UpdateProduct)
	admin.DELETE("/products/:id", d.Catalog.DeleteProduct)
	admin.GET("/products/export", d.Catalog.ExportProducts)

	admin.GET("/users", d.Users.List)
	admin.POST("/users", d.Users.Create)
	admin.PATCH("/users/:id/email", d.Users.UpdateEmail)
	admin.DELETE("/users/:id", d.Users.Delete)

	if d.Hub != nil {
		admin.GET("/ws/orders", echo.WrapHandler(http.HandlerFunc(d.Hub.ServeWS)))
	}
}
