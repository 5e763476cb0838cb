package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/evocart/internal/cart"
	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

const (
	cartPath     = "/api/v1/cart"
	checkoutPath = "/api/v1/checkout"
)

type CartHTTP struct {
	Svc *cart.Service
}

// A missing quantity binds as zero: add and buy-now treat it as one, update
// treats it as removal.
type cartRequest struct {
	ProductID int64 `json:"product_id" form:"product_id"`
	Quantity  int   `json:"quantity"   form:"quantity"`
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("get_cart_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	res, err := h.Svc.Reconcile(ctx, userID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "reason", "cannot reconcile cart", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}

	l.Info("get_cart_success")
	return c.JSON(http.StatusOK, res)
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, req, err := h.read(c)
	if err != nil {
		l.Warn("add_cart_error", "error", err)
		return err
	}

	count, err := h.Svc.Add(ctx, userID, uint(req.ProductID), req.Quantity)
	if err != nil {
		return h.fail(c, "add_cart_error", err)
	}

	l.Info("add_cart_success", "product_id", req.ProductID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart_count": count})
}

func (h *CartHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")

	userID, req, err := h.read(c)
	if err != nil {
		l.Warn("update_cart_error", "error", err)
		return err
	}
	if _, err := h.Svc.SetQuantity(ctx, userID, uint(req.ProductID), req.Quantity); err != nil {
		return h.fail(c, "update_cart_error", err)
	}

	l.Info("update_cart_success", "product_id", req.ProductID)
	return c.Redirect(http.StatusSeeOther, cartPath)
}

func (h *CartHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, req, err := h.read(c)
	if err != nil {
		l.Warn("remove_cart_error", "error", err)
		return err
	}

	if _, err := h.Svc.Remove(ctx, userID, uint(req.ProductID)); err != nil {
		return h.fail(c, "remove_cart_error", err)
	}

	l.Info("remove_cart_success", "product_id", req.ProductID)
	return c.Redirect(http.StatusSeeOther, cartPath)
}

func (h *CartHTTP) BuyNow(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.buy_now")

	userID, req, err := h.read(c)
	if err != nil {
		l.Warn("buy_now_error", "error", err)
		return err
	}

	if err := h.Svc.BuyNow(ctx, userID, uint(req.ProductID), req.Quantity); err != nil {
		return h.fail(c, "buy_now_error", err)
	}

	l.Info("buy_now_success", "product_id", req.ProductID)
	return c.Redirect(http.StatusSeeOther, checkoutPath)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("clear_cart_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.Clear(ctx, userID); err != nil {
		l.Error("clear_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot clear cart")
	}

	l.Info("clear_cart_success")
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) read(c echo.Context) (uint, cartRequest, error) {
	var req cartRequest

	userID, err := GetID(c)
	if err != nil {
		return 0, req, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := c.Bind(&req); err != nil {
		return 0, req, echo.NewHTTPError(http.StatusBadRequest, "product_id and quantity must be integers")
	}
	if req.ProductID <= 0 {
		return 0, req, echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	return userID, req, nil
}

func (h *CartHTTP) fail(c echo.Context, op string, err error) error {
	l := logging.FromContext(c.Request().Context())
	switch {
	case errors.Is(err, domain.ErrValidation):
		l.Warn(op, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cart request")
	case errors.Is(err, domain.ErrNotFound):
		l.Warn(op, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	l.Error(op, "status", 500, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
}
