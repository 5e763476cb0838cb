package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/export"
	"github.com/Skotchmaster/evocart/internal/order"
	"github.com/Skotchmaster/evocart/internal/util"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

type OrderHTTP struct {
	Svc *order.Service
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.begin")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("checkout_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	o, err := h.Svc.BeginCheckout(ctx, userID)
	if err != nil {
		return checkoutError(l, err)
	}

	l.Info("checkout_success", "order_id", o.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order_id": o.ID, "order": o})
}

func checkoutError(l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		l.Warn("checkout_error", "status", 400, "reason", "empty cart", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Your cart is empty.")
	case errors.Is(err, domain.ErrConflict):
		l.Warn("checkout_error", "status", 409, "reason", "checkout raced a settled order", "error", err)
		return echo.NewHTTPError(http.StatusConflict, "Your checkout changed while it was being placed. Please try again.")
	}
	l.Error("checkout_error", "status", 500, "reason", "cannot create order", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Could not place your order. Please try again.")
}

func (h *OrderHTTP) CompletePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.complete")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("payment_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		PaymentAction string `json:"payment_action" form:"payment_action"`
		OrderID       int64  `json:"order_id"       form:"order_id"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("payment_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID.")
	}
	if req.PaymentAction != "complete" {
		l.Warn("payment_error", "status", 400, "reason", "unsupported action", "action", req.PaymentAction)
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported payment action.")
	}
	if req.OrderID <= 0 {
		l.Warn("payment_error", "status", 400, "reason", "invalid order id")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID.")
	}

	id := uint(req.OrderID)
	o, err := h.Svc.CompletePayment(ctx, userID, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			l.Warn("payment_error", "status", 403, "order_id", id, "error", err)
			return echo.NewHTTPError(http.StatusForbidden, "This order does not belong to you.")
		case errors.Is(err, domain.ErrNotFound):
			l.Warn("payment_error", "status", 404, "order_id", id)
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Order #%d not found.", id))
		case errors.Is(err, domain.ErrConflict):
			l.Warn("payment_error", "status", 409, "order_id", id, "error", err)
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("Order #%d is not awaiting payment.", id))
		}
		l.Error("payment_error", "status", 500, "order_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Payment could not be recorded.")
	}

	l.Info("payment_success", "order_id", o.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"redirect": fmt.Sprintf("/api/v1/order-status?order_id=%d", o.ID),
	})
}

func (h *OrderHTTP) OrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.status")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("order_status_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	views, err := h.Svc.ListForUser(ctx, userID)
	if err != nil {
		l.Error("order_status_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load orders")
	}

	return c.JSON(http.StatusOK, echo.Map{"orders": views})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		l.Warn("get_order_error", "status", 400, "reason", "invalid id")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID.")
	}

	var v *order.View
	if isAdmin(c) {
		v, err = h.Svc.AdminDetail(ctx, id)
	} else {
		v, err = h.Svc.Detail(ctx, userID, id)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			l.Warn("get_order_error", "status", 404, "order_id", id)
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Order #%d not found.", id))
		case errors.Is(err, domain.ErrForbidden):
			l.Warn("get_order_error", "status", 403, "order_id", id)
			return echo.NewHTTPError(http.StatusForbidden, "This order does not belong to you.")
		}
		l.Error("get_order_error", "status", 500, "order_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order")
	}

	return c.JSON(http.StatusOK, v)
}

func (h *OrderHTTP) AdminSetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.order_status")

	var req struct {
		OrderID   int64  `json:"order_id"   form:"order_id"`
		NewStatus string `json:"new_status" form:"new_status"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID <= 0 {
		l.Warn("order_status_update_error", "status", 400, "reason", "invalid order id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID.")
	}

	id := uint(req.OrderID)
	status := strings.TrimSpace(req.NewStatus)
	if _, err := h.Svc.AdminSetStatus(ctx, id, status); err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			l.Warn("order_status_update_error", "status", 400, "reason", "invalid status", "new_status", status)
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid order status provided.")
		case errors.Is(err, domain.ErrNotFound):
			l.Warn("order_status_update_error", "status", 404, "order_id", id)
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Order #%d not found.", id))
		case errors.Is(err, domain.ErrConflict):
			l.Info("order_status_update_noop", "status", 409, "order_id", id, "new_status", status)
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("Order #%d already has status '%s'.", id, status))
		}
		l.Error("order_status_update_error", "status", 500, "order_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error occurred during update.")
	}

	l.Info("order_status_update_success", "order_id", id, "new_status", status)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("Order #%d status successfully updated to '%s'.", id, status),
		"data":    echo.Map{"order_id": id, "new_status": status},
	})
}

func (h *OrderHTTP) AdminListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, rows, err := h.Svc.ListAll(ctx, offset, limit)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": rows,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *OrderHTTP) ExportOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.export_orders")

	_, rows, err := h.Svc.ListAll(ctx, 0, 0)
	if err != nil {
		l.Error("export_orders_error", "status", 500, "reason", "cannot list orders", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot export orders")
	}

	var buf bytes.Buffer
	if err := export.Orders(&buf, rows); err != nil {
		l.Error("export_orders_error", "status", 500, "reason", "cannot write workbook", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot export orders")
	}

	l.Info("export_orders_success", "rows", len(rows))
	return attachment(c, "orders.xlsx", buf.Bytes())
}
