package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/user"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

type UsersHTTP struct {
	Svc *user.Service
}

func (h *UsersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	users, err := h.Svc.List(ctx)
	if err != nil {
		l.Error("list_users_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list users")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users})
}

func (h *UsersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_user")

	var req struct {
		user.Input
		Role string `json:"role" form:"role"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("create_user_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Svc.Create(ctx, req.Input, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			l.Warn("create_user_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "Name, a valid email and a password of at least 6 characters are required.")
		case errors.Is(err, domain.ErrConflict):
			l.Warn("create_user_error", "status", 409, "reason", "email taken")
			return echo.NewHTTPError(http.StatusConflict, "Email already registered.")
		}
		l.Error("create_user_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create user")
	}

	l.Info("create_user_success", "user_id", u.ID, "role", u.Role)
	return c.JSON(http.StatusCreated, u)
}

func (h *UsersHTTP) UpdateEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_user_email")

	id, ok := paramID(c, "id")
	if !ok {
		l.Warn("update_email_error", "status", 400, "reason", "invalid id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_email_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Svc.UpdateEmail(ctx, id, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			l.Warn("update_email_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domain.ErrNotFound):
			l.Warn("update_email_error", "status", 404, "user_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		case errors.Is(err, domain.ErrConflict):
			l.Warn("update_email_error", "status", 409, "user_id", id)
			return echo.NewHTTPError(http.StatusConflict, "Email already registered.")
		}
		l.Error("update_email_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update user")
	}

	l.Info("update_email_success", "user_id", id)
	return c.JSON(http.StatusOK, u)
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_user")

	actorID, err := GetID(c)
	if err != nil {
		l.Warn("delete_user_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		l.Warn("delete_user_error", "status", 400, "reason", "invalid id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	if err := h.Svc.Delete(ctx, actorID, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			l.Warn("delete_user_error", "status", 403, "reason", "self delete", "user_id", id)
			return echo.NewHTTPError(http.StatusForbidden, "You cannot delete your own account.")
		case errors.Is(err, domain.ErrNotFound):
			l.Warn("delete_user_error", "status", 404, "user_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("delete_user_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete user")
	}

	l.Info("delete_user_success", "user_id", id)
	return c.NoContent(http.StatusNoContent)
}
