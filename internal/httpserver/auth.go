package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/evocart/internal/auth"
	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/user"
	jwthelp "github.com/Skotchmaster/evocart/pkg/jwt"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

type AuthHTTP struct {
	Svc *auth.Service
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req user.Input
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Svc.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			l.Warn("register_error", "status", 400, "reason", "validation", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "Name, a valid email and a password of at least 6 characters are required.")
		case errors.Is(err, domain.ErrConflict):
			l.Warn("register_error", "status", 409, "reason", "email taken")
			return echo.NewHTTPError(http.StatusConflict, "Email already registered.")
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Registration failed.")
	}

	l.Info("register_success", "user_id", u.ID)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "id": u.ID, "name": u.Name, "email": u.Email})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"    form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			l.Warn("login_error", "status", 401, "reason", "invalid credentials")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password.")
		}
		l.Error("login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Login failed.")
	}

	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))

	l.Info("login_success", "user_id", res.UserID)
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"is_admin":     res.IsAdmin,
		"name":         res.Name,
		"access_token": res.AccessToken,
		"expires_at":   res.AccessExp.Unix(),
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	cookie, err := c.Cookie(jwthelp.RefreshCookie)
	if err != nil || cookie.Value == "" {
		l.Warn("refresh_error", "status", 401, "reason", "no refresh cookie")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		l.Warn("refresh_error", "status", 401, "error", err)
		c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
		c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
		return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}

	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))

	l.Info("refresh_success", "user_id", res.UserID)
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"access_token": res.AccessToken,
		"expires_at":   res.AccessExp.Unix(),
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	var refresh string
	if cookie, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		refresh = cookie.Value
	}

	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))

	if err := h.Svc.Logout(ctx, h.Svc.SubjectOf(refresh), refresh); err != nil {
		l.Error("logout_error", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed.")
	}

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}
