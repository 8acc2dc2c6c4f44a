package api

import (
	"errors"
	"net/http"
	"time"

	"CreditGate/internal/domain/models"
	"CreditGate/internal/usecase"
	xhttp "CreditGate/pkg/http"
	xlogger "CreditGate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AuthEchoHandler owns login and logout.
type AuthEchoHandler struct {
	logger *xlogger.Logger
	auth   *usecase.AuthService
}

func NewAuthEchoHandler(logger *xlogger.Logger, auth *usecase.AuthService) *AuthEchoHandler {
	return &AuthEchoHandler{logger: logger, auth: auth}
}

func (h *AuthEchoHandler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api/auth", mw...)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
}

func (h *AuthEchoHandler) Login(c echo.Context) error {
	req := &models.LoginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sess, identity, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError(err.Error()))
		}
		h.logger.Error("login failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("session store unavailable").WithError(err))
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return xhttp.SuccessResponse(c, &models.LoginResponse{
		Token:      sess.ID,
		IdentityID: identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		ExpiresAt:  sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthEchoHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), sessionToken(c)); err != nil {
		h.logger.Warn("logout failed", xlogger.Error(err))
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return xhttp.NoContentResponse(c)
}
