package api

import (
	"github.com/labstack/echo/v4"
)

// Router registers all API handlers on one Echo instance, applying the
// shared middleware chain to each group.
type Router struct {
	decisions *DecisionsEchoHandler
	auth      *AuthEchoHandler
	mw        []echo.MiddlewareFunc
}

func NewRouter(decisions *DecisionsEchoHandler, auth *AuthEchoHandler, mw ...echo.MiddlewareFunc) *Router {
	return &Router{decisions: decisions, auth: auth, mw: mw}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.decisions.RegisterRoutes(e, r.mw...)
	r.auth.RegisterRoutes(e, r.mw...)
}
