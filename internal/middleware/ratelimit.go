package middleware

import (
	"CreditGate/internal/service/ratelimit"
	xhttp "CreditGate/pkg/http"

	"github.com/labstack/echo/v4"
)

// IPRateLimit applies a per-client token bucket keyed by remote IP.
func IPRateLimit(limiter *ratelimit.Limiter, capacity, refillPerSec float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow(c.RealIP(), capacity, refillPerSec) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("request rate exceeded"))
			}
			return next(c)
		}
	}
}
