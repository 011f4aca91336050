package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"licensor/internal/common"

	"github.com/labstack/echo/v4"
)

type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit limits requests per client IP. When the limiter itself fails the
// request is let through; the limiter protects capacity, not entitlement.
func RateLimit(limiter RateLimiter, scope string, limit int, window time.Duration, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limit <= 0 {
				return next(c)
			}

			limited, err := limiter.IsRateLimited(c.Request().Context(), scope+":"+c.RealIP(), limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", formatSeconds(window))
				return c.JSON(http.StatusTooManyRequests, common.CreateErrorResponse("RATE_LIMITED", "Too many requests", nil))
			}
			return next(c)
		}
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(d.Round(time.Second).Seconds()))
}
