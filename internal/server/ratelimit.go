package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
)

// Transfer codes are guessable by construction, so the relay routes carry a
// per-IP limiter on top of the relay's own throttling. One code exchange
// per second with a small burst covers any legitimate popup interaction.
const (
	transferRatePerSecond = 1
	transferBurst         = 3
	limiterEntryExpiry    = 5 * time.Minute
)

func transferRateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(transferRatePerSecond),
			Burst:     transferBurst,
			ExpiresIn: limiterEntryExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			limited := apperrors.RateLimitedError("too many transfer requests")
			return c.JSON(limited.HTTPStatus(), limited.ToResponse())
		},
	})
}
