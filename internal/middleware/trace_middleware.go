package middleware

import (
	"context"

	"swapkit/business/swap"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TraceMiddleware attaches a trace id to the request context so the decision
// pipeline can correlate its log lines. An inbound X-Trace-ID is honored.
func TraceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			traceID := c.Request().Header.Get("X-Trace-ID")
			if traceID == "" {
				traceID = uuid.NewString()
			}

			ctx := context.WithValue(c.Request().Context(), swap.TraceIDKey, traceID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("X-Trace-ID", traceID)

			return next(c)
		}
	}
}
