package middleware

import (
	"smartCart/pkg/trace"

	"github.com/labstack/echo/v4"
)

const HeaderTraceID = "X-Trace-Id"

// TraceID reuses the caller's X-Trace-Id or mints one, stores it on the
// request context and echoes it back.
func TraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := trace.WithTraceID(req.Context(), req.Header.Get(HeaderTraceID))
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(HeaderTraceID, trace.TraceIDFromContext(ctx))
			return next(c)
		}
	}
}
