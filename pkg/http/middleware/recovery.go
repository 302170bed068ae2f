package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "GammaDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a logged 500.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				l.Error("handler panic",
					applogger.String("uri", c.Request().RequestURI),
					applogger.Any("panic", r),
					applogger.String("stack", string(debug.Stack())),
				)
				err = echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprint("panic: ", r))
			}()
			return next(c)
		}
	}
}
