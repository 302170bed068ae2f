package middleware

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v4"
)

type zstdResponseWriter struct {
	http.ResponseWriter
	encoder *zstd.Encoder
}

func (w *zstdResponseWriter) Write(b []byte) (int, error) {
	return w.encoder.Write(b)
}

func (w *zstdResponseWriter) WriteHeader(code int) {
	w.Header().Del(echo.HeaderContentLength)
	w.ResponseWriter.WriteHeader(code)
}

func (w *zstdResponseWriter) Flush() {
	_ = w.encoder.Flush()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Zstd compresses responses when the client explicitly accepts zstd.
func Zstd() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.Contains(c.Request().Header.Get(echo.HeaderAcceptEncoding), "zstd") {
				return next(c)
			}

			res := c.Response()
			encoder, err := zstd.NewWriter(res.Writer)
			if err != nil {
				return err
			}
			defer encoder.Close()

			res.Header().Set(echo.HeaderContentEncoding, "zstd")
			res.Header().Add(echo.HeaderVary, echo.HeaderAcceptEncoding)

			orig := res.Writer
			res.Writer = &zstdResponseWriter{ResponseWriter: orig, encoder: encoder}
			defer func() { res.Writer = orig }()

			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		}
	}
}
