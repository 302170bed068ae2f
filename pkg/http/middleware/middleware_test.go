package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://desk.example"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType},
		MaxAge:       time.Minute,
	}))
	e.POST("/api/analyze/gamma", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze/gamma", nil)
	req.Header.Set(echo.HeaderOrigin, "https://desk.example")
	rec := serve(e, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://desk.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "60", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	req = httptest.NewRequest(http.MethodPost, "/api/analyze/gamma", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(nil))
	e.GET("/boom", func(echo.Context) error { panic("nil chain") })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("request_id").(string)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec := serve(e, req)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestZstdCompressesWhenAccepted(t *testing.T) {
	e := echo.New()
	e.Use(Zstd())
	e.GET("/", func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]string{"regime": "SHORT_GAMMA"}) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAcceptEncoding, "gzip, zstd")
	rec := serve(e, req)
	require.Equal(t, "zstd", rec.Header().Get(echo.HeaderContentEncoding))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	body, err := dec.DecodeAll(rec.Body.Bytes(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"regime":"SHORT_GAMMA"}`, string(body))
}
