package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeFunc func(e *echo.Echo)

func (f routeFunc) RegisterRoutes(e *echo.Echo) { f(e) }

type lookupRequest struct {
	Ticker string `json:"ticker" validate:"required,min=4,max=9"`
	Period string `json:"period" default:"2y" validate:"oneof=1y 2y"`
}

func newTestServer() *Server {
	return NewServer(routeFunc(func(e *echo.Echo) {
		e.POST("/lookup", func(c echo.Context) error {
			var req lookupRequest
			if verr := ReadAndValidateRequest(c, &req); verr != nil {
				return BadRequestResponse(c, verr)
			}
			return SuccessResponse(c, req)
		})
		e.GET("/fail", func(echo.Context) error {
			return NewAppError("ERR_NO_SPOT_PRICE", "ticker", "no spot price", http.StatusNotFound)
		})
		e.GET("/opaque", func(echo.Context) error { return assert.AnError })
	}), WithMetricsPath(""), WithCompression(false))
}

func do(t *testing.T, s *Server, method, path, body string) (int, APIResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestValidationUsesWireNamesAndDefaults(t *testing.T) {
	s := newTestServer()

	code, resp := do(t, s, http.MethodPost, "/lookup", `{"ticker":"PETR4"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"ticker": "PETR4", "period": "2y"}, resp.Data)

	code, resp = do(t, s, http.MethodPost, "/lookup", `{"ticker":"AB","period":"9y"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	errs := resp.Data.([]interface{})
	require.Len(t, errs, 2)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_MIN", first["code"])
	assert.Equal(t, "ticker", first["field"])
	assert.Equal(t, "ticker must be at least 4 characters", first["message"])
	assert.Equal(t, "ERR_ONEOF", errs[1].(map[string]interface{})["code"])
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer()

	code, resp := do(t, s, http.MethodGet, "/fail", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NO_SPOT_PRICE", resp.Data.([]interface{})[0].(map[string]interface{})["code"])

	code, resp = do(t, s, http.MethodGet, "/opaque", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "ERR_INTERNAL", resp.Data.([]interface{})[0].(map[string]interface{})["code"])

	code, resp = do(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Data.([]interface{})[0].(map[string]interface{})["code"])
}
