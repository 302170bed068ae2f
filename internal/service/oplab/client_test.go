package oplab

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GammaDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const optionsJSON = `[
 {"time":"2025-03-14T00:00:00Z","symbol":"PETRC380","type":"CALL","strike":38.0,"premium":0.95,"gamma":0.12,"delta":0.45,"vega":0.04,"theta":-0.03,"volatility":32.5,"days_to_maturity":5,"volume":1200,"due_date":"2025-03-21"},
 {"time":"2025-03-14T00:00:00Z","symbol":"PETRO360","type":"PUT","strike":36.0,"premium":0.40,"gamma":0.09,"delta":-0.30,"vega":0.03,"theta":-0.02,"volatility":0.29,"days_to_maturity":5},
 {"time":"2025-03-14T00:00:00Z","symbol":"BROKEN","type":"PUT","strike":35.0,"premium":0.20}
]`

func TestOptionsDropsIncompleteRowsAndSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("Access-Token"))
		assert.Equal(t, "/market/historical/options/PETR4/2025-03-10/2025-03-14", r.URL.Path)
		_, _ = w.Write([]byte(optionsJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, 0, 0, nil, nil, nil)
	chain, err := c.Options(context.Background(), "PETR4",
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, chain.Dropped)
	require.Len(t, chain.Rows, 2)

	call := chain.Rows[0]
	assert.Equal(t, models.Call, call.Type)
	assert.Equal(t, 32.5, call.IV)
	assert.Equal(t, 1200.0, call.Volume)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), call.DueDate)

	put := chain.Rows[1]
	assert.InDelta(t, 29.0, put.IV, 1e-9, "fractional IV is scaled to points")
}

func TestOptionsEmptyIsNoGreeksData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, 0, 0, nil, nil, nil)
	_, err := c.Options(context.Background(), "PETR4", time.Now(), time.Now())
	assert.True(t, errors.Is(err, models.ErrNoGreeksData))
}

func TestCurrentQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "VALE3", r.URL.Query().Get("tickers"))
		_, _ = w.Write([]byte(`[{"symbol":"VALE3","close":null,"bid":60.1,"ask":60.3}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, 0, 0, nil, nil, nil)
	p, err := c.Current(context.Background(), "VALE3")
	require.NoError(t, err)
	assert.InDelta(t, 60.2, p, 1e-9)
}
