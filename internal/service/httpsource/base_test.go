package httpsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	xhttp "GammaDesk/pkg/http"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("get /q: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("get /q: %w", context.DeadlineExceeded), false},
		{"breaker open", fmt.Errorf("request failed: %w", gobreaker.ErrOpenState), false},
		{"breaker half open", fmt.Errorf("request failed: %w", gobreaker.ErrTooManyRequests), false},
		{"bad request", &xhttp.StatusError{Code: http.StatusBadRequest}, false},
		{"server error", &xhttp.StatusError{Code: http.StatusBadGateway}, true},
		{"throttled", &xhttp.StatusError{Code: http.StatusTooManyRequests}, true},
		{"transport", errors.New("connection reset by peer"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Transient(tc.err))
		})
	}
}

func TestRetryStopsWhenBreakerOpens(t *testing.T) {
	prev := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = prev })

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := New(Options{
		Name:    "quotes",
		BaseURL: srv.URL,
		RPS:     1000,
		Burst:   100,
		Breaker: &xhttp.BreakerConfig{Timeout: time.Minute},
	})

	var out map[string]any
	err := b.GetJSONWithRetry(context.Background(), "/quote", nil, &out, 10)

	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}
