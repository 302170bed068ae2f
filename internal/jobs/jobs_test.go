package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"GammaDesk/internal/domain/models"
	"GammaDesk/internal/service/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeLister) ListAvailable(_ context.Context, symbol string) ([]models.ExpirationAvailability, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if symbol == "BAD1" {
		return nil, errors.New("archive down")
	}
	return []models.ExpirationAvailability{
		{Expiration: models.Expiration{Code: "20250321"}, Available: true, DataCount: 10},
		{Expiration: models.Expiration{Code: "20250418"}},
		{Expiration: models.Expiration{Code: "20250516"}, Available: true, DataCount: 3},
	}, nil
}

func TestWarmerRun(t *testing.T) {
	lister := &fakeLister{}
	w := NewWarmer(lister, []string{"PETR4", "BAD1", "VALE3"}, nil)

	ok := w.Run(context.Background())

	assert.Equal(t, 2, ok)
	assert.Equal(t, []string{"PETR4", "BAD1", "VALE3"}, lister.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AvailableExpirations.WithLabelValues("VALE3")))
}

func TestWarmerStopsOnCancel(t *testing.T) {
	lister := &fakeLister{}
	w := NewWarmer(lister, []string{"PETR4", "VALE3"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, w.Run(ctx))
	assert.Empty(t, lister.calls)
}

func TestRunnerAddRejectsBadSpec(t *testing.T) {
	r := NewRunner(nil)
	_, err := r.Add("not a spec", func(context.Context) {})
	assert.Error(t, err)

	_, err = r.Add("*/5 * * * *", func(context.Context) {})
	require.NoError(t, err)
	r.Start()
	r.Stop()
}
