package jobs

import (
	"context"
	"time"

	"GammaDesk/internal/domain/models"
	"GammaDesk/internal/service/metrics"
	applogger "GammaDesk/pkg/logger"
)

// AvailabilityLister is the part of the expirations use case the warmer needs.
type AvailabilityLister interface {
	ListAvailable(ctx context.Context, symbol string) ([]models.ExpirationAvailability, error)
}

// Warmer probes expiration availability for a watchlist so the first
// request of the day finds the positions counts cached.
type Warmer struct {
	lister    AvailabilityLister
	watchlist []string
	timeout   time.Duration
	log       *applogger.Logger
}

func NewWarmer(lister AvailabilityLister, watchlist []string, l *applogger.Logger) *Warmer {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Warmer{lister: lister, watchlist: watchlist, timeout: 2 * time.Minute, log: l}
}

// Run warms every symbol and returns how many succeeded.
func (w *Warmer) Run(ctx context.Context) int {
	start := time.Now()
	defer func() { metrics.JobDuration.WithLabelValues("warm_expirations").Observe(time.Since(start).Seconds()) }()

	ok := 0
	for _, symbol := range w.watchlist {
		if ctx.Err() != nil {
			break
		}
		sctx, cancel := context.WithTimeout(ctx, w.timeout)
		list, err := w.lister.ListAvailable(sctx, symbol)
		cancel()
		if err != nil {
			metrics.JobErrors.WithLabelValues("warm_expirations").Inc()
			w.log.Warn("warm expirations failed", applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		n := 0
		for _, e := range list {
			if e.Available {
				n++
			}
		}
		metrics.AvailableExpirations.WithLabelValues(symbol).Set(float64(n))
		ok++
	}
	w.log.Info("warm expirations done",
		applogger.Int("symbols", len(w.watchlist)),
		applogger.Int("ok", ok),
		applogger.Duration("took", time.Since(start)),
	)
	return ok
}
