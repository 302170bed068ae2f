package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/internal/services/catalog"
	applogger "GammaDesk/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ExpirationsUseCase lists catalog expirations and probes the positions archive for each.
type ExpirationsUseCase struct {
	catalog *catalog.Catalog
	oi      domrepo.OpenInterestSource
	workers int
	log     *applogger.Logger
	now     func() time.Time
}

func NewExpirationsUseCase(cat *catalog.Catalog, oi domrepo.OpenInterestSource, workers int, l *applogger.Logger) *ExpirationsUseCase {
	if workers <= 0 {
		workers = 4
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ExpirationsUseCase{catalog: cat, oi: oi, workers: workers, log: l, now: time.Now}
}

// ListAvailable returns upcoming expirations with their position row counts, nearest first.
func (uc *ExpirationsUseCase) ListAvailable(ctx context.Context, symbol string) ([]models.ExpirationAvailability, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	upcoming := uc.catalog.Upcoming(uc.now())
	out := make([]models.ExpirationAvailability, len(upcoming))

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i, e := range upcoming {
		if ctx.Err() != nil {
			break
		}
		i, e := i, e
		g.Go(func() error {
			out[i] = uc.probe(ctx, symbol, e)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *ExpirationsUseCase) probe(ctx context.Context, symbol string, e models.Expiration) models.ExpirationAvailability {
	av := models.ExpirationAvailability{Expiration: e}
	n, err := uc.oi.Count(ctx, symbol, e.Code, time.Time{})
	if err != nil {
		if !errors.Is(err, models.ErrNoPositionsData) {
			uc.log.Warn("expiration probe failed",
				applogger.String("symbol", symbol),
				applogger.String("code", e.Code),
				applogger.Error(err),
			)
		}
		return av
	}
	av.DataCount = n
	av.Available = n > 0
	return av
}

// BestAvailable returns the nearest expiration with positions data.
func (uc *ExpirationsUseCase) BestAvailable(ctx context.Context, symbol string) (models.Expiration, error) {
	list, err := uc.ListAvailable(ctx, symbol)
	if err != nil {
		return models.Expiration{}, err
	}
	for _, e := range list {
		if e.Available {
			return e.Expiration, nil
		}
	}
	return models.Expiration{}, fmt.Errorf("%w: no expiration with positions for %s", models.ErrNoPositionsData, symbol)
}

// Resolve maps an explicit code to its catalog entry, or picks the best available one.
func (uc *ExpirationsUseCase) Resolve(ctx context.Context, symbol, code string) (models.Expiration, error) {
	if code == "" {
		return uc.BestAvailable(ctx, symbol)
	}
	e, ok := uc.catalog.Lookup(code)
	if !ok {
		return models.Expiration{}, fmt.Errorf("%w: %s", models.ErrUnknownExpiration, code)
	}
	return catalog.With(e, uc.now()), nil
}
