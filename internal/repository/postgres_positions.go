package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	applogger "GammaDesk/pkg/logger"
	pkgpg "GammaDesk/pkg/postgres"
	xutil "GammaDesk/pkg/util"

	"github.com/jmoiron/sqlx"
)

// PGPositionsStore implements OpenInterestSource backed by PostgreSQL.
type PGPositionsStore struct {
	db      *sqlx.DB
	table   string
	timeout time.Duration
	log     queryLog
	metrics domrepo.Metrics
}

var _ domrepo.OpenInterestSource = (*PGPositionsStore)(nil)

func NewPGPositionsStore(pg *pkgpg.Client, table string, timeout time.Duration) (*PGPositionsStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PGPositionsStore{
		db:      pg.DB(),
		table:   table,
		timeout: timeout,
		log:     queryLog{backend: "postgres"},
		metrics: domrepo.NopMetrics{},
	}, nil
}

// SetLogger injects a structured logger.
func (s *PGPositionsStore) SetLogger(l *applogger.Logger) { s.log.l = l }

// SetMetrics injects a metrics recorder.
func (s *PGPositionsStore) SetMetrics(m domrepo.Metrics) { s.metrics = m }

func (s *PGPositionsStore) Breakdown(ctx context.Context, symbol, code string, asOf time.Time) (models.OIBreakdown, error) {
	if asOf.IsZero() {
		latest, err := s.LatestDate(ctx, symbol, code)
		if err != nil {
			return nil, err
		}
		asOf = latest
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()

	q := fmt.Sprintf(`
		SELECT preco_exercicio, tipo_opcao, qtd_total, qtd_descoberto, qtd_trava, qtd_coberto
		FROM %s
		WHERE ticker = $1 AND vencimento = $2 AND data_referencia = $3`, s.table)

	var raw []positionRow
	err := s.db.SelectContext(ctx, &raw, q, symbol, code, xutil.Day(asOf))
	s.observe("breakdown", symbol, code, start, len(raw), err)
	if err != nil {
		return nil, fmt.Errorf("positions breakdown: %w", err)
	}

	out, dropped := buildBreakdown(raw)
	s.metrics.RecordDroppedRows("positions", dropped)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s %s on %s", models.ErrNoPositionsData, symbol, code, asOf.Format(xutil.DayLayout))
	}
	return out, nil
}

func (s *PGPositionsStore) LatestDate(ctx context.Context, symbol, code string) (time.Time, error) {
	dates, err := s.RecentDates(ctx, symbol, code, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(dates) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s %s", models.ErrNoPositionsData, symbol, code)
	}
	return dates[0], nil
}

func (s *PGPositionsStore) RecentDates(ctx context.Context, symbol, code string, n int) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()

	q := fmt.Sprintf(`
		SELECT DISTINCT data_referencia
		FROM %s
		WHERE ticker = $1 AND vencimento = $2
		ORDER BY data_referencia DESC
		LIMIT $3`, s.table)

	var dates []time.Time
	err := s.db.SelectContext(ctx, &dates, q, symbol, code, n)
	s.observe("recent_dates", symbol, code, start, len(dates), err)
	if err != nil {
		return nil, fmt.Errorf("positions dates: %w", err)
	}
	for i := range dates {
		dates[i] = xutil.Day(dates[i])
	}
	reverseDates(dates)
	return dates, nil
}

func (s *PGPositionsStore) Count(ctx context.Context, symbol, code string, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		latest, err := s.LatestDate(ctx, symbol, code)
		if errors.Is(err, models.ErrNoPositionsData) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		asOf = latest
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()

	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE ticker = $1 AND vencimento = $2 AND data_referencia = $3`, s.table)
	var n int
	err := s.db.GetContext(ctx, &n, q, symbol, code, xutil.Day(asOf))
	s.observe("count", symbol, code, start, n, err)
	if err != nil {
		return 0, fmt.Errorf("positions count: %w", err)
	}
	return n, nil
}

func (s *PGPositionsStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PGPositionsStore) observe(op, symbol, code string, start time.Time, n int, err error) {
	s.log.done(op, symbol, code, start, n, err)
	s.metrics.RecordSourceCall("postgres_"+op, time.Since(start), err)
}
