package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	pkgch "GammaDesk/pkg/clickhouse"
	applogger "GammaDesk/pkg/logger"
	xutil "GammaDesk/pkg/util"
)

// CHPositionsStore implements OpenInterestSource backed by ClickHouse.
type CHPositionsStore struct {
	db      *sql.DB
	table   string
	timeout time.Duration
	log     queryLog
	metrics domrepo.Metrics
}

var _ domrepo.OpenInterestSource = (*CHPositionsStore)(nil)

func NewCHPositionsStore(ch *pkgch.Client, table string, timeout time.Duration) (*CHPositionsStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CHPositionsStore{
		db:      ch.DB(),
		table:   table,
		timeout: timeout,
		log:     queryLog{backend: "clickhouse"},
		metrics: domrepo.NopMetrics{},
	}, nil
}

// SetLogger injects a structured logger.
func (s *CHPositionsStore) SetLogger(l *applogger.Logger) { s.log.l = l }

// SetMetrics injects a metrics recorder.
func (s *CHPositionsStore) SetMetrics(m domrepo.Metrics) { s.metrics = m }

func (s *CHPositionsStore) Breakdown(ctx context.Context, symbol, code string, asOf time.Time) (models.OIBreakdown, error) {
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
        WHERE ticker = ? AND vencimento = ? AND data_referencia = ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, code, xutil.Day(asOf))
	if err != nil {
		s.observe("breakdown", symbol, code, start, 0, err)
		return nil, fmt.Errorf("positions breakdown: %w", err)
	}
	defer rows.Close()

	raw := make([]positionRow, 0, 256)
	for rows.Next() {
		var r positionRow
		if err := rows.Scan(&r.Strike, &r.Type, &r.Total, &r.Uncovered, &r.Locked, &r.Covered); err != nil {
			s.observe("breakdown", symbol, code, start, 0, err)
			return nil, fmt.Errorf("scan position: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		s.observe("breakdown", symbol, code, start, 0, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.observe("breakdown", symbol, code, start, len(raw), nil)

	out, dropped := buildBreakdown(raw)
	s.metrics.RecordDroppedRows("positions", dropped)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s %s on %s", models.ErrNoPositionsData, symbol, code, asOf.Format(xutil.DayLayout))
	}
	return out, nil
}

func (s *CHPositionsStore) LatestDate(ctx context.Context, symbol, code string) (time.Time, error) {
	dates, err := s.RecentDates(ctx, symbol, code, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(dates) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s %s", models.ErrNoPositionsData, symbol, code)
	}
	return dates[0], nil
}

func (s *CHPositionsStore) RecentDates(ctx context.Context, symbol, code string, n int) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()

	q := fmt.Sprintf(`
        SELECT DISTINCT data_referencia
        FROM %s
        WHERE ticker = ? AND vencimento = ?
        ORDER BY data_referencia DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, code, n)
	if err != nil {
		s.observe("recent_dates", symbol, code, start, 0, err)
		return nil, fmt.Errorf("positions dates: %w", err)
	}
	defer rows.Close()

	out := make([]time.Time, 0, n)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			s.observe("recent_dates", symbol, code, start, 0, err)
			return nil, fmt.Errorf("scan date: %w", err)
		}
		out = append(out, xutil.Day(d))
	}
	if err := rows.Err(); err != nil {
		s.observe("recent_dates", symbol, code, start, 0, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.observe("recent_dates", symbol, code, start, len(out), nil)
	reverseDates(out)
	return out, nil
}

func (s *CHPositionsStore) Count(ctx context.Context, symbol, code string, asOf time.Time) (int, error) {
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

	q := fmt.Sprintf(`SELECT count() FROM %s WHERE ticker = ? AND vencimento = ? AND data_referencia = ?`, s.table)
	var n int64
	err := s.db.QueryRowContext(ctx, q, symbol, code, xutil.Day(asOf)).Scan(&n)
	s.observe("count", symbol, code, start, int(n), err)
	if err != nil {
		return 0, fmt.Errorf("positions count: %w", err)
	}
	return int(n), nil
}

func (s *CHPositionsStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPositionsStore) observe(op, symbol, code string, start time.Time, n int, err error) {
	s.log.done(op, symbol, code, start, n, err)
	s.metrics.RecordSourceCall("clickhouse_"+op, time.Since(start), err)
}
