package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"GammaDesk/internal/domain/models"
	pkgch "GammaDesk/pkg/clickhouse"
	pkgpg "GammaDesk/pkg/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var positionCols = []string{"preco_exercicio", "tipo_opcao", "qtd_total", "qtd_descoberto", "qtd_trava", "qtd_coberto"}

func TestBuildBreakdownNormalizesAndSums(t *testing.T) {
	out, dropped := buildBreakdown([]positionRow{
		{Strike: 32.5, Type: "CALL", Total: 100, Uncovered: 40, Locked: 10, Covered: 50},
		{Strike: 32.50000001, Type: "c", Total: 10, Uncovered: 10},
		{Strike: 32.5, Type: "VENDA", Total: 70, Uncovered: 20, Locked: 0, Covered: 50},
		{Strike: 33, Type: "XYZ", Total: 1},
		{Strike: 0, Type: "PUT", Total: 1},
	})
	assert.Equal(t, 2, dropped)

	call, ok := out.Lookup(32.5, models.Call)
	require.True(t, ok)
	assert.Equal(t, models.OIEntry{Total: 110, Uncovered: 50, Locked: 10, Covered: 50}, call)

	put, ok := out.Lookup(32.5, models.Put)
	require.True(t, ok)
	assert.Equal(t, int64(70), put.Total)
}

func newCHStore(t *testing.T) (*CHPositionsStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := NewCHPositionsStore(pkgch.NewFromDB(db), "opcoes_posicoes", time.Second)
	require.NoError(t, err)
	return s, mock
}

func TestCHBreakdownAsOf(t *testing.T) {
	s, mock := newCHStore(t)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT preco_exercicio, tipo_opcao`).
		WithArgs("PETR4", "20250321", day).
		WillReturnRows(sqlmock.NewRows(positionCols).
			AddRow(36.0, "CALL", 1000.0, 600.0, 100.0, 300.0).
			AddRow(34.0, "PUT", 800.0, 500.0, 0.0, 300.0))

	out, err := s.Breakdown(context.Background(), "PETR4", "20250321", day)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	e, ok := out.Lookup(36, models.Call)
	require.True(t, ok)
	assert.Equal(t, int64(600), e.Uncovered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBreakdownLatestWhenNoDates(t *testing.T) {
	s, mock := newCHStore(t)
	mock.ExpectQuery(`SELECT DISTINCT data_referencia`).
		WithArgs("PETR4", "20250321", 1).
		WillReturnRows(sqlmock.NewRows([]string{"data_referencia"}))

	_, err := s.Breakdown(context.Background(), "PETR4", "20250321", time.Time{})
	assert.True(t, errors.Is(err, models.ErrNoPositionsData))
}

func TestCHRecentDatesOldestFirst(t *testing.T) {
	s, mock := newCHStore(t)
	d1 := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT DISTINCT data_referencia`).
		WithArgs("VALE3", "20250321", 3).
		WillReturnRows(sqlmock.NewRows([]string{"data_referencia"}).AddRow(d3).AddRow(d2).AddRow(d1))

	dates, err := s.RecentDates(context.Background(), "VALE3", "20250321", 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d1, d2, d3}, dates)
}

func TestCHCountZeroWithoutData(t *testing.T) {
	s, mock := newCHStore(t)
	mock.ExpectQuery(`SELECT DISTINCT data_referencia`).
		WillReturnRows(sqlmock.NewRows([]string{"data_referencia"}))

	n, err := s.Count(context.Background(), "VALE3", "20250321", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPGBreakdownAndCount(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s, err := NewPGPositionsStore(pkgpg.NewFromDB(sqlx.NewDb(raw, "postgres")), "opcoes_posicoes", time.Second)
	require.NoError(t, err)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM opcoes_posicoes\s+WHERE ticker = \$1 AND vencimento = \$2 AND data_referencia = \$3`).
		WithArgs("BOVA11", "20250321", day).
		WillReturnRows(sqlmock.NewRows(positionCols).AddRow(120.0, "P", 50.0, 20.0, 10.0, 20.0))
	mock.ExpectQuery(`SELECT count\(\*\)`).
		WithArgs("BOVA11", "20250321", day).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	out, err := s.Breakdown(context.Background(), "BOVA11", "20250321", day)
	require.NoError(t, err)
	e, ok := out.Lookup(120, models.Put)
	require.True(t, ok)
	assert.Equal(t, int64(20), e.Uncovered)

	n, err := s.Count(context.Background(), "BOVA11", "20250321", day)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidTableRejected(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewCHPositionsStore(pkgch.NewFromDB(db), "x; DROP TABLE y", time.Second)
	assert.Error(t, err)
}
