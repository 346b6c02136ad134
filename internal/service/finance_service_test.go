package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFinanceService(t *testing.T, repo *MockFinanceRepository, now time.Time) (*financeService, cache.Store) {
	t.Helper()
	_, store := setupCache(t)
	svc := NewFinanceService(repo, store, time.Minute, time.UTC, zerolog.Nop()).(*financeService)
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestFinanceService_Today(t *testing.T) {
	now := time.Date(2024, 5, 1, 22, 45, 0, 0, time.UTC)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	repo := new(MockFinanceRepository)
	svc, _ := newFinanceService(t, repo, now)

	repo.On("TotalPaid", mock.Anything, from, to, "").Return(decimal.RequireFromString("2150.50"), 3, nil).Once()

	for range 2 {
		total, err := svc.Today(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "2024-05-01", total.Period)
		assert.True(t, decimal.RequireFromString("2150.5").Equal(total.Total))
		assert.Equal(t, 3, total.Count)
	}

	repo.AssertNumberOfCalls(t, "TotalPaid", 1)
}

func TestFinanceService_Monthly(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		year        int
		month       time.Month
		method      string
		expectError bool
	}{
		{name: "Cash in February", year: 2024, month: time.February, method: model.PaymentCash},
		{name: "All methods in December", year: 2023, month: time.December},
		{name: "Month out of range", year: 2024, month: 13, expectError: true},
		{name: "Year out of range", year: 0, month: time.May, expectError: true},
		{name: "Unknown method", year: 2024, month: time.May, method: "cheque", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockFinanceRepository)
			svc, _ := newFinanceService(t, repo, now)

			from := time.Date(tt.year, tt.month, 1, 0, 0, 0, 0, time.UTC)
			repo.On("TotalPaid", mock.Anything, from, from.AddDate(0, 1, 0), tt.method).Return(decimal.NewFromInt(500), 1, nil)

			total, err := svc.Monthly(context.Background(), tt.year, tt.month, tt.method)

			if tt.expectError {
				assert.Equal(t, model.KindValidation, model.KindOf(err))
				assert.Empty(t, repo.Calls)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, from.Format("2006-01"), total.Period)
			assert.Equal(t, tt.method, total.Method)
			assert.Equal(t, 1, total.Count)
		})
	}
}

func TestFinanceService_InvalidatedByFinanceTag(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockFinanceRepository)
	svc, store := newFinanceService(t, repo, now)

	repo.On("TotalPaid", mock.Anything, mock.Anything, mock.Anything, model.PaymentCash).Return(decimal.NewFromInt(900), 1, nil)

	_, err := svc.Today(context.Background(), model.PaymentCash)
	require.NoError(t, err)

	require.True(t, store.InvalidateTags(context.Background(), cache.FinanceTag).OK())

	_, err = svc.Today(context.Background(), model.PaymentCash)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "TotalPaid", 2)
}

func TestFinanceService_RepositoryError(t *testing.T) {
	repo := new(MockFinanceRepository)
	svc, _ := newFinanceService(t, repo, time.Now())

	repo.On("TotalPaid", mock.Anything, mock.Anything, mock.Anything, "").
		Return(decimal.Zero, 0, errors.New("failed to sum payments: connection reset"))

	_, err := svc.Today(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, model.KindInternal, model.KindOf(err))
}

func TestFinanceService_DayBoundariesFollowLocation(t *testing.T) {
	_, store := setupCache(t)
	shop := time.FixedZone("UTC-03:00", -3*60*60)
	repo := new(MockFinanceRepository)
	svc := NewFinanceService(repo, store, time.Minute, shop, zerolog.Nop()).(*financeService)

	assert.Equal(t, shop, svc.now().Location())

	repo.On("TotalPaid", mock.Anything, mock.MatchedBy(func(from time.Time) bool {
		return from.Location() == shop && from.Hour() == 0
	}), mock.Anything, "").Return(decimal.Zero, 0, nil).Once()

	_, err := svc.Today(context.Background(), "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
