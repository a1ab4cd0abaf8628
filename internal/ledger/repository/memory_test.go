package repository

import (
	"context"
	"testing"
	"time"

	"despesas_bot/internal/ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpenseRepositorySums(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExpenseRepository()

	for _, rec := range []models.ExpenseRecord{
		{User: "u1", Amount: 100, Category: "food", Installments: 1},
		{User: "u1", Amount: 50, Category: "food", Installments: 1},
		{User: "u1", Amount: 20, Category: "transport", Installments: 1},
		{User: "u2", Amount: 999, Category: "food", Installments: 1},
	} {
		rec := rec
		require.NoError(t, repo.CreateRecord(ctx, &rec))
		assert.False(t, rec.ID.IsZero())
	}

	total, err := repo.SumByUser(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "170", total.String())

	totals, err := repo.SumByCategory(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "food", totals[0].Category)
	assert.Equal(t, "150", totals[0].Total.String())
	assert.Equal(t, "transport", totals[1].Category)
	assert.Equal(t, "20", totals[1].Total.String())

	empty, err := repo.SumByUser(ctx, "nobody", time.Time{})
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	assert.Equal(t, 4, repo.Len())
	assert.Len(t, repo.Records("u2"), 1)
}

func TestMemoryExpenseRepositorySinceFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExpenseRepository()
	now := time.Now()

	old := &models.ExpenseRecord{User: "u1", Amount: 10, Category: "old", Installments: 1, RecordedAt: now.AddDate(0, -2, 0)}
	recent := &models.ExpenseRecord{User: "u1", Amount: 5, Category: "new", Installments: 1, RecordedAt: now}
	require.NoError(t, repo.CreateRecord(ctx, old))
	require.NoError(t, repo.CreateRecord(ctx, recent))

	total, err := repo.SumByUser(ctx, "u1", now.AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, "5", total.String())

	totals, err := repo.SumByCategory(ctx, "u1", now.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "new", totals[0].Category)
}

func TestMemoryExpenseRepositoryStoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExpenseRepository()

	rec := &models.ExpenseRecord{User: "u1", Amount: 10, Category: "a", Installments: 1}
	require.NoError(t, repo.CreateRecord(ctx, rec))
	rec.Amount = 1000

	total, err := repo.SumByUser(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "10", total.String())
}

func TestMemoryExpenseRepositoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryExpenseRepository()

	err := repo.CreateRecord(ctx, &models.ExpenseRecord{User: "u1", Amount: 1, Category: "a", Installments: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.Len())
}
