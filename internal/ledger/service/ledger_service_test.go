package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"despesas_bot/internal/ledger/models"
	"despesas_bot/internal/ledger/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingExpenseRepository struct {
	err error
}

func (f *failingExpenseRepository) CreateRecord(ctx context.Context, record *models.ExpenseRecord) error {
	return f.err
}

func (f *failingExpenseRepository) SumByUser(ctx context.Context, user string, since time.Time) (decimal.Decimal, error) {
	return decimal.Zero, f.err
}

func (f *failingExpenseRepository) SumByCategory(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error) {
	return nil, f.err
}

func (f *failingExpenseRepository) EnsureIndexes(ctx context.Context) error {
	return f.err
}

type stubReportCache struct {
	reports     map[string][]models.CategoryTotal
	invalidated []string
	hits        int
}

func newStubReportCache() *stubReportCache {
	return &stubReportCache{reports: make(map[string][]models.CategoryTotal)}
}

func (c *stubReportCache) GetReport(user string) ([]models.CategoryTotal, error) {
	totals, ok := c.reports[user]
	if !ok {
		return nil, errors.New("cache miss")
	}
	c.hits++
	return totals, nil
}

func (c *stubReportCache) CacheReport(user string, totals []models.CategoryTotal) error {
	c.reports[user] = totals
	return nil
}

func (c *stubReportCache) InvalidateReport(user string) error {
	delete(c.reports, user)
	c.invalidated = append(c.invalidated, user)
	return nil
}

type stubPublisher struct {
	published []*models.ExpenseRecord
	err       error
}

func (p *stubPublisher) PublishExpenseRecorded(ctx context.Context, record *models.ExpenseRecord) error {
	p.published = append(p.published, record)
	return p.err
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordThenBalance(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(repository.NewMemoryExpenseRepository())

	record, err := svc.Record(ctx, "u1", d("144"), "ifood", 1)
	require.NoError(t, err)
	assert.Equal(t, "u1", record.User)
	assert.Equal(t, 144.0, record.Amount)
	assert.Equal(t, "ifood", record.Category)
	assert.Equal(t, 1, record.Installments)
	assert.False(t, record.RecordedAt.IsZero())

	balance, err := svc.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d("144").Equal(balance), "balance: %s", balance)

	other, err := svc.Balance(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

func TestReportGroupsByCategory(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(repository.NewMemoryExpenseRepository())

	_, err := svc.Record(ctx, "u1", d("100"), "food", 1)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "u1", d("50"), "food", 1)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "u1", d("20"), "transport", 1)
	require.NoError(t, err)

	report, err := svc.Report(ctx, "u1")
	require.NoError(t, err)

	got := make(map[string]string, len(report))
	for _, total := range report {
		got[total.Category] = total.Total.StringFixed(2)
	}
	assert.Equal(t, map[string]string{"food": "150.00", "transport": "20.00"}, got)

	again, err := svc.Report(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestInstallmentsDoNotScaleTotals(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(repository.NewMemoryExpenseRepository())

	_, err := svc.Record(ctx, "u1", d("150"), "Parcela", 3)
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "150.00", balance.StringFixed(2))
}

func TestUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(repository.NewMemoryExpenseRepository())

	_, err := svc.Record(ctx, "alice", d("10"), "cafe", 1)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "bob", d("99.90"), "cafe", 1)
	require.NoError(t, err)

	alice, err := svc.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "10.00", alice.StringFixed(2))

	report, err := svc.Report(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "99.90", report[0].Total.StringFixed(2))
}

func TestRecordRejectsInvalidExpense(t *testing.T) {
	repo := repository.NewMemoryExpenseRepository()
	svc := NewLedgerService(repo)

	tests := []struct {
		name         string
		user         string
		amount       decimal.Decimal
		category     string
		installments int
	}{
		{name: "empty user", user: " ", amount: d("1"), category: "a", installments: 1},
		{name: "empty category", user: "u1", amount: d("1"), category: "", installments: 1},
		{name: "zero amount", user: "u1", amount: decimal.Zero, category: "a", installments: 1},
		{name: "negative amount", user: "u1", amount: d("-5"), category: "a", installments: 1},
		{name: "zero installments", user: "u1", amount: d("5"), category: "a", installments: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.user, tt.amount, tt.category, tt.installments)
			require.Error(t, err)
			assert.True(t, IsInvalidExpense(err))
			assert.False(t, IsStorageFault(err))
		})
	}
	assert.Equal(t, 0, repo.Len())
}

func TestStorageFaultsAreWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	svc := NewLedgerService(&failingExpenseRepository{err: cause})
	ctx := context.Background()

	_, err := svc.Record(ctx, "u1", d("1"), "a", 1)
	assert.True(t, IsStorageFault(err))
	assert.ErrorIs(t, err, cause)

	_, err = svc.Balance(ctx, "u1")
	assert.True(t, IsStorageFault(err))

	_, err = svc.Report(ctx, "u1")
	assert.True(t, IsStorageFault(err))
}

func TestReportCacheIsInvalidatedOnRecord(t *testing.T) {
	ctx := context.Background()
	cache := newStubReportCache()
	svc := NewLedgerService(repository.NewMemoryExpenseRepository(), WithReportCache(cache))

	_, err := svc.Record(ctx, "u1", d("10"), "a", 1)
	require.NoError(t, err)

	first, err := svc.Report(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.Report(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = svc.Record(ctx, "u1", d("5"), "b", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u1"}, cache.invalidated)

	second, err := svc.Report(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

// blockingReportRepository 第一次 SumByCategory 读完后阻塞，直到 release 关闭
type blockingReportRepository struct {
	*repository.MemoryExpenseRepository
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingReportRepository) SumByCategory(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error) {
	totals, err := r.MemoryExpenseRepository.SumByCategory(ctx, user, since)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return totals, err
}

func TestReportDoesNotCacheResultReadBeforeRecord(t *testing.T) {
	ctx := context.Background()
	cache := newStubReportCache()
	repo := &blockingReportRepository{
		MemoryExpenseRepository: repository.NewMemoryExpenseRepository(),
		read:                    make(chan struct{}),
		release:                 make(chan struct{}),
	}
	svc := NewLedgerService(repo, WithReportCache(cache))

	done := make(chan []models.CategoryTotal, 1)
	go func() {
		totals, err := svc.Report(ctx, "u1")
		assert.NoError(t, err)
		done <- totals
	}()

	<-repo.read
	_, err := svc.Record(ctx, "u1", d("10"), "ifood", 1)
	require.NoError(t, err)
	close(repo.release)

	assert.Empty(t, <-done)

	balance, err := svc.Balance(ctx, "u1")
	require.NoError(t, err)
	report, err := svc.Report(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "ifood", report[0].Category)
	assert.True(t, balance.Equal(report[0].Total), "balance %s, report %s", balance, report[0].Total)
	assert.Equal(t, 0, cache.hits)
}

func TestPublishFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryExpenseRepository()
	publisher := &stubPublisher{err: fmt.Errorf("broker down")}
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	svc := NewLedgerService(repo, WithEventPublisher(publisher), WithClock(func() time.Time { return fixed }))

	record, err := svc.Record(ctx, "u1", d("42"), "mercado", 1)
	require.NoError(t, err)
	assert.Equal(t, fixed, record.RecordedAt)
	assert.Len(t, publisher.published, 1)
	assert.Equal(t, 1, repo.Len())
}
