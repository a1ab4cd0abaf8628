package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"despesas_bot/internal/ledger/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryExpenseRepository 进程内支出记录存储
// 用于 LEDGER_BACKEND=memory 试运行模式和测试
type MemoryExpenseRepository struct {
	mu      sync.RWMutex
	records []models.ExpenseRecord
}

// NewMemoryExpenseRepository 创建内存 Repository
func NewMemoryExpenseRepository() *MemoryExpenseRepository {
	return &MemoryExpenseRepository{}
}

// CreateRecord 追加记录（保存副本，调用方后续修改不影响已存数据）
func (r *MemoryExpenseRepository) CreateRecord(ctx context.Context, record *models.ExpenseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	record.ID = primitive.NewObjectID()
	record.CreatedAt = now
	if record.RecordedAt.IsZero() {
		record.RecordedAt = now
	}

	r.mu.Lock()
	r.records = append(r.records, *record)
	r.mu.Unlock()
	return nil
}

// SumByUser 汇总用户支出总额
func (r *MemoryExpenseRepository) SumByUser(ctx context.Context, user string, since time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for i := range r.records {
		if !matches(&r.records[i], user, since) {
			continue
		}
		total = total.Add(r.records[i].AmountDecimal())
	}
	return total, nil
}

// SumByCategory 按分类汇总，结果按分类名升序
func (r *MemoryExpenseRepository) SumByCategory(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	sums := make(map[string]decimal.Decimal)
	for i := range r.records {
		rec := &r.records[i]
		if !matches(rec, user, since) {
			continue
		}
		sums[rec.Category] = sums[rec.Category].Add(rec.AmountDecimal())
	}
	r.mu.RUnlock()

	totals := make([]models.CategoryTotal, 0, len(sums))
	for category, total := range sums {
		totals = append(totals, models.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Category < totals[j].Category
	})
	return totals, nil
}

// EnsureIndexes 内存实现无需索引
func (r *MemoryExpenseRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

// Len 返回记录总数
func (r *MemoryExpenseRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Records 返回用户记录的副本
func (r *MemoryExpenseRepository) Records(user string) []models.ExpenseRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ExpenseRecord, 0)
	for _, rec := range r.records {
		if rec.User == user {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec *models.ExpenseRecord, user string, since time.Time) bool {
	if rec.User != user {
		return false
	}
	return since.IsZero() || !rec.RecordedAt.Before(since)
}
