package repository

import (
	"context"
	"time"

	"despesas_bot/internal/ledger/models"

	"github.com/shopspring/decimal"
)

// ExpenseRepository 支出记录数据访问接口
//
// since 为零值时不做时间过滤。
type ExpenseRepository interface {
	// CreateRecord 追加一条支出记录
	CreateRecord(ctx context.Context, record *models.ExpenseRecord) error

	// SumByUser 汇总用户全部支出金额，无记录时返回 0
	SumByUser(ctx context.Context, user string, since time.Time) (decimal.Decimal, error)

	// SumByCategory 按分类汇总用户支出，按分类名升序
	SumByCategory(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error)

	// EnsureIndexes 确保索引存在
	EnsureIndexes(ctx context.Context) error
}
