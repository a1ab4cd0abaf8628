package service

import (
	"context"
	"time"

	"despesas_bot/internal/ledger/models"

	"github.com/shopspring/decimal"
)

// LedgerService 账本业务逻辑接口
type LedgerService interface {
	// Record 追加一条支出记录
	Record(ctx context.Context, user string, amount decimal.Decimal, category string, installments int) (*models.ExpenseRecord, error)

	// Balance 用户全部支出总额，无记录时为 0
	Balance(ctx context.Context, user string) (decimal.Decimal, error)

	// Report 按分类汇总，按分类名升序
	Report(ctx context.Context, user string) ([]models.CategoryTotal, error)

	// BalanceSince 指定时间之后的支出总额
	BalanceSince(ctx context.Context, user string, since time.Time) (decimal.Decimal, error)

	// ReportSince 指定时间之后的分类汇总
	ReportSince(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error)
}

// ReportCache 分类报表缓存（可选）
type ReportCache interface {
	GetReport(user string) ([]models.CategoryTotal, error)
	CacheReport(user string, totals []models.CategoryTotal) error
	InvalidateReport(user string) error
}

// EventPublisher 支出事件发布（可选）
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, record *models.ExpenseRecord) error
}
