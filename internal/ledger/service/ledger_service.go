package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"despesas_bot/internal/ledger/models"
	"despesas_bot/internal/ledger/repository"
	"despesas_bot/internal/logger"

	"github.com/shopspring/decimal"
)

// LedgerServiceImpl 账本服务实现
type LedgerServiceImpl struct {
	expenseRepo repository.ExpenseRepository
	cache       ReportCache
	publisher   EventPublisher
	now         func() time.Time

	// genMu 保护 generations，并串行化缓存写入与失效版本检查
	genMu       sync.Mutex
	generations map[string]uint64
}

// Option 账本服务可选配置
type Option func(*LedgerServiceImpl)

// WithReportCache 启用报表缓存
func WithReportCache(cache ReportCache) Option {
	return func(s *LedgerServiceImpl) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithEventPublisher 启用支出事件发布
func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *LedgerServiceImpl) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithClock 替换时间来源（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *LedgerServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLedgerService 创建账本服务
func NewLedgerService(expenseRepo repository.ExpenseRepository, opts ...Option) LedgerService {
	s := &LedgerServiceImpl{
		expenseRepo: expenseRepo,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record 追加支出记录
func (s *LedgerServiceImpl) Record(ctx context.Context, user string, amount decimal.Decimal, category string, installments int) (*models.ExpenseRecord, error) {
	user = strings.TrimSpace(user)
	category = strings.TrimSpace(category)

	switch {
	case user == "":
		return nil, fmt.Errorf("%w: user is empty", ErrInvalidExpense)
	case category == "":
		return nil, fmt.Errorf("%w: category is empty", ErrInvalidExpense)
	case !amount.IsPositive():
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidExpense, amount)
	case installments < 1:
		return nil, fmt.Errorf("%w: installments must be >= 1, got %d", ErrInvalidExpense, installments)
	}

	record := &models.ExpenseRecord{
		User:         user,
		Amount:       amount.InexactFloat64(),
		Category:     category,
		Installments: installments,
		RecordedAt:   s.now(),
	}

	if err := s.expenseRepo.CreateRecord(ctx, record); err != nil {
		logger.L().Errorf("Failed to create expense record: user=%s err=%v", user, err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	logger.L().Infof("Expense recorded: user=%s amount=%s category=%s installments=%d",
		user, amount.StringFixed(2), category, installments)

	s.invalidateReport(user)
	s.publish(ctx, record)
	return record, nil
}

// Balance 用户支出总额
func (s *LedgerServiceImpl) Balance(ctx context.Context, user string) (decimal.Decimal, error) {
	return s.BalanceSince(ctx, user, time.Time{})
}

// BalanceSince 指定时间之后的支出总额
func (s *LedgerServiceImpl) BalanceSince(ctx context.Context, user string, since time.Time) (decimal.Decimal, error) {
	total, err := s.expenseRepo.SumByUser(ctx, user, since)
	if err != nil {
		logger.L().Errorf("Failed to sum expenses: user=%s err=%v", user, err)
		return decimal.Zero, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return total, nil
}

// Report 按分类汇总（命中缓存时直接返回）
func (s *LedgerServiceImpl) Report(ctx context.Context, user string) ([]models.CategoryTotal, error) {
	if s.cache != nil {
		if totals, err := s.cache.GetReport(user); err == nil {
			logger.L().Debugf("Report cache hit: user=%s", user)
			return totals, nil
		}
	}

	gen := s.generation(user)

	totals, err := s.ReportSince(ctx, user, time.Time{})
	if err != nil {
		return nil, err
	}

	s.cacheReport(user, gen, totals)
	return totals, nil
}

// ReportSince 指定时间之后的分类汇总（不走缓存）
func (s *LedgerServiceImpl) ReportSince(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error) {
	totals, err := s.expenseRepo.SumByCategory(ctx, user, since)
	if err != nil {
		logger.L().Errorf("Failed to sum expenses by category: user=%s err=%v", user, err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return totals, nil
}

func (s *LedgerServiceImpl) generation(user string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[user]
}

// cacheReport 只有在读取期间没有新记录写入时才写缓存
func (s *LedgerServiceImpl) cacheReport(user string, gen uint64, totals []models.CategoryTotal) {
	if s.cache == nil {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	if s.generations[user] != gen {
		logger.L().Debugf("Report changed while reading, skip cache: user=%s", user)
		return
	}
	if err := s.cache.CacheReport(user, totals); err != nil {
		logger.L().Warnf("Failed to cache report: user=%s err=%v", user, err)
	}
}

// invalidateReport 先递增版本再删缓存，进行中的 Report 不会写回旧结果
func (s *LedgerServiceImpl) invalidateReport(user string) {
	if s.cache == nil {
		return
	}

	s.genMu.Lock()
	s.generations[user]++
	s.genMu.Unlock()

	if err := s.cache.InvalidateReport(user); err != nil {
		logger.L().Warnf("Failed to invalidate report cache: user=%s err=%v", user, err)
	}
}

// publish 事件发布失败只记录日志，记录本身已经落库
func (s *LedgerServiceImpl) publish(ctx context.Context, record *models.ExpenseRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseRecorded(ctx, record); err != nil {
		logger.L().Warnf("Failed to publish expense event: user=%s err=%v", record.User, err)
	}
}
