package app

import (
	"context"
	"errors"
	"fmt"

	"despesas_bot/internal/ai/gemini"
	"despesas_bot/internal/ai/xai"
	"despesas_bot/internal/bot"
	"despesas_bot/internal/clients/amqp"
	"despesas_bot/internal/clients/cache"
	"despesas_bot/internal/config"
	"despesas_bot/internal/ledger/repository"
	"despesas_bot/internal/ledger/service"
	"despesas_bot/internal/logger"
	"despesas_bot/internal/mongo"
	"despesas_bot/internal/whatsapp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App 应用服务容器
// 负责管理所有服务的生命周期（初始化、运行、关闭），不使用全局状态
type App struct {
	Config     *config.Config
	MongoDB    *mongo.Client
	Ledger     service.LedgerService
	Dispatcher *bot.Dispatcher
	WhatsApp   *whatsapp.Bot
	Registry   *prometheus.Registry
	Metrics    *bot.Metrics

	publisher *amqp.Publisher
}

// New 初始化完整的 bot：账本、应答器、WhatsApp 会话
// 任何服务初始化失败都会关闭已初始化的服务并返回错误
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = bot.NewMetrics(app.Registry)

	if cfg.NeedsLedger() {
		if err := app.initLedger(ctx); err != nil {
			app.Close(context.Background())
			return nil, err
		}
	}

	responders, err := app.buildResponders(ctx)
	if err != nil {
		app.Close(context.Background())
		return nil, err
	}
	app.Dispatcher = bot.NewDispatcher(bot.NewManager(responders...), app.Metrics)

	app.WhatsApp, err = whatsapp.InitFromConfig(ctx, cfg, app.Dispatcher, app.Metrics.IncDropped)
	if err != nil {
		app.Close(context.Background())
		return nil, fmt.Errorf("init WhatsApp bot failed: %w", err)
	}
	logger.L().Infof("WhatsApp bot initialized (mode=%s, responders=%v)", cfg.Mode, app.Dispatcher.Responders())

	return app, nil
}

// NewLedger 只初始化账本（运维命令行使用）
func NewLedger(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	if err := app.initLedger(ctx); err != nil {
		app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *App) initLedger(ctx context.Context) error {
	var repo repository.ExpenseRepository

	switch a.Config.LedgerBackend {
	case config.BackendMemory:
		logger.L().Warn("Using in-memory ledger, expenses are lost on restart")
		repo = repository.NewMemoryExpenseRepository()
	default:
		mongoClient, err := mongo.InitFromConfig(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("init MongoDB failed: %w", err)
		}
		a.MongoDB = mongoClient
		logger.L().Info("MongoDB initialized successfully")

		repo = repository.NewMongoExpenseRepository(mongoClient.Database())
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure expense indexes failed: %w", err)
		}
	}

	var opts []service.Option

	if len(a.Config.MemcacheHosts) > 0 {
		mc, err := cache.NewMemcache(a.Config.MemcacheHosts)
		if err != nil {
			// 缓存不可用时直接查库
			logger.L().Warnf("Report cache disabled: %v", err)
		} else {
			opts = append(opts, service.WithReportCache(mc))
		}
	}

	if a.Config.AMQP.URL != "" {
		publisher, err := amqp.NewPublisher(a.Config.AMQP.URL, a.Config.AMQP.Exchange, a.Config.AMQP.Queue)
		if err != nil {
			return fmt.Errorf("init AMQP publisher failed: %w", err)
		}
		a.publisher = publisher
		opts = append(opts, service.WithEventPublisher(publisher))
	}

	a.Ledger = service.NewLedgerService(repo, opts...)
	return nil
}

func (a *App) buildResponders(ctx context.Context) ([]bot.Responder, error) {
	var responders []bot.Responder

	if a.Config.NeedsLedger() {
		responders = append(responders, bot.NewLedgerResponder(a.Ledger), bot.HelpResponder{})
	}

	if a.Config.NeedsAI() {
		completer, err := newCompleter(ctx, a.Config)
		if err != nil {
			return nil, err
		}
		fallbackOnly := a.Config.Mode == config.ModeHybrid
		responders = append(responders, bot.NewAssistantResponder(completer, fallbackOnly))
	}

	return responders, nil
}

func newCompleter(ctx context.Context, cfg *config.Config) (bot.Completer, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.AI.Gemini, cfg.AI.SystemPrompt)
		if err != nil {
			return nil, fmt.Errorf("init Gemini client failed: %w", err)
		}
		return client, nil
	default:
		client, err := xai.NewClient(cfg.AI.XAI, xai.WithSystemPrompt(cfg.AI.SystemPrompt))
		if err != nil {
			return nil, fmt.Errorf("init xAI client failed: %w", err)
		}
		return client, nil
	}
}

// Close 优雅关闭所有服务
// 先停止 WhatsApp（等待处理中的消息），再关闭存储
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.WhatsApp != nil {
		if err := a.WhatsApp.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close WhatsApp failed: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP failed: %w", err))
		}
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close MongoDB failed: %w", err))
		}
	}

	return errors.Join(errs...)
}
