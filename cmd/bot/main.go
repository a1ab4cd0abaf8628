package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"despesas_bot/internal/app"
	"despesas_bot/internal/config"
	"despesas_bot/internal/logger"
	"despesas_bot/internal/whatsapp"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 本地开发时加载 .env，生产环境忽略错误
	_ = godotenv.Load()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalf("配置加载失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.L().Fatalf("应用初始化失败: %v", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return application.WhatsApp.Start(egCtx)
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsHandler(application.Registry, application.WhatsApp.Session(), healthDB(application)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		eg.Go(func() error {
			logger.L().Infof("Metrics listening on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	runErr := eg.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.L().Errorf("Bot stopped with error: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Close(shutdownCtx); err != nil {
		logger.L().Errorf("Shutdown error: %v", err)
	}

	logger.L().Info("Bye")
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
}

func healthDB(a *app.App) pinger {
	if a.MongoDB == nil {
		return nil
	}
	return a.MongoDB
}

// sessionStatus WhatsApp 会话状态（/healthz 使用）
type sessionStatus interface {
	State() whatsapp.SessionState
	Healthy() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

// metricsHandler /metrics 与 /healthz；db 为 nil 时不检查存储
func metricsHandler(registry *prometheus.Registry, session sessionStatus, db pinger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		state := session.State().String()
		if !session.Healthy() {
			http.Error(w, "whatsapp: "+state, http.StatusServiceUnavailable)
			return
		}
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				http.Error(w, "mongo: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("whatsapp: " + state + "\n"))
	})
	return mux
}
