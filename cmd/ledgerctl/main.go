// Package main implements ledgerctl, an operator CLI for the expense ledger.
package main

import (
	"context"
	"os"
	"time"

	"despesas_bot/internal/app"
	"despesas_bot/internal/config"
	"despesas_bot/internal/ledger/service"
	"despesas_bot/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	if err := newRootCmd(defaultCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli 命令依赖，测试时替换
type cli struct {
	openLedger func(ctx context.Context) (service.LedgerService, func(), error)
	now        func() time.Time
}

func defaultCLI() *cli {
	return &cli{
		openLedger: func(ctx context.Context) (service.LedgerService, func(), error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, nil, err
			}
			a, err := app.NewLedger(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			return a.Ledger, func() { _ = a.Close(context.Background()) }, nil
		},
		now: time.Now,
	}
}
