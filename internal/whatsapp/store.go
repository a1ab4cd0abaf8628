package whatsapp

import (
	"context"
	"fmt"

	"despesas_bot/internal/logger"

	_ "github.com/lib/pq"           // postgres 凭证存储
	_ "github.com/mattn/go-sqlite3" // sqlite3 凭证存储
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// openDeviceStore 打开配对凭证存储并返回第一个设备，首次运行时为新设备
func openDeviceStore(ctx context.Context, dialect, dsn string) (*sqlstore.Container, *store.Device, error) {
	if dsn == "" {
		return nil, nil, fmt.Errorf("whatsapp store dsn cannot be empty")
	}

	container, err := sqlstore.New(ctx, dialect, dsn, newLogger(logger.WithModule("whatsapp"), "Database"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open whatsapp store (%s): %w", dialect, err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, nil, fmt.Errorf("failed to load whatsapp device: %w", err)
	}

	return container, device, nil
}
