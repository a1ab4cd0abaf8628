package mongo

import (
	"context"
	"fmt"
	"time"

	"despesas_bot/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout = 10 * time.Second
	appName        = "despesas-bot"
)

// Client 持有账本使用的 MongoDB 连接
type Client struct {
	*mongo.Client
	dbName  string
	timeout time.Duration
}

// Config 定义 MongoDB 连接配置
type Config struct {
	URI      string        // 例如 "mongodb://localhost:27017"
	Database string        // 账本所在数据库
	Timeout  time.Duration // 连接与 ping 超时
}

// Connect 建立连接并 ping 主节点，失败时不会留下打开的连接
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("MongoDB URI cannot be empty")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(cfg.Timeout).
		SetRetryWrites(true)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		Client:  client,
		dbName:  cfg.Database,
		timeout: cfg.Timeout,
	}, nil
}

// InitFromConfig 从应用配置创建 MongoDB 客户端
func InitFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	return Connect(ctx, Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDBName,
		Timeout:  cfg.MongoTimeout,
	})
}

// Close 断开连接，nil 客户端直接返回
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Disconnect(ctx)
}

// Database 返回账本数据库句柄
func (c *Client) Database() *mongo.Database {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Database(c.dbName)
}

// Ping 在配置的超时内检查主节点可用
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("MongoDB client is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.Ping(pingCtx, readpref.Primary())
}
