package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 运行模式
const (
	ModeLedger    = "ledger"    // 记账：分类消息并读写账本
	ModeAssistant = "assistant" // 助手：所有文本转发给 LLM
	ModeHybrid    = "hybrid"    // 记账优先，无法识别的文本交给 LLM
)

// 账本存储后端
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AI 提供方
const (
	ProviderXAI    = "xai"
	ProviderGemini = "gemini"
)

// Config 应用程序配置
type Config struct {
	Mode          string        // 运行模式：ledger/assistant/hybrid
	LedgerBackend string        // 账本后端：mongo/memory
	MongoURI      string        // MongoDB连接URI
	MongoDBName   string        // MongoDB数据库名称
	MongoTimeout  time.Duration // MongoDB连接超时
	MetricsAddr   string        // Prometheus 监听地址，为空则不启动
	MemcacheHosts []string      // 报表缓存节点，为空则不启用
	WhatsApp      WhatsAppConfig
	Workers       WorkerConfig
	AI            AIConfig
	AMQP          AMQPConfig
}

// WhatsAppConfig WhatsApp 会话配置
type WhatsAppConfig struct {
	StoreDialect         string        // 凭证存储方言：sqlite3/postgres
	StoreDSN             string        // 凭证存储连接串
	AllowGroups          bool          // 是否处理群聊消息
	SendRatePerSecond    int           // 每秒最多发送条数
	ReconnectInitial     time.Duration // 首次重连等待
	ReconnectMax         time.Duration // 重连等待上限
	ReconnectMaxAttempts int           // 最大重连次数，0 表示不限
}

// WorkerConfig 消息处理工作池配置
type WorkerConfig struct {
	Count     int
	QueueSize int
}

// AIConfig LLM 配置
type AIConfig struct {
	Provider     string
	SystemPrompt string
	XAI          XAIConfig
	Gemini       GeminiConfig
}

// XAIConfig xAI（OpenAI 兼容）接口配置
type XAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiConfig Google Gemini 配置
type GeminiConfig struct {
	APIKey string
	Model  string
}

// AMQPConfig 支出事件发布配置，URL 为空则不启用
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		Mode:          strings.ToLower(envOrDefault("BOT_MODE", ModeLedger)),
		LedgerBackend: strings.ToLower(envOrDefault("LEDGER_BACKEND", BackendMongo)),
		MongoURI:      strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDBName:   envOrDefault("MONGO_DB_NAME", "despesas_bot"),
		MetricsAddr:   strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		MemcacheHosts: parseList(os.Getenv("MEMCACHE_HOSTS")),
		WhatsApp: WhatsAppConfig{
			StoreDialect: strings.ToLower(envOrDefault("WHATSAPP_STORE_DIALECT", "sqlite3")),
			StoreDSN:     envOrDefault("WHATSAPP_STORE_DSN", "file:whatsapp.db?_foreign_keys=on"),
		},
		AI: AIConfig{
			Provider:     strings.ToLower(envOrDefault("AI_PROVIDER", ProviderXAI)),
			SystemPrompt: strings.TrimSpace(os.Getenv("AI_SYSTEM_PROMPT")),
			XAI: XAIConfig{
				APIKey:  strings.TrimSpace(os.Getenv("XAI_API_KEY")),
				BaseURL: strings.TrimSpace(os.Getenv("XAI_BASE_URL")),
				Model:   strings.TrimSpace(os.Getenv("XAI_MODEL")),
			},
			Gemini: GeminiConfig{
				APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
				Model:  strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
			},
		},
		AMQP: AMQPConfig{
			URL:      strings.TrimSpace(os.Getenv("AMQP_URL")),
			Exchange: envOrDefault("AMQP_EXCHANGE", "despesas"),
			Queue:    envOrDefault("AMQP_QUEUE", "expense.recorded"),
		},
	}

	var err error

	if cfg.MongoTimeout, err = parseSeconds("MONGO_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.AI.XAI.Timeout, err = parseSeconds("XAI_TIMEOUT_SECONDS", 15); err != nil {
		return nil, err
	}

	if cfg.WhatsApp.AllowGroups, err = parseBool("WHATSAPP_ALLOW_GROUPS", false); err != nil {
		return nil, err
	}
	if cfg.WhatsApp.SendRatePerSecond, err = parsePositiveInt("WHATSAPP_SEND_RATE", 5); err != nil {
		return nil, err
	}
	if cfg.WhatsApp.ReconnectInitial, err = parseSeconds("RECONNECT_INITIAL_SECONDS", 2); err != nil {
		return nil, err
	}
	if cfg.WhatsApp.ReconnectMax, err = parseSeconds("RECONNECT_MAX_SECONDS", 120); err != nil {
		return nil, err
	}
	if cfg.WhatsApp.ReconnectMaxAttempts, err = parseNonNegativeInt("RECONNECT_MAX_ATTEMPTS", 0); err != nil {
		return nil, err
	}

	if cfg.Workers.Count, err = parsePositiveInt("WORKER_COUNT", 4); err != nil {
		return nil, err
	}
	if cfg.Workers.QueueSize, err = parsePositiveInt("WORKER_QUEUE_SIZE", 100); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置组合是否可用
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLedger, ModeAssistant, ModeHybrid:
	default:
		return fmt.Errorf("invalid BOT_MODE %q (want ledger, assistant or hybrid)", c.Mode)
	}

	if c.NeedsLedger() {
		switch c.LedgerBackend {
		case BackendMongo:
			if c.MongoURI == "" {
				return fmt.Errorf("MONGO_URI is required when LEDGER_BACKEND=mongo")
			}
		case BackendMemory:
		default:
			return fmt.Errorf("invalid LEDGER_BACKEND %q (want mongo or memory)", c.LedgerBackend)
		}
	}

	if c.NeedsAI() {
		switch c.AI.Provider {
		case ProviderXAI:
			if c.AI.XAI.APIKey == "" {
				return fmt.Errorf("XAI_API_KEY is required when AI_PROVIDER=xai")
			}
		case ProviderGemini:
			if c.AI.Gemini.APIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
			}
		default:
			return fmt.Errorf("invalid AI_PROVIDER %q (want xai or gemini)", c.AI.Provider)
		}
	}

	switch c.WhatsApp.StoreDialect {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid WHATSAPP_STORE_DIALECT %q (want sqlite3 or postgres)", c.WhatsApp.StoreDialect)
	}

	if c.WhatsApp.ReconnectMax < c.WhatsApp.ReconnectInitial {
		return fmt.Errorf("RECONNECT_MAX_SECONDS must be >= RECONNECT_INITIAL_SECONDS")
	}

	return nil
}

// NeedsLedger 当前模式是否需要账本
func (c *Config) NeedsLedger() bool {
	return c.Mode == ModeLedger || c.Mode == ModeHybrid
}

// NeedsAI 当前模式是否需要 LLM
func (c *Config) NeedsAI() bool {
	return c.Mode == ModeAssistant || c.Mode == ModeHybrid
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// parseList 解析逗号分隔的列表，忽略空项
func parseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return value, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("%s must be >= 1, got %d", key, value)
	}
	return value, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, value)
	}
	return value, nil
}

func parseSeconds(key string, def int) (time.Duration, error) {
	seconds, err := parsePositiveInt(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
