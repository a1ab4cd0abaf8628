package bot

import (
	"context"

	"despesas_bot/internal/ledger/command"
)

// Responder 消息应答插件
//
// Manager 按 Priority 升序依次询问每个 Responder：
//   - Match 返回 false 时跳过
//   - Respond 返回 handled=true 或 err!=nil 时停止后续 Responder
//
// 推荐优先级:
//   - 1-20: 账本命令
//   - 51-99: LLM 助手
//   - 100: 帮助文本兜底
type Responder interface {
	// Name 返回名称（用于日志和指标标签）
	Name() string

	// Match 检查消息是否由该 Responder 处理，cmd 为分类结果
	Match(ctx context.Context, msg InboundMessage, cmd command.Command) bool

	// Respond 处理消息并返回回复文本
	Respond(ctx context.Context, msg InboundMessage, cmd command.Command) (reply string, handled bool, err error)

	// Priority 数值越小越先执行
	Priority() int
}
