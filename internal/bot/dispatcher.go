package bot

import (
	"context"
	"time"

	"despesas_bot/internal/ledger/command"
	"despesas_bot/internal/ledger/service"
	"despesas_bot/internal/logger"
)

// Dispatcher 把一条入站消息变成一条回复：分类、交给 Responder、处理错误
type Dispatcher struct {
	manager *Manager
	metrics *Metrics
}

// NewDispatcher 创建分发器，metrics 可为 nil
func NewDispatcher(manager *Manager, metrics *Metrics) *Dispatcher {
	return &Dispatcher{manager: manager, metrics: metrics}
}

// Handle 处理一条消息
// 返回 ok=false 表示不需要回复（自己发出的消息、无文本、没有 Responder 处理）。
// Responder 出错时记录日志并返回通用失败回复，调用方无需再处理错误。
func (d *Dispatcher) Handle(ctx context.Context, msg InboundMessage) (reply string, ok bool) {
	if msg.FromSelf || !msg.HasText() {
		return "", false
	}

	start := time.Now()
	cmd := command.Classify(msg.Text)

	name, reply, handled, err := d.manager.Process(ctx, msg, cmd)
	d.metrics.ObserveHandle(cmd.Kind.String(), err != nil, time.Since(start))

	if err != nil {
		entry := logger.WithModule("dispatcher").WithFields(map[string]interface{}{
			"sender":    msg.SenderID,
			"command":   cmd.Kind.String(),
			"responder": name,
		})
		if service.IsStorageFault(err) {
			entry.Errorf("Storage fault while handling message: %v", err)
		} else {
			entry.Errorf("Failed to handle message: %v", err)
		}
		return FailureReply, true
	}

	if !handled || reply == "" {
		logger.L().Debugf("No responder handled message from %s (command=%s)", msg.SenderID, cmd.Kind)
		return "", false
	}

	return reply, true
}

// Responders 按执行顺序返回已注册的 Responder 名称
func (d *Dispatcher) Responders() []string {
	return d.manager.ListResponders()
}
