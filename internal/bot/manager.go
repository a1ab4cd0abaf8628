package bot

import (
	"context"
	"sort"

	"despesas_bot/internal/ledger/command"
	"despesas_bot/internal/logger"
)

// Manager 注册并按优先级执行 Responder
type Manager struct {
	responders []Responder
}

// NewManager 创建 Responder 管理器
func NewManager(responders ...Responder) *Manager {
	m := &Manager{responders: make([]Responder, 0, len(responders))}
	for _, r := range responders {
		m.Register(r)
	}
	return m
}

// Register 注册 Responder，同优先级保持注册顺序
func (m *Manager) Register(responder Responder) {
	m.responders = append(m.responders, responder)

	sort.SliceStable(m.responders, func(i, j int) bool {
		return m.responders[i].Priority() < m.responders[j].Priority()
	})

	logger.L().Infof("Registered responder: %s (priority: %d)", responder.Name(), responder.Priority())
}

// Process 依次执行匹配的 Responder
// 返回值:
//   - name: 处理该消息的 Responder 名称，未处理时为空
//   - reply: 回复文本
//   - handled: 是否已被处理
//   - err: 处理过程中的错误
func (m *Manager) Process(ctx context.Context, msg InboundMessage, cmd command.Command) (name string, reply string, handled bool, err error) {
	for _, responder := range m.responders {
		if !responder.Match(ctx, msg, cmd) {
			continue
		}

		logger.L().Debugf("Responder %s matched message from %s", responder.Name(), msg.SenderID)

		reply, handled, err := responder.Respond(ctx, msg, cmd)
		if handled || err != nil {
			return responder.Name(), reply, handled, err
		}
	}

	return "", "", false, nil
}

// ListResponders 按执行顺序列出名称
func (m *Manager) ListResponders() []string {
	names := make([]string, len(m.responders))
	for i, r := range m.responders {
		names[i] = r.Name()
	}
	return names
}
