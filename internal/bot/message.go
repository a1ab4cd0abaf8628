package bot

import (
	"strings"
	"time"
)

// InboundMessage 传输层提取出的文本消息
type InboundMessage struct {
	SenderID   string    // 发送者号码，例如 "559291234567"
	ChatJID    string    // 回复目标，例如 "559291234567@s.whatsapp.net"
	Text       string    // 消息正文
	FromSelf   bool      // 本账号自己发出的消息
	IsGroup    bool      // 来自群聊
	ReceivedAt time.Time // 接收时间
}

// HasText 正文去掉空白后是否非空
func (m InboundMessage) HasText() bool {
	return strings.TrimSpace(m.Text) != ""
}
