package whatsapp

import (
	"strings"

	"despesas_bot/internal/bot"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// 丢弃原因（用于调试日志）
const (
	skipNil       = "nil event"
	skipFromSelf  = "from self"
	skipBroadcast = "broadcast"
	skipGroup     = "group chat"
	skipNoText    = "no text"
)

// extractInbound 把 whatsmeow 消息事件转换成 InboundMessage
// ok=false 时 reason 说明丢弃原因
func extractInbound(evt *events.Message, allowGroups bool) (msg bot.InboundMessage, ok bool, reason string) {
	if evt == nil || evt.Message == nil {
		return bot.InboundMessage{}, false, skipNil
	}

	info := evt.Info
	if info.IsFromMe {
		return bot.InboundMessage{}, false, skipFromSelf
	}
	if info.Chat.Server == types.BroadcastServer {
		return bot.InboundMessage{}, false, skipBroadcast
	}
	if info.IsGroup && !allowGroups {
		return bot.InboundMessage{}, false, skipGroup
	}

	text := messageText(evt.Message)
	if strings.TrimSpace(text) == "" {
		return bot.InboundMessage{}, false, skipNoText
	}

	return bot.InboundMessage{
		SenderID:   info.Sender.User,
		ChatJID:    info.Chat.String(),
		Text:       text,
		FromSelf:   info.IsFromMe,
		IsGroup:    info.IsGroup,
		ReceivedAt: info.Timestamp,
	}, true, ""
}

// messageText 读取纯文本或扩展文本（带链接预览、引用回复时使用）
func messageText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if text := m.GetConversation(); text != "" {
		return text
	}
	return m.GetExtendedTextMessage().GetText()
}

// textMessage 构造纯文本回复
func textMessage(text string) *waE2E.Message {
	return &waE2E.Message{Conversation: &text}
}
