package bot

import (
	"context"
	"fmt"
	"strings"

	"despesas_bot/internal/ledger/command"
	"despesas_bot/internal/ledger/service"
	"despesas_bot/internal/logger"
)

// LedgerResponder 处理登记、余额和报表命令
type LedgerResponder struct {
	ledger service.LedgerService
}

// NewLedgerResponder 创建账本 Responder
func NewLedgerResponder(ledger service.LedgerService) *LedgerResponder {
	return &LedgerResponder{ledger: ledger}
}

func (r *LedgerResponder) Name() string  { return "ledger" }
func (r *LedgerResponder) Priority() int { return 10 }

func (r *LedgerResponder) Match(ctx context.Context, msg InboundMessage, cmd command.Command) bool {
	return cmd.Kind != command.KindUnrecognized
}

func (r *LedgerResponder) Respond(ctx context.Context, msg InboundMessage, cmd command.Command) (string, bool, error) {
	switch cmd.Kind {
	case command.KindRegisterExpense:
		exp := cmd.Expense
		record, err := r.ledger.Record(ctx, msg.SenderID, exp.Amount, exp.Category, exp.Installments)
		if err != nil {
			return "", true, fmt.Errorf("record expense: %w", err)
		}
		return FormatRegistered(record.AmountDecimal(), record.Category, record.Installments), true, nil

	case command.KindQueryBalance:
		total, err := r.ledger.Balance(ctx, msg.SenderID)
		if err != nil {
			return "", true, fmt.Errorf("query balance: %w", err)
		}
		return FormatBalance(total), true, nil

	case command.KindQueryReport:
		totals, err := r.ledger.Report(ctx, msg.SenderID)
		if err != nil {
			return "", true, fmt.Errorf("query report: %w", err)
		}
		return FormatReport(totals), true, nil
	}

	return "", false, nil
}

// HelpResponder 无法识别的消息回复用法说明
type HelpResponder struct{}

func (HelpResponder) Name() string  { return "help" }
func (HelpResponder) Priority() int { return 100 }

func (HelpResponder) Match(ctx context.Context, msg InboundMessage, cmd command.Command) bool {
	return cmd.Kind == command.KindUnrecognized
}

func (HelpResponder) Respond(ctx context.Context, msg InboundMessage, cmd command.Command) (string, bool, error) {
	return HelpReply, true, nil
}

// Completer LLM 文本补全
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AssistantResponder 把消息正文交给 LLM 并原样回复生成结果
type AssistantResponder struct {
	completer    Completer
	fallbackOnly bool
}

// NewAssistantResponder 创建助手 Responder
// fallbackOnly 为 true 时只处理分类为 unrecognized 的消息（hybrid 模式）
func NewAssistantResponder(completer Completer, fallbackOnly bool) *AssistantResponder {
	return &AssistantResponder{completer: completer, fallbackOnly: fallbackOnly}
}

func (r *AssistantResponder) Name() string  { return "assistant" }
func (r *AssistantResponder) Priority() int { return 90 }

func (r *AssistantResponder) Match(ctx context.Context, msg InboundMessage, cmd command.Command) bool {
	if r.fallbackOnly && cmd.Kind != command.KindUnrecognized {
		return false
	}
	return msg.HasText()
}

func (r *AssistantResponder) Respond(ctx context.Context, msg InboundMessage, cmd command.Command) (string, bool, error) {
	text, err := r.completer.Complete(ctx, msg.Text)
	if err != nil {
		return "", true, fmt.Errorf("complete prompt: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		// 已处理但不回复，也不再交给后面的 Responder
		logger.L().Warnf("Assistant returned empty completion for %s", msg.SenderID)
		return "", true, nil
	}
	return text, true, nil
}
