package bot

import (
	"fmt"
	"strings"

	"despesas_bot/internal/ledger/models"

	"github.com/shopspring/decimal"
)

// 固定回复文本
const (
	FailureReply     = "❌ Não foi possível processar sua mensagem agora. Tente novamente mais tarde."
	EmptyReportReply = "📋 Nenhuma despesa registrada."

	HelpReply = "🤖 Não entendi. Exemplos:\n" +
		"• ifood 144 (registra uma despesa)\n" +
		"• parcela 3x 150 (registra uma compra parcelada)\n" +
		"• saldo (total gasto)\n" +
		"• relatorio (total por categoria)"
)

// FormatRegistered 支出登记确认
func FormatRegistered(amount decimal.Decimal, category string, installments int) string {
	return fmt.Sprintf("✅ Despesa registrada: R$%s em %s (%dx)", amount.StringFixed(2), category, installments)
}

// FormatBalance 余额查询回复
func FormatBalance(total decimal.Decimal) string {
	return fmt.Sprintf("📊 Seu saldo: R$%s", total.StringFixed(2))
}

// FormatReport 分类报表回复，每个分类一行
func FormatReport(totals []models.CategoryTotal) string {
	if len(totals) == 0 {
		return EmptyReportReply
	}

	var b strings.Builder
	b.WriteString("📋 Relatório por categoria:")
	for _, total := range totals {
		fmt.Fprintf(&b, "\n%s: R$%s", total.Category, total.Total.StringFixed(2))
	}
	return b.String()
}
