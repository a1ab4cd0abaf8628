package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// InstallmentCategory is the category stored for installment purchases.
const InstallmentCategory = "Parcela"

// rule pairs a pattern with the constructor that turns its submatches into a Command.
// build returns false when the match violates the record invariants (zero amount, zero installments).
type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(matches []string) (Command, bool)
}

// rules 按优先级排序，第一个匹配的规则生效
// 金额为 0（ifood 0）或分期为 0 的文本虽然匹配，但按未识别处理，账本只接受正数金额
var rules = []rule{
	{
		// 简单支出：ifood 144 / mercado 12.50
		name:    "simple_expense",
		pattern: regexp.MustCompile(`^([\p{L}\p{N}_]+)\s+(\d+(?:[.,]\d+)?)$`),
		build:   buildSimpleExpense,
	},
	{
		// 分期支出：parcela 3x 150
		name:    "installment_expense",
		pattern: regexp.MustCompile(`(?i)^parcela\s+(\d+)x\s+(\d+(?:[.,]\d+)?)$`),
		build:   buildInstallmentExpense,
	},
	{
		name:    "balance",
		pattern: regexp.MustCompile(`(?i)^saldo$`),
		build:   constant(QueryBalance()),
	},
	{
		name:    "report",
		pattern: regexp.MustCompile(`(?i)^relat[oó]rio$`),
		build:   constant(QueryReport()),
	},
}

// Classify maps raw message text to a Command.
// It never fails: text that matches no rule yields an Unrecognized command.
func Classify(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unrecognized()
	}

	for _, r := range rules {
		matches := r.pattern.FindStringSubmatch(text)
		if matches == nil {
			continue
		}
		if cmd, ok := r.build(matches); ok {
			return cmd
		}
		// 匹配但违反记录约束（零金额、零分期）
		return Unrecognized()
	}

	return Unrecognized()
}

// RuleNames lists the rules in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

func buildSimpleExpense(matches []string) (Command, bool) {
	amount, ok := parseAmount(matches[2])
	if !ok {
		return Command{}, false
	}
	return RegisterExpense(matches[1], amount, 1), true
}

func buildInstallmentExpense(matches []string) (Command, bool) {
	installments, err := strconv.Atoi(matches[1])
	if err != nil || installments < 1 {
		return Command{}, false
	}
	amount, ok := parseAmount(matches[2])
	if !ok {
		return Command{}, false
	}
	return RegisterExpense(InstallmentCategory, amount, installments), true
}

func constant(cmd Command) func([]string) (Command, bool) {
	return func([]string) (Command, bool) {
		return cmd, true
	}
}

// parseAmount accepts both "12.50" and "12,50".
func parseAmount(raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}
