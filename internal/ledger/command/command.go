package command

import (
	"github.com/shopspring/decimal"
)

// Kind 命令类型
type Kind int

const (
	KindUnrecognized Kind = iota
	KindRegisterExpense
	KindQueryBalance
	KindQueryReport
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindRegisterExpense:
		return "register_expense"
	case KindQueryBalance:
		return "query_balance"
	case KindQueryReport:
		return "query_report"
	default:
		return "unrecognized"
	}
}

// Expense is the payload of a register-expense command.
type Expense struct {
	Category     string
	Amount       decimal.Decimal
	Installments int
}

// Command is the classified intent of an inbound message.
// Expense is only meaningful when Kind is KindRegisterExpense.
type Command struct {
	Kind    Kind
	Expense Expense
}

// RegisterExpense builds a register-expense command.
func RegisterExpense(category string, amount decimal.Decimal, installments int) Command {
	return Command{
		Kind: KindRegisterExpense,
		Expense: Expense{
			Category:     category,
			Amount:       amount,
			Installments: installments,
		},
	}
}

// QueryBalance builds a balance query.
func QueryBalance() Command {
	return Command{Kind: KindQueryBalance}
}

// QueryReport builds a report query.
func QueryReport() Command {
	return Command{Kind: KindQueryReport}
}

// Unrecognized builds the fallback command.
func Unrecognized() Command {
	return Command{Kind: KindUnrecognized}
}

// IsQuery reports whether the command only reads the ledger.
func (c Command) IsQuery() bool {
	return c.Kind == KindQueryBalance || c.Kind == KindQueryReport
}
