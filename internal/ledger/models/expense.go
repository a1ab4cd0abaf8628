package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpenseRecord 支出记录（只追加，创建后不可修改）
type ExpenseRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	User         string             `bson:"user"`         // 发送者号码（JID 的 user 部分）
	Amount       float64            `bson:"amount"`       // 金额，始终为正数
	Category     string             `bson:"category"`     // 分类，分期时固定为 "Parcela"
	Installments int                `bson:"installments"` // 分期数，默认 1（不参与汇总）
	RecordedAt   time.Time          `bson:"recorded_at"`  // 记录时间
	CreatedAt    time.Time          `bson:"created_at"`   // 数据库创建时间
}

// AmountDecimal returns the amount as a decimal for formatting and sums.
func (r *ExpenseRecord) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(r.Amount)
}

// IsInstallment 是否为分期支出
func (r *ExpenseRecord) IsInstallment() bool {
	return r.Installments > 1
}

// CategoryTotal 按分类汇总结果
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}
