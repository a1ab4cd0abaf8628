package amqp

import (
	"encoding/json"
	"time"

	"despesas_bot/internal/ledger/models"
)

// ExpenseRecordedMessage 一条支出记录成功写入后发布的事件
type ExpenseRecordedMessage struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	Amount       string    `json:"amount"` // 两位小数的十进制字符串
	Category     string    `json:"category"`
	Installments int       `json:"installments"`
	RecordedAt   time.Time `json:"recorded_at"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage 从记录构造事件
func NewExpenseRecordedMessage(record *models.ExpenseRecord) *ExpenseRecordedMessage {
	msg := &ExpenseRecordedMessage{
		User:         record.User,
		Amount:       record.AmountDecimal().StringFixed(2),
		Category:     record.Category,
		Installments: record.Installments,
		RecordedAt:   record.RecordedAt,
		Timestamp:    time.Now(),
	}
	if !record.ID.IsZero() {
		msg.ID = record.ID.Hex()
	}
	return msg
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON 解析事件
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
