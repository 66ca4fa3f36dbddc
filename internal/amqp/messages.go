package amqp

import (
	"encoding/json"
	"time"
)

// PaymentArchiveMessage asks the archive worker to mirror one payment to the
// external archive sheet. It carries only the payment id; the worker reads
// the full record from the store.
type PaymentArchiveMessage struct {
	PaymentID string    `json:"paymentId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPaymentArchiveMessage(paymentID string) *PaymentArchiveMessage {
	return &PaymentArchiveMessage{
		PaymentID: paymentID,
		Timestamp: time.Now(),
	}
}

func (m *PaymentArchiveMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentArchiveMessageFromJSON(data []byte) (*PaymentArchiveMessage, error) {
	var msg PaymentArchiveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
