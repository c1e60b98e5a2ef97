package amqp

import (
	"encoding/json"
	"time"
)

// PaymentsSavedMessage announces that a show's payment records were
// persisted. It carries only the show key and summary figures; the
// worker fetches the full records from the gateway before exporting.
type PaymentsSavedMessage struct {
	Venue       string    `json:"venue"`
	ShowDate    string    `json:"show_date"`
	RecordCount int       `json:"record_count"`
	TotalAmount string    `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewPaymentsSavedMessage creates a saved notification for one show
func NewPaymentsSavedMessage(venue, showDate string, recordCount int, totalAmount string) *PaymentsSavedMessage {
	return &PaymentsSavedMessage{
		Venue:       venue,
		ShowDate:    showDate,
		RecordCount: recordCount,
		TotalAmount: totalAmount,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentsSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentsSavedMessageFromJSON creates a message from JSON bytes
func PaymentsSavedMessageFromJSON(data []byte) (*PaymentsSavedMessage, error) {
	var msg PaymentsSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
