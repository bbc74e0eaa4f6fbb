package events

import (
	"encoding/json"
	"time"
)

// TransactionEventMessage is the lightweight broker payload for a
// transaction write. It carries the ID and origin only, consumers fetch
// whatever else they need from the database.
type TransactionEventMessage struct {
	TransactionID string    `json:"transaction_id"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(transactionID, source string) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: transactionID,
		Source:        source,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
