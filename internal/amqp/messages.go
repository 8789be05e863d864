package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// LedgerChangedMessage announces that a ledger slot was saved. It carries only
// the slot key and version; the worker reads the payload from the database.
type LedgerChangedMessage struct {
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

var errMissingKey = errors.New("ledger changed message without key")

// NewLedgerChangedMessage creates a message stamped with the current time
func NewLedgerChangedMessage(key string, version int64, count int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Key:       key,
		Version:   version,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON parses a message and rejects ones without a key
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, errMissingKey
	}
	return &msg, nil
}
