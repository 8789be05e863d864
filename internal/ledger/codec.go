package ledger

import (
	"encoding/json"
	"fmt"

	"pocketbook/internal/core"
)

// Encode serializes records, in order, to the stored JSON array format.
func Encode(records []core.Record) (string, error) {
	if records == nil {
		records = []core.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode records: %w", err)
	}
	return string(b), nil
}

// Decode parses a stored JSON array. An empty payload decodes to no records.
func Decode(payload string) ([]core.Record, error) {
	if payload == "" {
		return []core.Record{}, nil
	}
	var records []core.Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}
