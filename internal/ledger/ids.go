package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator returns a fresh record identifier.
type IDGenerator func() (string, error)

// NewID returns a UUIDv7: a millisecond timestamp prefix followed by random
// bits, so IDs sort roughly by creation time and never repeat.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
