package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefreshMessage asks a worker to re-import a table from a record source.
type RefreshMessage struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	Table       string    `json:"table"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshMessage creates a message with a fresh random ID.
func NewRefreshMessage(source, table string) *RefreshMessage {
	return &RefreshMessage{
		ID:          uuid.New(),
		Source:      source,
		Table:       table,
		RequestedAt: time.Now().UTC(),
	}
}

func (m *RefreshMessage) Validate() error {
	if m.ID == uuid.Nil {
		return errors.New("refresh message without id")
	}
	return nil
}

func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes and validates a message body.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
