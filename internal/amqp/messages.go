package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSyncMessage tells the mirror worker that a snapshot reached
// durable storage. It carries only the partition key and the save time; the
// worker fetches the full snapshot from the store.
type SnapshotSyncMessage struct {
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updatedAt"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotSyncMessage creates a sync message for the given identity
func NewSnapshotSyncMessage(email string, updatedAt time.Time) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		Email:     email,
		UpdatedAt: updatedAt,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSyncMessageFromJSON creates a message from JSON bytes
func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
