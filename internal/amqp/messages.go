package amqp

import (
	"encoding/json"
	"time"
)

// MirrorSyncMessage asks the notifier to push the current subscription
// set to the spreadsheet mirror. It carries no row data: the notifier
// reads the store itself, so a burst of edits collapses into one push.
// Revision orders messages so a stale one can be skipped after a newer
// push already ran.
type MirrorSyncMessage struct {
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMirrorSyncMessage(revision int64) *MirrorSyncMessage {
	return &MirrorSyncMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *MirrorSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MirrorSyncMessageFromJSON(data []byte) (*MirrorSyncMessage, error) {
	var msg MirrorSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderDispatchMessage asks the notifier to run one reminder pass
// over the subscriptions due within Days.
type ReminderDispatchMessage struct {
	Days      int       `json:"days"`
	Force     bool      `json:"force"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReminderDispatchMessage(days int, force bool) *ReminderDispatchMessage {
	return &ReminderDispatchMessage{
		Days:      days,
		Force:     force,
		Timestamp: time.Now(),
	}
}

func (m *ReminderDispatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderDispatchMessageFromJSON(data []byte) (*ReminderDispatchMessage, error) {
	var msg ReminderDispatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
