package event

import (
	"encoding/json"
	"fmt"
)

// Envelope seals one processed operation: the command, its effects,
// and the hash chain entry binding it to everything processed before
// it. Envelopes are the unit of persistence and replay.
type Envelope struct {
	Sequence      uint64         `json:"sequence"`
	Operation     Operation      `json:"operation"`
	Notifications []Notification `json:"notifications,omitempty"`
	// PrevHash and StateHash chain envelopes together; replaying the
	// log from genesis reproduces the same chain or the log has been
	// tampered with.
	PrevHash  string `json:"prev_hash"`
	StateHash string `json:"state_hash"`
}

// Marshal serializes the envelope for persistence or publication.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope seq %d: %w", e.Sequence, err)
	}
	return data, nil
}

// ParseEnvelope deserializes a persisted envelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &e, nil
}
