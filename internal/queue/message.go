package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current wire format version.
const MessageVersion = 1

// Message is the payload sent to downstream queue consumers.
// Attempt counts completed pipeline runs for this analysis; the first
// enqueue carries attempt 0 and each scheduled retry increments it.
type Message struct {
	AnalysisID string    `json:"analysisId"`
	RequestID  string    `json:"requestId"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Version    int       `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
