package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// ContentType of every published message.
const ContentType = "application/json"

// EncodeEvent converts the event to JSON bytes
func EncodeEvent(evt core.Event) ([]byte, error) {
	return json.Marshal(evt)
}

// DecodeEvent parses a message body and rejects events the worker cannot
// route to a month.
func DecodeEvent(data []byte) (core.Event, error) {
	var evt core.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return core.Event{}, err
	}
	if evt.Type == "" {
		return core.Event{}, errors.New("event without type")
	}
	if _, err := core.ParseMonth(evt.Month); err != nil {
		return core.Event{}, fmt.Errorf("event %s: %w", evt.ID, err)
	}
	return evt, nil
}
