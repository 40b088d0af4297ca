package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Event is the input dispatched to the interpreter.
type Event struct {
	Type string         `json:"type" yaml:"type"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewEvent creates an event without payload.
func NewEvent(eventType string) Event {
	return Event{Type: eventType}
}

// ParseEvent decodes an event object as typed by a user.
// It accepts JSON, YAML flow syntax ({type: go, amount: 2}) or a bare event name.
// Every key other than "type" becomes part of Data. A "data" mapping, as produced by
// marshalling an Event, is merged into Data so that the JSON form round-trips.
func ParseEvent(payload []byte) (Event, error) {
	if strings.TrimSpace(string(payload)) == "" {
		return Event{}, &InvalidEventPayloadError{Reason: "empty payload"}
	}

	var raw any
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return Event{}, &InvalidEventPayloadError{Reason: "malformed payload", Err: err}
	}

	switch v := raw.(type) {
	case string:
		evt := NewEvent(strings.TrimSpace(v))
		return evt, evt.Validate()
	case map[string]any:
		t, ok := v["type"].(string)
		if !ok {
			if _, present := v["type"]; present {
				return Event{}, &InvalidEventPayloadError{Reason: fmt.Sprintf("event type must be a string, got %T", v["type"])}
			}
			return Event{}, &InvalidEventPayloadError{Reason: "event type is required"}
		}
		evt := Event{Type: t}
		set := func(k string, val any) {
			if evt.Data == nil {
				evt.Data = make(map[string]any, len(v))
			}
			evt.Data[k] = val
		}
		// The marshalled form nests the payload under "data"; top-level keys win.
		if nested, ok := v["data"].(map[string]any); ok {
			for k, val := range nested {
				set(k, val)
			}
		}
		for k, val := range v {
			if k == "type" {
				continue
			}
			if _, ok := val.(map[string]any); ok && k == "data" {
				continue
			}
			set(k, val)
		}
		return evt, evt.Validate()
	default:
		return Event{}, &InvalidEventPayloadError{Reason: fmt.Sprintf("event must be an object or a name, got %T", raw)}
	}
}

// Validate checks that the event can be dispatched.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return &InvalidEventPayloadError{Reason: "event type is required"}
	}
	return nil
}

// Field returns a payload field, or nil if absent.
func (e Event) Field(key string) any {
	if e.Data == nil {
		return nil
	}
	return e.Data[key]
}
