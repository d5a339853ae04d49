package server

import (
	"encoding/json"
	"fmt"
)

// ParseIncoming decodes and validates a widget message. Click and hover
// events must name a series; an empty hover key clears the highlight.
func ParseIncoming(data []byte) (IncomingMsg, error) {
	var msg IncomingMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("decode message: %w", err)
	}
	switch msg.Type {
	case TypeSeriesClick:
		// "" is a valid key (the single group of an ungrouped query), so
		// presence is checked on the raw payload.
		if !hasKey(data) {
			return IncomingMsg{}, fmt.Errorf("%s without key", msg.Type)
		}
	case TypeSeriesHover, TypeReady:
	default:
		return IncomingMsg{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

func hasKey(data []byte) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw["key"]
	return ok
}
