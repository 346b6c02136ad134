package events

import (
	"encoding/json"
	"fmt"

	"kitchen-orders/internal/model"
)

// Encode serialises a kitchen event for the wire.
func Encode(event model.KitchenEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode kitchen event: %w", err)
	}
	return payload, nil
}

// Decode parses and validates a kitchen event received from the wire.
func Decode(payload []byte) (model.KitchenEvent, error) {
	var event model.KitchenEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return model.KitchenEvent{}, fmt.Errorf("failed to decode kitchen event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return model.KitchenEvent{}, fmt.Errorf("invalid kitchen event: %w", err)
	}
	return event, nil
}
