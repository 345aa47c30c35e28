package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/polydock/engine/cascade"
)

// Payload is the wire format delivered to subscriber endpoints
type Payload struct {
	Event          string            `json:"event"`
	InstanceID     string            `json:"instance_id"`
	PreviousStatus string            `json:"previous_status"`
	NewStatus      string            `json:"new_status"`
	Data           map[string]string `json:"data"`
}

// BuildPayload serializes a status change into the redacted wire payload
func BuildPayload(ev cascade.StatusChange, policy RedactionPolicy) ([]byte, error) {
	payload := Payload{
		Event:          ev.Event(),
		InstanceID:     ev.InstanceID,
		PreviousStatus: ev.From.String(),
		NewStatus:      ev.To.String(),
		Data:           policy.Redact(ev.Data),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	return body, nil
}
