package events

import "encoding/json"

// Raw is an event relayed from another service instance. The payload is
// already-encoded JSON; it is routed locally without re-interpretation.
type Raw struct {
	Name    string
	Payload json.RawMessage
}

func (r Raw) EventName() string { return r.Name }

// MarshalJSON emits the payload unchanged.
func (r Raw) MarshalJSON() ([]byte, error) {
	if len(r.Payload) == 0 {
		return []byte("null"), nil
	}
	return r.Payload, nil
}
