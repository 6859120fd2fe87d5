package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoData is returned by Message.Decode when the frame has no data field.
var ErrNoData = errors.New("message has no data")

// Message is a decoded inbound frame.
type Message struct {
	ID         uuid.UUID       // Assigned locally when the frame is decoded
	Type       string          // Event type, selects the handler list
	Data       json.RawMessage // Opaque payload ("data" field)
	Raw        json.RawMessage // The entire frame as received
	ConnID     uuid.UUID       // Session the frame arrived on
	ReceivedAt time.Time       // Local timestamp when the frame was read
}

// envelope is the minimum shape every frame must decode into.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Parse decodes a raw frame. Frames that are not JSON objects, or whose
// type is missing or not a string, return an error.
func Parse(frame []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, err
	}
	if env.Type == "" {
		return Message{}, errors.New("frame has no type")
	}
	return Message{
		ID:   uuid.New(),
		Type: env.Type,
		Data: env.Data,
		Raw:  json.RawMessage(frame),
	}, nil
}

// Decode unmarshals the data field into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return ErrNoData
	}
	return json.Unmarshal(m.Data, v)
}

// Unmarshal unmarshals the entire frame into v.
func (m Message) Unmarshal(v any) error {
	return json.Unmarshal(m.Raw, v)
}
