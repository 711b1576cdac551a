package socket

import (
	"encoding/json"
	"strings"
)

// Message is an inbound or outbound unit. Kind selects the handler and
// Payload is what the handler receives.
type Message struct {
	Kind    string `json:"kind"`
	Payload []byte `json:"payload,omitempty"`
}

// CompatMessage builds a message whose text is its own event name.
func CompatMessage(text string) Message {
	return Message{Kind: text, Payload: []byte(text)}
}

// Text decodes the payload, replacing invalid UTF-8 rather than rejecting it.
func (m Message) Text() string {
	return decodeText(m.Payload)
}

func decodeText(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// Codec turns wire bytes into messages and back.
type Codec interface {
	Decode(data []byte) (Message, error)
	Encode(msg Message) ([]byte, error)
}

// RawCodec treats the decoded text of every read as both kind and payload.
type RawCodec struct{}

func (RawCodec) Decode(data []byte) (Message, error) {
	text := decodeText(data)
	return Message{Kind: text, Payload: []byte(text)}, nil
}

// Encode writes the payload verbatim. A kind differing from the payload
// text cannot be represented on the wire and is rejected.
func (RawCodec) Encode(msg Message) ([]byte, error) {
	if msg.Kind != string(msg.Payload) {
		return nil, ErrKindMismatch
	}
	return msg.Payload, nil
}

// TaggedCodec carries kind and payload separately in a JSON envelope.
type TaggedCodec struct{}

func (TaggedCodec) Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, ErrInvalidMessage
	}
	if msg.Kind == "" {
		return Message{}, ErrInvalidMessage
	}
	return msg, nil
}

func (TaggedCodec) Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
