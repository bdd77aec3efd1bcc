package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope wraps every message on the wire with its type tag.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// Encode marshals a payload into a tagged envelope.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("envelope type must be set")
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling payload: %w", err)
	}
	return json.Marshal(Envelope{T: t, P: pb})
}

// DecodeEnvelope parses the outer envelope without touching the payload.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("empty message")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("unmarshalling envelope: %w", err)
	}
	if e.T == "" {
		return Envelope{}, fmt.Errorf("envelope type not set")
	}
	return e, nil
}

// DecodePayload unmarshals an envelope's payload into the given type.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.T)
	}
	err := json.Unmarshal(env.P, &out)
	return out, err
}
