package event

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("event: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("event: CBOR decoder initialization failed: " + err.Error())
	}
}

// envelope is the wire form of an Event. The payload is kept raw until the
// kind is known.
type envelope struct {
	ID         string          `cbor:"id"`
	Kind       Kind            `cbor:"kind"`
	Originator Originator      `cbor:"originator"`
	Payload    cbor.RawMessage `cbor:"payload"`
}

// Encode serializes e as a self-describing CBOR record.
func Encode(e Event) ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("encode event %s: missing payload", e.ID)
	}
	payload, err := encMode.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Kind(), err)
	}
	return encMode.Marshal(envelope{
		ID:         e.ID,
		Kind:       e.Kind(),
		Originator: e.Originator,
		Payload:    payload,
	})
}

// Decode parses a record produced by Encode. The payload shape is validated.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	decode, ok := decoders[env.Kind]
	if !ok {
		return Event{}, fmt.Errorf("decode event %s: unknown kind %q", env.ID, env.Kind)
	}
	payload, err := decode(env.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	if err := validatePayload(payload); err != nil {
		return Event{}, err
	}
	return Event{ID: env.ID, Originator: env.Originator, Payload: payload}, nil
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var p T
	if err := decMode.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}
