package rpc

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// jsonCodec replaces connect's protobuf JSON codec so plain structs can be
// used as messages. It keeps the "json" name, so the wire format is the
// regular Connect JSON one.
type jsonCodec struct{}

// Name returns the codec name.
func (jsonCodec) Name() string {
	return "json"
}

// Marshal encodes a message.
func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

// Unmarshal decodes a message. An empty body leaves the message at its zero value.
func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}
