// Package jsoncodec lets connect handlers and clients exchange plain Go
// structs as JSON, without generated protobuf messages.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

const Name = "json"

type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string {
	return Name
}

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// HandlerOption registers the codec on a handler, replacing connect's
// protobuf JSON codec under the same name.
func HandlerOption() connect.HandlerOption {
	return connect.WithCodec(Codec{})
}

// ClientOption makes a client send and receive JSON with this codec.
func ClientOption() connect.ClientOption {
	return connect.WithCodec(Codec{})
}
