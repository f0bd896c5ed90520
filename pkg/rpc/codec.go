package rpc

import "encoding/json"

// Codec is a plain JSON codec for Connect handlers and clients. The
// messages in this package are hand-written structs, so the default
// protobuf codecs do not apply.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (Codec) Unmarshal(data []byte, message any) error {
	return json.Unmarshal(data, message)
}
