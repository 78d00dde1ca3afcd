package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is registered under the name "proto" — the name grpc-go falls
// back to whenever a call sets no content-subtype, which is what happens
// when neither client nor server were generated by protoc. This lets the
// inspection API run over real gRPC (HTTP/2 framing, multiplexing,
// cancellation) without a .pb.go, per SPEC_FULL.md's "Inspection API
// without protoc" note. It must be registered exactly once, from an
// init() in the same process that also runs the gRPC server or dials it.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
