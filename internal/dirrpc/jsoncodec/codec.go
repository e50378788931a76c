// Package jsoncodec registers a grpc/encoding.Codec that marshals plain Go
// structs with encoding/json instead of protobuf. The DIR wire protocol
// itself is out of scope for this module (SPEC_FULL.md §1); this codec lets
// the reference DIR client use the real google.golang.org/grpc transport
// (dialing, interceptors, credentials, codes/status) without requiring
// protoc-generated bindings for a protocol this module does not own.
package jsoncodec

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Name is passed to grpc.CallContentSubtype to select this codec per call.
const Name = "json"

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (codec) Name() string {
	return Name
}

// Codec is the shared instance registered with grpc/encoding.
var Codec = codec{}

func init() {
	encoding.RegisterCodec(Codec)
}
