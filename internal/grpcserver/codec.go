package grpcserver

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content subtype of the party planner messages
// ("application/grpc+json"). Clients select it with grpc.CallContentSubtype.
const CodecName = "json"

// jsonCodec carries the same DTOs as the HTTP API. Protobuf messages, such
// as the health checking ones, are encoded with protojson.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if message, ok := v.(proto.Message); ok {
		return protojson.Marshal(message)
	}

	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if message, ok := v.(proto.Message); ok {
		return protojson.Unmarshal(data, message)
	}

	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
