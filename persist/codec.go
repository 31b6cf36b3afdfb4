package persist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns a snapshot value into bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return CodecJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return CodecMsgpack }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// JSON encodes snapshots as JSON.
func JSON() Codec    { return jsonCodec{} }
// Msgpack encodes snapshots as MessagePack.
func Msgpack() Codec { return msgpackCodec{} }

// CodecByName resolves a configured codec name. Empty means JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CodecJSON:
		return JSON(), nil
	case CodecMsgpack:
		return Msgpack(), nil
	default:
		return nil, fmt.Errorf("persist: unknown codec %q", name)
	}
}
