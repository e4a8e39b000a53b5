package typedstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts typed keys and values to the bytes an Engine stores.
//
// Encode must be deterministic. Codecs used for keys must also be
// injective: waiters are matched by encoded bytes, so two keys that encode
// the same are the same key.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// MsgPack encodes values with msgpack, sorting map keys so that equal values
// always produce equal bytes.
type MsgPack[T any] struct{}

func (MsgPack[T]) Encode(v T) ([]byte, error) {
	var bb bytesBuilder
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	return bb.Buf, nil
}

func (MsgPack[T]) Decode(data []byte) (T, error) {
	var v T
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(&v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return v, dataErrf(data, 0, err, "failed to decode msgpack into %T", v)
	}
	if r.Len() != 0 {
		return v, dataErrf(data, len(data)-r.Len(), nil, "%d trailing bytes after msgpack %T", r.Len(), v)
	}
	return v, nil
}

// JSON is handy for values that must stay human-readable on disk. Avoid it
// for keys holding maps or floats.
type JSON[T any] struct{}

func (JSON[T]) Encode(v T) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T to JSON: %w", v, err)
	}
	return raw, nil
}

func (JSON[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	if err != nil {
		return v, dataErrf(data, 0, err, "failed to decode JSON into %T", v)
	}
	return v, nil
}

// Bytes stores byte slices as is. Both directions copy: the encoded value
// outlives Write (it is handed to waiters), and one notification's bytes
// are shared by all of its waiters.
type Bytes struct{}

func (Bytes) Encode(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte{}, nil
	}
	return slices.Clone(v), nil
}

func (Bytes) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	return slices.Clone(data), nil
}

type String struct{}

func (String) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

func (String) Decode(data []byte) (string, error) {
	return string(data), nil
}

// Uint64 encodes integers as 8 big-endian bytes, preserving their order.
type Uint64 struct{}

func (Uint64) Encode(v uint64) ([]byte, error) {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), v), nil
}

func (Uint64) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, dataErrf(data, 0, nil, "uint64 must be 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
