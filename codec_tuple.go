package typedstore

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
)

var errEmptyTuple = errors.New("cannot encode an empty tuple")

// Tuple is a composite key made of byte strings, e.g. {namespace, id}.
type Tuple [][]byte

func (tup Tuple) String() string {
	var buf strings.Builder
	for i, el := range tup {
		if i > 0 {
			buf.WriteByte('|')
		}
		buf.WriteString(hex.EncodeToString(el))
	}
	return buf.String()
}

func (tup Tuple) Equal(another Tuple) bool {
	n := len(tup)
	if len(another) != n {
		return false
	}
	for i, b := range tup {
		if !bytes.Equal(b, another[i]) {
			return false
		}
	}
	return true
}

// TupleCodec encodes tuples as el1 el2 ... elN len1 len2 ... lenN-1 N, with
// lengths and count stored as byte-reversed uvarints for right-to-left
// reading. Element lengths are all recoverable, so distinct tuples never
// collide, and tuples sharing leading elements share a byte prefix.
type TupleCodec struct{}

func (TupleCodec) Encode(tup Tuple) ([]byte, error) {
	if len(tup) == 0 {
		// would encode the same as a single empty element
		return nil, errEmptyTuple
	}
	var total int
	for _, el := range tup {
		total += len(el)
	}
	buf := make([]byte, 0, total+5*len(tup))
	for _, el := range tup {
		buf = appendRaw(buf, el)
	}
	for _, el := range tup[:len(tup)-1] {
		buf = appendRuvarint(buf, uint32(len(el)))
	}
	return appendRuvarint(buf, uint32(len(tup))), nil
}

func (TupleCodec) Decode(data []byte) (Tuple, error) {
	c, raw, ok := decodeRuvarint(data)
	if !ok || c == 0 {
		return nil, dataErrf(data, len(data), nil, "invalid tuple element count")
	}
	if uint64(c) > uint64(len(raw))+1 {
		return nil, dataErrf(data, len(raw), nil, "invalid tuple: %d elements in %d bytes", c, len(data))
	}

	lens := make([]uint32, c)
	for i := int(c) - 2; i >= 0; i-- {
		lens[i], raw, ok = decodeRuvarint(raw)
		if !ok {
			return nil, dataErrf(data, len(raw), nil, "invalid tuple element length")
		}
	}

	var explicitLen uint64
	for _, n := range lens {
		explicitLen += uint64(n)
	}
	if explicitLen > uint64(len(raw)) {
		return nil, dataErrf(data, 0, nil, "invalid tuple: sum of explicit lens %d is greater than total data len %d", explicitLen, len(raw))
	}
	lens[c-1] = uint32(uint64(len(raw)) - explicitLen)

	// elements own their bytes; data may be shared by several readers
	raw = bytes.Clone(raw)
	tup := make(Tuple, c)
	var off uint32
	for i, n := range lens {
		tup[i] = raw[off : off+n : off+n]
		off += n
	}
	return tup, nil
}
