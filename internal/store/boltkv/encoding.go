package boltkv

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/mrverify/internal/mapred"
)

// encodeObject serializes an object's value and metadata. Bucket and key
// are the bbolt location and are not stored.
func encodeObject(obj mapred.Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.UseCompactInts(true)
	err := enc.Encode(&obj)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode object using MsgPack: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeObject(data []byte) (mapred.Object, error) {
	var obj mapred.Object
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(&obj)
	msgpack.PutDecoder(dec)
	if err != nil {
		return mapred.Object{}, fmt.Errorf("failed to decode msgpack object: %w", err)
	}
	return obj, nil
}
