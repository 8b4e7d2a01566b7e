// Package msgpack provides a MessagePack format for codable documents.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/reers/codable"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// msgpackFormat implements codable.Format for MessagePack.
type msgpackFormat struct{}

// New returns a MessagePack format.
func New() codable.Format {
	return &msgpackFormat{}
}

// ContentType returns the MIME type for MessagePack.
func (f *msgpackFormat) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack. Integers use the smallest encoding
// that holds them and maps keep their insertion order.
func (f *msgpackFormat) Marshal(v codable.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := encode(enc, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one MessagePack value. Binary strings become base64
// text and timestamps become RFC 3339 text, matching how codable reads
// bytes and dates.
func (f *msgpackFormat) Unmarshal(data []byte) (codable.Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	v, err := decode(dec)
	if err != nil {
		return codable.Value{}, err
	}
	if _, err := dec.PeekCode(); !errors.Is(err, io.EOF) {
		return codable.Value{}, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decode(dec *msgpack.Decoder) (codable.Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return codable.Value{}, err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return codable.Value{}, err
		}
		obj := codable.NewObject()
		for i := 0; i < n; i++ {
			k, err := dec.DecodeInterfaceLoose()
			if err != nil {
				return codable.Value{}, err
			}
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			v, err := decode(dec)
			if err != nil {
				return codable.Value{}, err
			}
			obj.Set(key, v)
		}
		return codable.ObjectValue(obj), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return codable.Value{}, err
		}
		elems := make([]codable.Value, 0, n)
		for i := 0; i < n; i++ {
			v, err := decode(dec)
			if err != nil {
				return codable.Value{}, err
			}
			elems = append(elems, v)
		}
		return codable.Array(elems...), nil
	}

	x, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return codable.Value{}, err
	}
	switch t := x.(type) {
	case []byte:
		return codable.String(codable.EncodeBase64(t)), nil
	case time.Time:
		return codable.String(t.UTC().Format(time.RFC3339Nano)), nil
	}
	v, ok := codable.FromNative(x)
	if !ok {
		return codable.Value{}, fmt.Errorf("unsupported msgpack value %T", x)
	}
	return v, nil
}

func encode(enc *msgpack.Encoder, v codable.Value) error {
	switch v.Kind() {
	case codable.KindAbsent, codable.KindNull:
		return enc.EncodeNil()
	case codable.KindBool:
		b, _ := v.AsBool()
		return enc.EncodeBool(b)
	case codable.KindInt:
		i, _ := v.AsInt()
		return enc.EncodeInt(i)
	case codable.KindUint:
		u, _ := v.AsUint()
		return enc.EncodeUint(u)
	case codable.KindFloat:
		f, _ := v.AsFloat()
		return enc.EncodeFloat64(f)
	case codable.KindString:
		s, _ := v.AsString()
		return enc.EncodeString(s)
	case codable.KindArray:
		elems, _ := v.AsArray()
		if err := enc.EncodeArrayLen(len(elems)); err != nil {
			return err
		}
		for _, e := range elems {
			if err := encode(enc, e); err != nil {
				return err
			}
		}
		return nil
	case codable.KindObject:
		obj, _ := v.AsObject()
		keys := obj.Keys()
		if err := enc.EncodeMapLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			e, _ := obj.Get(k)
			if err := encode(enc, e); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported value kind %s", v.Kind())
}
