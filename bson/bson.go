// Package bson provides a BSON format for codable documents.
//
// BSON documents must be objects at the top level. Unsigned integers are
// written as int64 and rejected when they do not fit.
package bson

import (
	"fmt"
	"math"
	"time"

	"github.com/reers/codable"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonFormat implements codable.Format for BSON.
type bsonFormat struct{}

// New returns a BSON format.
func New() codable.Format {
	return &bsonFormat{}
}

// ContentType returns the MIME type for BSON.
func (f *bsonFormat) ContentType() string {
	return "application/bson"
}

// Marshal encodes v, which must be an object, as a BSON document.
func (f *bsonFormat) Marshal(v codable.Value) ([]byte, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("bson documents must be objects, got %s", v.Kind())
	}
	d, err := toD(obj)
	if err != nil {
		return nil, err
	}
	return bson.Marshal(d)
}

// Unmarshal decodes a BSON document, keeping field order.
func (f *bsonFormat) Unmarshal(data []byte) (codable.Value, error) {
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return codable.Value{}, err
	}
	return fromBSON(d)
}

func toD(obj *codable.Object) (bson.D, error) {
	d := make(bson.D, 0, obj.Len())
	for _, k := range obj.Keys() {
		e, _ := obj.Get(k)
		x, err := toBSON(e)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		d = append(d, bson.E{Key: k, Value: x})
	}
	return d, nil
}

func toBSON(v codable.Value) (any, error) {
	switch v.Kind() {
	case codable.KindAbsent, codable.KindNull:
		return nil, nil
	case codable.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case codable.KindInt:
		i, _ := v.AsInt()
		return i, nil
	case codable.KindUint:
		u, _ := v.AsUint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return int64(u), nil
	case codable.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case codable.KindString:
		s, _ := v.AsString()
		return s, nil
	case codable.KindArray:
		elems, _ := v.AsArray()
		a := make(bson.A, 0, len(elems))
		for i, e := range elems {
			x, err := toBSON(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			a = append(a, x)
		}
		return a, nil
	case codable.KindObject:
		obj, _ := v.AsObject()
		return toD(obj)
	}
	return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
}

func fromBSON(x any) (codable.Value, error) {
	switch t := x.(type) {
	case bson.D:
		obj := codable.NewObject()
		for _, e := range t {
			v, err := fromBSON(e.Value)
			if err != nil {
				return codable.Value{}, fmt.Errorf("%s: %w", e.Key, err)
			}
			obj.Set(e.Key, v)
		}
		return codable.ObjectValue(obj), nil
	case bson.A:
		elems := make([]codable.Value, 0, len(t))
		for i, e := range t {
			v, err := fromBSON(e)
			if err != nil {
				return codable.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, v)
		}
		return codable.Array(elems...), nil
	case primitive.DateTime:
		return codable.String(t.Time().UTC().Format(time.RFC3339Nano)), nil
	case primitive.Timestamp:
		return codable.Int(int64(t.T)), nil
	case primitive.ObjectID:
		return codable.String(t.Hex()), nil
	case primitive.Binary:
		return codable.String(codable.EncodeBase64(t.Data)), nil
	case primitive.Decimal128:
		return codable.String(t.String()), nil
	case primitive.Null, primitive.Undefined:
		return codable.Null(), nil
	}
	v, ok := codable.FromNative(x)
	if !ok {
		return codable.Value{}, fmt.Errorf("unsupported bson value %T", x)
	}
	return v, nil
}
