// Package codable builds record codecs from declarative schemas.
//
// A schema describes each field of a record: its shape (scalar, optional,
// array, set or map), its element type, and attributes controlling how it
// is found in and written to a hierarchical document. The schema is
// normalized once into immutable plans and compiled into a decode and an
// encode procedure.
//
// # Struct Tags
//
// Go structs declare their schema with the codable tag:
//
//	type User struct {
//	    _        struct{}  `codable:"case=snake"`
//	    ID       int64     `codable:"key=id|user_id"`
//	    Name     string    `codable:"key=profile.name"`
//	    Email    *string   `codable:"codec=mask.email"`
//	    Avatar   []byte    `codable:"base64"`
//	    Joined   time.Time `codable:"date=epoch-seconds"`
//	    Tags     []string  `codable:"compact"`
//	    Role     string    `codable:"default=member"`
//	    Internal string    `codable:"ignore,default=x"`
//	}
//
// Attributes:
//
//	key=a|b            decode keys tried before case-derived keys and the field name
//	encodekey=x        key written on encode (default: first decode key)
//	nested=false       write dotted encode keys as flat keys
//	case=snake|kebab   derive extra decode keys from the field name
//	ignore             never read or written; needs a default, Init or pointer type
//	default=literal    value used when the key is missing or unreadable
//	base64             []byte as base64 text instead of an array of numbers
//	date=strategy      epoch-seconds, epoch-seconds-int, epoch-millis,
//	                   reference-date, iso8601 or format|<layout>
//	compact            drop null or invalid collection elements
//	codec=name         custom FieldCodec (built-in or WithFieldCodec)
//	flatten            nested struct reads and writes the parent's keys
//
// Type attributes go on a blank field: case, container and
// encodecontainer.
//
// # Hooks
//
// Types may implement Initializer, DecodeHook and EncodeHook.
//
// # Formats
//
// The core works on Value trees and never parses bytes. Format
// implementations live in subpackages:
//
//   - json - application/json
//   - yaml - application/yaml
//   - msgpack - application/msgpack
//   - bson - application/bson
//
// Serializer pairs a Format with a Codec and emits capitan signals around
// every operation.
package codable

// Format converts between bytes and document values.
type Format interface {
	// ContentType returns the MIME type of the format.
	ContentType() string

	// Marshal renders a document value.
	Marshal(v Value) ([]byte, error)

	// Unmarshal parses bytes into a document value.
	Unmarshal(data []byte) (Value, error)
}

// Initializer is implemented by types whose fields have initial values.
// Init runs on a fresh value before decoding; fields the document does
// not supply keep what Init assigned instead of failing.
type Initializer interface {
	Init()
}

// DecodeHook runs after every field of a value has been decoded. An error
// aborts the decode.
type DecodeHook interface {
	DidDecode() error
}

// EncodeHook runs before a value is encoded and may modify it. An error
// aborts the encode.
type EncodeHook interface {
	WillEncode() error
}
