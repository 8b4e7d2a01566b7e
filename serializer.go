package codable

import (
	"context"
	"time"
)

// Serializer pairs a Codec with a Format. Unmarshal parses bytes and
// decodes the document into a T; Marshal runs the reverse path.
//
// Serializers are immutable and safe for concurrent use.
type Serializer[T any] struct {
	format Format
	codec  *Codec[T]
}

// NewSerializer builds a Codec for T and binds it to format.
func NewSerializer[T any](format Format, opts ...Option) (*Serializer[T], error) {
	c, err := New[T](opts...)
	if err != nil {
		return nil, err
	}
	return &Serializer[T]{format: format, codec: c}, nil
}

// Codec returns the codec used by s.
func (s *Serializer[T]) Codec() *Codec[T] {
	return s.codec
}

// ContentType returns the content type of the underlying format.
func (s *Serializer[T]) ContentType() string {
	return s.format.ContentType()
}

// Unmarshal parses data and decodes it into a new T.
func (s *Serializer[T]) Unmarshal(ctx context.Context, data []byte) (*T, error) {
	start := time.Now()
	ct, name := s.format.ContentType(), s.codec.plan.Name
	emitStart(ctx, SignalDecodeStart, ct, name, len(data))

	var retErr error
	defer func() {
		emitComplete(ctx, SignalDecodeComplete, ct, name, len(data), time.Since(start), retErr)
	}()

	doc, err := s.format.Unmarshal(data)
	if err != nil {
		retErr = newCodecError(ErrUnmarshal, err)
		return nil, retErr
	}
	out, err := s.codec.DecodeValue(doc)
	if err != nil {
		retErr = err
		return nil, retErr
	}
	return out, nil
}

// Marshal encodes v and renders the document.
func (s *Serializer[T]) Marshal(ctx context.Context, v *T) ([]byte, error) {
	start := time.Now()
	ct, name := s.format.ContentType(), s.codec.plan.Name
	emitStart(ctx, SignalEncodeStart, ct, name, -1)

	var retErr error
	var retData []byte
	defer func() {
		emitComplete(ctx, SignalEncodeComplete, ct, name, len(retData), time.Since(start), retErr)
	}()

	doc, err := s.codec.EncodeValue(v)
	if err != nil {
		retErr = err
		return nil, retErr
	}
	retData, err = s.format.Marshal(doc)
	if err != nil {
		retErr = newCodecError(ErrMarshal, err)
		retData = nil
		return nil, retErr
	}
	return retData, nil
}
