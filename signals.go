package codable

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for codec events.
var (
	SignalSchemaBuilt    = capitan.NewSignal("codable.schema.built", "Record schema normalized and compiled")
	SignalDecodeStart    = capitan.NewSignal("codable.decode.start", "Decode operation beginning")
	SignalDecodeComplete = capitan.NewSignal("codable.decode.complete", "Decode operation finished")
	SignalEncodeStart    = capitan.NewSignal("codable.encode.start", "Encode operation beginning")
	SignalEncodeComplete = capitan.NewSignal("codable.encode.complete", "Encode operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyContentType = capitan.NewStringKey("content_type")
	KeySize        = capitan.NewIntKey("size")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyFieldCount  = capitan.NewIntKey("field_count")
	KeyError       = capitan.NewErrorKey("error")
)

func emitSchemaBuilt(ctx context.Context, typeName string, fields int) {
	capitan.Emit(ctx, SignalSchemaBuilt,
		KeyTypeName.Field(typeName),
		KeyFieldCount.Field(fields),
	)
}

func emitStart(ctx context.Context, sig capitan.Signal, contentType, typeName string, size int) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	}
	if size >= 0 {
		fields = append(fields, KeySize.Field(size))
	}
	capitan.Emit(ctx, sig, fields...)
}

// emitComplete emits a completion signal, at error severity when err is set.
func emitComplete(ctx context.Context, sig capitan.Signal, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, sig, fields...)
	} else {
		capitan.Emit(ctx, sig, fields...)
	}
}
