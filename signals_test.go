package codable

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitSchemaBuilt(t *testing.T) {
	// Should not panic
	emitSchemaBuilt(context.Background(), "User", 4)
}

func TestEmitStart(t *testing.T) {
	ctx := context.Background()
	emitStart(ctx, SignalDecodeStart, "application/json", "User", 128)
	// Unknown size is omitted
	emitStart(ctx, SignalEncodeStart, "application/json", "User", -1)
}

func TestEmitComplete(t *testing.T) {
	ctx := context.Background()
	emitComplete(ctx, SignalDecodeComplete, "application/json", "User", 128, time.Millisecond, nil)
	emitComplete(ctx, SignalEncodeComplete, "application/json", "User", 0, time.Millisecond, errors.New("boom"))
}

func TestSignalVariables(t *testing.T) {
	signals := []struct {
		name   string
		signal interface{}
	}{
		{"SignalSchemaBuilt", SignalSchemaBuilt},
		{"SignalDecodeStart", SignalDecodeStart},
		{"SignalDecodeComplete", SignalDecodeComplete},
		{"SignalEncodeStart", SignalEncodeStart},
		{"SignalEncodeComplete", SignalEncodeComplete},
	}
	for _, s := range signals {
		if s.signal == nil {
			t.Errorf("%s is nil", s.name)
		}
	}
}

func TestKeyVariables(t *testing.T) {
	keys := []struct {
		name string
		key  interface{}
	}{
		{"KeyTypeName", KeyTypeName},
		{"KeyContentType", KeyContentType},
		{"KeySize", KeySize},
		{"KeyDuration", KeyDuration},
		{"KeyFieldCount", KeyFieldCount},
		{"KeyError", KeyError},
	}
	for _, k := range keys {
		if k.key == nil {
			t.Errorf("%s is nil", k.name)
		}
	}
}
