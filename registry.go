package codable

import (
	"reflect"
	"sync"
)

// registryKey combines type and format for cache lookup.
type registryKey struct {
	typ         reflect.Type
	contentType string
}

var (
	registry   = make(map[registryKey]any)
	registryMu sync.RWMutex
)

// Use returns a cached serializer or builds a new one. Serializers are
// cached by type and format content type; options only apply to the call
// that builds the entry.
func Use[T any](format Format, opts ...Option) (*Serializer[T], error) {
	key := registryKey{typ: reflect.TypeFor[T](), contentType: format.ContentType()}

	registryMu.RLock()
	if cached, ok := registry[key]; ok {
		registryMu.RUnlock()
		return cached.(*Serializer[T]), nil
	}
	registryMu.RUnlock()

	registryMu.Lock()
	defer registryMu.Unlock()

	if cached, ok := registry[key]; ok {
		return cached.(*Serializer[T]), nil
	}

	s, err := NewSerializer[T](format, opts...)
	if err != nil {
		return nil, err
	}
	registry[key] = s
	return s, nil
}

// Reset clears the serializer registry.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[registryKey]any)
}
